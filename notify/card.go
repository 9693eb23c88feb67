package notify

// Títulos conhecidos. Qualquer título diferente de TitleServerStart vira alerta.
const (
	TitleServerStart = "Server Start"
	TitleRateLimit   = "Rate Limiting Error"
	TitleCORS        = "CORS Error"
)

const (
	themeGreen = "00FF00"
	themeRed   = "FF0000"

	defaultAlertText = "Rate limit or security alert triggered. Consider blocking this IP at the firewall or proxy level to prevent further requests from this IP."
)

// Payload são os dados de uma notificação. Campos vazios viram placeholders no card.
type Payload struct {
	ErrorMessage string
	SecretID     string
	IP           string
	Origin       string
	Text         string
}

// MessageCard é o formato "connector card" aceito por webhooks de Teams/Office 365.
type MessageCard struct {
	Type       string    `json:"@type"`
	Context    string    `json:"@context"`
	Summary    string    `json:"summary"`
	ThemeColor string    `json:"themeColor"`
	Title      string    `json:"title"`
	Sections   []Section `json:"sections"`
}

type Section struct {
	Facts []Fact `json:"facts"`
	Text  string `json:"text"`
}

type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BuildCard monta o card: verde para início do servidor, vermelho para alertas.
func BuildCard(title, backendURL string, p Payload) MessageCard {
	card := MessageCard{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Summary: title,
		Title:   title,
	}

	if title == TitleServerStart {
		card.ThemeColor = themeGreen
		card.Sections = []Section{{
			Facts: []Fact{{Name: "Backend URL", Value: backendURL}},
			Text:  "Server Started",
		}}
		return card
	}

	card.ThemeColor = themeRed
	card.Sections = []Section{{
		Facts: []Fact{
			{Name: "Error Message", Value: orDefault(p.ErrorMessage, "No specific error")},
			{Name: "Secret ID", Value: orDefault(p.SecretID, "N/A")},
			{Name: "IP Address", Value: orDefault(p.IP, "Unknown")},
		},
		Text: orDefault(p.Text, defaultAlertText),
	}}
	if p.Origin != "" {
		card.Sections[0].Facts = append(card.Sections[0].Facts, Fact{Name: "Origin", Value: p.Origin})
	}
	return card
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
