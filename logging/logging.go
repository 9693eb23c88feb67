// Package logging monta o zerolog.Logger do serviço.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New cria um logger com timestamp. format "console" gera saída legível; qualquer
// outro valor gera JSON. Níveis desconhecidos caem em info.
func New(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

const masked = "[REDACTED]"

var sensitiveKeys = map[string]bool{
	"secret":        true,
	"value":         true,
	"key":           true,
	"token":         true,
	"password":      true,
	"authorization": true,
	"clientsecret":  true,
}

// Redact devolve uma cópia de fields com os campos sensíveis mascarados.
// A comparação ignora caixa e pontuação ("Client_Secret" == "clientsecret").
// Mapas aninhados também são percorridos.
func Redact(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if sensitiveKeys[normalizeKey(k)] {
			out[k] = masked
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = Redact(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func normalizeKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, r := range strings.ToLower(k) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
