package secrets

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"keyfade/middleware/jsonresp"
	"keyfade/middleware/requestmeta"
	"keyfade/telemetry"
)

const maxCreateBody = 1 << 20

const (
	msgStored       = "Secret and key stored successfully"
	msgDeleted      = "Secret and key deleted successfully"
	msgInvalidInput = "Secret value is required and must be a string"
	msgInvalidKey   = "Unauthorized: Invalid key"
	msgNotFound     = "Secret not found"
	msgStoreFailed  = "Failed to store secret"
	msgRetrieveFail = "Failed to retrieve secret"
	msgDeleteFailed = "Failed to delete secret"
)

type Recorder interface {
	Record(t telemetry.EventType, d telemetry.Details)
}

// Handler expõe o Service em HTTP. As rotas de leitura/exclusão precisam dos
// path values {id} e {key}.
type Handler struct {
	Service    *Service
	Recorder   Recorder
	TrustProxy bool
	Logger     zerolog.Logger
}

// Routes guarda o middleware de cada rota. Campos nil significam sem middleware.
type Routes struct {
	Create   func(http.Handler) http.Handler
	Retrieve func(http.Handler) http.Handler
	Delete   func(http.Handler) http.Handler
}

// Register monta as três rotas no mux, cada uma com o seu middleware (ex.: HMAC + rate limit).
func (h Handler) Register(mux *http.ServeMux, rt Routes) {
	mux.Handle("POST /api/create", orPassthrough(rt.Create)(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/secrets/{id}/{key}", orPassthrough(rt.Retrieve)(http.HandlerFunc(h.Retrieve)))
	mux.Handle("DELETE /api/secrets/{id}/{key}", orPassthrough(rt.Delete)(http.HandlerFunc(h.Delete)))
}

func orPassthrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return passthrough
	}
	return mw
}

func passthrough(next http.Handler) http.Handler { return next }

type createRequest struct {
	Value      any `json:"value"`
	ExpiryDays any `json:"expiryDays"`
}

type createResponse struct {
	Message   string    `json:"message"`
	SecretID  string    `json:"secretId"`
	Key       string    `json:"key"`
	ExpiresOn time.Time `json:"expiresOn"`
	FullURL   string    `json:"fullUrl"`
}

type retrieveResponse struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	DaysLeft *int   `json:"daysLeft"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&req); err != nil {
		h.Logger.Warn().Err(err).Msg("invalid create payload")
		jsonresp.Error(w, http.StatusBadRequest, msgInvalidInput)
		return
	}
	value, ok := req.Value.(string)
	if !ok || value == "" {
		h.Logger.Warn().Msg("invalid input: secret value is required and must be a string")
		jsonresp.Error(w, http.StatusBadRequest, msgInvalidInput)
		return
	}

	created, err := h.Service.Create(r.Context(), CreateInput{Value: value, ExpiryDays: expiryDays(req.ExpiryDays)})
	if err != nil {
		h.writeError(w, r, err, msgStoreFailed)
		return
	}

	jsonresp.Write(w, http.StatusCreated, createResponse{
		Message:   msgStored,
		SecretID:  created.SecretID,
		Key:       created.Key,
		ExpiresOn: created.ExpiresOn,
		FullURL:   created.FullURL,
	})
}

func (h Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	got, err := h.Service.Retrieve(r.Context(), r.PathValue("id"), r.PathValue("key"))
	if err != nil {
		h.writeError(w, r, err, msgRetrieveFail)
		return
	}
	h.Logger.Info().Str("secretId", got.Name).Msg("secret retrieved")
	jsonresp.Write(w, http.StatusOK, retrieveResponse{Name: got.Name, Value: got.Value, DaysLeft: got.DaysLeft})
}

func (h Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), r.PathValue("id"), r.PathValue("key")); err != nil {
		h.writeError(w, r, err, msgDeleteFailed)
		return
	}
	jsonresp.Write(w, http.StatusOK, messageResponse{Message: msgDeleted})
}

// writeError traduz o erro do Service em status + corpo. 403/404 contam como tentativa
// falha na telemetria; o resto vira 500 com mensagem genérica.
func (h Handler) writeError(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		jsonresp.Error(w, http.StatusBadRequest, msgInvalidInput)
	case errors.Is(err, ErrInvalidKey):
		h.recordFailure(r, "Invalid key")
		jsonresp.Error(w, http.StatusForbidden, msgInvalidKey)
	case errors.Is(err, ErrNotFound):
		h.recordFailure(r, "Secret not found")
		jsonresp.Error(w, http.StatusNotFound, msgNotFound)
	default:
		h.Logger.Error().Err(err).Str("path", requestmeta.SanitizedPath(r)).Msg(failMsg)
		jsonresp.Error(w, http.StatusInternalServerError, failMsg)
	}
}

func (h Handler) recordFailure(r *http.Request, reason string) {
	ip := requestmeta.ClientIP(r, h.TrustProxy)
	path := requestmeta.SanitizedPath(r)
	id := r.PathValue("id")

	h.Logger.Warn().Str("ip", ip).Str("secretId", id).Str("path", path).Msg(reason)
	if h.Recorder == nil {
		return
	}
	h.Recorder.Record(telemetry.FailedAttempt, telemetry.Details{
		IP:       ip,
		Method:   r.Method,
		Path:     path,
		SecretID: id,
		Reason:   reason,
	})
}

// expiryDays aceita número ou string numérica; qualquer outra coisa vira 0 (=> 1 dia).
func expiryDays(v any) int {
	switch d := v.(type) {
	case float64:
		if d > MaxExpiryDays {
			return MaxExpiryDays
		}
		if d < MinExpiryDays {
			return 0
		}
		return int(d)
	case string:
		n, err := strconv.Atoi(d)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
