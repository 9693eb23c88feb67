package ratelimit

import (
	"net/http"

	"keyfade/middleware/ratelimit/application"
	"keyfade/middleware/ratelimit/domain"
	"keyfade/middleware/requestmeta"
	"keyfade/notify"
	"keyfade/telemetry"
)

// AbuseRecorder é o pedaço do telemetry.Recorder usado aqui.
type AbuseRecorder interface {
	Record(t telemetry.EventType, d telemetry.Details)
}

// AbuseHook registra cada bloqueio como rate_limit_hit e notifica, no máximo
// uma vez por IP dentro da janela de supressão do Gate. Um alerta descartado
// pelo Notifier não conta para a supressão.
type AbuseHook struct {
	Recorder   AbuseRecorder
	Notifier   notify.Notifier
	Gate       application.NotifyGate
	TrustProxy bool
}

func (h AbuseHook) OnLimit(r *http.Request, key string) {
	ip := requestmeta.ClientIP(r, h.TrustProxy)
	secretID := requestmeta.SecretID(r)

	if h.Recorder != nil {
		h.Recorder.Record(telemetry.RateLimitHit, telemetry.Details{
			IP:       ip,
			Method:   r.Method,
			Path:     requestmeta.SanitizedPath(r),
			SecretID: secretID,
			Reason:   "Rate limit exceeded",
		})
	}

	if h.Notifier == nil || !h.Gate.Allow(domain.Key(key)) {
		return
	}
	sent := h.Notifier.Notify(notify.TitleRateLimit, notify.Payload{
		ErrorMessage: "Rate limit exceeded for Secret ID: " + secretID + " from IP: " + ip,
		SecretID:     secretID,
		IP:           ip,
	})
	if !sent {
		h.Gate.Release(domain.Key(key))
	}
}
