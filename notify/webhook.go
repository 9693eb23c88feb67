// Package notify entrega alertas operacionais a um webhook externo.
//
// Entrega é best-effort: Notify nunca bloqueia quem chamou, falhas são logadas
// e descartadas, e um token bucket (x/time/rate) limita a vazão de saída para
// que um ataque não vire uma enxurrada de mensagens.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Notifier é o colaborador usado pelo resto do serviço.
//
// Notify devolve false quando o alerta foi descartado antes do envio (sem URL
// ou barrado pelo throttle de saída).
type Notifier interface {
	Notify(title string, p Payload) bool
}

// Nop descarta tudo.
type Nop struct{}

func (Nop) Notify(string, Payload) bool { return false }

// Config configura o Webhook.
type Config struct {
	URL        string
	BackendURL string
	Headers    map[string]string
	Timeout    time.Duration
	// RPS/Burst limitam notificações de saída. RPS <= 0 desliga o limite.
	RPS   float64
	Burst int
}

// Webhook posta MessageCards em Config.URL.
type Webhook struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	wg      sync.WaitGroup
}

type Option func(*Webhook)

func WithClient(c *http.Client) Option {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Webhook) { w.log = l }
}

func NewWebhook(cfg Config, opts ...Option) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	w := &Webhook{cfg: cfg, log: zerolog.Nop()}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.client == nil {
		w.client = &http.Client{Timeout: cfg.Timeout}
	}
	return w
}

// Notify dispara o envio em background e retorna na hora.
func (w *Webhook) Notify(title string, p Payload) bool {
	if strings.TrimSpace(w.cfg.URL) == "" {
		w.log.Error().Str("title", title).Msg("WEBHOOK_URL is not configured; notification skipped")
		return false
	}
	if w.limiter != nil && !w.limiter.Allow() {
		w.log.Warn().Str("title", title).Msg("webhook notification dropped by outbound throttle")
		return false
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
		defer cancel()
		if err := w.Send(ctx, title, p); err != nil {
			w.log.Error().Err(err).Str("title", title).Msg("failed to send webhook notification")
			return
		}
		w.log.Info().Str("title", title).Msg("webhook notification sent")
	}()
	return true
}

// Send entrega o card de forma síncrona.
func (w *Webhook) Send(ctx context.Context, title string, p Payload) error {
	body, err := json.Marshal(BuildCard(title, w.cfg.BackendURL, p))
	if err != nil {
		return errors.Wrap(err, "webhook: encode card")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "webhook: build request")
	}
	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook: request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Wait bloqueia até os envios em andamento terminarem (shutdown e testes).
func (w *Webhook) Wait() { w.wg.Wait() }
