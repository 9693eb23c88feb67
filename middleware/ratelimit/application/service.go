package application

import (
	"context"
	"time"

	"keyfade/middleware/ratelimit/domain"
)

const (
	DefaultLimit  = 10
	DefaultWindow = 10 * time.Minute
)

// Service concentra a regra de janela fixa: Limit requisições por chave a cada Window.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store  domain.WindowStore
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

// Decide contabiliza a requisição e decide. Sem Store, tudo passa.
// Em erro do Store a decisão é permitir; o chamador decide se loga.
func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Limit <= 0 {
		s.Limit = DefaultLimit
	}
	if s.Window <= 0 {
		s.Window = DefaultWindow
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Store == nil {
		return domain.Decision{Allowed: true, Limit: s.Limit, Remaining: s.Limit}, nil
	}

	hit, err := s.Store.Incr(ctx, key, s.Window)
	if err != nil {
		return domain.Decision{Allowed: true, Limit: s.Limit, Remaining: s.Limit}, err
	}

	dec := domain.Decision{
		Allowed: hit.Count <= int64(s.Limit),
		Limit:   s.Limit,
		ResetAt: hit.ResetAt,
	}
	if rem := int64(s.Limit) - hit.Count; rem > 0 {
		dec.Remaining = int(rem)
	}
	if !dec.Allowed {
		dec.RetryAfter = hit.ResetAt.Sub(s.Now())
		if dec.RetryAfter < time.Second {
			dec.RetryAfter = time.Second
		}
	}
	return dec, nil
}
