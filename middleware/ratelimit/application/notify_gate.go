package application

import (
	"time"

	"keyfade/middleware/ratelimit/domain"
)

const DefaultSuppressFor = 15 * time.Minute

// NotifyGate evita tempestade de alertas: cada chave gera no máximo um alerta
// a cada SuppressFor. Sem Cache, todo alerta passa.
type NotifyGate struct {
	Cache       domain.SuppressionCache
	SuppressFor time.Duration
}

func (g NotifyGate) Allow(key domain.Key) bool {
	if g.Cache == nil {
		return true
	}
	ttl := g.SuppressFor
	if ttl <= 0 {
		ttl = DefaultSuppressFor
	}
	return g.Cache.MarkIfAbsent(string(key), ttl)
}

// Release desfaz um Allow cujo alerta não chegou a sair, para que o próximo
// bloqueio da mesma chave tente de novo.
func (g NotifyGate) Release(key domain.Key) {
	if g.Cache != nil {
		g.Cache.Forget(string(key))
	}
}
