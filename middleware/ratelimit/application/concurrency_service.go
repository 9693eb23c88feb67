package application

import (
	"context"
	"sync"
	"time"

	"keyfade/middleware/ratelimit/domain"
)

// ConcurrencyService decide se uma requisição ganha vaga no pool de atendimento.
type ConcurrencyService struct {
	Pool domain.SlotPool
	// AcquireTimeout <= 0 espera até o ctx da requisição encerrar.
	AcquireTimeout time.Duration
	// OnBusy é chamado a cada requisição que fica sem vaga.
	OnBusy func()
}

// Acquire devolve (release, ok). Com ok=false nenhuma vaga foi tomada e release é nil.
// O release devolvido pode ser chamado mais de uma vez; só a primeira chamada libera.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	waitCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(waitCtx)
	if !ok {
		if s.OnBusy != nil {
			s.OnBusy()
		}
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(release) }, true
}
