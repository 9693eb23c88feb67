package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// NextRun devolve o próximo instante hour:minute estritamente depois de now, no fuso de now.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Scheduler dispara uma varredura na partida e depois todo dia em Hour:Minute.
type Scheduler struct {
	Sweeper *Sweeper
	Hour    int
	Minute  int
	Now     func() time.Time
	// After permite trocar o relógio nos testes (default time.After).
	After  func(d time.Duration) <-chan time.Time
	Logger zerolog.Logger
}

// Run bloqueia até ctx encerrar. Falhas de varredura são logadas pelo Sweeper
// e o Scheduler apenas aguarda o próximo disparo.
func (s Scheduler) Run(ctx context.Context) {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.After == nil {
		s.After = time.After
	}

	s.Logger.Info().Msg("running immediate vault cleanup")
	_, _ = s.Sweeper.Sweep(ctx)

	for {
		next := NextRun(s.Now(), s.Hour, s.Minute)
		s.Logger.Info().Time("next", next).Msg("next vault cleanup scheduled")

		select {
		case <-ctx.Done():
			return
		case <-s.After(next.Sub(s.Now())):
			s.Logger.Info().Msg("running daily vault cleanup")
			_, _ = s.Sweeper.Sweep(ctx)
		}
	}
}
