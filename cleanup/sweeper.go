// Package cleanup varre o vault, apaga itens vencidos e alimenta o inventário
// de segredos com o conjunto de nomes ativos.
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"keyfade/vault/domain"
)

// Inventory recebe o resultado de uma varredura completa (telemetry.Inventory).
type Inventory interface {
	SyncFromFullScan(names []string)
}

// Observer recebe o desfecho de cada varredura (telemetry.Metrics).
type Observer interface {
	ObserveSweep(err error, deleted int)
}

// Result resume uma varredura.
type Result struct {
	Scanned  int
	Deleted  int
	Active   int
	Disabled int
	Errors   int
}

// Sweeper executa uma varredura por vez e guarda um cache de expirações entre varreduras.
type Sweeper struct {
	mu        sync.Mutex
	store     domain.Store
	inventory Inventory
	observer  Observer
	now       func() time.Time
	log       zerolog.Logger
	expiry    map[string]time.Time
}

type Option func(*Sweeper)

func WithInventory(inv Inventory) Option {
	return func(s *Sweeper) { s.inventory = inv }
}

func WithObserver(o Observer) Option {
	return func(s *Sweeper) { s.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Sweeper) { s.log = l }
}

func NewSweeper(store domain.Store, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:  store,
		now:    time.Now,
		log:    zerolog.Nop(),
		expiry: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep percorre o vault uma vez.
//
// Erros por item (falha lendo os detalhes ou apagando) são logados e contados
// em Result.Errors. Um item ilegível só conta como ativo se o cache ainda tiver
// uma expiração válida para ele.
// Um erro da listagem aborta a varredura e o inventário não é sincronizado.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var res Result
	seen := make(map[string]bool)
	var active []string

	s.log.Info().Msg("checking for expired vault items")

	err := s.store.Walk(ctx, func(it domain.Item) error {
		res.Scanned++
		seen[it.Name] = true

		if it.Err != nil {
			if exp, ok := s.expiry[it.Name]; ok && exp.After(now) {
				active = append(active, it.Name)
				return nil
			}
			res.Errors++
			s.log.Error().Err(it.Err).Str("name", it.Name).Msg("failed to check vault item")
			return nil
		}

		if !it.Enabled {
			delete(s.expiry, it.Name)
			res.Disabled++
			return nil
		}

		if exp, ok := s.expiry[it.Name]; ok && exp.After(now) {
			active = append(active, it.Name)
			return nil
		}

		if it.Expired(now) {
			if err := s.store.Delete(ctx, it.Name); err != nil {
				res.Errors++
				s.log.Error().Err(err).Str("name", it.Name).Msg("failed to delete expired vault item")
				return nil
			}
			delete(s.expiry, it.Name)
			res.Deleted++
			s.log.Info().Str("name", it.Name).Msg("expired vault item deleted")
			return nil
		}

		if it.ExpiresOn != nil {
			s.expiry[it.Name] = *it.ExpiresOn
		} else {
			delete(s.expiry, it.Name)
		}
		active = append(active, it.Name)
		return nil
	})
	if err != nil {
		err = errors.Wrap(err, "cleanup: list vault items")
		s.log.Error().Err(err).Int("scanned", res.Scanned).Msg("vault sweep aborted")
		s.observe(err, res.Deleted)
		return res, err
	}

	for name := range s.expiry {
		if !seen[name] {
			delete(s.expiry, name)
		}
	}

	res.Active = len(active)
	if s.inventory != nil {
		s.inventory.SyncFromFullScan(active)
	}

	s.log.Info().
		Int("scanned", res.Scanned).
		Int("deleted", res.Deleted).
		Int("active", res.Active).
		Int("disabled", res.Disabled).
		Int("errors", res.Errors).
		Msg("vault sweep finished")
	s.observe(nil, res.Deleted)
	return res, nil
}

func (s *Sweeper) observe(err error, deleted int) {
	if s.observer != nil {
		s.observer.ObserveSweep(err, deleted)
	}
}
