package infra

import (
	"context"
	"sync"
	"time"

	"keyfade/middleware/ratelimit/domain"
)

// MemoryWindowStore conta requisições em janelas fixas por chave, em memória.
// Janelas vencidas são reabertas no próximo Incr e removidas pelo janitor.
type MemoryWindowStore struct {
	mu           sync.Mutex
	entries      map[string]*windowEntry
	now          func() time.Time
	cleanupEvery time.Duration
}

type windowEntry struct {
	count   int64
	resetAt time.Time
}

type MemoryWindowOption func(*MemoryWindowStore)

func WithWindowClock(now func() time.Time) MemoryWindowOption {
	return func(s *MemoryWindowStore) {
		if now != nil {
			s.now = now
		}
	}
}

func WithWindowCleanupEvery(d time.Duration) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.cleanupEvery = d }
}

func NewMemoryWindowStore(opts ...MemoryWindowOption) *MemoryWindowStore {
	s := &MemoryWindowStore{
		entries:      make(map[string]*windowEntry),
		now:          time.Now,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.WindowStore = (*MemoryWindowStore)(nil)

func (s *MemoryWindowStore) Incr(_ context.Context, key domain.Key, window time.Duration) (domain.WindowHit, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[string(key)]
	if !ok || !now.Before(ent.resetAt) {
		ent = &windowEntry{resetAt: now.Add(window)}
		s.entries[string(key)] = ent
	}
	ent.count++
	return domain.WindowHit{Count: ent.count, ResetAt: ent.resetAt}, nil
}

// Cleanup remove janelas já encerradas.
func (s *MemoryWindowStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if !now.Before(ent.resetAt) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa janelas vencidas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryWindowStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.cleanupEvery, s.Cleanup)
}
