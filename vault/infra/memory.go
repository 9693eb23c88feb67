package infra

import (
	"context"
	"sort"
	"sync"
	"time"

	"keyfade/vault/domain"

	"github.com/pkg/errors"
)

type memoryItem struct {
	value     string
	expiresOn time.Time
	enabled   bool
}

// MemoryStore é um vault em memória.
//
// Get respeita expiração e o flag enabled; Walk lista tudo, inclusive expirados,
// do mesmo jeito que um vault gerenciado ainda lista itens vencidos até alguém apagá-los.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*memoryItem
	now   func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]*memoryItem),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Store = (*MemoryStore)(nil)

func (s *MemoryStore) Put(_ context.Context, name, value string, expiresOn time.Time) error {
	if name == "" {
		return errors.New("memory vault: empty name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[name] = &memoryItem{value: value, expiresOn: expiresOn, enabled: true}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, name string) (domain.Secret, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[name]
	if !ok || !it.enabled {
		return domain.Secret{}, false, nil
	}
	if !it.expiresOn.IsZero() && !it.expiresOn.After(s.now()) {
		return domain.Secret{}, false, nil
	}
	sec := domain.Secret{Name: name, Value: it.value}
	if !it.expiresOn.IsZero() {
		exp := it.expiresOn
		sec.ExpiresOn = &exp
	}
	return sec, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, name)
	return nil
}

// Walk lista em ordem de nome. O lock não é mantido durante fn.
func (s *MemoryStore) Walk(ctx context.Context, fn func(domain.Item) error) error {
	s.mu.Lock()
	items := make([]domain.Item, 0, len(s.items))
	for name, it := range s.items {
		item := domain.Item{Name: name, Enabled: it.enabled}
		if !it.expiresOn.IsZero() {
			exp := it.expiresOn
			item.ExpiresOn = &exp
		}
		items = append(items, item)
	}
	s.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(item); err != nil {
			if errors.Is(err, domain.ErrStopWalk) {
				return nil
			}
			return err
		}
	}
	return nil
}

// SetEnabled liga/desliga um item (equivalente a desabilitar um segredo no vault).
func (s *MemoryStore) SetEnabled(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[name]; ok {
		it.enabled = enabled
	}
}

// Len devolve o número de itens físicos armazenados.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
