// Package secrets implementa o ciclo de vida de um segredo de uso único:
// criação (id + chave de acesso), leitura com validação da chave e exclusão.
//
// Cada segredo lógico ocupa dois itens no vault: {id} com o valor e {id}-key com a
// chave de acesso, ambos com a mesma expiração.
package secrets

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"keyfade/vault/domain"
)

const (
	MinExpiryDays = 1
	MaxExpiryDays = 90

	keyBytes = 8
)

// Inventory recebe as mudanças pontuais de existência (telemetry.Inventory).
type Inventory interface {
	NoteCreated(name string)
	NoteDeleted(name string)
}

type Service struct {
	store       domain.Store
	inventory   Inventory
	frontendURL string
	now         func() time.Time
	newID       func() string
	newKey      func() (string, error)
	log         zerolog.Logger
}

type Option func(*Service)

func WithInventory(inv Inventory) Option {
	return func(s *Service) { s.inventory = inv }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func WithKeyGenerator(fn func() (string, error)) Option {
	return func(s *Service) {
		if fn != nil {
			s.newKey = fn
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(store domain.Store, frontendURL string, opts ...Option) *Service {
	s := &Service{
		store:       store,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
		newID:       uuid.NewString,
		newKey:      randomKey,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// randomKey gera 8 bytes aleatórios em hex (16 caracteres).
func randomKey() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate access key")
	}
	return hex.EncodeToString(b), nil
}

// ClampExpiryDays limita a validade a 1..90 dias. Zero ou negativo vira 1.
func ClampExpiryDays(days int) int {
	if days < MinExpiryDays {
		return MinExpiryDays
	}
	if days > MaxExpiryDays {
		return MaxExpiryDays
	}
	return days
}

type CreateInput struct {
	Value      string
	ExpiryDays int
}

type Created struct {
	SecretID  string
	Key       string
	ExpiresOn time.Time
	FullURL   string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Created, error) {
	if in.Value == "" {
		return Created{}, ErrInvalidInput
	}

	id := s.newID()
	key, err := s.newKey()
	if err != nil {
		return Created{}, err
	}
	expiresOn := s.now().AddDate(0, 0, ClampExpiryDays(in.ExpiryDays))

	s.log.Info().Str("secretId", id).Time("expiresOn", expiresOn).Msg("storing secret")

	if err := s.store.Put(ctx, id, in.Value, expiresOn); err != nil {
		return Created{}, errors.Wrap(err, "store secret value")
	}
	s.noteCreated(id)

	keyName := domain.KeyName(id)
	if err := s.store.Put(ctx, keyName, key, expiresOn); err != nil {
		return Created{}, errors.Wrap(err, "store access key")
	}
	s.noteCreated(keyName)

	return Created{
		SecretID:  id,
		Key:       key,
		ExpiresOn: expiresOn,
		FullURL:   s.frontendURL + "/" + id + "/" + key,
	}, nil
}

type Retrieved struct {
	Name  string
	Value string
	// DaysLeft é nil quando o item não tem expiração.
	DaysLeft *int
}

func (s *Service) Retrieve(ctx context.Context, id, key string) (Retrieved, error) {
	if err := s.checkKey(ctx, id, key); err != nil {
		return Retrieved{}, err
	}

	sec, found, err := s.store.Get(ctx, id)
	if err != nil {
		return Retrieved{}, errors.Wrap(err, "read secret value")
	}
	if !found {
		return Retrieved{}, ErrNotFound
	}

	out := Retrieved{Name: id, Value: sec.Value}
	if sec.ExpiresOn != nil {
		days := int(math.Ceil(sec.ExpiresOn.Sub(s.now()).Hours() / 24))
		out.DaysLeft = &days
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id, key string) error {
	if err := s.checkKey(ctx, id, key); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete secret value")
	}
	s.noteDeleted(id)

	keyName := domain.KeyName(id)
	if err := s.store.Delete(ctx, keyName); err != nil {
		return errors.Wrap(err, "delete access key")
	}
	s.noteDeleted(keyName)

	s.log.Info().Str("secretId", id).Msg("secret and key deleted")
	return nil
}

// checkKey lê {id}-key e compara com a chave recebida. Chave ausente conta como inválida.
func (s *Service) checkKey(ctx context.Context, id, key string) error {
	if id == "" || key == "" {
		return ErrInvalidKey
	}
	stored, found, err := s.store.Get(ctx, domain.KeyName(id))
	if err != nil {
		return errors.Wrap(err, "read access key")
	}
	if !found || subtle.ConstantTimeCompare([]byte(stored.Value), []byte(key)) != 1 {
		return ErrInvalidKey
	}
	return nil
}

func (s *Service) noteCreated(name string) {
	if s.inventory != nil {
		s.inventory.NoteCreated(name)
	}
}

func (s *Service) noteDeleted(name string) {
	if s.inventory != nil {
		s.inventory.NoteDeleted(name)
	}
}
