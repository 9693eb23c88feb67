package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// KeySuffix marca o item físico que guarda a chave de acesso.
const KeySuffix = "-key"

// ErrStopWalk pode ser devolvido pelo callback de Walk para encerrar a listagem sem erro.
var ErrStopWalk = errors.New("vault: stop walk")

// Item é uma entrada da listagem completa do vault.
type Item struct {
	Name string
	// ExpiresOn nil significa sem expiração.
	ExpiresOn *time.Time
	Enabled   bool
	// Err vem preenchido quando o item foi listado mas os detalhes dele não
	// puderam ser lidos; ExpiresOn e Enabled não valem nada nesse caso.
	Err error
}

// Expired informa se o item já passou da expiração em now.
func (i Item) Expired(now time.Time) bool {
	return i.ExpiresOn != nil && !i.ExpiresOn.After(now)
}

// Secret é o resultado de uma leitura pontual.
type Secret struct {
	Name      string
	Value     string
	ExpiresOn *time.Time
}

// Store é o vault externo.
//
// Get devolve found=false (sem erro) quando o item não existe, expirou ou está desabilitado.
// Walk chama fn uma vez por item, sequencialmente; um erro de fn (exceto ErrStopWalk)
// interrompe a listagem e é devolvido.
type Store interface {
	Put(ctx context.Context, name, value string, expiresOn time.Time) error
	Get(ctx context.Context, name string) (sec Secret, found bool, err error)
	Delete(ctx context.Context, name string) error
	Walk(ctx context.Context, fn func(Item) error) error
}

// KeyName devolve o nome do item que guarda a chave de acesso de id.
func KeyName(id string) string { return id + KeySuffix }

// SplitName dobra um nome físico no id base. isKey indica o item "-key".
func SplitName(name string) (base string, isKey bool) {
	if strings.HasSuffix(name, KeySuffix) {
		return strings.TrimSuffix(name, KeySuffix), true
	}
	return name, false
}
