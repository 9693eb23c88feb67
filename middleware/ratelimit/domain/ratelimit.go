package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// WindowHit é o estado de uma janela fixa logo após contabilizar uma requisição.
type WindowHit struct {
	// Count inclui a requisição atual.
	Count int64
	// ResetAt é quando a janela atual fecha e o contador volta a zero.
	ResetAt time.Time
}

// WindowStore conta requisições por chave em janelas fixas.
//
// Incr abre uma janela nova de duração window quando não existe janela aberta
// para a chave. A implementação pode ser em memória ou compartilhada (Redis).
type WindowStore interface {
	Incr(ctx context.Context, key Key, window time.Duration) (WindowHit, error)
}

// SuppressionCache lembra chaves por um tempo, para não repetir notificações.
//
// MarkIfAbsent é atômico: devolve true e grava a chave se ela não estava
// presente (ou já tinha expirado); devolve false se ainda estava válida.
// Forget apaga a marca.
type SuppressionCache interface {
	MarkIfAbsent(key string, ttl time.Duration) bool
	Forget(key string)
}

type Decision struct {
	Allowed bool
	Limit   int
	// Remaining é quantas requisições ainda cabem na janela atual.
	Remaining int
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	RetryAfter time.Duration
	ResetAt    time.Time
}
