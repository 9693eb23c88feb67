// Package jsonresp escreve respostas JSON curtas usadas pelos middlewares e handlers.
package jsonresp

import (
	"encoding/json"
	"net/http"
)

// ErrorBody é o corpo padrão de erro: {"error": "..."}.
type ErrorBody struct {
	Error string `json:"error"`
}

// Write serializa v com o status indicado. Falhas de escrita são ignoradas
// (o cliente já foi embora).
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, ErrorBody{Error: msg})
}
