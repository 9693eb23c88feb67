package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"keyfade/notify"
)

// Recebe os MessageCards do WEBHOOK_URL e imprime no terminal.
// Uso: WEBHOOK_URL=http://localhost:8081/webhook go run ./cmd/keyfade
func main() {
	http.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		var card notify.MessageCard
		if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
			http.Error(w, "invalid card", http.StatusBadRequest)
			return
		}
		fmt.Printf("Log: card recebido [%s] cor=%s\n", card.Title, card.ThemeColor)
		for _, s := range card.Sections {
			for _, f := range s.Facts {
				fmt.Printf("  %s: %s\n", f.Name, f.Value)
			}
			if s.Text != "" {
				fmt.Printf("  %s\n", s.Text)
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	fmt.Printf("Receptor de webhook rodando em http://localhost%s/webhook\n", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Printf("Erro ao subir o servidor: %s\n", err)
	}
}
