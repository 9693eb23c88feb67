// Package domain define contratos e tipos de domínio para rate limit de janela
// fixa, supressão de notificações repetidas e limite de concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura.
package domain
