// Package ratelimit fornece adapters HTTP (net/http) para rate limit por janela fixa
// e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, supressão de alertas, acquire/timeout)
//   - infra: janelas em memória/Redis, cache com TTL, semáforo
//   - ratelimit (este pacote): middlewares HTTP, extração de chave, tradução para status/headers
//
// Fluxo nas rotas de segredo:
//
//  1. Extrai a chave do cliente (IP, opcionalmente via CF-Connecting-IP/XFF)
//  2. Conta a requisição na janela da chave
//  3. Se bloqueado, chama OnLimit (telemetria + alerta) e responde 429 em JSON
//  4. Se permitido, chama o próximo handler
//
// Variáveis RATE_LIMIT_MAX, RATE_LIMIT_WINDOW e CONCURRENCY_MAX (cmd/keyfade) controlam
// o comportamento.
package ratelimit
