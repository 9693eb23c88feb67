// Package telemetry mantém, em memória e durante a vida do processo, a visão
// operacional de abuso do serviço:
//
//   - Recorder: log circular de eventos de abuso (tentativa falha, CORS negado,
//     rate limit) + contadores agregados por IP e por alvo (path/origin)
//   - Inventory: visão best-effort de quais segredos existem no vault, semeada
//     pela varredura diária (pacote cleanup) e atualizada pontualmente em
//     create/delete
//   - Metrics: coletores Prometheus espelhando os mesmos contadores
//
// Nada aqui é persistido; reiniciar o processo zera os contadores. O RedisSink
// é opcional e apenas exporta os eventos, não alimenta os snapshots.
package telemetry
