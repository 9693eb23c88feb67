// Package domain define o contrato do vault externo onde os segredos vivem.
//
// Cada segredo lógico {id} ocupa dois itens físicos: "{id}" (o valor) e
// "{id}-key" (a chave de acesso), ambos com a mesma expiração. Essa convenção
// de nomes é compartilhada com qualquer outra instância que use o mesmo vault
// e não pode mudar.
package domain
