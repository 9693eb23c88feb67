// Package infra contém implementações concretas de domain.Store.
//
//   - MemoryStore: em memória, para testes e desenvolvimento local
//   - RedisStore: Redis com TTL nativo por chave (PX)
//   - HashiCorpStore: HashiCorp Vault KV v2, expiração via delete_version_after
//     + custom_metadata (expires_on, enabled)
package infra
