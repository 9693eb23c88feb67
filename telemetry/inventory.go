package telemetry

import (
	"sync"
	"time"

	"keyfade/vault/domain"
)

type inventoryEntry struct {
	hasSecret bool
	hasKey    bool
	updatedAt time.Time
}

// InventorySnapshot resume a visão atual do inventário.
type InventorySnapshot struct {
	ActiveSecrets         int        `json:"activeSecrets"`
	IsSeededFromVaultScan bool       `json:"isSeededFromVaultScan"`
	LastSyncedAt          *time.Time `json:"lastSyncedAt"`
	LastUpdatedAt         *time.Time `json:"lastUpdatedAt"`
}

// Inventory acompanha quais segredos lógicos existem no vault.
//
// Os itens físicos "{id}" e "{id}-key" são dobrados numa entrada por id.
// Uma entrada só existe enquanto hasSecret || hasKey.
// O Inventory não faz I/O no vault: quem varre o vault (cleanup) alimenta ele.
type Inventory struct {
	mu            sync.Mutex
	now           func() time.Time
	entries       map[string]*inventoryEntry
	seeded        bool
	lastSyncedAt  time.Time
	lastUpdatedAt time.Time
	metrics       *Metrics
}

type InventoryOption func(*Inventory)

func WithInventoryClock(now func() time.Time) InventoryOption {
	return func(inv *Inventory) {
		if now != nil {
			inv.now = now
		}
	}
}

func WithInventoryMetrics(m *Metrics) InventoryOption {
	return func(inv *Inventory) { inv.metrics = m }
}

func NewInventory(opts ...InventoryOption) *Inventory {
	inv := &Inventory{
		now:     time.Now,
		entries: make(map[string]*inventoryEntry),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// SyncFromFullScan substitui todo o inventário pelo conjunto de nomes ativos.
func (inv *Inventory) SyncFromFullScan(names []string) {
	inv.mu.Lock()
	now := inv.now()
	inv.entries = make(map[string]*inventoryEntry, len(names))
	for _, name := range names {
		inv.setLocked(name, true, now)
	}
	inv.seeded = true
	inv.lastSyncedAt = now
	inv.lastUpdatedAt = now
	active := inv.activeLocked()
	inv.mu.Unlock()

	inv.metrics.setActiveSecrets(active)
}

func (inv *Inventory) NoteCreated(name string) { inv.note(name, true) }

func (inv *Inventory) NoteDeleted(name string) { inv.note(name, false) }

func (inv *Inventory) note(name string, present bool) {
	inv.mu.Lock()
	now := inv.now()
	inv.setLocked(name, present, now)
	inv.lastUpdatedAt = now
	active := inv.activeLocked()
	inv.mu.Unlock()

	inv.metrics.setActiveSecrets(active)
}

func (inv *Inventory) setLocked(name string, present bool, now time.Time) {
	base, isKey := domain.SplitName(name)
	if base == "" {
		return
	}
	ent, ok := inv.entries[base]
	if !ok {
		if !present {
			return
		}
		ent = &inventoryEntry{}
		inv.entries[base] = ent
	}
	if isKey {
		ent.hasKey = present
	} else {
		ent.hasSecret = present
	}
	ent.updatedAt = now
	if !ent.hasSecret && !ent.hasKey {
		delete(inv.entries, base)
	}
}

func (inv *Inventory) activeLocked() int {
	n := 0
	for _, ent := range inv.entries {
		if ent.hasSecret {
			n++
		}
	}
	return n
}

func (inv *Inventory) Snapshot() InventorySnapshot {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := InventorySnapshot{
		ActiveSecrets:         inv.activeLocked(),
		IsSeededFromVaultScan: inv.seeded,
	}
	if !inv.lastSyncedAt.IsZero() {
		t := inv.lastSyncedAt
		out.LastSyncedAt = &t
	}
	if !inv.lastUpdatedAt.IsZero() {
		t := inv.lastUpdatedAt
		out.LastUpdatedAt = &t
	}
	return out
}
