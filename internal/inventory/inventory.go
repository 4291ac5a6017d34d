// Package inventory tracks the text fragments a user picked out of the
// host document.
//
// The inventory is a derived index: the ordered item list the user works
// with is mirrored into persistence, and the inventory only answers "is
// this source already tracked?". A source id belongs to at most one item.
package inventory

import (
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/bad33ndj3/mcp-l10n-index/internal/domain"
)

// Inventory is a deduplicating registry of tracked text items.
// It is safe for concurrent use.
type Inventory struct {
	mu    sync.RWMutex
	ids   map[string]struct{}
	items []domain.TextItem // one per id, insertion order
}

// New creates an empty inventory.
func New() *Inventory {
	return &Inventory{ids: make(map[string]struct{})}
}

// Add inserts every candidate whose source id is not tracked yet and
// returns exactly the inserted subset, in input order. Repeats within
// candidates are inserted once.
func (inv *Inventory) Add(candidates []domain.TextItem) []domain.TextItem {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	added := lo.Filter(candidates, func(item domain.TextItem, _ int) bool {
		if _, ok := inv.ids[item.SourceID]; ok {
			return false
		}
		inv.ids[item.SourceID] = struct{}{}
		return true
	})
	inv.items = append(inv.items, added...)
	return added
}

// Remove drops the given ids. Unknown ids are ignored.
func (inv *Inventory) Remove(ids []string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
		delete(inv.ids, id)
	}
	inv.items = slices.DeleteFunc(inv.items, func(item domain.TextItem) bool {
		_, ok := drop[item.SourceID]
		return ok
	})
}

// Clear empties the inventory.
func (inv *Inventory) Clear() {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.ids = make(map[string]struct{})
	inv.items = nil
}

// ReplaceAll discards the current membership and rebuilds it from a
// persisted snapshot: the union of every record's ids.
func (inv *Inventory) ReplaceAll(snap domain.Snapshot) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.ids = make(map[string]struct{})
	inv.items = nil
	for _, rec := range snap {
		for _, id := range rec.IDs {
			if _, ok := inv.ids[id]; ok {
				continue
			}
			inv.ids[id] = struct{}{}
			inv.items = append(inv.items, domain.TextItem{SourceID: id, Text: rec.Text})
		}
	}
}

// Contains reports whether id is tracked.
func (inv *Inventory) Contains(id string) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	_, ok := inv.ids[id]
	return ok
}

// IDs returns the tracked ids, sorted.
func (inv *Inventory) IDs() []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	ids := lo.Keys(inv.ids)
	slices.Sort(ids)
	return ids
}

// Items returns the tracked items in insertion order.
func (inv *Inventory) Items() []domain.TextItem {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return slices.Clone(inv.items)
}

// Len returns the number of tracked ids.
func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.ids)
}
