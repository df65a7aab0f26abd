package history

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spesasmart/spesasmart/internal/model"
	"github.com/spesasmart/spesasmart/internal/store"
)

// maxEntries caps the history; the least recently used entry is evicted
// beyond it.
const maxEntries = 50

// EntryID returns the stable history key for a product: its barcode when
// present, else the normalized name (lowercase, whitespace runs to a single
// underscore).
func EntryID(barcode, name string) string {
	if barcode != "" {
		return barcode
	}
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// Tracker keeps the most-recently-used list of previously added products for
// quick re-add. The in-memory slice is always sorted most-recent-first.
type Tracker struct {
	mu     sync.RWMutex
	store  *store.Store
	logger *slog.Logger

	entries []model.HistoryEntry
}

func NewTracker(st *store.Store, logger *slog.Logger) *Tracker {
	return &Tracker{store: st, logger: logger}
}

// Load rebuilds the history from the store, most recent first, and trims any
// persisted surplus beyond the cap left by an interrupted eviction.
func (t *Tracker) Load() error {
	entries, err := store.GetAll[model.HistoryEntry](t.store, store.History)
	if err != nil {
		return err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastUsed.After(entries[j].LastUsed)
	})

	for _, e := range entries[min(len(entries), maxEntries):] {
		if err := t.store.Delete(store.History, e.ID); err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
	}
	entries = entries[:min(len(entries), maxEntries)]

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
	return nil
}

// Record puts the product at the front of the history, replacing any entry
// under the same key rather than duplicating it, and evicts the tail beyond
// the cap.
func (t *Tracker) Record(p model.Product) error {
	entry := model.HistoryEntry{
		ID:       EntryID(p.Barcode, p.Name),
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Barcode:  p.Barcode,
		Image:    p.Image,
		Shops:    p.Shops,
		LastUsed: time.Now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Put(store.History, entry.ID, entry); err != nil {
		return err
	}
	t.splice(entry)
	return t.evict()
}

// Touch refreshes an existing entry's recency without altering its fields.
func (t *Tracker) Touch(id string) (*model.HistoryEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if e.ID != id {
			continue
		}
		e.LastUsed = time.Now().UTC()
		if err := t.store.Put(store.History, e.ID, e); err != nil {
			return nil, err
		}
		t.splice(e)
		return &e, nil
	}
	return nil, fmt.Errorf("history entry %q not found", id)
}

// Get returns the entry for the given id.
func (t *Tracker) Get(id string) (model.HistoryEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.HistoryEntry{}, false
}

// Entries returns the history, most recent first.
func (t *Tracker) Entries() []model.HistoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.HistoryEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// splice removes an existing entry with the same id and inserts the entry at
// the front. Callers hold the lock.
func (t *Tracker) splice(entry model.HistoryEntry) {
	for i, e := range t.entries {
		if e.ID == entry.ID {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			break
		}
	}
	t.entries = append([]model.HistoryEntry{entry}, t.entries...)
}

// evict discards the least recently used entries beyond the cap, from the
// store first. Callers hold the lock.
func (t *Tracker) evict() error {
	for _, e := range t.entries[min(len(t.entries), maxEntries):] {
		if err := t.store.Delete(store.History, e.ID); err != nil {
			return err
		}
		t.logger.Debug("evicted history entry", "id", e.ID)
	}
	t.entries = t.entries[:min(len(t.entries), maxEntries)]
	return nil
}
