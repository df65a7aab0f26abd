// Package snapshot serializes the full store to a portable document and
// restores it. The document needs at least a products list; other
// collections are optional and skipping one leaves the live collection
// untouched.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spesasmart/spesasmart/internal/model"
	"github.com/spesasmart/spesasmart/internal/store"
)

// Version tags exported documents.
const Version = 1

// ErrInvalidFormat rejects a document without a products list. Detection
// happens before any collection is cleared, so a bad import has no
// destructive effect.
var ErrInvalidFormat = errors.New("invalid snapshot format")

// Build assembles a document from the current in-memory state. Default seed
// categories are excluded: they are reconstructible on import, which keeps
// exports portable across seed-schema changes.
func Build(products []model.Product, shops []model.Shop, categories []model.Category, history []model.HistoryEntry) *model.Snapshot {
	doc := &model.Snapshot{
		Version:  Version,
		Date:     time.Now().UTC().Format(time.RFC3339),
		Products: append([]model.Product{}, products...),
		Shops:    shops,
		History:  history,
	}
	for _, c := range categories {
		if !c.IsDefault {
			doc.Categories = append(doc.Categories, c)
		}
	}
	return doc
}

// Encode renders the document as indented JSON.
func Encode(doc *model.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a document, accepting the legacy exportDate and
// productHistory key spellings. A document without a products list fails
// with ErrInvalidFormat.
func Decode(data []byte) (*model.Snapshot, error) {
	var raw struct {
		Version        int             `json:"version"`
		Date           string          `json:"date"`
		ExportDate     string          `json:"exportDate"`
		Products       json.RawMessage `json:"products"`
		Shops          json.RawMessage `json:"shops"`
		Categories     json.RawMessage `json:"categories"`
		History        json.RawMessage `json:"history"`
		ProductHistory json.RawMessage `json:"productHistory"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	doc := &model.Snapshot{Version: raw.Version, Date: raw.Date}
	if doc.Date == "" {
		doc.Date = raw.ExportDate
	}

	products, err := decodeList[model.Product](raw.Products)
	if err != nil {
		return nil, fmt.Errorf("%w: products: %v", ErrInvalidFormat, err)
	}
	if products == nil {
		return nil, fmt.Errorf("%w: missing products list", ErrInvalidFormat)
	}
	doc.Products = products

	if doc.Shops, err = decodeList[model.Shop](raw.Shops); err != nil {
		return nil, fmt.Errorf("%w: shops: %v", ErrInvalidFormat, err)
	}
	if doc.Categories, err = decodeList[model.Category](raw.Categories); err != nil {
		return nil, fmt.Errorf("%w: categories: %v", ErrInvalidFormat, err)
	}
	historyRaw := raw.History
	if historyRaw == nil {
		historyRaw = raw.ProductHistory
	}
	if doc.History, err = decodeList[model.HistoryEntry](historyRaw); err != nil {
		return nil, fmt.Errorf("%w: history: %v", ErrInvalidFormat, err)
	}

	return doc, nil
}

// decodeList keeps the absent/present distinction: a missing or null key
// decodes to nil, a present list (even empty) to a non-nil slice.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if raw == nil || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, errors.New("not a list")
	}
	out := []T{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Codec writes documents into the persistent store.
type Codec struct {
	store  *store.Store
	seeds  []model.Category
	logger *slog.Logger
}

// NewCodec returns a codec that restores categories as the given seed
// defaults plus the document's custom entries.
func NewCodec(st *store.Store, seeds []model.Category, logger *slog.Logger) *Codec {
	return &Codec{store: st, seeds: seeds, logger: logger}
}

// Restore replaces the products collection with the document's list and does
// the same for each optional collection the document carries; absent
// collections are left untouched. The caller reloads its in-memory caches
// from the store afterwards, keeping the store the single source of truth.
func (c *Codec) Restore(doc *model.Snapshot) error {
	if doc == nil || doc.Products == nil {
		return fmt.Errorf("%w: missing products list", ErrInvalidFormat)
	}

	if err := c.store.Clear(store.Products); err != nil {
		return err
	}
	for _, p := range doc.Products {
		if err := c.store.Put(store.Products, p.ID, p); err != nil {
			return err
		}
	}

	if doc.History != nil {
		if err := c.store.Clear(store.History); err != nil {
			return err
		}
		for _, e := range doc.History {
			if err := c.store.Put(store.History, e.ID, e); err != nil {
				return err
			}
		}
	}

	if doc.Shops != nil {
		if err := c.store.Clear(store.Shops); err != nil {
			return err
		}
		for _, s := range doc.Shops {
			if err := c.store.Put(store.Shops, s.ID, s); err != nil {
				return err
			}
		}
	}

	if doc.Categories != nil {
		if err := c.store.Clear(store.Categories); err != nil {
			return err
		}
		for _, cat := range c.seeds {
			if err := c.store.Put(store.Categories, cat.ID, cat); err != nil {
				return err
			}
		}
		for _, cat := range doc.Categories {
			if err := c.store.Put(store.Categories, cat.ID, cat); err != nil {
				return err
			}
		}
	}

	c.logger.Info("restored snapshot",
		"products", len(doc.Products),
		"shops", len(doc.Shops),
		"categories", len(doc.Categories),
		"history", len(doc.History))
	return nil
}

// Filename returns the dated default export filename.
func Filename(t time.Time) string {
	return fmt.Sprintf("spesasmart-%s.json", t.Format("2006-01-02"))
}

// WriteFile encodes the document to path.
func WriteFile(path string, doc *model.Snapshot) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadFile decodes the document at path.
func ReadFile(path string) (*model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(data)
}
