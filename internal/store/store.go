package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names. The schema owns one table per collection; anything else
// is a programmer error.
const (
	Products   = "products"
	History    = "history"
	Categories = "categories"
	Shops      = "shops"
)

var (
	// ErrWriteFailed wraps put/delete/clear failures. The caller's in-memory
	// state is still the last known good state and the same logical
	// operation can be retried safely.
	ErrWriteFailed = errors.New("write failed")

	ErrUnknownCollection = errors.New("unknown collection")
)

var tables = map[string]string{
	Products:   "products",
	History:    "history",
	Categories: "categories",
	Shops:      "shops",
}

// Store is durable, named-collection storage of JSON records keyed by id.
// Each call is atomic per record; there is no cross-collection transaction,
// so multi-record cascades must be written to tolerate partial application.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetAll returns every record in the collection in insertion order. A
// collection that has never been written yields an empty result, not an
// error.
func (s *Store) GetAll(collection string) ([]json.RawMessage, error) {
	table, ok := tables[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	rows, err := s.db.Query(`SELECT data FROM ` + table + ` ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", collection, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", collection, err)
		}
		records = append(records, json.RawMessage(data))
	}
	return records, rows.Err()
}

// Get returns a single record, or (nil, nil) when the id is absent.
func (s *Store) Get(collection, id string) (json.RawMessage, error) {
	table, ok := tables[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	var data []byte
	err := s.db.QueryRow(`SELECT data FROM `+table+` WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %q: %w", collection, id, err)
	}
	return json.RawMessage(data), nil
}

// Put upserts the record under the given id, overwriting on collision. The
// upsert keeps the row's rowid, so updating a record does not move it in the
// collection's insertion order.
func (s *Store) Put(collection, id string, record any) error {
	table, ok := tables[collection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", collection, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO `+table+` (id, data) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		id, string(data),
	)
	if err != nil {
		return fmt.Errorf("%w: put %s %q: %v", ErrWriteFailed, collection, id, err)
	}
	return nil
}

// Delete removes one record. Deleting an absent id is not an error.
func (s *Store) Delete(collection, id string) error {
	table, ok := tables[collection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	if _, err := s.db.Exec(`DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete %s %q: %v", ErrWriteFailed, collection, id, err)
	}
	return nil
}

// Clear removes every record in the collection.
func (s *Store) Clear(collection string) error {
	table, ok := tables[collection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}

	if _, err := s.db.Exec(`DELETE FROM ` + table); err != nil {
		return fmt.Errorf("%w: clear %s: %v", ErrWriteFailed, collection, err)
	}
	return nil
}

// GetAll decodes every record in the collection into T, preserving insertion
// order.
func GetAll[T any](s *Store, collection string) ([]T, error) {
	raw, err := s.GetAll(collection)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(raw))
	for _, data := range raw {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Get decodes a single record into T, returning (nil, nil) when absent.
func Get[T any](s *Store, collection, id string) (*T, error) {
	raw, err := s.Get(collection, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s %q: %w", collection, id, err)
	}
	return &v, nil
}
