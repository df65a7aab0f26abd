package model

import "time"

// HistoryEntry mirrors a product's display fields under a stable key that is
// independent of list membership: the barcode when present, else the
// normalized name.
type HistoryEntry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Brand    string    `json:"brand,omitempty"`
	Category string    `json:"category"`
	Barcode  string    `json:"barcode,omitempty"`
	Image    string    `json:"image,omitempty"`
	Shops    []string  `json:"shops,omitempty"`
	LastUsed time.Time `json:"lastUsed"`
}
