package model

// Snapshot is the portable export document. Products are always present;
// the other collections are optional and nil when the document did not carry
// them (a present-but-empty list decodes as a non-nil empty slice, which
// matters for import semantics).
type Snapshot struct {
	Version    int            `json:"version"`
	Date       string         `json:"date"`
	Products   []Product      `json:"products"`
	Shops      []Shop         `json:"shops,omitempty"`
	Categories []Category     `json:"categories,omitempty"`
	History    []HistoryEntry `json:"history,omitempty"`
}
