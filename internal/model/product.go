package model

import "time"

type Product struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Brand     string             `json:"brand,omitempty"`
	Category  string             `json:"category"`
	Barcode   string             `json:"barcode,omitempty"`
	Image     string             `json:"image,omitempty"`
	Shops     []string           `json:"shops"`
	Prices    map[string]float64 `json:"prices"`
	Quantity  int                `json:"qty"`
	Done      bool               `json:"done"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ProductInput carries the already-resolved fields for an add, whether they
// came from a manual form, a barcode lookup, or a history entry.
type ProductInput struct {
	Name     string
	Brand    string
	Category string
	Barcode  string
	Image    string
	Shops    []string
}
