package model

// FallbackCategory is the always-present category products fall back to when
// their own category is missing or deleted.
const FallbackCategory = "other"

type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

type Shop struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}
