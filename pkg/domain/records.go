package domain

import "time"

// Recommendation is the structured output of a run.
type Recommendation struct {
	Items []string `json:"items" yaml:"items"`
}

// UserPurchase is a user's purchase history as stored by the catalog.
type UserPurchase struct {
	Username string   `json:"username" yaml:"username" mapstructure:"username"`
	Name     string   `json:"name" yaml:"name" mapstructure:"name"`
	Items    []string `json:"items" yaml:"items" mapstructure:"items"`
}

// StoreInventory is the list of items a store has available.
type StoreInventory struct {
	StoreID   string   `json:"store_id" yaml:"store_id" mapstructure:"store_id"`
	StoreName string   `json:"store_name" yaml:"store_name" mapstructure:"store_name"`
	Items     []string `json:"items" yaml:"items" mapstructure:"items"`
}

// RunRecord is what a ResultStore keeps for a completed run.
// Only the request and the recommended items are kept; the State itself is never persisted.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	Username  string    `json:"username"`
	StoreID   string    `json:"store_id"`
	TopK      int       `json:"top_k"`
	Items     []string  `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}
