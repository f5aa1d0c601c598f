package model

import "time"

// Account is one canonical real-world account/location. Created on the
// first successful resolution of a new identity, never deleted. Merges
// happen through the override table, which redirects future ingestion.
type Account struct {
	CanonicalCode string    `json:"canonical_code"`
	BaseCode      string    `json:"base_code"`
	ShipToCode    string    `json:"ship_to_code,omitempty"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	SalesRep      string    `json:"sales_rep,omitempty"`
	Distributor   string    `json:"distributor,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// YearSummary is the per (account, year) aggregate over the ledger.
// Always recomputed from scratch from the transactions table, never
// incremented, so re-ingesting the same file cannot drift the totals.
type YearSummary struct {
	CanonicalCode    string   `json:"canonical_code"`
	Year             int      `json:"year"`
	TotalRevenue     float64  `json:"total_revenue"`
	TransactionCount int      `json:"transaction_count"`
	Products         []string `json:"products"`
}
