package model

import "time"

// RawRecord is one row as it arrives from a distributor sales file.
// Transient: it is normalized, resolved, and ranked before anything is
// persisted. Malformed fields degrade to zero values, never abort a file.
type RawRecord struct {
	AccountCode string    `csv:"card_code" json:"account_code"`
	ShipToCode  string    `csv:"ship_to_code" json:"ship_to_code,omitempty"`
	Name        string    `csv:"card_name" json:"name"`
	Street      string    `csv:"address" json:"street,omitempty"`
	City        string    `csv:"city" json:"city,omitempty"`
	State       string    `csv:"state" json:"state,omitempty"`
	Zip         string    `csv:"zip_code" json:"zip,omitempty"`
	PostingDate string    `csv:"posting_date" json:"posting_date"`
	ItemCode    string    `csv:"item_code" json:"item_code"`
	Description string    `csv:"description" json:"description,omitempty"`
	Quantity    float64   `csv:"quantity" json:"quantity"`
	Revenue     float64   `csv:"revenue" json:"revenue"`
	SalesRep    string    `csv:"sales_rep" json:"sales_rep,omitempty"`
	Distributor string    `csv:"distributor" json:"distributor,omitempty"`
	Arrival     int       `csv:"-" json:"-"`
	Date        time.Time `csv:"-" json:"-"`
}

// Transaction is one ledger row. ContentHash is the identity: two rows
// that agree on every hashed field plus duplicate rank are the same
// line item, and re-delivery of that line item is a no-op on totals.
type Transaction struct {
	ID            int64     `json:"id"`
	CanonicalCode string    `json:"canonical_code"`
	PostingDate   time.Time `json:"posting_date"`
	ItemCode      string    `json:"item_code"`
	Description   string    `json:"description,omitempty"`
	Quantity      float64   `json:"quantity"`
	Revenue       float64   `json:"revenue"`
	DuplicateRank int       `json:"duplicate_rank"`
	ContentHash   string    `json:"content_hash"`
	Name          string    `json:"name,omitempty"`
	SalesRep      string    `json:"sales_rep,omitempty"`
	Distributor   string    `json:"distributor,omitempty"`
}

// Year returns the posting year of the transaction.
func (t Transaction) Year() int {
	return t.PostingDate.Year()
}

// YearKey identifies one (account, year) aggregate.
type YearKey struct {
	CanonicalCode string
	Year          int
}
