package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/sells-group/salespulse/internal/model"
)

// dedupeKey is the grouping key for duplicate ranking. Rows identical
// on every field here are distinct real line items, not re-deliveries,
// and get consecutive ranks.
type dedupeKey struct {
	CanonicalCode string
	PostingDate   string
	ItemCode      string
	Revenue       float64
	Quantity      float64
}

// ContentHash computes the ledger identity of one line item. The
// formatting is fixed; changing it would orphan every stored row.
func ContentHash(canonicalCode, postingDate, itemCode string, revenue, quantity float64, rank int) string {
	payload := fmt.Sprintf("%s|%s|%s|%.2f|%g|%d",
		canonicalCode, postingDate, itemCode, revenue, quantity, rank)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// RankAndHash assigns each resolved row a 0-based duplicate rank within
// its dedupe group, in stable arrival order, then derives the content
// hash. Re-running over the same input yields identical hashes.
func RankAndHash(rows []ResolvedRow) []model.Transaction {
	ordered := make([]ResolvedRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.CanonicalCode != b.CanonicalCode {
			return a.CanonicalCode < b.CanonicalCode
		}
		if !a.Record.Date.Equal(b.Record.Date) {
			return a.Record.Date.Before(b.Record.Date)
		}
		if a.Record.ItemCode != b.Record.ItemCode {
			return a.Record.ItemCode < b.Record.ItemCode
		}
		if a.Record.Revenue != b.Record.Revenue {
			return a.Record.Revenue < b.Record.Revenue
		}
		if a.Record.Quantity != b.Record.Quantity {
			return a.Record.Quantity < b.Record.Quantity
		}
		return a.Record.Arrival < b.Record.Arrival
	})

	ranks := map[dedupeKey]int{}
	txns := make([]model.Transaction, 0, len(ordered))
	for _, row := range ordered {
		dateStr := row.Record.Date.Format("2006-01-02")
		key := dedupeKey{
			CanonicalCode: row.CanonicalCode,
			PostingDate:   dateStr,
			ItemCode:      row.Record.ItemCode,
			Revenue:       row.Record.Revenue,
			Quantity:      row.Record.Quantity,
		}
		rank := ranks[key]
		ranks[key] = rank + 1

		txns = append(txns, model.Transaction{
			CanonicalCode: row.CanonicalCode,
			PostingDate:   row.Record.Date,
			ItemCode:      row.Record.ItemCode,
			Description:   row.Record.Description,
			Quantity:      row.Record.Quantity,
			Revenue:       row.Record.Revenue,
			DuplicateRank: rank,
			ContentHash: ContentHash(row.CanonicalCode, dateStr, row.Record.ItemCode,
				row.Record.Revenue, row.Record.Quantity, rank),
			Name:        row.Record.Name,
			SalesRep:    row.Record.SalesRep,
			Distributor: row.Record.Distributor,
		})
	}
	return txns
}

// TouchedYears collects the distinct (account, year) pairs in a batch,
// sorted for deterministic recompute order.
func TouchedYears(txns []model.Transaction) []model.YearKey {
	set := map[model.YearKey]bool{}
	for _, t := range txns {
		set[model.YearKey{CanonicalCode: t.CanonicalCode, Year: t.Year()}] = true
	}
	keys := make([]model.YearKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CanonicalCode != keys[j].CanonicalCode {
			return keys[i].CanonicalCode < keys[j].CanonicalCode
		}
		return keys[i].Year < keys[j].Year
	})
	return keys
}
