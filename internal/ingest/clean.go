package ingest

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/salespulse/internal/identity"
	"github.com/sells-group/salespulse/internal/model"
	"github.com/sells-group/salespulse/internal/normalize"
)

// ResolvedRow is a raw record with its canonical identity attached.
type ResolvedRow struct {
	Record        model.RawRecord
	CanonicalCode string
	NormAddress   string
	NormName      string
	Strategy      string
}

// UnresolvedRow captures the full input context of a resolution failure
// for manual curation.
type UnresolvedRow struct {
	AccountCode string `json:"account_code"`
	ShipTo      string `json:"ship_to,omitempty"`
	Name        string `json:"name,omitempty"`
	Address     string `json:"address,omitempty"`
	PostingDate string `json:"posting_date,omitempty"`
}

// CleanResult is the outcome of normalizing and resolving one batch.
type CleanResult struct {
	Rows       []ResolvedRow
	Unresolved []UnresolvedRow
	Accounts   []model.Account
}

// Clean normalizes every record and resolves its canonical identity.
// Unresolved records are reported, never silently dropped.
func Clean(records []model.RawRecord, resolver *identity.Resolver) CleanResult {
	var result CleanResult
	seen := map[string]int{} // canonical code -> index into result.Accounts

	for _, rec := range records {
		normAddr := normalize.Address(rec.Street, rec.City, rec.State, rec.Zip)
		normName := normalize.StoreName(rec.Name)

		res := resolver.Resolve(identity.Input{
			RawCode:     rec.AccountCode,
			ShipTo:      rec.ShipToCode,
			NormAddress: normAddr,
			NormName:    normName,
		})
		if !res.Resolved {
			zap.L().Warn("ingest: unresolved identity",
				zap.String("account_code", rec.AccountCode),
				zap.String("ship_to", rec.ShipToCode),
				zap.String("name", rec.Name))
			result.Unresolved = append(result.Unresolved, UnresolvedRow{
				AccountCode: rec.AccountCode,
				ShipTo:      rec.ShipToCode,
				Name:        rec.Name,
				Address:     rec.Street,
				PostingDate: rec.PostingDate,
			})
			continue
		}

		result.Rows = append(result.Rows, ResolvedRow{
			Record:        rec,
			CanonicalCode: res.CanonicalCode,
			NormAddress:   normAddr,
			NormName:      normName,
			Strategy:      res.Strategy,
		})

		if idx, ok := seen[res.CanonicalCode]; ok {
			// Later rows refresh the display fields.
			result.Accounts[idx].Name = rec.Name
			result.Accounts[idx].SalesRep = rec.SalesRep
			result.Accounts[idx].Distributor = rec.Distributor
			continue
		}
		now := time.Now().UTC()
		result.Accounts = append(result.Accounts, model.Account{
			CanonicalCode: res.CanonicalCode,
			BaseCode:      identity.BaseCode(rec.AccountCode),
			ShipToCode:    rec.ShipToCode,
			Name:          rec.Name,
			Address:       normAddr,
			SalesRep:      rec.SalesRep,
			Distributor:   rec.Distributor,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		seen[res.CanonicalCode] = len(result.Accounts) - 1
	}
	return result
}
