package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salespulse/internal/identity"
	"github.com/sells-group/salespulse/internal/model"
)

func TestClean_ResolvesAndDedupsAccounts(t *testing.T) {
	resolver := identity.NewResolver(identity.NewOverrides(nil))
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	records := []model.RawRecord{
		{AccountCode: "C1000", ShipToCode: "01", Name: "Valley Market", Date: day, Arrival: 1},
		{AccountCode: "C1000", ShipToCode: "01", Name: "Valley Market #2", SalesRep: "Kim", Date: day, Arrival: 2},
	}

	result := Clean(records, resolver)
	assert.Empty(t, result.Unresolved)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, result.Rows[0].CanonicalCode, result.Rows[1].CanonicalCode)

	// Both rows collapse to one account; the later row wins display fields.
	require.Len(t, result.Accounts, 1)
	assert.Equal(t, "Valley Market #2", result.Accounts[0].Name)
	assert.Equal(t, "Kim", result.Accounts[0].SalesRep)
	assert.Equal(t, "C1000", result.Accounts[0].BaseCode)
}

func TestClean_ReportsUnresolved(t *testing.T) {
	resolver := identity.NewResolver(identity.NewOverrides(nil))

	// No ship-to, no address, no name: nothing to resolve on.
	records := []model.RawRecord{
		{AccountCode: "C9000", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Arrival: 1},
	}

	result := Clean(records, resolver)
	assert.Empty(t, result.Rows)
	assert.Empty(t, result.Accounts)
	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, "C9000", result.Unresolved[0].AccountCode)
}

func TestClean_OverrideWins(t *testing.T) {
	resolver := identity.NewResolver(identity.NewOverrides(map[string]string{
		"C1000": "CANON-1",
	}))

	records := []model.RawRecord{
		{AccountCode: "C1000", ShipToCode: "05", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Arrival: 1},
	}

	result := Clean(records, resolver)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "CANON-1", result.Rows[0].CanonicalCode)
}
