package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salespulse/internal/identity"
	"github.com/sells-group/salespulse/internal/store"
)

func newTestIngestor(t *testing.T) (*Ingestor, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	resolver := identity.NewResolver(identity.NewOverrides(nil))
	return New(st, resolver), st
}

func writeSalesCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleCSV = `card_code,ship_to_code,card_name,address,city,state,zip_code,posting_date,item_code,description,quantity,revenue,sales_rep
C1000,01,VALLEY MARKET,123 MAIN ST,DENVER,CO,80202,2025-03-10,SKU-1,GRANOLA,3,100.00,JO
C1000,01,VALLEY MARKET,123 MAIN ST,DENVER,CO,80202,2025-03-10,SKU-1,GRANOLA,3,100.00,JO
C1000,01,VALLEY MARKET,123 MAIN ST,DENVER,CO,80202,2024-11-02,SKU-2,OATS,1,50.00,JO
C2000,02,SUMMIT FOODS,9 ELM AVE,BOULDER,CO,80301,2025-04-01,SKU-1,GRANOLA,2,80.00,KIM
`

func TestIngestor_IngestFile(t *testing.T) {
	ing, st := newTestIngestor(t)
	ctx := context.Background()

	report, err := ing.IngestFile(ctx, writeSalesCSV(t, sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, "sales.csv", report.File)
	assert.Equal(t, 4, report.RowsRead)
	assert.Equal(t, 4, report.Resolved)
	assert.Empty(t, report.Unresolved)
	// The repeated line is a real re-delivery, ranked not dropped.
	assert.Equal(t, 4, report.Inserted)
	assert.Equal(t, 2, report.AccountsSeen)
	assert.Equal(t, 3, report.YearsTouched)

	codes, err := st.ListAccountCodes(ctx)
	require.NoError(t, err)
	assert.Len(t, codes, 2)

	summaries, err := st.ListYearSummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 3)
}

func TestIngestor_ReingestIsIdempotent(t *testing.T) {
	ing, st := newTestIngestor(t)
	ctx := context.Background()
	path := writeSalesCSV(t, sampleCSV)

	first, err := ing.IngestFile(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 4, first.Inserted)

	second, err := ing.IngestFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)

	n, err := st.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// Summaries are unchanged after the replay.
	summaries, err := st.ListYearSummaries(ctx)
	require.NoError(t, err)
	var total float64
	for _, ys := range summaries {
		total += ys.TotalRevenue
	}
	assert.Equal(t, 330.0, total)
}

func TestIngestor_SummariesMatchLedger(t *testing.T) {
	ing, st := newTestIngestor(t)
	ctx := context.Background()

	_, err := ing.IngestFile(ctx, writeSalesCSV(t, sampleCSV))
	require.NoError(t, err)

	byCode, err := st.GetYearSummaries(ctx, []string{"C1000_01"})
	require.NoError(t, err)
	require.Len(t, byCode["C1000_01"], 2)

	y2024, y2025 := byCode["C1000_01"][0], byCode["C1000_01"][1]
	assert.Equal(t, 2024, y2024.Year)
	assert.Equal(t, 50.0, y2024.TotalRevenue)
	assert.Equal(t, []string{"SKU-2"}, y2024.Products)

	assert.Equal(t, 2025, y2025.Year)
	assert.Equal(t, 200.0, y2025.TotalRevenue)
	assert.Equal(t, 2, y2025.TransactionCount)
	assert.Equal(t, []string{"SKU-1"}, y2025.Products)
}

func TestIngestor_EmptyBatch(t *testing.T) {
	ing, _ := newTestIngestor(t)

	report, err := ing.IngestRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.RowsRead)
	assert.Equal(t, 0, report.Inserted)
}
