package metrics

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salespulse/internal/model"
	"github.com/sells-group/salespulse/internal/store"
)

func newSweepStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedAccount(t *testing.T, st store.Store, code string, dates []time.Time, revenue float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertAccounts(ctx, []model.Account{{
		CanonicalCode: code,
		BaseCode:      code,
		Name:          "Account " + code,
		Address:       "1 Main St",
	}}))

	txns := make([]model.Transaction, 0, len(dates))
	years := map[int]bool{}
	for i, d := range dates {
		txns = append(txns, model.Transaction{
			CanonicalCode: code,
			PostingDate:   d,
			ItemCode:      fmt.Sprintf("SKU-%d", i%2+1),
			Quantity:      1,
			Revenue:       revenue,
			ContentHash:   fmt.Sprintf("%s-hash-%d", code, i),
		})
		years[d.Year()] = true
	}
	_, err := st.UpsertTransactions(ctx, txns)
	require.NoError(t, err)

	keys := make([]model.YearKey, 0, len(years))
	for y := range years {
		keys = append(keys, model.YearKey{CanonicalCode: code, Year: y})
	}
	require.NoError(t, st.RecomputeYearSummaries(ctx, keys))
}

func TestSweeper_Run(t *testing.T) {
	st := newSweepStore(t)
	now := day(2025, 7, 2)

	// Three accounts so a batch size of two forces two batches.
	seedAccount(t, st, "C1000_01", []time.Time{
		day(2024, 3, 1), day(2024, 6, 1), day(2024, 9, 1),
		day(2025, 1, 15), day(2025, 4, 15), day(2025, 6, 20),
	}, 500)
	seedAccount(t, st, "C2000", []time.Time{
		day(2024, 2, 1), day(2025, 2, 1),
	}, 100)
	seedAccount(t, st, "C3000", []time.Time{
		day(2023, 5, 1),
	}, 50)

	sw := NewSweeper(st, testScoringConfig(), testGrowthConfig(), 2)
	sw.now = func() time.Time { return now }

	report, err := sw.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Accounts)
	assert.Equal(t, 3, report.Scored)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 2, report.Batches)

	m, err := st.GetMetrics(context.Background(), "C1000_01")
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, report.RunID, m.RecalculationRun)
	assert.GreaterOrEqual(t, m.HealthScore, 0.0)
	assert.LessOrEqual(t, m.HealthScore, 100.0)
	assert.GreaterOrEqual(t, m.RFMScore, 3)
	assert.LessOrEqual(t, m.RFMScore, 15)
	assert.NotEmpty(t, m.RFMSegment)
	assert.NotEmpty(t, m.HealthCategory)
	assert.InDelta(t, 1500.0, m.CYTDRevenue, 0.001)
	assert.InDelta(t, 3000.0, m.LifetimeRevenue, 0.001)
	assert.Equal(t, 6, m.LifetimeTxnCount)
	require.NotNil(t, m.LastPurchaseDate)
	assert.True(t, m.LastPurchaseDate.Equal(day(2025, 6, 20)))

	// The sweep runs the whole population through one scoring epoch.
	for _, code := range []string{"C2000", "C3000"} {
		got, err := st.GetMetrics(context.Background(), code)
		require.NoError(t, err)
		require.NotNil(t, got, code)
		assert.Equal(t, report.RunID, got.RecalculationRun, code)
		assert.True(t, got.CalculatedAt.Equal(m.CalculatedAt), code)
	}
}

func TestSweeper_RankingSeparatesHotFromCold(t *testing.T) {
	st := newSweepStore(t)
	now := day(2025, 7, 2)

	// Active big spender vs a single stale purchase two years back.
	seedAccount(t, st, "HOT", []time.Time{
		day(2025, 1, 10), day(2025, 2, 10), day(2025, 3, 10),
		day(2025, 4, 10), day(2025, 5, 10), day(2025, 6, 10),
	}, 2000)
	seedAccount(t, st, "COLD", []time.Time{day(2023, 6, 1)}, 20)

	sw := NewSweeper(st, testScoringConfig(), testGrowthConfig(), 10)
	sw.now = func() time.Time { return now }
	_, err := sw.Run(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	hot, err := st.GetMetrics(ctx, "HOT")
	require.NoError(t, err)
	require.NotNil(t, hot)
	cold, err := st.GetMetrics(ctx, "COLD")
	require.NoError(t, err)
	require.NotNil(t, cold)

	assert.Greater(t, hot.HealthScore, cold.HealthScore)
	assert.Greater(t, hot.RFMScore, cold.RFMScore)
	// The neglected account is the more urgent call.
	assert.Greater(t, cold.PriorityScore, hot.PriorityScore)
}

func TestSweeper_EmptyPopulation(t *testing.T) {
	st := newSweepStore(t)
	sw := NewSweeper(st, testScoringConfig(), testGrowthConfig(), 10)

	report, err := sw.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Accounts)
	assert.Equal(t, 0, report.Scored)
	assert.NotEmpty(t, report.RunID)
}

func TestSweeper_RerunReplacesMetrics(t *testing.T) {
	st := newSweepStore(t)
	seedAccount(t, st, "C1000", []time.Time{day(2025, 3, 1), day(2025, 5, 1)}, 250)

	sw := NewSweeper(st, testScoringConfig(), testGrowthConfig(), 10)
	sw.now = func() time.Time { return day(2025, 7, 2) }

	first, err := sw.Run(context.Background())
	require.NoError(t, err)
	second, err := sw.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)

	m, err := st.GetMetrics(context.Background(), "C1000")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, second.RunID, m.RecalculationRun)
}
