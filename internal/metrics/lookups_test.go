package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salespulse/internal/config"
	"github.com/sells-group/salespulse/internal/model"
)

func TestBuildLookups_Aggregates(t *testing.T) {
	summaries := []model.YearSummary{
		{CanonicalCode: "A", Year: 2023, TotalRevenue: 1000, TransactionCount: 4, Products: []string{"SKU-1"}},
		{CanonicalCode: "A", Year: 2024, TotalRevenue: 1500, TransactionCount: 6, Products: []string{"SKU-2"}},
		{CanonicalCode: "B", Year: 2024, TotalRevenue: 200, TransactionCount: 1, Products: []string{"SKU-9"}},
	}
	cfg := config.ScoringConfig{PriorityProducts: []string{"SKU-1", "SKU-2", "SKU-3"}}
	lk := BuildLookups(summaries, cfg)

	assert.InDelta(t, 2500.0, lk.LifetimeRevenue["A"], 0.001)
	assert.Equal(t, 10, lk.LifetimeCount["A"])
	assert.InDelta(t, 200.0, lk.LifetimeRevenue["B"], 0.001)
	assert.True(t, lk.Products["A"]["SKU-1"])
	assert.True(t, lk.Products["A"]["SKU-2"])
	assert.False(t, lk.Products["A"]["SKU-9"])

	// 2023 -> 2024 is +50% for A; B has no prior year.
	assert.InDelta(t, 50.0, lk.YoYGrowth["A"], 0.001)
	assert.Equal(t, 0.0, lk.YoYGrowth["B"])

	covA := lk.Coverage["A"]
	assert.Equal(t, []string{"SKU-1", "SKU-2"}, covA.Carried)
	assert.Equal(t, []string{"SKU-3"}, covA.Missing)
	assert.InDelta(t, 66.667, covA.CoveragePct, 0.01)
}

func TestLatestYoYGrowth(t *testing.T) {
	tests := []struct {
		name  string
		years []model.YearSummary
		want  float64
	}{
		{"empty", nil, 0},
		{"single year", []model.YearSummary{{Year: 2024, TotalRevenue: 500}}, 0},
		{"normal growth", []model.YearSummary{
			{Year: 2023, TotalRevenue: 1000},
			{Year: 2024, TotalRevenue: 1200},
		}, 20},
		{"decline", []model.YearSummary{
			{Year: 2023, TotalRevenue: 1000},
			{Year: 2024, TotalRevenue: 700},
		}, -30},
		{"zero prior with revenue", []model.YearSummary{
			{Year: 2023, TotalRevenue: 0},
			{Year: 2024, TotalRevenue: 300},
		}, 100},
		{"zero prior without revenue", []model.YearSummary{
			{Year: 2023, TotalRevenue: 0},
			{Year: 2024, TotalRevenue: 0},
		}, 0},
		{"gap year is not a baseline", []model.YearSummary{
			{Year: 2022, TotalRevenue: 1000},
			{Year: 2024, TotalRevenue: 2000},
		}, 0},
		{"unsorted input", []model.YearSummary{
			{Year: 2024, TotalRevenue: 1100},
			{Year: 2023, TotalRevenue: 1000},
		}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, latestYoYGrowth(tt.years), 0.001)
		})
	}
}

func TestProductCoverage(t *testing.T) {
	purchased := map[string]bool{"SKU-2": true, "SKU-5": true}
	ref := []string{"SKU-1", "SKU-2", "SKU-3", "SKU-4"}

	cov := productCoverage(purchased, ref)
	require.Equal(t, []string{"SKU-2"}, cov.Carried)
	assert.Equal(t, []string{"SKU-1", "SKU-3", "SKU-4"}, cov.Missing)
	assert.InDelta(t, 25.0, cov.CoveragePct, 0.001)
}

func TestProductCoverage_EmptyReference(t *testing.T) {
	cov := productCoverage(map[string]bool{"SKU-1": true}, nil)
	assert.Empty(t, cov.Carried)
	assert.Empty(t, cov.Missing)
	assert.Equal(t, 0.0, cov.CoveragePct)
}
