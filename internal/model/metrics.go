package model

import "time"

// PaceStatus distinguishes a numeric pace-vs-last-year percentage from
// the explicit "no baseline" outcome of a first growth year.
type PaceStatus string

const (
	// PaceKnown means PaceVsLY carries a real percentage.
	PaceKnown PaceStatus = "known"
	// PaceNewGrowth means the account has current-year revenue but no
	// prior-year baseline, so no percentage is reported.
	PaceNewGrowth PaceStatus = "new_growth"
	// PaceFlat means both years are zero.
	PaceFlat PaceStatus = "flat"
)

// RecommendedProduct is one priority product the account does not yet buy.
type RecommendedProduct struct {
	ItemCode string `json:"item_code"`
	Reason   string `json:"reason"`
}

// ProductCoverage describes an account's overlap with the priority
// product reference set.
type ProductCoverage struct {
	Carried     []string `json:"carried"`
	Missing     []string `json:"missing"`
	CoveragePct float64  `json:"coverage_pct"`
}

// AccountMetrics is the full recalculated metrics record for one
// canonical account. Recomputed wholesale on every sweep so the fields
// are always from the same recalculation epoch.
type AccountMetrics struct {
	CanonicalCode string `json:"canonical_code"`

	// Cadence
	MedianIntervalDays int        `json:"median_interval_days"`
	AvgIntervalCYTD    *float64   `json:"avg_interval_cytd,omitempty"`
	AvgIntervalPY      *float64   `json:"avg_interval_py,omitempty"`
	LastPurchaseDate   *time.Time `json:"last_purchase_date,omitempty"`
	NextExpectedDate   *time.Time `json:"next_expected_date,omitempty"`
	DaysOverdue        int        `json:"days_overdue"`

	// Projection
	CYTDRevenue      float64    `json:"cytd_revenue"`
	YEPRevenue       float64    `json:"yep_revenue"`
	PYRevenue        float64    `json:"py_total_revenue"`
	PaceVsLY         float64    `json:"pace_vs_ly"`
	PaceStatus       PaceStatus `json:"pace_status"`
	YoYGrowthPct     float64    `json:"yoy_growth_pct"`
	AvgDailyOrder    float64    `json:"avg_daily_order"`
	MedianDailyOrder float64    `json:"median_daily_order"`

	// RFM
	RecencyScore   int    `json:"recency_score"`
	FrequencyScore int    `json:"frequency_score"`
	MonetaryScore  int    `json:"monetary_score"`
	RFMScore       int    `json:"rfm_score"`
	RFMSegment     string `json:"rfm_segment"`

	// Health
	HealthScore    float64 `json:"health_score"`
	HealthCategory string  `json:"health_category"`

	// Priority
	PriorityScore float64 `json:"priority_score"`

	// Growth
	TargetRevenue     float64              `json:"target_revenue"`
	AdditionalNeeded  float64              `json:"additional_revenue_needed"`
	SuggestedOrder    float64              `json:"suggested_next_order_amount"`
	Recommended       []RecommendedProduct `json:"recommended_products,omitempty"`
	GrowthMessage     string               `json:"growth_message,omitempty"`
	Coverage          ProductCoverage      `json:"product_coverage"`
	LifetimeRevenue   float64              `json:"lifetime_revenue"`
	LifetimeTxnCount  int                  `json:"lifetime_transaction_count"`
	CalculatedAt      time.Time            `json:"calculated_at"`
	RecalculationRun  string               `json:"recalculation_run,omitempty"`
}
