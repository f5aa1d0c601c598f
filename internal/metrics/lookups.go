package metrics

import (
	"sort"

	"github.com/sells-group/salespulse/internal/config"
	"github.com/sells-group/salespulse/internal/model"
)

// Lookups is the read-only cross-batch context computed once per sweep.
// Every per-account computation reads from it; nothing writes to it
// after BuildLookups returns.
type Lookups struct {
	// YoYGrowth is each account's latest-year revenue growth percentage.
	YoYGrowth map[string]float64
	// Coverage is each account's overlap with the priority product set.
	Coverage map[string]model.ProductCoverage
	// Lifetime aggregates from the year summaries.
	LifetimeRevenue map[string]float64
	LifetimeCount   map[string]int
	// Products is each account's full purchased-product set.
	Products map[string]map[string]bool
}

// BuildLookups derives the shared tables from the full set of year
// summaries.
func BuildLookups(summaries []model.YearSummary, cfg config.ScoringConfig) *Lookups {
	lk := &Lookups{
		YoYGrowth:       map[string]float64{},
		Coverage:        map[string]model.ProductCoverage{},
		LifetimeRevenue: map[string]float64{},
		LifetimeCount:   map[string]int{},
		Products:        map[string]map[string]bool{},
	}

	byAccount := map[string][]model.YearSummary{}
	for _, ys := range summaries {
		byAccount[ys.CanonicalCode] = append(byAccount[ys.CanonicalCode], ys)
		lk.LifetimeRevenue[ys.CanonicalCode] += ys.TotalRevenue
		lk.LifetimeCount[ys.CanonicalCode] += ys.TransactionCount
		set := lk.Products[ys.CanonicalCode]
		if set == nil {
			set = map[string]bool{}
			lk.Products[ys.CanonicalCode] = set
		}
		for _, p := range ys.Products {
			set[p] = true
		}
	}

	for code, years := range byAccount {
		lk.YoYGrowth[code] = latestYoYGrowth(years)
		lk.Coverage[code] = productCoverage(lk.Products[code], cfg.PriorityProducts)
	}
	return lk
}

// latestYoYGrowth compares the account's most recent summary year to
// the year immediately before it. A zero prior year reads as 100%
// growth when the latest year has revenue, 0 otherwise; a missing
// prior year reads as 0.
func latestYoYGrowth(years []model.YearSummary) float64 {
	if len(years) == 0 {
		return 0
	}
	sorted := make([]model.YearSummary, len(years))
	copy(sorted, years)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	latest := sorted[len(sorted)-1]
	var prev *model.YearSummary
	for i := range sorted[:len(sorted)-1] {
		if sorted[i].Year == latest.Year-1 {
			prev = &sorted[i]
		}
	}
	if prev == nil {
		return 0
	}
	if prev.TotalRevenue > 0 {
		return (latest.TotalRevenue - prev.TotalRevenue) / prev.TotalRevenue * 100
	}
	if latest.TotalRevenue > 0 {
		return 100
	}
	return 0
}

// productCoverage intersects the account's purchased set with the
// priority reference set, preserving reference order.
func productCoverage(purchased map[string]bool, reference []string) model.ProductCoverage {
	cov := model.ProductCoverage{Carried: []string{}, Missing: []string{}}
	if len(reference) == 0 {
		return cov
	}
	for _, item := range reference {
		if purchased[item] {
			cov.Carried = append(cov.Carried, item)
		} else {
			cov.Missing = append(cov.Missing, item)
		}
	}
	cov.CoveragePct = float64(len(cov.Carried)) / float64(len(reference)) * 100
	return cov
}
