package metrics

import (
	"sort"
	"time"

	"github.com/sells-group/salespulse/internal/model"
)

// Projection holds the revenue-pace figures for one account.
type Projection struct {
	CYTDRevenue      float64
	YEPRevenue       float64
	PYRevenue        float64
	PaceVsLY         float64
	PaceStatus       model.PaceStatus
	AvgDailyOrder    float64
	MedianDailyOrder float64
}

// yepMinElapsedDays guards against extrapolating a thin early-year
// sample into an absurd projection.
const yepMinElapsedDays = 30

// ComputeProjection derives CYTD revenue, the year-end pace projection,
// and pace vs last year from the ledger and the prior-year summary.
func ComputeProjection(txns []model.Transaction, summaries []model.YearSummary, now time.Time) Projection {
	today := now.UTC().Truncate(24 * time.Hour)
	yearStart := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	var p Projection
	dayTotals := map[time.Time]float64{}
	for _, t := range txns {
		day := t.PostingDate.UTC().Truncate(24 * time.Hour)
		if day.Before(yearStart) {
			continue
		}
		p.CYTDRevenue += t.Revenue
		dayTotals[day] += t.Revenue
	}
	if len(dayTotals) > 0 {
		p.AvgDailyOrder = p.CYTDRevenue / float64(len(dayTotals))
		p.MedianDailyOrder = medianOf(dayTotals)
	}

	if p.CYTDRevenue > 0 {
		elapsed := int(today.Sub(yearStart).Hours()/24) + 1
		if elapsed < yepMinElapsedDays {
			p.YEPRevenue = p.CYTDRevenue
		} else {
			p.YEPRevenue = p.CYTDRevenue / float64(elapsed) * 365
		}
	}

	for _, ys := range summaries {
		if ys.Year == today.Year()-1 {
			p.PYRevenue += ys.TotalRevenue
		}
	}

	switch {
	case p.PYRevenue > 0:
		p.PaceStatus = model.PaceKnown
		p.PaceVsLY = (p.YEPRevenue - p.PYRevenue) / p.PYRevenue * 100
	case p.YEPRevenue > 0:
		// Revenue this year against a zero baseline: no percentage exists.
		p.PaceStatus = model.PaceNewGrowth
	default:
		p.PaceStatus = model.PaceFlat
	}
	return p
}

func medianOf(totals map[time.Time]float64) float64 {
	vals := make([]float64, 0, len(totals))
	for _, v := range totals {
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
