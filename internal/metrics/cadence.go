// Package metrics recalculates per-account cadence, projection, scoring,
// and growth figures from the transaction ledger and year summaries.
// Every value is recomputed from scratch on each sweep; nothing is
// patched incrementally.
package metrics

import (
	"sort"
	"time"

	"github.com/sells-group/salespulse/internal/model"
)

// Cadence holds the purchase-rhythm figures for one account.
type Cadence struct {
	MedianIntervalDays int
	AvgIntervalCYTD    *float64
	AvgIntervalPY      *float64
	LastPurchaseDate   *time.Time
	NextExpectedDate   *time.Time
	DaysOverdue        int
}

const defaultMedianInterval = 30

// distinctDates returns the account's distinct purchase days, sorted
// ascending, optionally restricted to [from, to).
func distinctDates(txns []model.Transaction, from, to time.Time) []time.Time {
	seen := map[time.Time]bool{}
	for _, t := range txns {
		day := t.PostingDate.UTC().Truncate(24 * time.Hour)
		if !from.IsZero() && day.Before(from) {
			continue
		}
		if !to.IsZero() && !day.Before(to) {
			continue
		}
		seen[day] = true
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func dayGaps(dates []time.Time) []float64 {
	if len(dates) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, dates[i].Sub(dates[i-1]).Hours()/24)
	}
	return gaps
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// ComputeCadence derives the cadence figures from an account's full
// transaction history. The median interval is clamped to at least one
// day and defaults to 30 when fewer than two distinct dates exist.
func ComputeCadence(txns []model.Transaction, now time.Time) Cadence {
	today := now.UTC().Truncate(24 * time.Hour)
	yearStart := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	pyStart := time.Date(today.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)

	c := Cadence{MedianIntervalDays: defaultMedianInterval}

	all := distinctDates(txns, time.Time{}, time.Time{})
	if len(all) == 0 {
		return c
	}
	last := all[len(all)-1]
	c.LastPurchaseDate = &last

	if gaps := dayGaps(all); len(gaps) > 0 {
		m := int(median(gaps))
		if m < 1 {
			m = 1
		}
		c.MedianIntervalDays = m
	}

	if gaps := dayGaps(distinctDates(txns, yearStart, time.Time{})); len(gaps) > 0 {
		avg := mean(gaps)
		c.AvgIntervalCYTD = &avg
	}
	if gaps := dayGaps(distinctDates(txns, pyStart, yearStart)); len(gaps) > 0 {
		avg := mean(gaps)
		c.AvgIntervalPY = &avg
	}

	next := last.AddDate(0, 0, c.MedianIntervalDays)
	c.NextExpectedDate = &next
	if next.Before(today) {
		c.DaysOverdue = int(today.Sub(next).Hours() / 24)
	}
	return c
}
