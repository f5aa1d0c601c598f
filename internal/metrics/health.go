package metrics

import (
	"github.com/sells-group/salespulse/internal/config"
)

// HealthInput carries everything the health score reads. Missing
// intervals stay nil; the components degrade to neutral values.
type HealthInput struct {
	DaysSinceLast   int
	Frequency       int
	LifetimeRevenue float64
	AvgIntervalCYTD *float64
	AvgIntervalPY   *float64
	YEPRevenue      float64
	PYRevenue       float64
}

// HealthScore computes the 0-100 weighted health score from five
// independently capped components.
func HealthScore(in HealthInput, cfg config.ScoringConfig) float64 {
	score := recencyComponent(in.DaysSinceLast, cfg.WeightRecency) +
		frequencyComponent(in.Frequency, cfg.WeightFrequency) +
		monetaryComponent(in.LifetimeRevenue, cfg.WeightMonetary) +
		cadenceComponent(in.AvgIntervalCYTD, in.AvgIntervalPY, cfg.WeightCadence) +
		paceComponent(in.YEPRevenue, in.PYRevenue, cfg.WeightPace)
	return clamp(score, 0, 100)
}

// HealthCategory maps a score to its display bucket.
func HealthCategory(score float64) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Average"
	case score >= 20:
		return "Poor"
	default:
		return "Critical"
	}
}

// recencyComponent loses roughly a point per month since the last
// purchase.
func recencyComponent(daysSinceLast int, weight float64) float64 {
	loss := float64(daysSinceLast) / 30.0
	if loss > weight {
		loss = weight
	}
	return clamp(weight-loss, 0, weight)
}

// frequencyComponent scales with lifetime count, maxing out at
// weight*5 purchases.
func frequencyComponent(freq int, weight float64) float64 {
	return clamp(float64(freq)/5.0, 0, weight)
}

// monetaryComponent scales with lifetime revenue, maxing out at
// weight*$5000.
func monetaryComponent(total, weight float64) float64 {
	return clamp(total/5000.0, 0, weight)
}

// cadenceComponent rewards a short current-year interval (60% of the
// weight, full marks at 7 days and zero at 90) plus a bonus for
// shortening vs prior year or a penalty for lengthening (40%).
func cadenceComponent(cytd, py *float64, weight float64) float64 {
	base := weight * 0.6
	swing := weight * 0.4

	var score float64
	if cytd != nil {
		over := *cytd - 7
		if over < 0 {
			over = 0
		}
		score += clamp(base*(1-over/(90-7)), 0, base)
	} else {
		score += weight * 0.1
	}

	switch {
	case cytd != nil && py != nil && *py > 0:
		lag := *cytd - *py
		bonus := clamp(swing*(-lag/7.0), 0, swing)
		penalty := clamp(swing*(lag/30.0), 0, swing)
		score += bonus - penalty
	case cytd != nil && py == nil:
		// Established a cadence where there was none last year.
		score += weight * 0.2
	}
	return clamp(score, 0, weight)
}

// paceComponent scales linearly from -50% pace (zero points) to +25%
// (full points). Without a prior-year baseline it awards 75% of the
// weight when revenue is flowing and 25% otherwise.
func paceComponent(yep, py, weight float64) float64 {
	if py <= 0 {
		if yep > 0 {
			return weight * 0.75
		}
		return weight * 0.25
	}
	pacePct := (yep - py) / py * 100
	return clamp(weight*(pacePct+50)/(25+50), 0, weight)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
