package metrics

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/salespulse/internal/config"
	"github.com/sells-group/salespulse/internal/model"
)

// GrowthInput feeds the growth opportunity engine.
type GrowthInput struct {
	CYTDRevenue        float64
	YEPRevenue         float64
	PYRevenue          float64
	PaceStatus         model.PaceStatus
	PaceVsLY           float64
	MedianIntervalDays int

	// MissingProducts is the coverage gap, in reference-set order.
	MissingProducts []string
}

// Growth is the engine's suggestion for one account.
type Growth struct {
	TargetRevenue    float64
	AdditionalNeeded float64
	SuggestedOrder   float64
	Recommended      []model.RecommendedProduct
	Message          string
}

var currencyPrinter = message.NewPrinter(language.AmericanEnglish)

func formatCurrency(v float64) string {
	return currencyPrinter.Sprintf("$%.0f", v)
}

// ComputeGrowth picks a baseline (prior year, else year-end pace),
// applies the stretch or conservative target percentage, and turns the
// gap into a suggested next order size plus product recommendations.
func ComputeGrowth(in GrowthInput, cfg config.GrowthConfig, now time.Time) Growth {
	g := Growth{Message: "Data insufficient for growth suggestion."}

	baseline := in.PYRevenue
	if baseline <= 0 && in.YEPRevenue > 0 {
		baseline = in.YEPRevenue
	}
	if baseline <= 0 {
		return g
	}

	// Pacing at or above last year earns the stretch target; a known
	// shortfall or a missing baseline gets the conservative one.
	targetPct := cfg.ConservativePct
	if in.PaceStatus == model.PaceKnown && in.PaceVsLY >= 0 {
		targetPct = cfg.StretchPct
	}

	g.TargetRevenue = baseline * (1 + targetPct)
	g.AdditionalNeeded = g.TargetRevenue - in.CYTDRevenue

	if g.AdditionalNeeded <= 0 {
		g.Message = currencyPrinter.Sprintf(
			"Excellent! On track or has exceeded the +%.0f%% target (Target: %s).",
			targetPct*100, formatCurrency(g.TargetRevenue))
		g.Recommended = recommendMissing(in.MissingProducts, cfg.MaxRecommended)
		return g
	}

	today := now.UTC().Truncate(24 * time.Hour)
	yearEnd := time.Date(today.Year(), 12, 31, 0, 0, 0, 0, time.UTC)
	daysLeft := int(yearEnd.Sub(today).Hours() / 24)
	if daysLeft < 1 {
		daysLeft = 1
	}

	remaining := 1.0
	if in.MedianIntervalDays > 0 {
		remaining = float64(daysLeft) / float64(in.MedianIntervalDays)
	}
	if remaining < 1 {
		remaining = 1
	}

	perOrder := g.AdditionalNeeded / remaining
	g.SuggestedOrder = perOrder
	if g.SuggestedOrder > g.AdditionalNeeded {
		g.SuggestedOrder = g.AdditionalNeeded
	}
	if g.SuggestedOrder < cfg.MinOrderAmount {
		g.SuggestedOrder = cfg.MinOrderAmount
	}

	g.Message = currencyPrinter.Sprintf(
		"To reach %s (+%.0f%% vs baseline), aim for orders around ~%s.",
		formatCurrency(g.TargetRevenue), targetPct*100, formatCurrency(g.SuggestedOrder))
	g.Recommended = recommendMissing(in.MissingProducts, cfg.MaxRecommended)
	return g
}

// recommendMissing returns up to max priority products the account has
// never bought, keeping reference-set order.
func recommendMissing(missing []string, max int) []model.RecommendedProduct {
	if max <= 0 || len(missing) == 0 {
		return nil
	}
	if len(missing) > max {
		missing = missing[:max]
	}
	recs := make([]model.RecommendedProduct, 0, len(missing))
	for _, item := range missing {
		recs = append(recs, model.RecommendedProduct{
			ItemCode: item,
			Reason:   "Priority product not in purchase history",
		})
	}
	return recs
}
