package metrics

// PriorityInput feeds the ranking score. Higher output means the
// account needs attention sooner.
type PriorityInput struct {
	DaysOverdue        int
	MedianIntervalDays int
	LifetimeRevenue    float64
	RFMSegment         string
	HealthScore        float64
	YEPRevenue         float64
	PYRevenue          float64
}

// segmentPriority ranks segments by how badly they need outreach.
// "Can't Lose" tops the table; "Lost" ranks low because the spend to
// recover one rarely pays off.
var segmentPriority = map[string]float64{
	"Champions":           1,
	"Loyal Customers":     2,
	"Potential Loyalists": 4,
	"New Customers":       3,
	"Promising":           5,
	"Need Attention":      6,
	"At Risk":             8,
	"Can't Lose":          10,
	"Hibernating":         7,
	"Lost":                2,
}

// PriorityScore sums urgency, value, segment, inverse-health, and pace
// components. Used only for ranking.
func PriorityScore(in PriorityInput) float64 {
	cycle := float64(in.MedianIntervalDays)
	if cycle < 1 {
		cycle = 1
	}
	overdueRatio := float64(in.DaysOverdue) / cycle
	if overdueRatio > 1 {
		overdueRatio = 1
	}
	urgency := clamp(30*overdueRatio, 0, 30)

	value := clamp(in.LifetimeRevenue/5000, 0, 20)

	segment, ok := segmentPriority[in.RFMSegment]
	if !ok {
		segment = 6
	}
	segment = clamp(segment, 0, 10)

	health := clamp((100-in.HealthScore)*0.10, 0, 10)

	return urgency + value + segment + health + pacePriority(in.YEPRevenue, in.PYRevenue)
}

// pacePriority inverts the pace scale: a declining pace raises
// priority. Neutral 3 when no baseline exists.
func pacePriority(yep, py float64) float64 {
	if py <= 0 {
		return 3
	}
	pacePct := (yep - py) / py * 100
	return clamp(10*(25-pacePct)/(25-(-25)), 0, 10)
}
