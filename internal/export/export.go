// Package export pushes recalculated account metrics to the sales
// team's external tools.
package export

import (
	"github.com/sells-group/salespulse/internal/model"
)

// Row is one account as the export targets see it: identity plus the
// handful of metrics a salesperson acts on.
type Row struct {
	CanonicalCode string
	Name          string
	Segment       string
	HealthScore   float64
	PriorityScore float64
	DaysOverdue   int
	SuggestedOrder float64
	GrowthMessage string
}

// Report counts the outcome of one export run.
type Report struct {
	Pushed  int `json:"pushed"`
	Created int `json:"created,omitempty"`
	Updated int `json:"updated,omitempty"`
	Missing int `json:"missing,omitempty"`
	Failed  int `json:"failed,omitempty"`
}

// BuildRows joins metrics with their account display names.
func BuildRows(metrics []model.AccountMetrics, names map[string]string) []Row {
	rows := make([]Row, 0, len(metrics))
	for _, m := range metrics {
		name := names[m.CanonicalCode]
		if name == "" {
			name = m.CanonicalCode
		}
		rows = append(rows, Row{
			CanonicalCode:  m.CanonicalCode,
			Name:           name,
			Segment:        m.RFMSegment,
			HealthScore:    m.HealthScore,
			PriorityScore:  m.PriorityScore,
			DaysOverdue:    m.DaysOverdue,
			SuggestedOrder: m.SuggestedOrder,
			GrowthMessage:  m.GrowthMessage,
		})
	}
	return rows
}
