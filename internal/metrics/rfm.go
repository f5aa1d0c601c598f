package metrics

import "sort"

// RFMInput is one account's raw recency/frequency/monetary reading.
type RFMInput struct {
	CanonicalCode string
	DaysSinceLast int // 9999 when the account has never purchased
	Frequency     int
	Monetary      float64
}

// RFMScores is the bucketed 1-5 scoring plus the derived segment.
type RFMScores struct {
	Recency   int
	Frequency int
	Monetary  int
	Total     int
	Segment   string
}

// quintilePopulation is the minimum population for data-derived bins;
// below it the fixed threshold tables apply.
const quintilePopulation = 5

// ScoreRFM buckets every account in the population into 1-5 scores per
// dimension. With at least five accounts each dimension uses
// equal-population quintiles over the population ranking; smaller
// populations fall back to fixed thresholds so a two-account dataset
// still scores sensibly.
func ScoreRFM(inputs []RFMInput) map[string]RFMScores {
	out := make(map[string]RFMScores, len(inputs))
	if len(inputs) == 0 {
		return out
	}

	var recency, frequency, monetary map[string]int
	if len(inputs) >= quintilePopulation {
		// Lower days rank first and must score highest, so invert.
		recency = quintiles(inputs, func(a, b RFMInput) bool {
			if a.DaysSinceLast != b.DaysSinceLast {
				return a.DaysSinceLast < b.DaysSinceLast
			}
			return a.CanonicalCode < b.CanonicalCode
		}, true)
		frequency = quintiles(inputs, func(a, b RFMInput) bool {
			if a.Frequency != b.Frequency {
				return a.Frequency < b.Frequency
			}
			return a.CanonicalCode < b.CanonicalCode
		}, false)
		monetary = quintiles(inputs, func(a, b RFMInput) bool {
			if a.Monetary != b.Monetary {
				return a.Monetary < b.Monetary
			}
			return a.CanonicalCode < b.CanonicalCode
		}, false)
	}

	for _, in := range inputs {
		var s RFMScores
		if recency != nil {
			s.Recency = recency[in.CanonicalCode]
			s.Frequency = frequency[in.CanonicalCode]
			s.Monetary = monetary[in.CanonicalCode]
		} else {
			s.Recency = thresholdRecency(in.DaysSinceLast)
			s.Frequency = thresholdFrequency(in.Frequency)
			s.Monetary = thresholdMonetary(in.Monetary)
		}
		s.Total = s.Recency + s.Frequency + s.Monetary
		s.Segment = Segment(s.Recency, s.Frequency, s.Monetary)
		out[in.CanonicalCode] = s
	}
	return out
}

// quintiles ranks the population and assigns each account an
// equal-population bin 1-5. With invert the best rank gets 5.
func quintiles(inputs []RFMInput, less func(a, b RFMInput) bool, invert bool) map[string]int {
	ordered := make([]RFMInput, len(inputs))
	copy(ordered, inputs)
	sort.SliceStable(ordered, func(i, j int) bool { return less(ordered[i], ordered[j]) })

	scores := make(map[string]int, len(ordered))
	n := len(ordered)
	for i, in := range ordered {
		bin := i*5/n + 1
		if invert {
			bin = 6 - bin
		}
		scores[in.CanonicalCode] = bin
	}
	return scores
}

// Fixed small-population cutoffs. Documented business constants, not
// data-derived.

func thresholdRecency(days int) int {
	switch {
	case days <= 30:
		return 5
	case days <= 60:
		return 4
	case days <= 90:
		return 3
	case days <= 120:
		return 2
	default:
		return 1
	}
}

func thresholdFrequency(freq int) int {
	switch {
	case freq >= 20:
		return 5
	case freq >= 10:
		return 4
	case freq >= 5:
		return 3
	case freq >= 2:
		return 2
	default:
		return 1
	}
}

func thresholdMonetary(total float64) int {
	switch {
	case total >= 10000:
		return 5
	case total >= 5000:
		return 4
	case total >= 1000:
		return 3
	case total >= 500:
		return 2
	default:
		return 1
	}
}

// segmentRule is one row of the ordered segment decision table.
type segmentRule struct {
	name  string
	match func(r, f, m int) bool
}

// segmentRules is evaluated top to bottom; the first hit wins, so the
// order is part of the business definition.
var segmentRules = []segmentRule{
	{"Champions", func(r, f, m int) bool { return r >= 4 && f >= 4 && m >= 4 }},
	{"Loyal Customers", func(r, f, m int) bool { return r >= 3 && f >= 3 && m >= 3 }},
	{"Potential Loyalists", func(r, f, m int) bool { return r >= 4 && f >= 2 && m >= 2 }},
	{"New Customers", func(r, f, m int) bool { return r >= 4 && f <= 2 }},
	{"Promising", func(r, f, m int) bool { return r >= 3 && f <= 2 && m <= 2 }},
	{"At Risk", func(r, f, m int) bool { return r <= 2 && f >= 3 && m >= 3 }},
	{"Can't Lose", func(r, f, m int) bool { return r <= 2 && f >= 4 && m >= 4 }},
	{"Hibernating", func(r, f, m int) bool { return r <= 2 && f <= 2 }},
	{"Lost", func(r, f, m int) bool { return r <= 1 && f <= 1 && m <= 2 }},
}

// Segment maps a score triple to its named segment.
func Segment(r, f, m int) string {
	for _, rule := range segmentRules {
		if rule.match(r, f, m) {
			return rule.name
		}
	}
	return "Need Attention"
}
