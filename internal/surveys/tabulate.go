package surveys

import "math"

// Promoter/detractor cut points on the 0-10 recommend scale. Scores 7-8
// count toward the total but neither bucket.
const (
	promoterMin  = 9
	detractorMax = 6
)

// Distribution counts the 1-5 satisfaction ratings into a fixed
// five-bucket histogram. Out-of-range and missing ratings are silently
// excluded, never errored.
func Distribution(rows []AnswerRow) map[int]int {
	dist := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, r := range rows {
		if r.Q1Rating != nil && *r.Q1Rating >= 1 && *r.Q1Rating <= 5 {
			dist[*r.Q1Rating]++
		}
	}
	return dist
}

// NPS computes round(((promoters - detractors) / total) * 100) over the
// recommend scores. Every answer row counts toward the total, including
// those that skipped the question; an empty survey yields 0 by convention.
func NPS(rows []AnswerRow) int {
	total := len(rows)
	if total == 0 {
		return 0
	}
	var promoters, detractors int
	for _, r := range rows {
		if r.Q3Recommend == nil {
			continue
		}
		switch {
		case *r.Q3Recommend >= promoterMin:
			promoters++
		case *r.Q3Recommend <= detractorMax:
			detractors++
		}
	}
	return int(math.Round(float64(promoters-detractors) / float64(total) * 100))
}

// Tabulate builds the full results view from the answer rows.
func Tabulate(rows []AnswerRow) *Results {
	results := &Results{
		Q1Distribution: Distribution(rows),
		NPS:            NPS(rows),
		Comments:       []Comment{},
		List:           rows,
	}
	for _, r := range rows {
		if r.Q2Comment != nil && *r.Q2Comment != "" {
			results.Comments = append(results.Comments, Comment{
				Q2Comment: *r.Q2Comment,
				UserID:    r.UserID,
				CreatedAt: r.CreatedAt,
			})
		}
	}
	if results.List == nil {
		results.List = []AnswerRow{}
	}
	return results
}
