package pipeline

import (
	"sort"

	"storysmith.app/refinery/internal/model"
)

// Aggregation is the merged view over every finding a run produced. It is
// total: zero findings aggregate to a perfect score and an empty histogram,
// never to an error.
type Aggregation struct {
	// Findings holds every finding sorted by severity, critical first.
	// The sort is stable, so findings of equal severity keep emission order.
	// Content duplicates are kept; two stages flagging the same wording is
	// signal, not noise.
	Findings   []model.Finding
	ByCategory map[model.FindingCategory]int
	Score      int
}

// Aggregate merges stage findings into one prioritized collection.
func Aggregate(findings []model.Finding) Aggregation {
	sorted := make([]model.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity.Rank() < sorted[j].Severity.Rank()
	})

	byCategory := make(map[model.FindingCategory]int, len(sorted))
	for _, f := range sorted {
		byCategory[f.Category]++
	}

	return Aggregation{
		Findings:   sorted,
		ByCategory: byCategory,
		Score:      deriveScore(findings),
	}
}

// deriveScore starts at 100 and deducts 20 per critical, 10 per major,
// 5 per minor and 2 per info finding, clamped to [0, 100].
func deriveScore(findings []model.Finding) int {
	score := 100
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityCritical:
			score -= 20
		case model.SeverityMajor:
			score -= 10
		case model.SeverityMinor:
			score -= 5
		default:
			score -= 2
		}
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
