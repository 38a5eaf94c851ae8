// Package stats aggregates the outcome of a study session and compares
// memory-mode runs against the history of a deck.
//
// Progress is one formula everywhere it is reported: the sum of per-card
// mastery over the maximum attainable sum, as a rounded percentage. Memory
// mode, which has no mastery, reports its click efficiency instead.
package stats

import (
	"math"

	"github.com/phrazzld/scry-study/internal/domain"
)

// Summary is the aggregate result of a working set.
type Summary struct {
	Progress      int `json:"progress"`
	CardsMastered int `json:"cards_mastered"`
	TotalCards    int `json:"total_cards"`
}

// Summarize computes progress and mastered count for cards.
func Summarize(cards []domain.Card) Summary {
	return Summary{
		Progress:      Progress(cards),
		CardsMastered: MasteredCount(cards),
		TotalCards:    len(cards),
	}
}

// Progress returns round(Σmastery / (len·MaxMastery) · 100). An empty set
// has no progress.
func Progress(cards []domain.Card) int {
	if len(cards) == 0 {
		return 0
	}
	sum := 0
	for _, c := range cards {
		sum += domain.ClampMastery(c.MasteryScore)
	}
	ratio := float64(sum) / float64(len(cards)*domain.MaxMastery)
	return int(math.Round(ratio * 100))
}

// MasteredCount returns how many cards are at MaxMastery.
func MasteredCount(cards []domain.Card) int {
	n := 0
	for _, c := range cards {
		if c.Mastered() {
			n++
		}
	}
	return n
}

// Efficiency returns the memory-mode score: the perfect click count
// (two per pair) over the actual click count, as a percentage capped at 100.
// No clicks yet means no score.
func Efficiency(pairs, clicks int) int {
	if clicks <= 0 || pairs <= 0 {
		return 0
	}
	score := int(math.Round(float64(2*pairs) / float64(clicks) * 100))
	if score > 100 {
		return 100
	}
	return score
}
