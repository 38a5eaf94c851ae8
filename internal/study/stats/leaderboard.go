package stats

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-study/internal/domain"
)

// LeaderboardSize is how many personal bests are ranked.
const LeaderboardSize = 3

// Entry is one user's personal best on a deck.
type Entry struct {
	Rank     int           `json:"rank"`
	Username string        `json:"username"`
	Best     time.Duration `json:"best"`
}

// Leaderboard is the memory-mode ranking for a deck.
type Leaderboard struct {
	DeckID uuid.UUID `json:"deck_id"`
	Top    []Entry   `json:"top"`

	// PersonalBest is the caller's best time including the current run, if any.
	PersonalBest *time.Duration `json:"personal_best,omitempty"`

	// NewPersonalBest reports whether the current run beat the caller's
	// previous best (a first timed run always does).
	NewPersonalBest bool `json:"new_personal_best"`
}

// PersonalBests returns each user's minimum elapsed time over the timed
// memory-mode records of deckID.
func PersonalBests(records []domain.SessionRecord, deckID uuid.UUID) map[string]time.Duration {
	best := make(map[string]time.Duration)
	for _, r := range records {
		if r.DeckID != deckID || r.Mode != domain.ModeMemory || r.Elapsed == nil {
			continue
		}
		if prev, ok := best[r.Username]; !ok || *r.Elapsed < prev {
			best[r.Username] = *r.Elapsed
		}
	}
	return best
}

// BuildLeaderboard ranks personal bests for deckID from history. When
// current is non-nil it is treated as a run that history does not yet
// contain: it is compared against username's previous best and then folded
// into the ranking.
func BuildLeaderboard(
	history []domain.SessionRecord,
	deckID uuid.UUID,
	username string,
	current *domain.SessionRecord,
) Leaderboard {
	bests := PersonalBests(history, deckID)
	lb := Leaderboard{DeckID: deckID}

	if current != nil && current.Elapsed != nil && current.DeckID == deckID {
		prev, hadPrev := bests[username]
		if !hadPrev || *current.Elapsed < prev {
			lb.NewPersonalBest = true
			bests[username] = *current.Elapsed
		}
	}

	if best, ok := bests[username]; ok {
		b := best
		lb.PersonalBest = &b
	}

	lb.Top = rank(bests)
	return lb
}

func rank(bests map[string]time.Duration) []Entry {
	entries := make([]Entry, 0, len(bests))
	for user, best := range bests {
		entries = append(entries, Entry{Username: user, Best: best})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Best == entries[j].Best {
			return entries[i].Username < entries[j].Username
		}
		return entries[i].Best < entries[j].Best
	})

	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
