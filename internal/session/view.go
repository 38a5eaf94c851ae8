package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/study/listening"
	"github.com/phrazzld/scry-study/internal/study/stats"
)

// View is a point-in-time snapshot of a session, safe to serialise.
type View struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	DeckID    uuid.UUID   `json:"deck_id"`
	DeckName  string      `json:"deck_name"`
	Mode      domain.Mode `json:"mode"`
	Finished  bool        `json:"finished"`
	Progress  int         `json:"progress"`
	StartedAt time.Time   `json:"started_at"`

	FlipCard  *FlipCardView  `json:"flipcard,omitempty"`
	Memory    *MemoryView    `json:"memory,omitempty"`
	Listening *ListeningView `json:"listening,omitempty"`

	Record             *domain.SessionRecord `json:"record,omitempty"`
	Leaderboard        *stats.Leaderboard    `json:"leaderboard,omitempty"`
	LeaderboardPending bool                  `json:"leaderboard_pending,omitempty"`
}

// FlipCardView is the flip-card part of a View.
type FlipCardView struct {
	Card     *domain.Card `json:"card,omitempty"`
	Pending  bool         `json:"pending"`
	Grades   int          `json:"grades"`
	Mastered int          `json:"mastered"`
	Total    int          `json:"total"`
}

// TileView is a memory tile as the learner sees it. Face-down tiles carry
// no text.
type TileView struct {
	Index   int         `json:"index"`
	Side    domain.Side `json:"side"`
	Text    string      `json:"text,omitempty"`
	Flipped bool        `json:"flipped"`
	Matched bool        `json:"matched"`
}

// MemoryView is the memory-mode part of a View.
type MemoryView struct {
	Tiles      []TileView `json:"tiles"`
	State      string     `json:"state"`
	Pairs      int        `json:"pairs"`
	Matched    int        `json:"matched"`
	Clicks     int        `json:"clicks"`
	ElapsedMS  int64      `json:"elapsed_ms"`
	Efficiency int        `json:"efficiency"`
}

// ListeningView is the listening part of a View. The prompt is spoken, so
// it is only revealed once the turn is answered.
type ListeningView struct {
	Index    int                `json:"index"`
	Total    int                `json:"total"`
	Options  []string           `json:"options,omitempty"`
	Prompt   string             `json:"prompt,omitempty"`
	Feedback listening.Feedback `json:"feedback,omitempty"`
	Selected int                `json:"selected"`
	Mastered int                `json:"mastered"`
}

// view must run on the loop.
func (s *Session) view() View {
	v := View{
		ID:                 s.id,
		Username:           s.username,
		DeckID:             s.deckID,
		DeckName:           s.deckName,
		Mode:               s.mode,
		Finished:           s.record != nil,
		StartedAt:          s.startedAt,
		Record:             s.record,
		Leaderboard:        s.leaderboard,
		LeaderboardPending: s.leaderboardPending,
	}

	switch {
	case s.flip != nil:
		cards := s.flip.Cards()
		fv := &FlipCardView{
			Pending:  s.flip.Pending(),
			Grades:   s.flip.Grades(),
			Mastered: stats.MasteredCount(cards),
			Total:    len(cards),
		}
		if card, ok := s.flip.Current(); ok {
			fv.Card = &card
		}
		v.FlipCard = fv
		v.Progress = stats.Progress(cards)

	case s.board != nil:
		tiles := s.board.Tiles()
		mv := &MemoryView{
			Tiles:      make([]TileView, len(tiles)),
			State:      s.board.State().String(),
			Pairs:      s.board.Pairs(),
			Matched:    s.board.Matched(),
			Clicks:     s.board.Clicks(),
			ElapsedMS:  s.board.Elapsed().Milliseconds(),
			Efficiency: s.board.Efficiency(),
		}
		for i, t := range tiles {
			tv := TileView{Index: i, Side: t.Side, Flipped: t.Flipped, Matched: t.Matched}
			if t.Flipped || t.Matched {
				tv.Text = t.Text
			}
			mv.Tiles[i] = tv
		}
		v.Memory = mv
		v.Progress = mv.Efficiency

	case s.quiz != nil:
		cards := s.quiz.Cards()
		lv := &ListeningView{
			Total:    len(cards),
			Selected: -1,
			Mastered: stats.MasteredCount(cards),
		}
		if turn, ok := s.quiz.Turn(); ok {
			lv.Index = turn.Index
			lv.Options = turn.Options
			lv.Feedback = turn.Feedback
			lv.Selected = turn.Selected
			if turn.Answered() {
				lv.Prompt = turn.Prompt
			}
		} else {
			lv.Index = len(cards)
		}
		v.Listening = lv
		v.Progress = stats.Progress(cards)
	}

	if s.record != nil {
		v.Progress = s.record.Progress
	}
	return v
}
