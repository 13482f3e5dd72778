package analyzer

import (
	"sort"
	"sync"

	"guestlens/internal/model"
)

// ActivityScore is one user's accumulated evidence for a single run.
// It lives only for the duration of the run and is never persisted.
type ActivityScore struct {
	UserID     int64
	Score      float64
	Activities []model.ActivityRecord
}

// ScoreBoard owns the userID -> ActivityScore mapping for one analysis run.
// Collectors contribute through AddScore only. The mutex lets collectors run
// concurrently if a caller chooses to, though the orchestrator runs them
// sequentially for reproducible tie-breaks.
type ScoreBoard struct {
	mu     sync.Mutex
	scores map[int64]*ActivityScore
	order  []int64 // first-seen order, breaks ties among equal scores
	topN   int
}

func NewScoreBoard(topN int) *ScoreBoard {
	if topN <= 0 {
		topN = 100
	}
	return &ScoreBoard{scores: make(map[int64]*ActivityScore), topN: topN}
}

// AddScore merges one signal into the board. Score accumulation is additive;
// per-type counts increment and lastOccurrence never moves backward.
func (b *ScoreBoard) AddScore(userID int64, points float64, rec model.ActivityRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, ok := b.scores[userID]
	if !ok {
		b.scores[userID] = &ActivityScore{
			UserID:     userID,
			Score:      points,
			Activities: []model.ActivityRecord{rec},
		}
		b.order = append(b.order, userID)
		return
	}

	existing.Score += points
	for i := range existing.Activities {
		if existing.Activities[i].Type == rec.Type {
			existing.Activities[i].Count += rec.Count
			if rec.LastOccurrence.After(existing.Activities[i].LastOccurrence) {
				existing.Activities[i].LastOccurrence = rec.LastOccurrence
			}
			return
		}
	}
	existing.Activities = append(existing.Activities, rec)
}

// Len returns the number of distinct users seen so far.
func (b *ScoreBoard) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.scores)
}

// Finalize converts the board into a sequence sorted descending by score,
// truncated to topN. The sort is stable over first-seen order, so users with
// equal scores keep the position of their earliest signal.
func (b *ScoreBoard) Finalize() []ActivityScore {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ActivityScore, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.scores[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > b.topN {
		out = out[:b.topN]
	}
	return out
}
