package ctx

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultRecencyWindow is how long ago an edit can be and still contribute
// to relevance.
const DefaultRecencyWindow = 24 * time.Hour

const (
	patternBaseScore   = 0.8
	patternRecencyGain = 0.15
	proximityWeight    = 0.6
	recencyWeight      = 0.4
)

// ScoreContext carries the per-request signals the scorer blends.
type ScoreContext struct {
	Strategy Strategy

	// RecentlyEdited maps identity to the last edit time observed by the
	// editor collaborator. Takes precedence over the candidate's own
	// LastModified when newer.
	RecentlyEdited map[string]time.Time

	// GraphDistance maps identity to its reference-graph distance from the
	// active file, when known. Distance 0 is the active file itself.
	GraphDistance map[string]int
}

// Scorer computes relevance in [0,1]. It is deterministic: identical inputs
// under a frozen clock always produce identical scores.
type Scorer struct {
	clock  func() time.Time
	window time.Duration
}

// NewScorer creates a scorer with the given recency window and clock.
// A nil clock uses time.Now; a non-positive window uses the default.
func NewScorer(window time.Duration, clock func() time.Time) *Scorer {
	if clock == nil {
		clock = time.Now
	}
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	return &Scorer{clock: clock, window: window}
}

// Score ranks a candidate. Precedence: pinned always wins; then priority
// pattern matches; then a blend of reference-graph proximity (or retrieval
// similarity for documents) and recency.
func (s *Scorer) Score(item CandidateItem, sc ScoreContext) float64 {
	if item.Pinned {
		return 1.0
	}

	recency := s.recency(item, sc)

	for _, pattern := range sc.Strategy.PriorityPatterns {
		if ok, err := doublestar.Match(pattern, item.ID); err == nil && ok {
			return clampScore(patternBaseScore + patternRecencyGain*recency)
		}
	}

	proximity := 0.0
	if item.Kind == KindDocument && item.Similarity > 0 {
		proximity = clampScore(item.Similarity)
	} else if distance, ok := sc.GraphDistance[item.ID]; ok && distance >= 0 {
		proximity = 1.0 / float64(1+distance)
	}

	return clampScore(proximityWeight*proximity + recencyWeight*recency)
}

// recency decays linearly from 1 (edited now) to 0 (older than the window).
func (s *Scorer) recency(item CandidateItem, sc ScoreContext) float64 {
	last := item.LastModified
	if edited, ok := sc.RecentlyEdited[item.ID]; ok && edited.After(last) {
		last = edited
	}
	if last.IsZero() {
		return 0
	}

	age := s.clock().Sub(last)
	if age <= 0 {
		return 1
	}
	if age >= s.window {
		return 0
	}
	return 1 - float64(age)/float64(s.window)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
