package ctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var frozenNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func frozenClock() time.Time { return frozenNow }

func newFrozenScorer() *Scorer {
	return NewScorer(DefaultRecencyWindow, frozenClock)
}

func TestPinnedAlwaysScoresOne(t *testing.T) {
	scorer := newFrozenScorer()
	item := CandidateItem{
		ID:           "ancient.go",
		Content:      "x",
		Kind:         KindFile,
		Pinned:       true,
		LastModified: frozenNow.Add(-100 * 24 * time.Hour),
	}

	assert.Equal(t, 1.0, scorer.Score(item, ScoreContext{}))
}

func TestPriorityPatternMatchScoresAboveBase(t *testing.T) {
	scorer := newFrozenScorer()
	sc := ScoreContext{
		Strategy: Strategy{
			Name:             "debugging",
			PriorityPatterns: []string{"**/*_test.go"},
		},
	}

	fresh := CandidateItem{
		ID:           "pkg/ctx/planner_test.go",
		Content:      "x",
		Kind:         KindFile,
		LastModified: frozenNow,
	}
	stale := CandidateItem{
		ID:           "pkg/ctx/planner_test.go",
		Content:      "x",
		Kind:         KindFile,
		LastModified: frozenNow.Add(-48 * time.Hour),
	}

	freshScore := scorer.Score(fresh, sc)
	staleScore := scorer.Score(stale, sc)

	assert.InDelta(t, 0.95, freshScore, 1e-9) // base 0.8 + full recency bonus
	assert.InDelta(t, 0.80, staleScore, 1e-9) // base only, recency decayed to 0
	assert.Less(t, freshScore, 1.0)           // pinned still wins any tie
}

func TestGraphDistanceBlendsWithRecency(t *testing.T) {
	scorer := newFrozenScorer()
	sc := ScoreContext{
		Strategy:      Strategy{Name: "balanced"},
		GraphDistance: map[string]int{"near.go": 0, "far.go": 9},
	}

	near := CandidateItem{ID: "near.go", Content: "x", Kind: KindFile, LastModified: frozenNow}
	far := CandidateItem{ID: "far.go", Content: "x", Kind: KindFile, LastModified: frozenNow}

	// Full recency on both; graph proximity separates them.
	assert.InDelta(t, 0.6*1.0+0.4*1.0, scorer.Score(near, sc), 1e-9)
	assert.InDelta(t, 0.6*0.1+0.4*1.0, scorer.Score(far, sc), 1e-9)
}

func TestUnknownGraphDistanceScoresZeroProximity(t *testing.T) {
	scorer := newFrozenScorer()
	item := CandidateItem{
		ID:           "stranger.go",
		Content:      "x",
		Kind:         KindFile,
		LastModified: frozenNow.Add(-12 * time.Hour),
	}

	// Half the window elapsed: recency 0.5, proximity 0.
	assert.InDelta(t, 0.4*0.5, scorer.Score(item, ScoreContext{Strategy: Strategy{Name: "balanced"}}), 1e-9)
}

func TestDocumentSimilarityActsAsProximity(t *testing.T) {
	scorer := newFrozenScorer()
	doc := CandidateItem{
		ID:           "doc-42",
		Content:      "retrieved text",
		Kind:         KindDocument,
		Similarity:   0.9,
		LastModified: frozenNow,
	}

	assert.InDelta(t, 0.6*0.9+0.4*1.0, scorer.Score(doc, ScoreContext{Strategy: Strategy{Name: "balanced"}}), 1e-9)
}

func TestRecentlyEditedOverridesOlderModTime(t *testing.T) {
	scorer := newFrozenScorer()
	item := CandidateItem{
		ID:           "edited.go",
		Content:      "x",
		Kind:         KindFile,
		LastModified: frozenNow.Add(-48 * time.Hour),
	}

	without := scorer.Score(item, ScoreContext{Strategy: Strategy{Name: "balanced"}})
	with := scorer.Score(item, ScoreContext{
		Strategy:       Strategy{Name: "balanced"},
		RecentlyEdited: map[string]time.Time{"edited.go": frozenNow},
	})

	assert.Greater(t, with, without)
}

func TestZeroTimesScoreZeroRecency(t *testing.T) {
	scorer := newFrozenScorer()
	item := CandidateItem{ID: "no-time.go", Content: "x", Kind: KindFile}

	assert.Equal(t, 0.0, scorer.Score(item, ScoreContext{Strategy: Strategy{Name: "balanced"}}))
}

func TestScoreIsDeterministicUnderFrozenClock(t *testing.T) {
	scorer := newFrozenScorer()
	sc := ScoreContext{
		Strategy:      Strategy{Name: "balanced", PriorityPatterns: []string{"api/**"}},
		GraphDistance: map[string]int{"api/server.go": 2},
	}
	item := CandidateItem{
		ID:           "api/server.go",
		Content:      "x",
		Kind:         KindFile,
		LastModified: frozenNow.Add(-3 * time.Hour),
	}

	first := scorer.Score(item, sc)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, scorer.Score(item, sc))
	}
}

func TestScoresStayWithinUnitInterval(t *testing.T) {
	scorer := newFrozenScorer()
	items := []CandidateItem{
		{ID: "a", Content: "x", Kind: KindFile, Pinned: true},
		{ID: "b", Content: "x", Kind: KindDocument, Similarity: 5.0, LastModified: frozenNow},
		{ID: "c", Content: "x", Kind: KindMessage, LastModified: frozenNow.Add(time.Hour)},
	}

	for _, item := range items {
		score := scorer.Score(item, ScoreContext{Strategy: Strategy{Name: "balanced"}})
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}
