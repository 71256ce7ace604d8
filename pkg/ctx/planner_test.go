package ctx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxwin/ctxwin/pkg/logging"
)

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	counter := HeuristicCounter{}
	cache := NewTokenCache(counter, 1000)
	counts, err := NewCountService(cache, 2, time.Second, logging.NewDisabledLogger())
	require.NoError(t, err)
	t.Cleanup(counts.Close)
	return NewPlanner(counts, counter, NewScorer(DefaultRecencyWindow, frozenClock), logging.NewDisabledLogger())
}

// contentCosting returns content whose heuristic cost is exactly tokens.
func contentCosting(t *testing.T, tokens int) string {
	t.Helper()
	for length := tokens; length <= tokens*4+8; length++ {
		content := strings.Repeat("a", length)
		if EstimateTokens(content) == tokens {
			return content
		}
	}
	t.Fatalf("no content length yields %d tokens", tokens)
	return ""
}

func includedIDs(result *SelectionResult) []string {
	ids := make([]string, 0, len(result.Included))
	for _, item := range result.Included {
		ids = append(ids, item.ID)
	}
	return ids
}

// Scenario: total=1000, reserved=200, one pinned file costing 50 and three
// unpinned files costing 300 each. The pinned file plus the two most
// relevant unpinned files fit the remaining 750; the third is omitted.
func TestPlanPinnedPlusTwoOfThree(t *testing.T) {
	planner := newTestPlanner(t)
	strategy := Strategy{Name: "balanced"}
	budget, err := Partition(1000, 200, strategy)
	require.NoError(t, err)

	big := contentCosting(t, 300)
	candidates := []CandidateItem{
		{ID: "pinned.go", Content: contentCosting(t, 50), Kind: KindFile, Pinned: true, LastModified: frozenNow},
		{ID: "first.go", Content: big, Kind: KindFile, LastModified: frozenNow},
		{ID: "second.go", Content: big, Kind: KindFile, LastModified: frozenNow.Add(-time.Hour)},
		{ID: "third.go", Content: big, Kind: KindFile, LastModified: frozenNow.Add(-2 * time.Hour)},
	}

	result, err := planner.Plan(context.Background(), candidates, budget, ScoreContext{Strategy: strategy})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"pinned.go", "first.go", "second.go"}, includedIDs(result))
	require.Len(t, result.Omitted, 1)
	assert.Equal(t, "third.go", result.Omitted[0].Item.ID)
	assert.Equal(t, OmitReasonOverBudget, result.Omitted[0].Reason)
	assert.Equal(t, 650, result.TotalUsed)
	assert.LessOrEqual(t, result.TotalUsed, budget.Available)
}

func TestPlanDeterministicOrdering(t *testing.T) {
	planner := newTestPlanner(t)
	strategy := Strategy{Name: "balanced"}
	budget, err := Partition(10000, 1000, strategy)
	require.NoError(t, err)

	candidates := []CandidateItem{
		{ID: "b.go", Content: "content b", Kind: KindFile, LastModified: frozenNow},
		{ID: "a.go", Content: "content a", Kind: KindFile, LastModified: frozenNow},
		{ID: "c.go", Content: "content c", Kind: KindFile, LastModified: frozenNow.Add(time.Minute)},
	}

	first, err := planner.Plan(context.Background(), candidates, budget, ScoreContext{Strategy: strategy})
	require.NoError(t, err)
	second, err := planner.Plan(context.Background(), candidates, budget, ScoreContext{Strategy: strategy})
	require.NoError(t, err)

	// Most recent first, then identity for equal times.
	assert.Equal(t, []string{"c.go", "a.go", "b.go"}, includedIDs(first))
	assert.Equal(t, includedIDs(first), includedIDs(second))
	assert.Equal(t, first.TotalUsed, second.TotalUsed)
}

func TestPlanOversizedPinnedIsTruncatedNotSkipped(t *testing.T) {
	planner := newTestPlanner(t)
	strategy := Strategy{Name: "balanced"}
	budget, err := Partition(1000, 200, strategy)
	require.NoError(t, err)

	// Total demand (420+300+300) exceeds the 800 available, so even after
	// redistribution the pinned item overflows its slice. It is under the
	// available budget, so it must be truncated in, never skipped.
	pinned := CandidateItem{
		ID:           "huge_pinned.go",
		Content:      strings.Repeat("pinned content line\n", 70), // 420 tokens
		Kind:         KindFile,
		Pinned:       true,
		LastModified: frozenNow,
	}
	message := CandidateItem{
		ID:           "msg-1",
		Content:      contentCosting(t, 300),
		Kind:         KindMessage,
		LastModified: frozenNow,
	}
	filler := CandidateItem{
		ID:           "filler.go",
		Content:      contentCosting(t, 300),
		Kind:         KindFile,
		LastModified: frozenNow,
	}

	result, err := planner.Plan(context.Background(), []CandidateItem{pinned, message, filler}, budget, ScoreContext{Strategy: strategy})
	require.NoError(t, err)

	require.Contains(t, includedIDs(result), "huge_pinned.go")
	for _, item := range result.Included {
		if item.ID == "huge_pinned.go" {
			assert.True(t, item.Truncated)
			assert.Contains(t, item.Content, "... [truncated")
		}
	}
	assert.LessOrEqual(t, result.TotalUsed, budget.Available)
}

func TestPlanPinnedExceedingAvailableIsReported(t *testing.T) {
	planner := newTestPlanner(t)
	strategy := Strategy{Name: "balanced"}
	budget, err := Partition(1000, 200, strategy)
	require.NoError(t, err)

	monster := CandidateItem{
		ID:           "monster.go",
		Content:      strings.Repeat("far too much content\n", 500),
		Kind:         KindFile,
		Pinned:       true,
		LastModified: frozenNow,
	}
	small := CandidateItem{
		ID:           "small.go",
		Content:      "tiny",
		Kind:         KindFile,
		LastModified: frozenNow,
	}

	result, err := planner.Plan(context.Background(), []CandidateItem{monster, small}, budget, ScoreContext{Strategy: strategy})

	var capErr *CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "monster.go", capErr.Identity)
	assert.Equal(t, 800, capErr.Available)

	// The rest of the plan is still assembled.
	require.NotNil(t, result)
	assert.Contains(t, includedIDs(result), "small.go")
	require.Len(t, result.Omitted, 1)
	assert.Equal(t, OmitReasonCapacity, result.Omitted[0].Reason)
}

func TestPlanMalformedCandidateDoesNotAbort(t *testing.T) {
	planner := newTestPlanner(t)
	strategy := Strategy{Name: "balanced"}
	budget, err := Partition(1000, 200, strategy)
	require.NoError(t, err)

	candidates := []CandidateItem{
		{ID: "", Content: "no identity", Kind: KindFile},
		{ID: "bad-kind", Content: "x", Kind: ItemKind(99)},
		{ID: "good.go", Content: "perfectly fine", Kind: KindFile, LastModified: frozenNow},
	}

	result, err := planner.Plan(context.Background(), candidates, budget, ScoreContext{Strategy: strategy})
	require.NoError(t, err)

	assert.Equal(t, []string{"good.go"}, includedIDs(result))
	require.Len(t, result.Omitted, 2)
	for _, omitted := range result.Omitted {
		assert.Contains(t, omitted.Reason, OmitReasonMalformed)
	}
}

func TestPlanMixedCategories(t *testing.T) {
	planner := newTestPlanner(t)
	strategy := Strategy{Name: "balanced"}
	budget, err := Partition(4000, 400, strategy)
	require.NoError(t, err)

	candidates := []CandidateItem{
		{ID: "msg-1", Content: "how do I fix the race?", Kind: KindMessage, LastModified: frozenNow},
		{ID: "msg-2", Content: "try running with -race enabled", Kind: KindMessage, LastModified: frozenNow},
		{ID: "doc-1", Content: strings.Repeat("retrieved docs\n", 20), Kind: KindDocument, Similarity: 0.8, LastModified: frozenNow},
		{ID: "pinned.go", Content: "package pinned", Kind: KindFile, Pinned: true, LastModified: frozenNow},
		{ID: "suggested.go", Content: "package suggested", Kind: KindFile, LastModified: frozenNow},
	}

	result, err := planner.Plan(context.Background(), candidates, budget, ScoreContext{Strategy: strategy})
	require.NoError(t, err)

	assert.Len(t, result.Included, 5)
	assert.Empty(t, result.Omitted)
	assert.LessOrEqual(t, result.TotalUsed, budget.Available)
}

func TestPlanCancelledContext(t *testing.T) {
	planner := newTestPlanner(t)
	strategy := Strategy{Name: "balanced"}
	budget, err := Partition(1000, 200, strategy)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := planner.Plan(ctx, []CandidateItem{{ID: "a.go", Content: "x", Kind: KindFile}}, budget, ScoreContext{Strategy: strategy})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanTotalUsedNeverExceedsAvailable(t *testing.T) {
	planner := newTestPlanner(t)
	strategy := Strategy{Name: "balanced"}

	for _, total := range []int{500, 1000, 5000} {
		budget, err := Partition(total, total/5, strategy)
		require.NoError(t, err)

		var candidates []CandidateItem
		for i := 0; i < 20; i++ {
			candidates = append(candidates, CandidateItem{
				ID:           strings.Repeat("f", i+1) + ".go",
				Content:      strings.Repeat("filler content\n", (i+1)*10),
				Kind:         KindFile,
				Pinned:       i%5 == 0,
				LastModified: frozenNow.Add(-time.Duration(i) * time.Hour),
			})
		}

		result, _ := planner.Plan(context.Background(), candidates, budget, ScoreContext{Strategy: strategy})
		require.NotNil(t, result)
		assert.LessOrEqual(t, result.TotalUsed, budget.Available, "total %d", total)
	}
}
