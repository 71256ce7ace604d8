package ctx

import (
	"context"
	"errors"
	"sort"

	"github.com/ctxwin/ctxwin/pkg/logging"
)

// SelectionResult is the outcome of a context build: what made it in, what
// did not and why, and the budget the plan was filled against.
type SelectionResult struct {
	Included  []ScoredItem
	Omitted   []OmittedItem
	TotalUsed int
	Budget    TokenBudget
}

// Planner greedily fills each budget category with the highest-relevance
// candidates, truncating pinned items that would otherwise overflow.
type Planner struct {
	counts  *CountService
	counter TokenCounter
	scorer  *Scorer
	logger  logging.Logger
}

// NewPlanner creates a planner. counter is used for truncation re-measuring
// and should match the counter behind the count service's cache.
func NewPlanner(counts *CountService, counter TokenCounter, scorer *Scorer, logger logging.Logger) *Planner {
	return &Planner{
		counts:  counts,
		counter: counter,
		scorer:  scorer,
		logger:  logger,
	}
}

// Plan scores, budgets and selects candidates. Within each category items
// are ordered by relevance, then most-recent modification, then identity,
// so identical inputs produce identical plans. Pinned items that exceed
// their remaining allocation are truncated rather than skipped; a pinned
// item whose cost alone exceeds the whole available budget is omitted and
// reported through a *CapacityExceededError returned alongside the result.
func (p *Planner) Plan(ctx context.Context, candidates []CandidateItem, budget TokenBudget, sc ScoreContext) (*SelectionResult, error) {
	result := &SelectionResult{}
	buckets := make(map[Category][]ScoredItem, len(priorityOrder))
	demand := make(map[Category]int, len(priorityOrder))

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if reason := candidate.validate(); reason != "" {
			result.Omitted = append(result.Omitted, OmittedItem{Item: candidate, Reason: OmitReasonMalformed + ": " + reason})
			continue
		}

		scored := ScoredItem{
			CandidateItem: candidate,
			Relevance:     p.scorer.Score(candidate, sc),
			TokenCost:     p.counts.Count(ctx, candidate.ID, candidate.Content),
		}
		category := candidate.Category()
		buckets[category] = append(buckets[category], scored)
		demand[category] += scored.TokenCost
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, bucket := range buckets {
		sortBucket(bucket)
	}

	budget = budget.Redistribute(demand)
	result.Budget = budget

	var capacityErr error
	for _, category := range priorityOrder {
		allocation := budget.Allocations[category]
		used := 0

		for _, item := range buckets[category] {
			remaining := allocation - used
			if item.TokenCost <= remaining {
				result.Included = append(result.Included, item)
				used += item.TokenCost
				continue
			}

			if !item.Pinned {
				result.Omitted = append(result.Omitted, OmittedItem{Item: item.CandidateItem, Reason: OmitReasonOverBudget})
				continue
			}

			if item.TokenCost > budget.Available {
				result.Omitted = append(result.Omitted, OmittedItem{Item: item.CandidateItem, Reason: OmitReasonCapacity})
				capacityErr = errors.Join(capacityErr, &CapacityExceededError{
					Identity:  item.ID,
					Cost:      item.TokenCost,
					Available: budget.Available,
				})
				continue
			}

			// Pinned content is mandatory: shrink it into whatever is left.
			fitted := Fit(item.Content, remaining, p.counter)
			item.Content = fitted.Content
			item.TokenCost = fitted.ResultTokens
			item.Truncated = fitted.Elided
			p.logger.Debug("truncated pinned item to fit allocation",
				"identity", item.ID,
				"original_tokens", fitted.OriginalTokens,
				"result_tokens", fitted.ResultTokens)
			result.Included = append(result.Included, item)
			used += item.TokenCost
		}

		result.TotalUsed += used
	}

	return result, capacityErr
}

// sortBucket orders by relevance descending, breaking ties by most recent
// modification and then by identity.
func sortBucket(bucket []ScoredItem) {
	sort.SliceStable(bucket, func(i, j int) bool {
		a, b := bucket[i], bucket[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if !a.LastModified.Equal(b.LastModified) {
			return a.LastModified.After(b.LastModified)
		}
		return a.ID < b.ID
	})
}
