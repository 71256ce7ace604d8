package ctx

// Category identifies a slice of the context budget.
type Category int

const (
	CategoryConversation Category = iota
	CategoryPinnedFiles
	CategoryRetrievedDocuments
	CategorySuggestedFiles
)

func (c Category) String() string {
	switch c {
	case CategoryConversation:
		return "conversation"
	case CategoryPinnedFiles:
		return "pinned_files"
	case CategoryRetrievedDocuments:
		return "retrieved_documents"
	case CategorySuggestedFiles:
		return "suggested_files"
	default:
		return "unknown"
	}
}

// priorityOrder is the fixed order in which categories are filled and in
// which surplus capacity is redistributed. Pinned content is explicit user
// intent and must never be starved, so it comes first.
var priorityOrder = [...]Category{
	CategoryPinnedFiles,
	CategoryConversation,
	CategoryRetrievedDocuments,
	CategorySuggestedFiles,
}

// Categories returns all budget categories in priority order.
func Categories() []Category {
	out := make([]Category, len(priorityOrder))
	copy(out, priorityOrder[:])
	return out
}

// ParseCategory converts a category name to its enum value.
func ParseCategory(name string) (Category, bool) {
	for _, cat := range priorityOrder {
		if cat.String() == name {
			return cat, true
		}
	}
	return 0, false
}

// defaultWeights is the built-in split of the available budget.
var defaultWeights = map[Category]float64{
	CategoryConversation:       0.40,
	CategoryPinnedFiles:        0.25,
	CategoryRetrievedDocuments: 0.20,
	CategorySuggestedFiles:     0.15,
}

// TokenBudget is a partition of a model's context capacity.
// Invariants: Available = Total - Reserved and the allocations never sum
// past Available.
type TokenBudget struct {
	Total       int
	Reserved    int
	Available   int
	Allocations map[Category]int
}

// Partition splits total capacity into per-category allocations.
// Strategy weights override the default split and are normalized to sum 1.
// Returns a *ConfigurationError (and no partial budget) when the reserved
// and total sizes are inconsistent or the weights are malformed.
func Partition(total, reserved int, strategy Strategy) (TokenBudget, error) {
	if total <= 0 {
		return TokenBudget{}, configErrorf("total tokens must be positive, got %d", total)
	}
	if reserved < 0 {
		return TokenBudget{}, configErrorf("reserved tokens must not be negative, got %d", reserved)
	}
	if reserved >= total {
		return TokenBudget{}, configErrorf("reserved tokens (%d) must be less than total tokens (%d)", reserved, total)
	}

	weights, err := normalizedWeights(strategy.CategoryWeights)
	if err != nil {
		return TokenBudget{}, err
	}

	available := total - reserved
	allocations := make(map[Category]int, len(priorityOrder))
	assigned := 0
	for _, cat := range priorityOrder {
		share := int(float64(available) * weights[cat])
		allocations[cat] = share
		assigned += share
	}
	// Rounding leftovers go to the highest-priority category.
	allocations[priorityOrder[0]] += available - assigned

	return TokenBudget{
		Total:       total,
		Reserved:    reserved,
		Available:   available,
		Allocations: allocations,
	}, nil
}

// normalizedWeights validates the strategy's weights and scales them to sum
// to 1.0. A nil map selects the default split. Categories absent from the
// map get weight zero.
func normalizedWeights(weights map[Category]float64) (map[Category]float64, error) {
	if len(weights) == 0 {
		return defaultWeights, nil
	}

	sum := 0.0
	for cat, w := range weights {
		if cat.String() == "unknown" {
			return nil, configErrorf("category weight for unknown category %d", int(cat))
		}
		if w < 0 {
			return nil, configErrorf("category weight for %s must not be negative, got %f", cat, w)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, configErrorf("category weights must sum to a positive value")
	}

	normalized := make(map[Category]float64, len(priorityOrder))
	for _, cat := range priorityOrder {
		normalized[cat] = weights[cat] / sum
	}
	return normalized, nil
}

// Redistribute moves unused capacity from satisfied categories to
// under-satisfied ones, in priority order. demand carries each category's
// total requested tokens. The returned budget allocates no more than
// Available in total.
func (b TokenBudget) Redistribute(demand map[Category]int) TokenBudget {
	allocations := make(map[Category]int, len(b.Allocations))
	surplus := 0
	for _, cat := range priorityOrder {
		alloc := b.Allocations[cat]
		if d := demand[cat]; d < alloc {
			surplus += alloc - d
			alloc = d
		}
		allocations[cat] = alloc
	}

	for _, cat := range priorityOrder {
		if surplus == 0 {
			break
		}
		deficit := demand[cat] - allocations[cat]
		if deficit <= 0 {
			continue
		}
		grant := min(deficit, surplus)
		allocations[cat] += grant
		surplus -= grant
	}

	out := b
	out.Allocations = allocations
	return out
}

// clone returns a deep copy, for read-only snapshots.
func (b TokenBudget) clone() TokenBudget {
	out := b
	out.Allocations = make(map[Category]int, len(b.Allocations))
	for cat, alloc := range b.Allocations {
		out.Allocations[cat] = alloc
	}
	return out
}
