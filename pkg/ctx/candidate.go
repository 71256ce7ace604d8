package ctx

import "time"

// ItemKind classifies a candidate's origin.
type ItemKind int

const (
	KindFile ItemKind = iota + 1
	KindDocument
	KindMessage
)

func (k ItemKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDocument:
		return "document"
	case KindMessage:
		return "message"
	default:
		return "unknown"
	}
}

// CandidateItem is a unit of content eligible for inclusion in a context.
// Candidates are supplied per request by collaborators; the engine never
// owns or persists them.
type CandidateItem struct {
	// ID is the stable identity of the item (file path, document id,
	// message id). Also the token-cache key.
	ID string

	// Content is the full text of the item.
	Content string

	Kind         ItemKind
	Pinned       bool
	LastModified time.Time

	// Similarity is an optional retrieval score in [0,1] supplied by the
	// retrieval collaborator for document candidates. Zero when absent.
	Similarity float64
}

// Category maps the candidate to its budget category.
func (c CandidateItem) Category() Category {
	switch c.Kind {
	case KindMessage:
		return CategoryConversation
	case KindDocument:
		return CategoryRetrievedDocuments
	default:
		if c.Pinned {
			return CategoryPinnedFiles
		}
		return CategorySuggestedFiles
	}
}

// validate rejects candidates the planner cannot place. A malformed
// candidate is omitted with a reason; it never aborts the build.
func (c CandidateItem) validate() string {
	if c.ID == "" {
		return "missing identity"
	}
	switch c.Kind {
	case KindFile, KindDocument, KindMessage:
	default:
		return "unknown kind"
	}
	if c.Content == "" {
		return "empty content"
	}
	return ""
}

// ScoredItem is a candidate with its computed relevance and token cost.
type ScoredItem struct {
	CandidateItem
	Relevance float64
	TokenCost int

	// Truncated is set when the content was shrunk to fit its allocation.
	Truncated bool
}

// Omission reason codes.
const (
	OmitReasonMalformed  = "malformed_candidate"
	OmitReasonOverBudget = "over_category_budget"
	OmitReasonCapacity   = "exceeds_available_budget"
)

// OmittedItem records a candidate that was not included, and why.
// Nothing is ever silently dropped.
type OmittedItem struct {
	Item   CandidateItem
	Reason string
}
