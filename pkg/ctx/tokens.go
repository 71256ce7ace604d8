package ctx

import (
	"fmt"
	"math"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates how many tokens a piece of text consumes.
// Implementations must be pure and deterministic, return 0 for empty input,
// and never return a negative count.
type TokenCounter interface {
	Count(text string) int
}

// safetyMultiplier pads the chars/4 heuristic so estimates err on the side
// of overcounting. Leaving room is always safe; overflowing never is.
const safetyMultiplier = 1.2

// HeuristicCounter estimates tokens as ceil(chars/4) * 1.2.
// It overestimates for typical English text and source code, which is the
// contract: a conservative estimate, not an exact count.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	base := (len(text) + 3) / 4 // ceiling division
	return int(math.Ceil(float64(base) * safetyMultiplier))
}

// EstimateTokens is a convenience wrapper around HeuristicCounter.
func EstimateTokens(text string) int {
	return HeuristicCounter{}.Count(text)
}

// TiktokenCounter counts tokens with a real model encoding. Used when exact
// counts are worth the extra CPU; the heuristic remains the fallback.
type TiktokenCounter struct {
	encoder *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves the encoding for the given model, falling back
// to cl100k_base when the model is unknown.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		fallback, fallbackErr := tiktoken.GetEncoding("cl100k_base")
		if fallbackErr != nil {
			return nil, fmt.Errorf("get encoding: %w", fallbackErr)
		}
		encoder = fallback
	}
	return &TiktokenCounter{encoder: encoder}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoder.Encode(text, nil, nil))
}
