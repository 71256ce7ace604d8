package ctx

import "strings"

// Default context window sizes for known models (tokens). Explicit sizes in
// the build request always take priority; this table only backs requests
// that leave MaxTokens unset. Prefix matching lets dated releases like
// "claude-sonnet-4-20250514" resolve via "claude-sonnet-4".
var contextWindows = map[string]int{
	// Anthropic
	"claude-opus-4":     200000,
	"claude-sonnet-4":   200000,
	"claude-3-5-sonnet": 200000,
	"claude-3-5-haiku":  200000,
	"claude-3-haiku":    200000,

	// OpenAI
	"gpt-4o":      128000,
	"gpt-4o-mini": 128000,
	"gpt-4-turbo": 128000,
	"gpt-4.1":     1047576,
	"gpt-4":       8192,
	"o1":          200000,
	"o3":          200000,
	"o4-mini":     200000,

	// Google
	"gemini-2.5-flash": 1048576,
	"gemini-2.5-pro":   1048576,
	"gemini-2.0-flash": 1048576,
	"gemini-1.5-pro":   2097152,

	// Local models (conservative defaults)
	"llama":     8192,
	"mistral":   32768,
	"codellama": 16384,
	"deepseek":  32768,
	"qwen":      32768,
}

// FallbackContextWindow is used when the model is completely unknown.
const FallbackContextWindow = 128000

// defaultReservedRatio is the share of the window held back for the system
// prompt and response when neither the request nor the strategy reserves
// anything explicitly.
const defaultReservedRatio = 0.2

// ContextWindowFor returns the context window size for a model name.
// Longest matching prefix wins; unknown models get the fallback.
func ContextWindowFor(model string) int {
	model = strings.TrimSpace(strings.ToLower(model))
	if model == "" {
		return FallbackContextWindow
	}

	if window, ok := contextWindows[model]; ok {
		return window
	}

	bestLen := 0
	bestWindow := 0
	for prefix, window := range contextWindows {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			bestLen = len(prefix)
			bestWindow = window
		}
	}
	if bestLen > 0 {
		return bestWindow
	}
	return FallbackContextWindow
}

// DefaultReservedTokens derives a reserve from the window size.
func DefaultReservedTokens(window int) int {
	if window <= 0 {
		return 0
	}
	return int(float64(window) * defaultReservedRatio)
}
