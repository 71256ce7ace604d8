package ctx

import (
	"fmt"
	"strings"
)

const (
	headFraction = 0.45
	tailFraction = 0.45

	// minViableTokens is the smallest budget worth splitting into head and
	// tail; anything below collapses to the marker alone.
	minViableTokens = 20

	maxRefineSteps = 8
)

// TruncatedContent is the result of fitting content into a token budget.
type TruncatedContent struct {
	Content        string
	OriginalTokens int
	ResultTokens   int
	Elided         bool
}

// Fit shrinks content to at most maxTokens. Content that already fits is
// returned unchanged. Oversized content keeps its head and tail with a
// marker in place of the removed middle, re-measured against the counter
// until it fits. ResultTokens never exceeds maxTokens; when even the bare
// marker is too expensive the content is dropped entirely.
func Fit(content string, maxTokens int, counter TokenCounter) TruncatedContent {
	original := counter.Count(content)
	if maxTokens <= 0 {
		return TruncatedContent{OriginalTokens: original, Elided: original > 0}
	}
	if original <= maxTokens {
		return TruncatedContent{
			Content:        content,
			OriginalTokens: original,
			ResultTokens:   original,
			Elided:         false,
		}
	}
	if maxTokens < minViableTokens {
		return markerOnly(content, original, maxTokens, counter)
	}

	// Derive chars-per-token from the measurement we already have, then
	// refine by re-measuring: estimates drift on unusual content and the
	// budget is a hard cap, not a target.
	charsPerToken := float64(len(content)) / float64(original)
	headChars := int(float64(maxTokens) * headFraction * charsPerToken)
	tailChars := int(float64(maxTokens) * tailFraction * charsPerToken)

	for step := 0; step < maxRefineSteps; step++ {
		if headChars+tailChars >= len(content) {
			headChars /= 2
			tailChars /= 2
		}
		if headChars <= 0 && tailChars <= 0 {
			break
		}

		candidate := spliceWithMarker(content, headChars, tailChars)
		if tokens := counter.Count(candidate); tokens <= maxTokens {
			return TruncatedContent{
				Content:        candidate,
				OriginalTokens: original,
				ResultTokens:   tokens,
				Elided:         true,
			}
		}

		headChars = headChars * 3 / 4
		tailChars = tailChars * 3 / 4
	}

	return markerOnly(content, original, maxTokens, counter)
}

// spliceWithMarker keeps the first headChars and last tailChars of content
// with a marker describing the removed span in between.
func spliceWithMarker(content string, headChars, tailChars int) string {
	head := content[:headChars]
	tail := content[len(content)-tailChars:]
	elided := content[headChars : len(content)-tailChars]
	return head + "\n" + elisionMarker(elided) + "\n" + tail
}

// elisionMarker reports what was removed, in lines when the span is
// multi-line, otherwise in characters.
func elisionMarker(elided string) string {
	if lines := strings.Count(elided, "\n"); lines > 0 {
		return fmt.Sprintf("... [truncated %d lines] ...", lines)
	}
	return fmt.Sprintf("... [truncated %d characters] ...", len(elided))
}

func markerOnly(content string, original, maxTokens int, counter TokenCounter) TruncatedContent {
	marker := elisionMarker(content)
	if tokens := counter.Count(marker); tokens <= maxTokens {
		return TruncatedContent{
			Content:        marker,
			OriginalTokens: original,
			ResultTokens:   tokens,
			Elided:         true,
		}
	}
	// The cap outranks the marker.
	return TruncatedContent{OriginalTokens: original, Elided: true}
}
