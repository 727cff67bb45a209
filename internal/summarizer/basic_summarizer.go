package summarizer

import (
	"strings"
)

// BasicSummarizer is a simple implementation of the Summarizer interface.
// It truncates the text at the nearest sentence or word boundary.
type BasicSummarizer struct {
	maxSummaryLen int
}

// NewBasicSummarizer creates a new BasicSummarizer instance.
func NewBasicSummarizer(maxSummaryLen int) *BasicSummarizer {
	if maxSummaryLen <= 0 {
		maxSummaryLen = 200 // Default max summary length
	}
	return &BasicSummarizer{
		maxSummaryLen: maxSummaryLen,
	}
}

// Initialize sets up the summarizer with any required configuration.
func (s *BasicSummarizer) Initialize() error {
	return nil // No initialization needed for the basic summarizer
}

// Summarize takes a text input and returns a condensed summary.
// Text below the limit passes through unchanged; otherwise it is truncated
// at a sentence boundary, falling back to a word boundary with an ellipsis.
func (s *BasicSummarizer) Summarize(text string) (string, error) {
	if len(text) <= s.maxSummaryLen {
		return text, nil
	}

	ellipsis := "..."
	truncateLen := s.maxSummaryLen

	truncated := text[:truncateLen]

	// Look for common sentence terminators
	lastPeriod := strings.LastIndex(truncated, ".")
	lastQuestion := strings.LastIndex(truncated, "?")
	lastExclamation := strings.LastIndex(truncated, "!")

	lastSentenceBoundary := max(lastPeriod, max(lastQuestion, lastExclamation))

	if lastSentenceBoundary > 0 {
		return text[:lastSentenceBoundary+1], nil
	}

	// No sentence boundary found; leave room for the ellipsis and try to
	// end at the last full word instead.
	truncateLen = s.maxSummaryLen - len(ellipsis)
	if truncateLen < 0 {
		truncateLen = 0
	}

	if truncateLen < len(text) {
		truncated = text[:truncateLen]
	}

	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > 0 {
		return text[:lastSpace] + ellipsis, nil
	}

	return truncated + ellipsis, nil
}

// max returns the larger of two integers.
func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
