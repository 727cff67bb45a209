package summarizer

import (
	"strings"
	"testing"
)

func TestBasicSummarizerShortText(t *testing.T) {
	s := NewBasicSummarizer(100)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	text := "Short fact about revenue."
	summary, err := s.Summarize(text)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if summary != text {
		t.Errorf("Short text should pass through unchanged, got: %s", summary)
	}
}

func TestBasicSummarizerSentenceBoundary(t *testing.T) {
	s := NewBasicSummarizer(50)

	text := "First sentence here. Second sentence is much longer and will not fit at all."
	summary, err := s.Summarize(text)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if summary != "First sentence here." {
		t.Errorf("Expected truncation at sentence boundary, got: %s", summary)
	}
}

func TestBasicSummarizerWordBoundary(t *testing.T) {
	s := NewBasicSummarizer(30)

	text := "no terminators here just a very long run of words without punctuation"
	summary, err := s.Summarize(text)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if !strings.HasSuffix(summary, "...") {
		t.Errorf("Expected ellipsis when truncating at a word boundary, got: %s", summary)
	}

	if len(summary) > 30 {
		t.Errorf("Summary exceeds max length: %d > 30", len(summary))
	}
}

func TestBasicSummarizerDefaultLength(t *testing.T) {
	s := NewBasicSummarizer(0)
	if s.maxSummaryLen != 200 {
		t.Errorf("Expected default max length of 200, got %d", s.maxSummaryLen)
	}
}
