package story

import (
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts prompt tokens.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// estimateCounter assumes roughly four bytes of UTF-8 per token.
type estimateCounter struct{}

func (estimateCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// NewTokenCounter returns a tiktoken counter for model, falling back to
// cl100k_base and then to a rune-based estimate when no encoding loads.
func NewTokenCounter(model string) TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return tiktokenCounter{enc: enc}
	}
	enc, err2 := tiktoken.GetEncoding("cl100k_base")
	if err2 == nil {
		return tiktokenCounter{enc: enc}
	}
	slog.Warn("tiktoken unavailable, estimating tokens", "model", model, "error", err)
	return estimateCounter{}
}

// trimToBudget keeps plots from the front of the list, newest first, while
// their total token count fits in budget. A budget of zero keeps everything.
func trimToBudget(plots []string, budget int, counter TokenCounter) []string {
	if budget <= 0 || counter == nil {
		return plots
	}

	used := 0
	for i, p := range plots {
		// "- " prefix and newline
		cost := counter.Count(p) + 2
		if used+cost > budget {
			return plots[:i]
		}
		used += cost
	}
	return plots
}
