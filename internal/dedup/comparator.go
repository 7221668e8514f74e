package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdulachik/storyteller/internal/llm"
)

// compareMaxTokens leaves room for a one-word answer plus stray whitespace.
const compareMaxTokens = 5

// Comparator decides whether two plots describe the same story.
type Comparator interface {
	Same(ctx context.Context, a, b string) (bool, error)
}

// LLMComparator asks the text generation service for a yes/no judgement.
type LLMComparator struct {
	gen llm.Generator
}

// NewLLMComparator creates a comparator backed by gen.
func NewLLMComparator(gen llm.Generator) *LLMComparator {
	return &LLMComparator{gen: gen}
}

// Same reports whether the service answered with the affirmative token.
func (c *LLMComparator) Same(ctx context.Context, a, b string) (bool, error) {
	answer, err := c.gen.Generate(ctx, llm.Request{
		Op:        llm.OpCompare,
		System:    ComparisonSystemPrompt,
		Prompt:    fmt.Sprintf(ComparisonPrompt, a, b),
		MaxTokens: compareMaxTokens,
	})
	if err != nil {
		return false, fmt.Errorf("compare plots: %w", err)
	}
	return IsAffirmative(answer), nil
}

// IsAffirmative normalizes an answer and checks it against Affirmative.
func IsAffirmative(answer string) bool {
	return strings.ToLower(strings.TrimSpace(answer)) == Affirmative
}
