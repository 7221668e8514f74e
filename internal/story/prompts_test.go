package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildStoryPrompt(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := BuildStoryPrompt(PromptParams{Quote: "Мясо горько"})
		assert.Contains(t, p, `inspired by this quote: "Мясо горько"`)
		assert.Contains(t, p, "in the style of Hannibal Lecter")
		assert.Contains(t, p, "within 200 words")
		assert.Contains(t, p, "Write in Russian language")
		assert.NotContains(t, p, "literary source")
		assert.NotContains(t, p, "already been told")
	})

	t.Run("book and avoid list", func(t *testing.T) {
		p := BuildStoryPrompt(PromptParams{
			Quote:       "q",
			Book:        "Hannibal (1999)",
			Inspiration: "Thomas Harris",
			WordLimit:   120,
			Language:    "English",
			Avoid:       []string{"plot one", "plot two"},
		})
		assert.Contains(t, p, "in the style of Thomas Harris")
		assert.Contains(t, p, "literary source: Hannibal (1999)")
		assert.Contains(t, p, "within 120 words")
		assert.Contains(t, p, "- plot one\n- plot two")
	})
}

func TestCleanSummary(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"A plot.", "A plot."},
		{"\n\n  \"Quoted plot.\"  \nextra", "Quoted plot."},
		{"«Ёлки»", "Ёлки"},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanSummary(tt.in))
	}
}

type wordCounter struct{}

func (wordCounter) Count(s string) int { return len(s) }

func TestTrimToBudget(t *testing.T) {
	plots := []string{"aaaa", "bbbb", "cccc"}

	assert.Equal(t, plots, trimToBudget(plots, 0, wordCounter{}))
	assert.Equal(t, plots, trimToBudget(plots, 100, nil))
	// each plot costs 4+2
	assert.Equal(t, []string{"aaaa", "bbbb"}, trimToBudget(plots, 12, wordCounter{}))
	assert.Empty(t, trimToBudget(plots, 5, wordCounter{}))
}

func TestEstimateCounter(t *testing.T) {
	assert.Equal(t, 0, estimateCounter{}.Count(""))
	assert.Equal(t, 1, estimateCounter{}.Count("abc"))
	assert.Equal(t, 2, estimateCounter{}.Count("Мясо г"))
}
