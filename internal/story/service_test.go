package story_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/storyteller/internal/catalog"
	"github.com/abdulachik/storyteller/internal/db"
	"github.com/abdulachik/storyteller/internal/dedup"
	"github.com/abdulachik/storyteller/internal/llm"
	"github.com/abdulachik/storyteller/internal/mocks"
	"github.com/abdulachik/storyteller/internal/observability"
	"github.com/abdulachik/storyteller/internal/story"
)

type fixture struct {
	gen     *mocks.Generator
	repo    *mocks.Repository
	cmp     *mocks.Comparator
	metrics *observability.Metrics
	svc     *story.Service
}

func newFixture(t *testing.T, attempts int) *fixture {
	t.Helper()
	f := &fixture{
		gen:     &mocks.Generator{},
		repo:    &mocks.Repository{},
		cmp:     &mocks.Comparator{},
		metrics: observability.NewMetrics(),
	}
	f.svc = story.NewService(story.Config{
		Generator: f.gen,
		Repo:      f.repo,
		Checker: dedup.NewChecker(dedup.Config{
			Comparator: f.cmp,
			Metrics:    f.metrics,
		}),
		Metrics:     f.metrics,
		MaxAttempts: attempts,
		Rand:        rand.New(rand.NewPCG(1, 2)),
	})
	t.Cleanup(func() {
		f.gen.AssertExpectations(t)
		f.repo.AssertExpectations(t)
		f.cmp.AssertExpectations(t)
	})
	return f
}

func savedStory(id int64) *db.Story {
	return &db.Story{ID: id}
}

func TestGenerate_StoresNewStory(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	f.repo.On("ListPlots", mock.Anything).Return([]string{}, nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("One. Two. Three.", nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpSummarize)).Return("A man counts to three.", nil).Once()
	f.repo.On("CreateStory", mock.Anything, db.CreateStoryParams{
		BookBasedStory: "One. Two. Three.",
		StoryText:      "One. Two. Three.",
		Plot:           "A man counts to three.",
		Inspiration:    story.DefaultInspiration,
		SeedQuote:      "test quote",
	}).Return(savedStory(1), nil).Once()

	res := f.svc.Generate(ctx, story.Request{Quote: "test quote"})

	require.True(t, res.Success)
	assert.Equal(t, []string{"One.", "Two.", "Three.", "", "", "", "", "", "", ""}, res.StoryParts)
	require.NotNil(t, res.StoryID)
	assert.Equal(t, int64(1), *res.StoryID)
	assert.Equal(t, "A man counts to three.", res.Plot)
	assert.Equal(t, 1, res.Attempts)
	assert.False(t, res.Exhausted)
	assert.Empty(t, res.DBError)
	assert.NotEmpty(t, res.RunID)
	assert.NoError(t, res.Err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Generations.WithLabelValues("stored")))
}

func TestGenerate_InvalidInput(t *testing.T) {
	f := newFixture(t, 3)

	for _, quote := range []string{"", "   "} {
		res := f.svc.Generate(context.Background(), story.Request{Quote: quote})
		assert.False(t, res.Success)
		assert.Equal(t, []string{story.MsgInvalidInput}, res.StoryParts)
		assert.ErrorIs(t, res.Err, story.ErrInvalidInput)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Generations.WithLabelValues("invalid_input")))
}

func TestGenerate_MissingGenerator(t *testing.T) {
	repo := &mocks.Repository{}
	svc := story.NewService(story.Config{Repo: repo})

	res := svc.Generate(context.Background(), story.Request{Quote: "q"})

	assert.False(t, res.Success)
	assert.Equal(t, []string{story.MsgConfigError}, res.StoryParts)
	assert.ErrorIs(t, res.Err, story.ErrMissingConfig)
	repo.AssertExpectations(t)
}

func TestGenerate_GenerationFailureReturnsFallback(t *testing.T) {
	f := newFixture(t, 3)

	f.repo.On("ListPlots", mock.Anything).Return([]string{}, nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("", errors.New("timeout")).Once()

	res := f.svc.Generate(context.Background(), story.Request{Quote: "q"})

	assert.False(t, res.Success)
	assert.Equal(t, []string{story.FallbackStory}, res.StoryParts)
	assert.Nil(t, res.StoryID)
	assert.ErrorIs(t, res.Err, story.ErrGenerationFailed)
	f.repo.AssertNotCalled(t, "CreateStory", mock.Anything, mock.Anything)
}

func TestGenerate_EmptyGenerationIsFailure(t *testing.T) {
	f := newFixture(t, 3)

	f.repo.On("ListPlots", mock.Anything).Return([]string{}, nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("  \n", nil).Once()

	res := f.svc.Generate(context.Background(), story.Request{Quote: "q"})

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, llm.ErrEmptyResponse)
}

func TestGenerate_SummaryFailureUsesDefault(t *testing.T) {
	f := newFixture(t, 3)

	f.repo.On("ListPlots", mock.Anything).Return([]string{}, nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("Story.", nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpSummarize)).Return("", errors.New("boom")).Once()
	f.repo.On("CreateStory", mock.Anything, mock.MatchedBy(func(p db.CreateStoryParams) bool {
		return p.Plot == story.DefaultSummary
	})).Return(savedStory(4), nil).Once()

	res := f.svc.Generate(context.Background(), story.Request{Quote: "q"})

	require.True(t, res.Success)
	assert.Equal(t, story.DefaultSummary, res.Plot)
}

func TestGenerate_RetriesDuplicate(t *testing.T) {
	f := newFixture(t, 3)
	stored := []string{"A doctor eats a guest."}

	f.repo.On("ListPlots", mock.Anything).Return(stored, nil).Twice()

	f.gen.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Op == llm.OpGenerate && !strings.Contains(r.Prompt, story.UniquenessSuffix)
	})).Return("First story.", nil).Once()
	f.gen.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Op == llm.OpGenerate &&
			strings.Contains(r.Prompt, story.UniquenessSuffix) &&
			strings.Contains(r.Prompt, "A doctor eats a guest.")
	})).Return("Second story.", nil).Once()
	f.gen.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Op == llm.OpSummarize && strings.Contains(r.Prompt, "First story.")
	})).Return("A doctor eats a guest again.", nil).Once()
	f.gen.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Op == llm.OpSummarize && strings.Contains(r.Prompt, "Second story.")
	})).Return("An agent falls in love.", nil).Once()

	f.cmp.On("Same", mock.Anything, "A doctor eats a guest again.", stored[0]).Return(true, nil).Once()
	f.cmp.On("Same", mock.Anything, "An agent falls in love.", stored[0]).Return(false, nil).Once()

	f.repo.On("CreateStory", mock.Anything, mock.MatchedBy(func(p db.CreateStoryParams) bool {
		return p.StoryText == "Second story." && p.SeedQuote == "q"
	})).Return(savedStory(2), nil).Once()

	res := f.svc.Generate(context.Background(), story.Request{Quote: "q"})

	require.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "An agent falls in love.", res.Plot)
	require.NotNil(t, res.StoryID)
	assert.Equal(t, int64(2), *res.StoryID)
	require.NotNil(t, res.Dedup)
	assert.Equal(t, dedup.Unique, res.Dedup.Verdict)
}

func TestGenerate_ExhaustedReturnsLastUnsaved(t *testing.T) {
	f := newFixture(t, 2)
	stored := []string{"Same plot."}

	f.repo.On("ListPlots", mock.Anything).Return(stored, nil).Twice()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("Story one.", nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("Story two.", nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpSummarize)).Return("Same plot.", nil).Twice()
	f.cmp.On("Same", mock.Anything, "Same plot.", "Same plot.").Return(true, nil).Twice()

	res := f.svc.Generate(context.Background(), story.Request{Quote: "q"})

	assert.True(t, res.Success)
	assert.True(t, res.Exhausted)
	assert.Nil(t, res.StoryID)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, "Story two.", res.StoryParts[0])
	f.repo.AssertNotCalled(t, "CreateStory", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Generations.WithLabelValues("exhausted")))
}

func TestGenerate_SaveFailureKeepsStory(t *testing.T) {
	f := newFixture(t, 3)

	f.repo.On("ListPlots", mock.Anything).Return([]string{}, nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("Dark. Night.", nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpSummarize)).Return("Night falls.", nil).Once()
	f.repo.On("CreateStory", mock.Anything, mock.Anything).Return(nil, errors.New("disk full")).Once()

	res := f.svc.Generate(context.Background(), story.Request{Quote: "q"})

	assert.True(t, res.Success)
	assert.Equal(t, story.MsgDBError, res.DBError)
	assert.Nil(t, res.StoryID)
	assert.Equal(t, "Dark.", res.StoryParts[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StoreErrors.WithLabelValues("create_story")))
}

func TestGenerate_PlotLoadFailureSkipsDedup(t *testing.T) {
	f := newFixture(t, 3)

	f.repo.On("ListPlots", mock.Anything).Return(nil, errors.New("locked")).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("Story.", nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpSummarize)).Return("Plot.", nil).Once()
	f.repo.On("CreateStory", mock.Anything, mock.Anything).Return(savedStory(9), nil).Once()

	res := f.svc.Generate(context.Background(), story.Request{Quote: "q"})

	require.True(t, res.Success)
	require.NotNil(t, res.Dedup)
	assert.Equal(t, dedup.Skipped, res.Dedup.Verdict)
	f.cmp.AssertNotCalled(t, "Same", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_BookAndInspiration(t *testing.T) {
	f := newFixture(t, 1)

	f.repo.On("ListPlots", mock.Anything).Return([]string{}, nil).Once()
	f.gen.On("Generate", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Op == llm.OpGenerate &&
			strings.Contains(r.Prompt, "Red Dragon (1981)") &&
			strings.Contains(r.Prompt, "Thomas Harris")
	})).Return("Story.", nil).Once()
	f.gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpSummarize)).Return("Plot.", nil).Once()
	f.repo.On("CreateStory", mock.Anything, db.CreateStoryParams{
		BookBasedStory: "Red Dragon (1981)",
		StoryText:      "Story.",
		Plot:           "Plot.",
		Inspiration:    "Thomas Harris",
		SeedQuote:      "q",
	}).Return(savedStory(3), nil).Once()

	res := f.svc.Generate(context.Background(), story.Request{
		Quote:       "q",
		Book:        "Red Dragon (1981)",
		Inspiration: "Thomas Harris",
	})
	assert.True(t, res.Success)
}

func TestGenerate_IndexesStoredPlot(t *testing.T) {
	gen := &mocks.Generator{}
	repo := &mocks.Repository{}
	idx := &mocks.Index{}
	svc := story.NewService(story.Config{
		Generator: gen,
		Repo:      repo,
		Checker: dedup.NewChecker(dedup.Config{
			Strategy: dedup.StrategyVector,
			Index:    idx,
		}),
		Index: idx,
	})

	repo.On("ListPlots", mock.Anything).Return([]string{}, nil).Once()
	gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("Story.", nil).Once()
	gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpSummarize)).Return("Plot.", nil).Once()
	idx.On("Similar", mock.Anything, "Plot.", float32(0.9), 1).Return([]dedup.Match{}, nil).Once()
	repo.On("CreateStory", mock.Anything, mock.Anything).Return(savedStory(5), nil).Once()
	idx.On("Add", mock.Anything, int64(5), "Plot.").Return(errors.New("index offline")).Once()

	res := svc.Generate(context.Background(), story.Request{Quote: "q"})

	require.True(t, res.Success)
	assert.Equal(t, int64(5), *res.StoryID)
	gen.AssertExpectations(t)
	repo.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestRandom_DrawsFromCatalog(t *testing.T) {
	gen := &mocks.Generator{}
	repo := &mocks.Repository{}
	cat := &catalog.Catalog{
		Quotes:       []string{"only quote"},
		Books:        []string{"only book"},
		Inspirations: []string{"only author"},
	}
	svc := story.NewService(story.Config{Generator: gen, Repo: repo, Catalog: cat, MaxAttempts: 1})

	repo.On("ListPlots", mock.Anything).Return([]string{}, nil).Once()
	gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpGenerate)).Return("Story.", nil).Once()
	gen.On("Generate", mock.Anything, mocks.OpIs(llm.OpSummarize)).Return("Plot.", nil).Once()
	repo.On("CreateStory", mock.Anything, mock.MatchedBy(func(p db.CreateStoryParams) bool {
		return p.SeedQuote == "only quote" && p.BookBasedStory == "only book" && p.Inspiration == "only author"
	})).Return(savedStory(1), nil).Once()

	seed, res := svc.Random(context.Background())

	assert.Equal(t, catalog.Seed{Quote: "only quote", Book: "only book", Inspiration: "only author"}, seed)
	assert.True(t, res.Success)
	repo.AssertExpectations(t)
}

func TestList(t *testing.T) {
	t.Run("stories", func(t *testing.T) {
		f := newFixture(t, 1)
		f.repo.On("ListStories", mock.Anything).Return([]*db.Story{{ID: 2}, {ID: 1}}, nil).Once()

		res := f.svc.List(context.Background())
		assert.True(t, res.Success)
		assert.Len(t, res.Stories, 2)
	})

	t.Run("empty", func(t *testing.T) {
		f := newFixture(t, 1)
		f.repo.On("ListStories", mock.Anything).Return(nil, nil).Once()

		res := f.svc.List(context.Background())
		assert.True(t, res.Success)
		assert.NotNil(t, res.Stories)
		assert.Empty(t, res.Stories)
	})

	t.Run("store error", func(t *testing.T) {
		f := newFixture(t, 1)
		f.repo.On("ListStories", mock.Anything).Return(nil, errors.New("closed")).Once()

		res := f.svc.List(context.Background())
		assert.False(t, res.Success)
		assert.Equal(t, story.MsgStoreError, res.Message)
	})
}

func TestGetAndPages(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		f := newFixture(t, 1)
		s := &db.Story{ID: 7, StoryText: "A. B. C.", Plot: "Letters."}
		f.repo.On("GetStory", mock.Anything, int64(7)).Return(s, nil).Twice()

		got := f.svc.Get(context.Background(), 7)
		require.True(t, got.Success)
		assert.Equal(t, s, got.Story)

		pages := f.svc.Pages(context.Background(), 7)
		require.True(t, pages.Success)
		assert.Equal(t, []string{"A.", "B.", "C."}, pages.Pages)
		assert.Equal(t, "Letters.", pages.Plot)
	})

	t.Run("legacy row without story_text", func(t *testing.T) {
		f := newFixture(t, 1)
		s := &db.Story{ID: 3, BookBasedStory: "Old. Row."}
		f.repo.On("GetStory", mock.Anything, int64(3)).Return(s, nil).Once()

		pages := f.svc.Pages(context.Background(), 3)
		assert.Equal(t, []string{"Old.", "Row."}, pages.Pages)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t, 1)
		f.repo.On("GetStory", mock.Anything, int64(99)).Return(nil, db.ErrNotFound).Twice()

		got := f.svc.Get(context.Background(), 99)
		assert.False(t, got.Success)
		assert.Nil(t, got.Story)
		assert.Equal(t, story.MsgStoryNotFound, got.Message)

		pages := f.svc.Pages(context.Background(), 99)
		assert.False(t, pages.Success)
		assert.Empty(t, pages.Pages)
		assert.Equal(t, story.MsgStoryNotFound, pages.Message)
	})
}
