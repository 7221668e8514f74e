package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/abdulachik/storyteller/internal/dedup"
)

// Comparator is a mock dedup.Comparator.
type Comparator struct {
	mock.Mock
}

var _ dedup.Comparator = (*Comparator)(nil)

func (m *Comparator) Same(ctx context.Context, a, b string) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

// Index is a mock dedup.Index that also records added plots.
type Index struct {
	mock.Mock
}

var _ dedup.Index = (*Index)(nil)

func (m *Index) Similar(ctx context.Context, plot string, threshold float32, k int) ([]dedup.Match, error) {
	args := m.Called(ctx, plot, threshold, k)
	matches, _ := args.Get(0).([]dedup.Match)
	return matches, args.Error(1)
}

func (m *Index) Add(ctx context.Context, storyID int64, plot string) error {
	args := m.Called(ctx, storyID, plot)
	return args.Error(0)
}
