package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/abdulachik/storyteller/internal/db"
)

// Repository is a mock story repository.
type Repository struct {
	mock.Mock
}

func (m *Repository) CreateStory(ctx context.Context, arg db.CreateStoryParams) (*db.Story, error) {
	args := m.Called(ctx, arg)
	s, _ := args.Get(0).(*db.Story)
	return s, args.Error(1)
}

func (m *Repository) ListPlots(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	plots, _ := args.Get(0).([]string)
	return plots, args.Error(1)
}

func (m *Repository) ListStories(ctx context.Context) ([]*db.Story, error) {
	args := m.Called(ctx)
	stories, _ := args.Get(0).([]*db.Story)
	return stories, args.Error(1)
}

func (m *Repository) GetStory(ctx context.Context, id int64) (*db.Story, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*db.Story)
	return s, args.Error(1)
}

func (m *Repository) CountStories(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *Repository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
