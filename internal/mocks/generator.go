package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/abdulachik/storyteller/internal/llm"
)

// Generator is a mock llm.Generator.
type Generator struct {
	mock.Mock
}

var _ llm.Generator = (*Generator)(nil)

func (m *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *Generator) Name() string {
	return "mock"
}

// OpIs matches requests for the given operation.
func OpIs(op string) any {
	return mock.MatchedBy(func(req llm.Request) bool { return req.Op == op })
}
