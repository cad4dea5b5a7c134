package mocks

import (
	"context"

	"bookbuddy/internal/model"
	"bookbuddy/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockRenditionRepository struct {
	mock.Mock
}

func (m *MockRenditionRepository) Create(ctx context.Context, r *model.Rendition) (*model.Rendition, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if f, ok := args.Get(0).(func(context.Context, *model.Rendition) *model.Rendition); ok {
		return f(ctx, r), args.Error(1)
	}
	return args.Get(0).(*model.Rendition), args.Error(1)
}

func (m *MockRenditionRepository) FindByID(ctx context.Context, id string) (*model.Rendition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Rendition), args.Error(1)
}

func (m *MockRenditionRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Rendition], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Rendition]), args.Error(1)
}

func (m *MockRenditionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
