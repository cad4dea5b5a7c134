package mocks

import (
	"context"
	"io"

	"bookbuddy/internal/model"
	"bookbuddy/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockRenditionService struct {
	mock.Mock
}

func (m *MockRenditionService) Render(ctx context.Context, req service.RenderRequest) (*service.RenderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RenderResult), args.Error(1)
}

func (m *MockRenditionService) List(ctx context.Context, limit, offset int) (*service.RenditionListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RenditionListResult), args.Error(1)
}

func (m *MockRenditionService) Get(ctx context.Context, id string) (*service.RenditionDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RenditionDetail), args.Error(1)
}

func (m *MockRenditionService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Rendition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.Rendition), args.Error(2)
}

func (m *MockRenditionService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
