package mocks

import (
	"context"

	"bookbuddy/internal/delivery"
	"bookbuddy/internal/model"
	"bookbuddy/internal/service"
	"bookbuddy/internal/session"
	"github.com/stretchr/testify/mock"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context) session.Snapshot {
	args := m.Called(ctx)
	return args.Get(0).(session.Snapshot)
}

func (m *MockSessionService) Snapshot(ctx context.Context, id string) (session.Snapshot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Snapshot), args.Error(1)
}

func (m *MockSessionService) Clear(ctx context.Context, id string) (session.Snapshot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Snapshot), args.Error(1)
}

func (m *MockSessionService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionService) Settings(ctx context.Context, id string) (session.Settings, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(session.Settings), args.Error(1)
}

func (m *MockSessionService) ImportSettings(ctx context.Context, id string, data []byte) (session.Settings, error) {
	args := m.Called(ctx, id, data)
	return args.Get(0).(session.Settings), args.Error(1)
}

func (m *MockSessionService) UpdateForm(ctx context.Context, id string, f session.Form) (session.Snapshot, error) {
	args := m.Called(ctx, id, f)
	return args.Get(0).(session.Snapshot), args.Error(1)
}

func (m *MockSessionService) UpdateMetadata(ctx context.Context, id string, md model.BookMetadata) (session.Snapshot, error) {
	args := m.Called(ctx, id, md)
	return args.Get(0).(session.Snapshot), args.Error(1)
}

func (m *MockSessionService) StartRecording(ctx context.Context, id string) (service.RecordingStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(service.RecordingStatus), args.Error(1)
}

func (m *MockSessionService) PushChunk(ctx context.Context, id string, data []byte, level float64) error {
	args := m.Called(ctx, id, data, level)
	return args.Error(0)
}

func (m *MockSessionService) RecordingStatus(ctx context.Context, id string) (service.RecordingStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(service.RecordingStatus), args.Error(1)
}

func (m *MockSessionService) StopRecording(ctx context.Context, id string) (*service.StopResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StopResult), args.Error(1)
}

func (m *MockSessionService) sendResult(args mock.Arguments) (*service.SendResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendResult), args.Error(1)
}

func (m *MockSessionService) SendPending(ctx context.Context, id string) (*service.SendResult, error) {
	return m.sendResult(m.Called(ctx, id))
}

func (m *MockSessionService) SendText(ctx context.Context, id string) (*service.SendResult, error) {
	return m.sendResult(m.Called(ctx, id))
}

func (m *MockSessionService) SendFile(ctx context.Context, id, filename, mimeType string, data []byte) (*service.SendResult, error) {
	return m.sendResult(m.Called(ctx, id, filename, mimeType, data))
}

func (m *MockSessionService) SendTest(ctx context.Context, id string) (*service.SendResult, error) {
	return m.sendResult(m.Called(ctx, id))
}

func (m *MockSessionService) FetchDocument(ctx context.Context, id, shareURL string, send bool) (*service.FetchResult, error) {
	args := m.Called(ctx, id, shareURL, send)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FetchResult), args.Error(1)
}

func (m *MockSessionService) History(ctx context.Context, id string) ([]delivery.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]delivery.Record), args.Error(1)
}

func (m *MockSessionService) DeliveryLog(ctx context.Context, id string) ([]model.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Delivery), args.Error(1)
}

func (m *MockSessionService) Render(ctx context.Context, id, style, format string) (*service.RenderResult, error) {
	args := m.Called(ctx, id, style, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RenderResult), args.Error(1)
}

var (
	_ service.SessionService   = (*MockSessionService)(nil)
	_ service.RenditionService = (*MockRenditionService)(nil)
)
