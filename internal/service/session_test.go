package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookbuddy/internal/capture"
	"bookbuddy/internal/delivery"
	"bookbuddy/internal/model"
	"bookbuddy/internal/payload"
	"bookbuddy/internal/render"
	repoMocks "bookbuddy/internal/repository/mocks"
	"bookbuddy/internal/session"
	"bookbuddy/internal/webhook"
)

const hookURL = "https://hooks.example.com/book-buddy"

// recordingPoster answers every post with a fixed status and keeps the bodies.
type recordingPoster struct {
	mu     sync.Mutex
	status int
	err    error
	bodies []payload.Payload
}

func (p *recordingPoster) Post(_ context.Context, _ string, body []byte) (webhook.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var pl payload.Payload
	_ = json.Unmarshal(body, &pl)
	p.bodies = append(p.bodies, pl)
	if p.err != nil {
		return webhook.Response{}, p.err
	}
	return webhook.Response{StatusCode: p.status, Body: "ok"}, nil
}

func (p *recordingPoster) sent() []payload.Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]payload.Payload(nil), p.bodies...)
}

type fakeFetcher struct {
	text string
	err  error
}

func (f fakeFetcher) Fetch(context.Context, string) (string, error) { return f.text, f.err }

type renditionRenderer struct {
	mock.Mock
	RenditionService
}

func (r *renditionRenderer) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	args := r.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RenderResult), args.Error(1)
}

type fixture struct {
	svc      SessionService
	poster   *recordingPoster
	renderer *renditionRenderer
	sessions *session.Manager
}

func newFixture(t *testing.T, status int, opts ...SessionOption) *fixture {
	t.Helper()
	f := &fixture{
		poster:   &recordingPoster{status: status},
		renderer: &renditionRenderer{},
		sessions: session.NewManager(session.DefaultSettings(hookURL, 30)),
	}
	orch := delivery.NewOrchestrator(f.poster, 0)
	f.svc = NewSessionService(f.sessions, orch, fakeFetcher{text: "Chapter one.\n\nChapter two."}, f.renderer, opts...)
	return f
}

func (f *fixture) record(t *testing.T, id string, chunks ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.StartRecording(ctx, id)
	require.NoError(t, err)
	for _, c := range chunks {
		require.NoError(t, f.svc.PushChunk(ctx, id, []byte(c), 0.5))
	}
}

func TestSessionService_UnknownSession(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()

	_, err := f.svc.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.SendText(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.History(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_StopAutoSendDelivered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	f := newFixture(t, 200, WithMetrics(m))
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	f.record(t, id, "RIFF", "data")
	res, err := f.svc.StopRecording(ctx, id)
	require.NoError(t, err)

	assert.True(t, res.AutoSend)
	assert.True(t, res.Sent)
	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Delivered)
	require.NotNil(t, res.Pending)
	assert.True(t, res.Pending.Sent)
	assert.Equal(t, 8, res.Pending.Bytes)

	sent := f.poster.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, payload.SourceVoiceRecording, sent[0].Source)
	assert.Equal(t, payload.Encode([]byte("RIFFdata")), sent[0].AudioData)
	assert.True(t, sent[0].Metadata.AutoSent)
	assert.Equal(t, payload.DefaultRecordingTitle, sent[0].Title)

	h, err := f.svc.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, h, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordings.WithLabelValues("auto_sent")))
}

func TestSessionService_StopAutoSendFailedKeepsPending(t *testing.T) {
	f := newFixture(t, 500)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	f.record(t, id, "abc")
	res, err := f.svc.StopRecording(ctx, id)
	require.NoError(t, err)

	assert.False(t, res.Sent)
	require.NotNil(t, res.Outcome)
	require.NotNil(t, res.Outcome.Failure)
	assert.Equal(t, delivery.FailureNonSuccessStatus, res.Outcome.Failure.Kind)
	require.NotNil(t, res.Pending)
	assert.False(t, res.Pending.Sent)

	// The manual send is the fallback.
	f.poster.status = 200
	sr, err := f.svc.SendPending(ctx, id)
	require.NoError(t, err)
	assert.True(t, sr.Outcome.Delivered)
	assert.Equal(t, []string{"build", "transfer", "await", "complete"}, sr.Steps)

	snap, err := f.svc.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.True(t, snap.Pending.Sent)
	assert.Equal(t, 2, snap.History)

	sent := f.poster.sent()
	require.Len(t, sent, 2)
	assert.False(t, sent[1].Metadata.AutoSent)
}

func TestSessionService_StopWithoutAutoSend(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	_, err := f.svc.ImportSettings(ctx, id, []byte(`{"auto_send": false}`))
	require.NoError(t, err)

	f.record(t, id, "abc")
	res, err := f.svc.StopRecording(ctx, id)
	require.NoError(t, err)

	assert.False(t, res.AutoSend)
	assert.False(t, res.Sent)
	assert.Nil(t, res.Outcome)
	assert.Empty(t, f.poster.sent())
	require.NotNil(t, res.Pending)
}

func TestSessionService_StopWithInvalidURL(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	_, err := f.svc.ImportSettings(ctx, id, []byte(`{"webhook_url": "not a url"}`))
	require.NoError(t, err)

	f.record(t, id, "abc")
	res, err := f.svc.StopRecording(ctx, id)
	require.NoError(t, err)

	assert.NotEmpty(t, res.DeliveryError)
	assert.False(t, res.Sent)
	assert.Empty(t, f.poster.sent())

	h, _ := f.svc.History(ctx, id)
	assert.Empty(t, h)

	_, err = f.svc.SendPending(ctx, id)
	assert.ErrorIs(t, err, webhook.ErrInvalidURL)
}

func TestSessionService_StopWhenIdle(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	res, err := f.svc.StopRecording(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, res.Pending)
	assert.Empty(t, f.poster.sent())
}

func TestSessionService_StartTwiceIsDeviceError(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	_, err := f.svc.StartRecording(ctx, id)
	require.NoError(t, err)
	_, err = f.svc.StartRecording(ctx, id)
	assert.ErrorIs(t, err, capture.ErrAlreadyRecording)

	st, err := f.svc.RecordingStatus(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, "0 B", st.Size)
}

func TestSessionService_SendPendingWithoutRecording(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	_, err := f.svc.SendPending(ctx, id)
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestSessionService_SendText(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	_, err := f.svc.SendText(ctx, id)
	assert.ErrorIs(t, err, ErrDetailsRequired)
	assert.Empty(t, f.poster.sent())

	_, err = f.svc.UpdateForm(ctx, id, session.Form{Title: "Notes", UserName: "Ann", BookType: "Fantasy", Content: "Once upon a time"})
	require.NoError(t, err)

	res, err := f.svc.SendText(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Outcome.Delivered)

	sent := f.poster.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, payload.SourceManualText, sent[0].Source)
	assert.Equal(t, "Once upon a time", sent[0].Content)
	assert.Equal(t, "Fantasy", sent[0].BookType)
	assert.NotEmpty(t, sent[0].Timestamp)
}

func TestSessionService_SendFile(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		mime     string
		data     []byte
		wantErr  error
		wantMIME string
	}{
		{name: "mp3 with fallback mime", filename: "take.MP3", mime: "application/octet-stream", data: []byte("ID3"), wantMIME: "audio/mpeg"},
		{name: "browser mime kept", filename: "take.webm", mime: "audio/webm;codecs=opus", data: []byte("x"), wantMIME: "audio/webm;codecs=opus"},
		{name: "unsupported type", filename: "notes.txt", data: []byte("x"), wantErr: ErrUnsupportedFile},
		{name: "empty file", filename: "take.wav", wantErr: ErrEmptyFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 200)
			id := f.svc.Create(ctx).ID

			res, err := f.svc.SendFile(ctx, id, tt.filename, tt.mime, tt.data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.poster.sent())
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Outcome.Delivered)

			sent := f.poster.sent()
			require.Len(t, sent, 1)
			assert.Equal(t, payload.SourceFileUpload, sent[0].Source)
			assert.Equal(t, tt.wantMIME, sent[0].AudioFormat)
			assert.Equal(t, tt.filename, sent[0].Title)
			assert.Equal(t, len(tt.data), sent[0].FileSize)
		})
	}
}

func TestSessionService_SendTest(t *testing.T) {
	f := newFixture(t, 404)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	res, err := f.svc.SendTest(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.Outcome.Delivered)
	assert.Equal(t, "Webhook returned status 404", res.Outcome.Failure.Message)

	sent := f.poster.sent()
	require.Len(t, sent, 1)
	assert.True(t, sent[0].Test)
	assert.Equal(t, payload.SourceConnectionTest, sent[0].Source)
	assert.Equal(t, "Connection Test", sent[0].Title)
}

func TestSessionService_ConnectionErrorBecomesOutcome(t *testing.T) {
	f := newFixture(t, 0)
	f.poster.err = errors.New("boom")
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	res, err := f.svc.SendTest(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, res.Outcome.Failure)
	assert.Equal(t, delivery.FailureOther, res.Outcome.Failure.Kind)
	assert.Equal(t, "Error: boom", res.Outcome.Failure.Message)
}

func TestSessionService_FetchDocument(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	res, err := f.svc.FetchDocument(ctx, id, "https://docs.google.com/document/d/abc/edit", false)
	require.NoError(t, err)
	assert.Nil(t, res.Outcome)
	assert.Equal(t, 4, res.Stats.Words)
	assert.Empty(t, f.poster.sent())

	snap, _ := f.svc.Snapshot(ctx, id)
	assert.Equal(t, "Chapter one.\n\nChapter two.", snap.Form.Content)

	res, err = f.svc.FetchDocument(ctx, id, "https://docs.google.com/document/d/abc/edit", true)
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.True(t, res.Outcome.Delivered)

	sent := f.poster.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, payload.SourceDocumentFetch, sent[0].Source)
	assert.Equal(t, "https://docs.google.com/document/d/abc/edit", sent[0].SourceURL)
}

func TestSessionService_FetchDocumentError(t *testing.T) {
	sessions := session.NewManager(session.DefaultSettings(hookURL, 30))
	svc := NewSessionService(sessions, delivery.NewOrchestrator(&recordingPoster{status: 200}, 0),
		fakeFetcher{err: errors.New("unreachable")}, nil)
	ctx := context.Background()
	id := svc.Create(ctx).ID

	_, err := svc.FetchDocument(ctx, id, "https://example.com/doc.txt", true)
	assert.EqualError(t, err, "unreachable")

	snap, _ := svc.Snapshot(ctx, id)
	assert.Empty(t, snap.Form.Content)
}

func TestSessionService_Render(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to form fields", func(t *testing.T) {
		f := newFixture(t, 200)
		id := f.svc.Create(ctx).ID
		_, err := f.svc.UpdateForm(ctx, id, session.Form{Title: "Draft", Description: "Only a description", UserName: "Ann"})
		require.NoError(t, err)

		want := &RenderResult{Rendition: &model.Rendition{ID: "r1"}, Data: []byte("%PDF-")}
		f.renderer.On("Render", ctx, mock.MatchedBy(func(req RenderRequest) bool {
			return req.Content == "Only a description" &&
				req.Metadata.Title == "Draft" &&
				req.Metadata.Author == "Ann" &&
				req.Style == render.StyleNovel &&
				req.Format == render.FormatPDF &&
				req.FontSize == render.DefaultFontSize
		})).Return(want, nil)

		got, err := f.svc.Render(ctx, id, "", "")
		require.NoError(t, err)
		assert.Same(t, want, got)
		f.renderer.AssertExpectations(t)
	})

	t.Run("metadata wins over form", func(t *testing.T) {
		f := newFixture(t, 200)
		id := f.svc.Create(ctx).ID
		_, _ = f.svc.UpdateForm(ctx, id, session.Form{Title: "Draft", Content: "Text", UserName: "Ann"})
		_, _ = f.svc.UpdateMetadata(ctx, id, model.BookMetadata{Title: "Final", Author: "A. N. Author"})

		f.renderer.On("Render", ctx, mock.MatchedBy(func(req RenderRequest) bool {
			return req.Metadata.Title == "Final" && req.Metadata.Author == "A. N. Author" &&
				req.Style == render.StylePoetry && req.Format == render.FormatEPUB
		})).Return(&RenderResult{Rendition: &model.Rendition{ID: "r2"}}, nil)

		_, err := f.svc.Render(ctx, id, "poetry", "epub")
		require.NoError(t, err)
		f.renderer.AssertExpectations(t)
	})

	t.Run("default title", func(t *testing.T) {
		f := newFixture(t, 200)
		id := f.svc.Create(ctx).ID
		_, _ = f.svc.UpdateForm(ctx, id, session.Form{Content: "Text"})

		f.renderer.On("Render", ctx, mock.MatchedBy(func(req RenderRequest) bool {
			return req.Metadata.Title == render.DefaultTitle
		})).Return(&RenderResult{Rendition: &model.Rendition{ID: "r3"}}, nil)

		_, err := f.svc.Render(ctx, id, "", "")
		require.NoError(t, err)
	})

	t.Run("nothing to render", func(t *testing.T) {
		f := newFixture(t, 200)
		id := f.svc.Create(ctx).ID

		_, err := f.svc.Render(ctx, id, "", "")
		assert.ErrorIs(t, err, ErrContentRequired)
		f.renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
	})

	t.Run("unknown style", func(t *testing.T) {
		f := newFixture(t, 200)
		id := f.svc.Create(ctx).ID
		_, _ = f.svc.UpdateForm(ctx, id, session.Form{Content: "Text"})

		_, err := f.svc.Render(ctx, id, "haiku", "")
		assert.ErrorIs(t, err, render.ErrUnknownStyle)
	})
}

func TestSessionService_ClearKeepsSettings(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID

	_, err := f.svc.ImportSettings(ctx, id, []byte(`{"theme": "dark"}`))
	require.NoError(t, err)
	_, _ = f.svc.UpdateForm(ctx, id, session.Form{Title: "x", Content: "y"})
	_, _ = f.svc.SendText(ctx, id)
	f.record(t, id, "abc")

	snap, err := f.svc.Clear(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "dark", snap.Settings.Theme)
	assert.Empty(t, snap.Form.Title)
	assert.Zero(t, snap.History)
	assert.Nil(t, snap.Pending)

	// The device was released by the clear.
	_, err = f.svc.StartRecording(ctx, id)
	assert.NoError(t, err)
}

func TestSessionService_Delete(t *testing.T) {
	f := newFixture(t, 200)
	ctx := context.Background()
	id := f.svc.Create(ctx).ID
	f.record(t, id, "abc")

	require.NoError(t, f.svc.Delete(ctx, id))
	assert.Equal(t, 0, f.sessions.Len())

	_, err := f.svc.Snapshot(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, id), ErrSessionNotFound)
}

func TestSessionService_DeliveryLog(t *testing.T) {
	ctx := context.Background()

	t.Run("without a store", func(t *testing.T) {
		f := newFixture(t, 200)
		id := f.svc.Create(ctx).ID
		got, err := f.svc.DeliveryLog(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("reads recent entries", func(t *testing.T) {
		repo := new(repoMocks.MockDeliveryRepository)
		f := newFixture(t, 200, WithDeliveryLog(repo))
		id := f.svc.Create(ctx).ID

		rows := []model.Delivery{{ID: "d1", SessionID: id, Success: true}}
		repo.On("ListRecent", ctx, id, delivery.HistoryLimit).Return(rows, nil)

		got, err := f.svc.DeliveryLog(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, rows, got)
		repo.AssertExpectations(t)
	})

	t.Run("survives a restart", func(t *testing.T) {
		repo := new(repoMocks.MockDeliveryRepository)
		before := newFixture(t, 200, WithDeliveryLog(repo))
		id := before.svc.Create(ctx).ID

		rows := []model.Delivery{{ID: "d1", SessionID: id, Success: true}}
		repo.On("ListRecent", ctx, id, delivery.HistoryLimit).Return(rows, nil)

		after := newFixture(t, 200, WithDeliveryLog(repo))
		_, err := after.svc.Snapshot(ctx, id)
		require.ErrorIs(t, err, ErrSessionNotFound)

		got, err := after.svc.DeliveryLog(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, rows, got)
		repo.AssertExpectations(t)
	})

	t.Run("empty id", func(t *testing.T) {
		f := newFixture(t, 200)
		_, err := f.svc.DeliveryLog(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.recordingFinalized(&StopResult{}) })
}
