package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"bookbuddy/internal/capture"
	"bookbuddy/internal/delivery"
	"bookbuddy/internal/logging"
	"bookbuddy/internal/model"
	"bookbuddy/internal/payload"
	"bookbuddy/internal/render"
	"bookbuddy/internal/repository"
	"bookbuddy/internal/session"
)

var (
	ErrSessionNotFound = session.ErrNotFound
	ErrNoPending       = errors.New("no recording to send")
	ErrDetailsRequired = errors.New("title or description is required")
	ErrContentRequired = errors.New("content or description is required")
	ErrEmptyFile       = errors.New("file is empty")
	ErrUnsupportedFile = errors.New("unsupported audio file type")
)

// audioTypes maps accepted upload extensions to their MIME labels.
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
}

// Fetcher reads plain text from a shared document.
type Fetcher interface {
	Fetch(ctx context.Context, shareURL string) (string, error)
}

// SendResult is the outcome of one delivery plus the checkpoints it passed.
type SendResult struct {
	Outcome delivery.Outcome `json:"outcome"`
	Steps   []string         `json:"steps"`
}

// StopResult describes a finalized recording and what auto-send did with it.
type StopResult struct {
	Pending       *session.PendingView `json:"recording,omitempty"`
	AutoSend      bool                 `json:"auto_send"`
	Sent          bool                 `json:"sent"`
	Outcome       *delivery.Outcome    `json:"outcome,omitempty"`
	DeliveryError string               `json:"delivery_error,omitempty"`
}

// FetchResult is fetched document text and, if requested, its delivery.
type FetchResult struct {
	Content string            `json:"content"`
	Stats   session.Stats     `json:"stats"`
	Outcome *delivery.Outcome `json:"outcome,omitempty"`
}

// RecordingStatus is the live view of a capture in progress.
type RecordingStatus struct {
	capture.Status
	Size string `json:"size"`
}

// SessionService drives the recording and delivery pipeline per session.
type SessionService interface {
	Create(ctx context.Context) session.Snapshot
	Snapshot(ctx context.Context, id string) (session.Snapshot, error)
	Clear(ctx context.Context, id string) (session.Snapshot, error)
	// Delete ends the session and releases its device.
	Delete(ctx context.Context, id string) error

	Settings(ctx context.Context, id string) (session.Settings, error)
	ImportSettings(ctx context.Context, id string, data []byte) (session.Settings, error)
	UpdateForm(ctx context.Context, id string, f session.Form) (session.Snapshot, error)
	UpdateMetadata(ctx context.Context, id string, m model.BookMetadata) (session.Snapshot, error)

	StartRecording(ctx context.Context, id string) (RecordingStatus, error)
	PushChunk(ctx context.Context, id string, data []byte, level float64) error
	RecordingStatus(ctx context.Context, id string) (RecordingStatus, error)
	// StopRecording finalizes the capture and, when auto-send is on, delivers
	// it. A failed delivery leaves the recording pending for a manual send.
	StopRecording(ctx context.Context, id string) (*StopResult, error)

	SendPending(ctx context.Context, id string) (*SendResult, error)
	SendText(ctx context.Context, id string) (*SendResult, error)
	SendFile(ctx context.Context, id, filename, mimeType string, data []byte) (*SendResult, error)
	SendTest(ctx context.Context, id string) (*SendResult, error)
	FetchDocument(ctx context.Context, id, shareURL string, send bool) (*FetchResult, error)

	History(ctx context.Context, id string) ([]delivery.Record, error)
	DeliveryLog(ctx context.Context, id string) ([]model.Delivery, error)

	Render(ctx context.Context, id, style, format string) (*RenderResult, error)
}

type sessionService struct {
	sessions   *session.Manager
	orch       *delivery.Orchestrator
	fetcher    Fetcher
	renditions RenditionService
	deliveries repository.DeliveryRepository
	metrics    *Metrics
	logger     logging.Logger
}

type SessionOption func(*sessionService)

func WithDeliveryLog(r repository.DeliveryRepository) SessionOption {
	return func(s *sessionService) { s.deliveries = r }
}

func WithMetrics(m *Metrics) SessionOption { return func(s *sessionService) { s.metrics = m } }

func WithLogger(l logging.Logger) SessionOption { return func(s *sessionService) { s.logger = l } }

func NewSessionService(sessions *session.Manager, orch *delivery.Orchestrator, fetcher Fetcher, renditions RenditionService, opts ...SessionOption) SessionService {
	s := &sessionService{
		sessions:   sessions,
		orch:       orch,
		fetcher:    fetcher,
		renditions: renditions,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *sessionService) Create(ctx context.Context) session.Snapshot {
	sess := s.sessions.Create()
	s.logger.Info(ctx, "session_created", "session_id", sess.ID)
	return sess.Snapshot()
}

func (s *sessionService) Snapshot(_ context.Context, id string) (session.Snapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *sessionService) Clear(ctx context.Context, id string) (session.Snapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	sess.Clear()
	s.logger.Info(ctx, "session_cleared", "session_id", id)
	return sess.Snapshot(), nil
}

func (s *sessionService) Delete(ctx context.Context, id string) error {
	if err := s.sessions.Delete(id); err != nil {
		return err
	}
	s.logger.Info(ctx, "session_deleted", "session_id", id)
	return nil
}

func (s *sessionService) Settings(_ context.Context, id string) (session.Settings, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.Settings{}, err
	}
	return sess.Settings(), nil
}

func (s *sessionService) ImportSettings(_ context.Context, id string, data []byte) (session.Settings, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.Settings{}, err
	}
	next, err := session.ImportSettings(data, sess.Settings())
	if err != nil {
		return session.Settings{}, err
	}
	if err := sess.SetSettings(next); err != nil {
		return session.Settings{}, err
	}
	return next, nil
}

func (s *sessionService) UpdateForm(_ context.Context, id string, f session.Form) (session.Snapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	sess.SetForm(f)
	return sess.Snapshot(), nil
}

func (s *sessionService) UpdateMetadata(_ context.Context, id string, m model.BookMetadata) (session.Snapshot, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.Snapshot{}, err
	}
	sess.SetMetadata(m)
	return sess.Snapshot(), nil
}

func recordingStatus(st capture.Status) RecordingStatus {
	return RecordingStatus{Status: st, Size: session.FormatSize(int64(st.Bytes))}
}

func (s *sessionService) StartRecording(ctx context.Context, id string) (RecordingStatus, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return RecordingStatus{}, err
	}
	if err := sess.StartRecording(ctx); err != nil {
		s.logger.Warn(ctx, "recording_start_failed", "session_id", id, "error", err.Error())
		return RecordingStatus{}, err
	}
	s.logger.Info(ctx, "recording_started", "session_id", id)
	return recordingStatus(sess.RecordingStatus()), nil
}

func (s *sessionService) PushChunk(ctx context.Context, id string, data []byte, level float64) error {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	return sess.PushChunk(ctx, data, level)
}

func (s *sessionService) RecordingStatus(_ context.Context, id string) (RecordingStatus, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return RecordingStatus{}, err
	}
	return recordingStatus(sess.RecordingStatus()), nil
}

func (s *sessionService) StopRecording(ctx context.Context, id string) (*StopResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	pending, err := sess.StopRecording()
	if pending == nil {
		return &StopResult{}, err
	}
	if err != nil {
		s.logger.Error(ctx, "device_release_failed", "session_id", id, "error", err.Error())
	}

	settings := sess.Settings()
	res := &StopResult{AutoSend: settings.AutoSend}
	s.logger.Info(ctx, "recording_finalized", "session_id", id, "bytes", pending.Blob.Len(), "duration", pending.Blob.Duration)

	p := voicePayload(sess.Form(), pending, settings.AutoSend)
	out, sent, sendErr := s.orchestrator(settings).AutoSubmit(ctx, sess.History(), p, settings.WebhookURL, settings.AutoSend)
	switch {
	case sendErr != nil:
		res.DeliveryError = sendErr.Error()
	case sent:
		res.Outcome = &out
		if out.Delivered {
			sess.MarkSent(pending)
			res.Sent = true
		}
	}
	s.metrics.recordingFinalized(res)
	res.Pending = sess.Snapshot().Pending
	return res, nil
}

func voicePayload(f session.Form, p *session.Pending, autoSent bool) *payload.Payload {
	return payload.NewVoiceRecording(f.Details(), payload.Recording{
		Data:     p.Blob.Bytes(),
		MIMEType: p.Blob.MIMEType,
		Duration: p.Blob.Duration,
		Quality:  string(p.Blob.Quality),
		AutoSent: autoSent,
	})
}

// orchestrator applies the session's timeout setting.
func (s *sessionService) orchestrator(settings session.Settings) *delivery.Orchestrator {
	return s.orch.WithBudget(time.Duration(settings.TimeoutSeconds) * time.Second)
}

func (s *sessionService) send(ctx context.Context, sess *session.Session, p *payload.Payload) (*SendResult, error) {
	settings := sess.Settings()
	res := &SendResult{}
	out, err := s.orchestrator(settings).Submit(ctx, sess.History(), p, settings.WebhookURL, func(st delivery.Step) {
		res.Steps = append(res.Steps, st.String())
	})
	if err != nil {
		return nil, err
	}
	res.Outcome = out
	return res, nil
}

func (s *sessionService) SendPending(ctx context.Context, id string) (*SendResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	pending := sess.Pending()
	if pending == nil {
		return nil, ErrNoPending
	}
	res, err := s.send(ctx, sess, voicePayload(sess.Form(), pending, false))
	if err != nil {
		return nil, err
	}
	if res.Outcome.Delivered {
		sess.MarkSent(pending)
	}
	return res, nil
}

func (s *sessionService) SendText(ctx context.Context, id string) (*SendResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	f := sess.Form()
	if strings.TrimSpace(f.Title) == "" && strings.TrimSpace(f.Description) == "" {
		return nil, ErrDetailsRequired
	}
	return s.send(ctx, sess, payload.NewText(f.Details(), f.Content))
}

func (s *sessionService) SendFile(ctx context.Context, id, filename, mimeType string, data []byte) (*SendResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	fallback, ok := audioTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = fallback
	}
	return s.send(ctx, sess, payload.NewFileUpload(sess.Form().Details(), data, filepath.Base(filename), mimeType))
}

func (s *sessionService) SendTest(ctx context.Context, id string) (*SendResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	d := sess.Form().Details()
	if d.Title == "" {
		d.Title = "Connection Test"
	}
	return s.send(ctx, sess, payload.NewConnectionTest(d))
}

// FetchDocument stores the fetched text as the session content. When send is
// set it is also delivered as a document_fetch payload.
func (s *sessionService) FetchDocument(ctx context.Context, id, shareURL string, send bool) (*FetchResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	text, err := s.fetcher.Fetch(ctx, shareURL)
	if err != nil {
		s.logger.Warn(ctx, "document_fetch_failed", "session_id", id, "error", err.Error())
		return nil, err
	}
	sess.SetContent(text)
	res := &FetchResult{Content: text, Stats: session.ContentStats(text)}
	if !send {
		return res, nil
	}
	sr, err := s.send(ctx, sess, payload.NewDocumentFetch(sess.Form().Details(), shareURL, text))
	if err != nil {
		return nil, err
	}
	res.Outcome = &sr.Outcome
	return res, nil
}

func (s *sessionService) History(_ context.Context, id string) ([]delivery.Record, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.History().List(), nil
}

// DeliveryLog reads the persisted log by id alone, so rows written before a
// restart stay readable after the in-memory session is gone.
func (s *sessionService) DeliveryLog(ctx context.Context, id string) ([]model.Delivery, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if s.deliveries == nil {
		return []model.Delivery{}, nil
	}
	return s.deliveries.ListRecent(ctx, id, delivery.HistoryLimit)
}

// Render flows the session content, or the description when there is no
// content, into a document. Empty style and format fall back to the
// session default and PDF.
func (s *sessionService) Render(ctx context.Context, id, style, format string) (*RenderResult, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	settings := sess.Settings()
	f := sess.Form()

	content := f.Content
	if strings.TrimSpace(content) == "" {
		content = f.Description
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}

	if style == "" {
		style = string(settings.DefaultStyle)
	}
	st, err := render.ParseStyle(style)
	if err != nil {
		return nil, err
	}
	fm, err := render.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	meta := sess.Metadata()
	if meta.Title == "" {
		meta.Title = f.Title
	}
	if meta.Title == "" {
		meta.Title = render.DefaultTitle
	}
	if meta.Author == "" {
		meta.Author = f.UserName
	}
	if meta.Description == "" {
		meta.Description = f.Description
	}

	res, err := s.renditions.Render(ctx, RenderRequest{
		Content:  content,
		Metadata: meta,
		Style:    st,
		Format:   fm,
		FontSize: settings.FontSize,
	})
	if err != nil {
		s.logger.Warn(ctx, "render_failed", "session_id", id, "error", err.Error())
		return nil, err
	}
	s.logger.Info(ctx, "rendition_created", "session_id", id, "rendition_id", res.Rendition.ID, "format", fm, "size", res.Rendition.Size)
	return res, nil
}
