// Package session holds the state of one operator's working session.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"bookbuddy/internal/capture"
	"bookbuddy/internal/delivery"
	"bookbuddy/internal/logging"
	"bookbuddy/internal/model"
	"bookbuddy/internal/payload"
	"bookbuddy/internal/webhook"
)

var ErrNotFound = errors.New("session not found")

const (
	DefaultUserName = "Book Buddy User"
	DefaultBookType = "Fiction"

	// MaxRecordingBytes bounds one buffered recording.
	MaxRecordingBytes = 100 << 20
)

// BookTypes are the categories offered to operators.
var BookTypes = []string{
	"Fiction", "Non-Fiction", "Biography", "Mystery", "Romance",
	"Science Fiction", "Fantasy", "Thriller", "Self-Help", "Business",
}

// Form is what the operator typed.
type Form struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	UserName    string `json:"user_name"`
	BookType    string `json:"book_type"`
	Content     string `json:"content"`
}

// Details is the payload view of the form.
func (f Form) Details() payload.Details {
	return payload.Details{
		Title:       f.Title,
		Description: f.Description,
		UserName:    f.UserName,
		BookType:    f.BookType,
	}
}

// Pending is the last finalized recording.
type Pending struct {
	Blob       *capture.Blob
	FinishedAt time.Time
	Sent       bool
}

// PendingView is the JSON summary of a pending recording.
type PendingView struct {
	Bytes      int       `json:"bytes"`
	Size       string    `json:"size"`
	Duration   int       `json:"duration_seconds"`
	MIMEType   string    `json:"mime_type"`
	Quality    string    `json:"quality"`
	FinishedAt time.Time `json:"finished_at"`
	Sent       bool      `json:"sent"`
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Settings  Settings           `json:"settings"`
	URLValid  bool               `json:"webhook_url_valid"`
	Form      Form               `json:"form"`
	Metadata  model.BookMetadata `json:"metadata"`
	Stats     Stats              `json:"stats"`
	Recording capture.Status     `json:"recording"`
	Pending   *PendingView       `json:"pending_recording,omitempty"`
	History   int                `json:"history_entries"`
}

// state is everything Clear resets.
type state struct {
	form     Form
	meta     model.BookMetadata
	history  *delivery.History
	recorder *capture.Recorder
	pending  *Pending
}

func newState(owner string) *state {
	return &state{
		form:    Form{UserName: DefaultUserName, BookType: DefaultBookType},
		meta:    model.BookMetadata{Genre: DefaultBookType},
		history: delivery.NewHistory(owner, delivery.HistoryLimit),
	}
}

// Session belongs to one operator. The browser tab is its capture device.
type Session struct {
	ID        string
	CreatedAt time.Time

	source *capture.PushSource

	seen atomic.Int64 // unix nanoseconds of the last Manager.Get

	mu       sync.Mutex
	settings Settings
	st       *state
	now      func() time.Time
}

func newSession(id string, settings Settings, now func() time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now(),
		source:    capture.NewPushSource(0),
		settings:  settings,
		st:        newState(id),
		now:       now,
	}
}

func (s *Session) touch(t time.Time) { s.seen.Store(t.UnixNano()) }

func (s *Session) lastSeen() int64 { return s.seen.Load() }

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) SetSettings(v Settings) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = v
	s.mu.Unlock()
	return nil
}

func (s *Session) Form() Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.form
}

func (s *Session) SetForm(f Form) {
	s.mu.Lock()
	s.st.form = f
	s.mu.Unlock()
}

// SetContent replaces only the free-text content.
func (s *Session) SetContent(content string) {
	s.mu.Lock()
	s.st.form.Content = content
	s.mu.Unlock()
}

func (s *Session) Metadata() model.BookMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.meta
}

func (s *Session) SetMetadata(m model.BookMetadata) {
	s.mu.Lock()
	s.st.meta = m
	s.mu.Unlock()
}

func (s *Session) History() *delivery.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.history
}

// StartRecording opens the session's device. It fails with a
// *capture.DeviceAccessError when the device is already held.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.recorder != nil && s.st.recorder.Active() {
		return capture.ErrAlreadyRecording
	}
	r := capture.NewRecorder(s.source,
		capture.WithQuality(s.settings.AudioQuality),
		capture.WithMaxBytes(MaxRecordingBytes),
	)
	if err := r.Start(ctx); err != nil {
		return err
	}
	s.st.recorder = r
	return nil
}

// PushChunk forwards one chunk from the browser to the active recording.
func (s *Session) PushChunk(ctx context.Context, data []byte, level float64) error {
	return s.source.Push(ctx, capture.Chunk{Data: data, Level: level})
}

func (s *Session) RecordingStatus() capture.Status {
	s.mu.Lock()
	r := s.st.recorder
	s.mu.Unlock()
	if r == nil {
		return capture.Status{}
	}
	return r.Status()
}

// StopRecording finalizes the active recording into the pending slot. It
// returns nil without error when nothing is recording.
func (s *Session) StopRecording() (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.recorder == nil {
		return nil, nil
	}
	blob, err := s.st.recorder.Stop()
	if blob == nil {
		return nil, err
	}
	s.st.pending = &Pending{Blob: blob, FinishedAt: s.now()}
	return s.st.pending, err
}

// Pending returns the last finalized recording, if any.
func (s *Session) Pending() *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.pending
}

// MarkSent flags p as delivered if it is still the pending recording.
func (s *Session) MarkSent(p *Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.pending == p && p != nil {
		p.Sent = true
	}
}

// Clear replaces all state with defaults, releasing the device if a
// recording is running. Settings are kept.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.st.recorder; r != nil && r.Active() {
		_, _ = r.Stop()
	}
	s.st = newState(s.ID)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Settings:  s.settings,
		URLValid:  webhook.ValidateURL(s.settings.WebhookURL) == nil,
		Form:      s.st.form,
		Metadata:  s.st.meta,
		Stats:     ContentStats(s.st.form.Content),
		History:   s.st.history.Len(),
	}
	if s.st.recorder != nil {
		snap.Recording = s.st.recorder.Status()
	}
	if p := s.st.pending; p != nil {
		snap.Pending = &PendingView{
			Bytes:      p.Blob.Len(),
			Size:       FormatSize(int64(p.Blob.Len())),
			Duration:   p.Blob.Duration,
			MIMEType:   p.Blob.MIMEType,
			Quality:    string(p.Blob.Quality),
			FinishedAt: p.FinishedAt,
			Sent:       p.Sent,
		}
	}
	return snap
}

// Manager keeps sessions in memory. Sessions idle longer than the TTL are
// evicted by Sweep, and Create evicts the least recently used session once
// the cap is reached. Evicted sessions are cleared, which releases the device.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	defaults Settings
	now      func() time.Time
	idleTTL  time.Duration
	max      int
	log      logging.Logger
}

type ManagerOption func(*Manager)

// WithIdleTTL sets how long a session may go untouched. Zero disables expiry.
func WithIdleTTL(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTTL = d }
}

// WithMaxSessions caps live sessions. Zero means no cap.
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) { m.max = n }
}

func WithLogger(l logging.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

func withClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(defaults Settings, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		defaults: defaults,
		now:      time.Now,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Create() *Session {
	s := newSession(uuid.NewString(), m.defaults, m.now)
	s.touch(m.now())

	var evicted *Session
	m.mu.Lock()
	if m.max > 0 && len(m.sessions) >= m.max {
		evicted = m.leastRecentLocked()
		delete(m.sessions, evicted.ID)
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if evicted != nil {
		evicted.Clear()
		m.log.Info(context.Background(), "session_evicted", "session_id", evicted.ID, "reason", "capacity")
	}
	return s
}

func (m *Manager) leastRecentLocked() *Session {
	var oldest *Session
	for _, s := range m.sessions {
		if oldest == nil || s.lastSeen() < oldest.lastSeen() {
			oldest = s
		}
	}
	return oldest
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Delete removes the session and clears it.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Clear()
	return nil
}

// Sweep evicts sessions idle longer than the TTL and reports how many went.
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL).UnixNano()

	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.lastSeen() < cutoff {
			delete(m.sessions, id)
			idle = append(idle, s)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Clear()
	}
	return len(idle)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.idleTTL <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				m.log.Info(ctx, "sessions_evicted", "count", n, "reason", "idle", "remaining", m.Len())
			}
		}
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
