package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Quality is an informational recording quality label.
type Quality string

const (
	QualityHigh   Quality = "High"
	QualityMedium Quality = "Medium"
	QualityLow    Quality = "Low"
)

// ParseQuality accepts the labels case-sensitively, as they are shown to operators.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(s); q {
	case QualityHigh, QualityMedium, QualityLow:
		return q, nil
	default:
		return "", fmt.Errorf("unknown audio quality %q", s)
	}
}

const DefaultMIMEType = "audio/webm"

var (
	ErrAlreadyRecording  = errors.New("recording already in progress")
	ErrRecordingTooLarge = errors.New("recording exceeds size limit")
)

// Blob is one finalized recording. Its bytes never change after Stop.
type Blob struct {
	data     []byte
	MIMEType string
	Duration int
	Quality  Quality
}

// Bytes returns a copy of the recording.
func (b *Blob) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (b *Blob) Len() int { return len(b.data) }

// Status is a point-in-time view of a recorder.
type Status struct {
	Active  bool    `json:"active"`
	Elapsed int     `json:"elapsed_seconds"`
	Chunks  int     `json:"chunks"`
	Bytes   int     `json:"bytes"`
	Level   float64 `json:"level"`
}

type Option func(*Recorder)

func WithMIMEType(mime string) Option {
	return func(r *Recorder) { r.mime = mime }
}

func WithQuality(q Quality) Option {
	return func(r *Recorder) { r.quality = q }
}

// WithTick overrides the one-second duration counter period.
func WithTick(d time.Duration) Option {
	return func(r *Recorder) { r.tick = d }
}

// WithMaxBytes caps the buffered recording size. Zero means unlimited.
func WithMaxBytes(n int) Option {
	return func(r *Recorder) { r.maxBytes = n }
}

// Recorder buffers chunks from a Source between Start and Stop.
// It is safe for concurrent use.
type Recorder struct {
	src      Source
	mime     string
	quality  Quality
	tick     time.Duration
	maxBytes int

	mu       sync.Mutex
	active   bool
	stopping bool // Stop is finalizing; Start is refused
	stream   Stream
	done     chan struct{}
	wg       sync.WaitGroup
	chunks   [][]byte
	size     int
	level    float64
	elapsed  int
	overflow bool
}

func NewRecorder(src Source, opts ...Option) *Recorder {
	r := &Recorder{
		src:     src,
		mime:    DefaultMIMEType,
		quality: QualityHigh,
		tick:    time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start acquires the device and begins buffering. Any failure to acquire the
// device is returned as *DeviceAccessError and leaves the recorder idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active || r.stopping {
		return ErrAlreadyRecording
	}

	stream, err := r.src.Open(ctx)
	if err != nil {
		var dae *DeviceAccessError
		if errors.As(err, &dae) {
			return err
		}
		return &DeviceAccessError{Reason: "open failed", Err: err}
	}

	r.active = true
	r.stream = stream
	r.done = make(chan struct{})
	r.chunks = nil
	r.size = 0
	r.level = 0
	r.elapsed = 0
	r.overflow = false

	r.wg.Add(2)
	go r.consume(stream.Chunks(), r.done)
	go r.count(r.done)
	return nil
}

// Stop finalizes the recording. Without an active session it returns (nil, nil).
// The device is released before the chunks are joined; a release failure is
// returned alongside the blob. Start returns ErrAlreadyRecording until Stop
// has returned.
func (r *Recorder) Stop() (*Blob, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil, nil
	}
	stream, done := r.stream, r.done
	r.active = false
	r.stopping = true
	r.stream = nil
	r.mu.Unlock()

	// Closing the stream first lets the consumer drain what is already queued.
	closeErr := stream.Close()
	close(done)
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopping = false
	chunks := r.chunks
	r.chunks = nil
	r.size = 0
	if r.overflow {
		return nil, ErrRecordingTooLarge
	}
	blob := &Blob{
		data:     bytes.Join(chunks, nil),
		MIMEType: r.mime,
		Duration: r.elapsed,
		Quality:  r.quality,
	}
	if blob.data == nil {
		blob.data = []byte{}
	}
	if closeErr != nil {
		return blob, fmt.Errorf("release device: %w", closeErr)
	}
	return blob, nil
}

// Level returns the most recent input level in 0..1.
func (r *Recorder) Level() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// Elapsed returns whole seconds since Start.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Active:  r.active,
		Elapsed: r.elapsed,
		Chunks:  len(r.chunks),
		Bytes:   r.size,
		Level:   r.level,
	}
}

func (r *Recorder) Quality() Quality { return r.quality }

func (r *Recorder) consume(ch <-chan Chunk, done <-chan struct{}) {
	defer r.wg.Done()
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return
			}
			r.append(c)
		case <-done:
			for {
				select {
				case c, ok := <-ch:
					if !ok {
						return
					}
					r.append(c)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) append(c Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = clampLevel(c.Level)
	if r.maxBytes > 0 && r.size+len(c.Data) > r.maxBytes {
		r.overflow = true
		return
	}
	r.chunks = append(r.chunks, c.Data)
	r.size += len(c.Data)
}

func (r *Recorder) count(done <-chan struct{}) {
	defer r.wg.Done()
	t := time.NewTicker(r.tick)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			r.mu.Lock()
			r.elapsed++
			r.mu.Unlock()
		case <-done:
			return
		}
	}
}

func clampLevel(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
