package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ChunkInterval is the cadence at which a capture device is expected to emit chunks.
const ChunkInterval = 100 * time.Millisecond

var (
	ErrDeviceBusy        = errors.New("audio input device is busy")
	ErrDeviceUnavailable = errors.New("audio input device is unavailable")
	ErrNotRecording      = errors.New("no active recording")
)

// DeviceAccessError reports that the audio input device could not be acquired.
// No recording session exists after it is returned.
type DeviceAccessError struct {
	Reason string
	Err    error
}

func (e *DeviceAccessError) Error() string {
	if e.Err == nil {
		return "device access: " + e.Reason
	}
	return fmt.Sprintf("device access: %s: %v", e.Reason, e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

// Chunk is one encoded audio fragment together with the input level observed
// while it was produced (0..1).
type Chunk struct {
	Data  []byte
	Level float64
}

// Stream is an open handle on an input device.
// Close must release the device and close the Chunks channel.
type Stream interface {
	Chunks() <-chan Chunk
	Close() error
}

// Source grants exclusive access to an input device.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// PushSource is a device whose chunks are delivered by a remote client
// (the browser's media recorder) instead of local hardware. Only one stream
// may be open at a time.
type PushSource struct {
	mu     sync.Mutex
	buffer int
	ch     chan Chunk
	open   bool
}

func NewPushSource(buffer int) *PushSource {
	if buffer <= 0 {
		buffer = 64
	}
	return &PushSource{buffer: buffer}
}

// Open claims the device.
func (p *PushSource) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DeviceAccessError{Reason: "open cancelled", Err: err}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		return nil, &DeviceAccessError{Reason: "already in use", Err: ErrDeviceBusy}
	}
	p.ch = make(chan Chunk, p.buffer)
	p.open = true
	return &pushStream{src: p, ch: p.ch}, nil
}

// Push hands a chunk to the open stream. The data is copied, so callers may
// reuse their buffer afterwards.
func (p *PushSource) Push(ctx context.Context, c Chunk) error {
	data := make([]byte, len(c.Data))
	copy(data, c.Data)

	// The lock is held across the send so Close cannot close the channel underneath it.
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrNotRecording
	}
	select {
	case p.ch <- Chunk{Data: data, Level: c.Level}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsOpen reports whether a stream currently holds the device.
func (p *PushSource) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *PushSource) release(ch chan Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open && p.ch == ch {
		close(p.ch)
		p.open = false
	}
}

type pushStream struct {
	src  *PushSource
	ch   chan Chunk
	once sync.Once
}

func (s *pushStream) Chunks() <-chan Chunk { return s.ch }

func (s *pushStream) Close() error {
	s.once.Do(func() { s.src.release(s.ch) })
	return nil
}
