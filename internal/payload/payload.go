// Package payload builds the JSON documents delivered to the webhook.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

const (
	AppName    = "Book Buddy Enhanced"
	AppVersion = "1.1.0"

	DefaultRecordingTitle       = "Voice Recording"
	DefaultRecordingDescription = "Audio recording from Book Buddy"
)

// Source tells the receiver where a payload came from.
type Source string

const (
	SourceVoiceRecording Source = "voice_recording"
	SourceFileUpload     Source = "file_upload"
	SourceManualText     Source = "manual_text"
	SourceDocumentFetch  Source = "document_fetch"
	SourceConnectionTest Source = "connection_test"
)

// Details is the operator-entered part of every payload.
type Details struct {
	Title       string
	Description string
	UserName    string
	BookType    string
}

// Extra carries client-side context that is informational only.
type Extra struct {
	Quality    string `json:"quality,omitempty"`
	AutoSent   bool   `json:"auto_sent"`
	AppVersion string `json:"app_version"`
}

// Payload is the value sent for one delivery attempt.
type Payload struct {
	Timestamp         string `json:"timestamp"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	UserName          string `json:"user_name"`
	BookType          string `json:"book_type"`
	AudioData         string `json:"audio_data,omitempty"`
	AudioFormat       string `json:"audio_format,omitempty"`
	RecordingDuration int    `json:"recording_duration,omitempty"`
	FileSize          int    `json:"file_size,omitempty"`
	Filename          string `json:"filename,omitempty"`
	Content           string `json:"content,omitempty"`
	SourceURL         string `json:"source_url,omitempty"`
	Test              bool   `json:"test,omitempty"`
	Message           string `json:"message,omitempty"`
	Source            Source `json:"source"`
	AppName           string `json:"app_name"`
	Metadata          Extra  `json:"metadata"`
}

// Encode returns the standard base64 form of data.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode.
func Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode audio data: %w", err)
	}
	return b, nil
}

// Recording describes a finished capture to be wrapped in a payload.
type Recording struct {
	Data     []byte
	MIMEType string
	Duration int
	Quality  string
	AutoSent bool
}

func newPayload(d Details, src Source) *Payload {
	return &Payload{
		Title:       d.Title,
		Description: d.Description,
		UserName:    d.UserName,
		BookType:    d.BookType,
		Source:      src,
		AppName:     AppName,
		Metadata:    Extra{AppVersion: AppVersion},
	}
}

// NewVoiceRecording wraps a captured recording. Empty title and description
// fall back to the recording defaults.
func NewVoiceRecording(d Details, rec Recording) *Payload {
	if d.Title == "" {
		d.Title = DefaultRecordingTitle
	}
	if d.Description == "" {
		d.Description = DefaultRecordingDescription
	}
	p := newPayload(d, SourceVoiceRecording)
	p.AudioData = Encode(rec.Data)
	p.AudioFormat = rec.MIMEType
	p.RecordingDuration = rec.Duration
	p.FileSize = len(rec.Data)
	p.Metadata.Quality = rec.Quality
	p.Metadata.AutoSent = rec.AutoSent
	return p
}

// NewFileUpload wraps an uploaded audio file. The file name is the title
// fallback.
func NewFileUpload(d Details, data []byte, filename, mime string) *Payload {
	if d.Title == "" {
		d.Title = filename
	}
	p := newPayload(d, SourceFileUpload)
	p.AudioData = Encode(data)
	p.AudioFormat = mime
	p.Filename = filename
	p.FileSize = len(data)
	return p
}

// NewText wraps free text entered by the operator.
func NewText(d Details, content string) *Payload {
	p := newPayload(d, SourceManualText)
	p.Content = content
	return p
}

// NewDocumentFetch wraps text pulled from a shared document.
func NewDocumentFetch(d Details, sourceURL, content string) *Payload {
	p := newPayload(d, SourceDocumentFetch)
	p.SourceURL = sourceURL
	p.Content = content
	return p
}

// NewConnectionTest builds the probe used to check a destination.
func NewConnectionTest(d Details) *Payload {
	p := newPayload(d, SourceConnectionTest)
	p.Test = true
	p.Message = "Test from " + AppName
	return p
}

// Stamp sets the timestamp if it is still empty.
func (p *Payload) Stamp(now time.Time) {
	if p.Timestamp == "" {
		p.Timestamp = now.Format(time.RFC3339Nano)
	}
}

// Marshal serializes the payload for the wire.
func (p *Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// HasAudio reports whether the payload carries audio.
func (p *Payload) HasAudio() bool { return p.AudioData != "" }
