package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"bookbuddy/internal/capture"
	"bookbuddy/internal/render"
)

var ErrInvalidSettings = errors.New("invalid settings")

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"

	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 300
)

// Settings is the flat, exportable per-session configuration.
type Settings struct {
	WebhookURL     string          `json:"webhook_url"`
	TimeoutSeconds int             `json:"timeout_seconds"`
	AudioQuality   capture.Quality `json:"audio_quality"`
	DefaultStyle   render.Style    `json:"default_style"`
	FontSize       int             `json:"font_size"`
	Theme          string          `json:"theme"`
	AutoSend       bool            `json:"auto_send"`
}

// DefaultSettings returns what a fresh session starts with.
func DefaultSettings(webhookURL string, timeoutSeconds int) Settings {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return Settings{
		WebhookURL:     webhookURL,
		TimeoutSeconds: timeoutSeconds,
		AudioQuality:   capture.QualityHigh,
		DefaultStyle:   render.StyleNovel,
		FontSize:       render.DefaultFontSize,
		Theme:          ThemeLight,
		AutoSend:       true,
	}
}

// Validate checks every field except the webhook URL, which is checked
// before each delivery so a bad value can still be stored and corrected.
func (s Settings) Validate() error {
	if s.TimeoutSeconds < MinTimeoutSeconds || s.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("%w: timeout_seconds must be between %d and %d", ErrInvalidSettings, MinTimeoutSeconds, MaxTimeoutSeconds)
	}
	if _, err := capture.ParseQuality(string(s.AudioQuality)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if _, err := render.ParseStyle(string(s.DefaultStyle)); err != nil {
		return fmt.Errorf("%w: default_style %q", ErrInvalidSettings, s.DefaultStyle)
	}
	if s.FontSize < render.MinFontSize || s.FontSize > render.MaxFontSize {
		return fmt.Errorf("%w: font_size must be between %d and %d", ErrInvalidSettings, render.MinFontSize, render.MaxFontSize)
	}
	switch s.Theme {
	case ThemeLight, ThemeDark, ThemeAuto:
	default:
		return fmt.Errorf("%w: theme %q", ErrInvalidSettings, s.Theme)
	}
	return nil
}

// Export renders the settings as indented JSON.
func (s Settings) Export() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ImportSettings overlays data on base. Keys missing from data keep base
// values; unknown keys are rejected.
func ImportSettings(data []byte, base Settings) (Settings, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	out := base
	if err := dec.Decode(&out); err != nil {
		return base, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}
