package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"bookbuddy/internal/config"
)

func TestRenditionKey(t *testing.T) {
	assert.Equal(t, "renditions/abc.pdf", RenditionKey("abc", ".pdf"))
	assert.Equal(t, "renditions/abc.epub", RenditionKey("abc", ".epub"))
}

func TestDownloadParams(t *testing.T) {
	assert.Empty(t, downloadParams(""))

	q := downloadParams("My Book.pdf")
	assert.Equal(t, `attachment; filename="My Book.pdf"`, q.Get("response-content-disposition"))
}

func TestNewMinIO_RequiresConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{"endpoint", config.MinIOConfig{}, "endpoint"},
		{"credentials", config.MinIOConfig{Endpoint: "localhost:9000"}, "credentials"},
		{"bucket", config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}, "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMinIO(context.Background(), tt.cfg)
			assert.Nil(t, s)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
