package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentStats(t *testing.T) {
	assert.Equal(t, Stats{Words: 0, Characters: 0, EstimatedPages: 1}, ContentStats(""))
	assert.Equal(t, Stats{Words: 2, Characters: 10, EstimatedPages: 1}, ContentStats("héllo  you"))

	long := strings.TrimSpace(strings.Repeat("word ", 760))
	assert.Equal(t, 3, ContentStats(long).EstimatedPages)
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{1234567, "1.18 MB"},
		{5 << 40, "5120 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.in))
	}
}
