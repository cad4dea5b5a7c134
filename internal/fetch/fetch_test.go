package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookbuddy/internal/webhook"
)

func TestExportURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{
			name: "edit link",
			in:   "https://docs.google.com/document/d/abc_DEF-123/edit?usp=sharing",
			want: "https://docs.google.com/document/d/abc_DEF-123/export?format=txt",
		},
		{
			name: "user scoped link",
			in:   "https://docs.google.com/document/u/0/d/xyz/view",
			want: "https://docs.google.com/document/d/xyz/export?format=txt",
		},
		{
			name: "plain text file",
			in:   "https://example.com/notes/chapter.TXT",
			want: "https://example.com/notes/chapter.TXT",
		},
		{name: "spreadsheet", in: "https://docs.google.com/spreadsheets/d/abc/edit", wantErr: ErrUnsupportedURL},
		{name: "html page", in: "https://example.com/page.html", wantErr: ErrUnsupportedURL},
		{name: "not a url", in: "not-a-url", wantErr: webhook.ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExportURL(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetch(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte("\ufeffChapter one.\n\nIt begins.\n"))
	}))
	defer ts.Close()

	f := NewFetcher(WithUserAgent("test-agent"))
	text, err := f.Fetch(context.Background(), ts.URL+"/doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "Chapter one.\n\nIt begins.", text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_NonOKIsNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := NewFetcher().Fetch(context.Background(), ts.URL+"/doc.txt")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch_Empty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("  \n"))
	}))
	defer ts.Close()

	_, err := NewFetcher().Fetch(context.Background(), ts.URL+"/doc.txt")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestFetch_UnsupportedMakesNoRequest(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	_, err := NewFetcher().Fetch(context.Background(), ts.URL+"/page.html")
	assert.ErrorIs(t, err, ErrUnsupportedURL)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
