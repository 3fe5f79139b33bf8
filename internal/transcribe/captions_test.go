package transcribe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captionServer(t *testing.T, tracks map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("lang")
		if kind := r.URL.Query().Get("kind"); kind != "" {
			key += "/" + kind
		}
		body, ok := tracks[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
}

func TestFetchManualTrackPreferred(t *testing.T) {
	srv := captionServer(t, map[string]string{
		"en":     `<transcript><text start="0" dur="2">manual track</text></transcript>`,
		"en/asr": `<transcript><text start="0" dur="2">auto track</text></transcript>`,
	})
	defer srv.Close()

	c := NewCaptionClient(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	res, err := c.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "en")
	require.NoError(t, err)
	assert.Equal(t, "manual track", res.Text)
	assert.Equal(t, "en", res.Language)
	assert.False(t, res.Generated)
}

func TestFetchFallsBackToGenerated(t *testing.T) {
	srv := captionServer(t, map[string]string{
		"en/asr": `<transcript><text start="0" dur="2">auto track</text></transcript>`,
	})
	defer srv.Close()

	c := NewCaptionClient(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	res, err := c.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "en")
	require.NoError(t, err)
	assert.Equal(t, "auto track", res.Text)
	assert.True(t, res.Generated)
}

func TestFetchFallsBackToEnglish(t *testing.T) {
	srv := captionServer(t, map[string]string{
		"en": `<transcript><text start="0" dur="2">english track</text></transcript>`,
	})
	defer srv.Close()

	c := NewCaptionClient(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	res, err := c.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "de")
	require.NoError(t, err)
	assert.Equal(t, "english track", res.Text)
	assert.Equal(t, "en", res.Language)
}

func TestFetchNoTracks(t *testing.T) {
	srv := captionServer(t, nil)
	defer srv.Close()

	c := NewCaptionClient(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transcript available")
}

func TestFetchRejectsNonVideoURL(t *testing.T) {
	c := NewCaptionClient("http://unused", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.Fetch(context.Background(), "https://example.com/page", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no video id")
}

func TestParseTimedText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "joins cues and unescapes entities",
			in:   `<transcript><text start="0" dur="1">it&amp;#39;s here</text><text start="1" dur="1"> and   there </text></transcript>`,
			want: "it's here and there",
		},
		{
			name: "skips empty cues",
			in:   `<transcript><text start="0" dur="1">a</text><text start="1" dur="1">  </text><text start="2" dur="1">b</text></transcript>`,
			want: "a b",
		},
		{
			name: "empty document",
			in:   `<transcript></transcript>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimedText([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimedTextInvalidXML(t *testing.T) {
	_, err := parseTimedText([]byte("not xml at all <"))
	require.Error(t, err)
}
