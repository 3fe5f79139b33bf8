package transcribe

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSegmentEnd(t *testing.T) {
	tests := []struct {
		line    string
		want    float64
		matched bool
	}{
		{"[00:01.000 --> 00:07.480]  hello there", 7.48, true},
		{"[00:00.000 --> 00:30.000]  intro", 30, true},
		{"[01:30.500 --> 02:15.250]  later segment", 135.25, true},
		{"[05:00 --> 06:30]  no millis", 390, true},
		{"Detecting language using up to the first 30 seconds.", 0, false},
		{"100%|##########| 461/461", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		end, ok := parseSegmentEnd(tt.line)
		assert.Equal(t, tt.matched, ok, "line %q", tt.line)
		if tt.matched {
			assert.InDelta(t, tt.want, end, 0.001, "line %q", tt.line)
		}
	}
}

func TestNewSelectsBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tr, err := New(Options{Mode: "local", Model: "small"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalWhisper{}, tr)

	tr, err = New(Options{Mode: "api", BaseURL: "http://localhost:9000/v1", APIKey: "k", Model: "whisper-1"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &APIWhisper{}, tr)

	_, err = New(Options{Mode: "cloud"}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown whisper mode")
}
