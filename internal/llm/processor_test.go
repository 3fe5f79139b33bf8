package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// chatServer records the last request and answers with a fixed reply.
func chatServer(t *testing.T, reply string, last *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(last))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply)
	}))
}

func TestTransformSummarizePreset(t *testing.T) {
	var last chatRequest
	srv := chatServer(t, "a short summary", &last)
	defer srv.Close()

	p := NewProcessor(srv.URL, "test-key", "llama3", slog.New(slog.NewTextHandler(io.Discard, nil)))
	out, err := p.Transform(context.Background(), "the full text", types.TransformRequest{ProcessingType: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "a short summary", out)

	require.Len(t, last.Messages, 2)
	assert.Equal(t, "system", last.Messages[0].Role)
	assert.Contains(t, last.Messages[0].Content, "concise summaries")
	assert.Contains(t, last.Messages[1].Content, "the full text")
	assert.Equal(t, "llama3", last.Model)
}

func TestTransformCustomPrompt(t *testing.T) {
	var last chatRequest
	srv := chatServer(t, "custom reply", &last)
	defer srv.Close()

	p := NewProcessor(srv.URL, "test-key", "llama3", slog.New(slog.NewTextHandler(io.Discard, nil)))
	out, err := p.Transform(context.Background(), "the text", types.TransformRequest{
		ProcessingType: "custom",
		Prompt:         "Translate to pirate speak:",
		Model:          "gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, "custom reply", out)

	assert.Equal(t, "gpt-4o", last.Model)
	assert.Equal(t, "Translate to pirate speak:\n\nthe text", last.Messages[1].Content)
}

func TestTransformUnknownTypeFallsBackToSummarize(t *testing.T) {
	var last chatRequest
	srv := chatServer(t, "ok", &last)
	defer srv.Close()

	p := NewProcessor(srv.URL, "test-key", "llama3", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := p.Transform(context.Background(), "text", types.TransformRequest{ProcessingType: "translate"})
	require.NoError(t, err)
	assert.Contains(t, last.Messages[1].Content, "summary")
}

func TestTransformEmptyText(t *testing.T) {
	p := NewProcessor("http://unused", "k", "llama3", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := p.Transform(context.Background(), "", types.TransformRequest{ProcessingType: "summarize"})
	require.Error(t, err)
}

func TestTransformServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model not loaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProcessor(srv.URL, "k", "llama3", slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := p.Transform(context.Background(), "text", types.TransformRequest{ProcessingType: "summarize"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm request failed")
}
