// Package llm post-processes extracted text through an OpenAI-compatible
// chat endpoint (Ollama or the hosted API, selected by configuration).
package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// prompt presets by processing type.
var presets = map[string]struct {
	system string
	user   string
}{
	"summarize": {
		system: "You are a helpful assistant that creates clear, concise summaries.",
		user:   "Please provide a comprehensive summary of the following text:\n\n%s",
	},
	"critique": {
		system: "You are a thoughtful critic who provides constructive analysis and feedback.",
		user:   "Please provide a detailed critique of the following text, including strengths, weaknesses, and suggestions for improvement:\n\n%s",
	},
	"expand": {
		system: "You are a creative writer who expands ideas with depth and detail.",
		user:   "Please expand on the following text with additional details, examples, and context:\n\n%s",
	},
	"explain": {
		system: "You are a clear educator who explains complex topics in simple terms.",
		user:   "Please explain the following text in clear, easy-to-understand language:\n\n%s",
	},
}

// Processor transforms text with a chat model.
type Processor struct {
	client       *openai.Client
	defaultModel string
	logger       *slog.Logger
}

// NewProcessor creates a processor against the configured endpoint.
func NewProcessor(baseURL, apiKey, defaultModel string, logger *slog.Logger) *Processor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Processor{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Transform runs the requested processing type over text and returns
// the processed text. Unknown processing types fall back to summarize;
// custom uses the caller's prompt verbatim.
func (p *Processor) Transform(ctx context.Context, text string, req types.TransformRequest) (string, error) {
	if text == "" {
		return "", fmt.Errorf("no text provided")
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	system := "You are a helpful AI assistant."
	var user string
	if req.ProcessingType == "custom" && req.Prompt != "" {
		user = req.Prompt + "\n\n" + text
	} else {
		preset, ok := presets[req.ProcessingType]
		if !ok {
			preset = presets["summarize"]
		}
		system = preset.system
		user = fmt.Sprintf(preset.user, text)
	}

	p.logger.Info("running AI post-processing", "type", req.ProcessingType, "model", model)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
