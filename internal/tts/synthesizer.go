// Package tts renders text to speech through an OpenAI-compatible
// speech endpoint.
package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// Synthesizer converts text into mp3 audio bytes.
type Synthesizer struct {
	client       *openai.Client
	model        string
	defaultVoice string
	logger       *slog.Logger
}

// NewSynthesizer creates a synthesizer against the configured endpoint.
func NewSynthesizer(baseURL, apiKey, model, defaultVoice string, logger *slog.Logger) *Synthesizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Synthesizer{
		client:       openai.NewClientWithConfig(cfg),
		model:        model,
		defaultVoice: defaultVoice,
		logger:       logger,
	}
}

// Speak synthesizes text with the given voice (or the default) and
// returns the raw mp3 bytes.
func (s *Synthesizer) Speak(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("no text provided")
	}
	if voice == "" {
		voice = s.defaultVoice
	}

	s.logger.Info("synthesizing speech", "voice", voice, "chars", len(text))

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(s.model),
		Input: text,
		Voice: openai.SpeechVoice(voice),
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return audio, nil
}
