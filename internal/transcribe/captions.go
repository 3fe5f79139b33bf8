package transcribe

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codebuildervaibhav/media-pipeline/internal/media"
	"github.com/codebuildervaibhav/media-pipeline/internal/types"
)

// CaptionClient extracts pre-existing transcripts from YouTube's
// timedtext endpoint. Manually uploaded tracks are preferred over
// auto-generated ones.
type CaptionClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewCaptionClient creates a caption fetcher. baseURL is overridable
// for tests; empty means the real endpoint.
func NewCaptionClient(baseURL string, logger *slog.Logger) *CaptionClient {
	if baseURL == "" {
		baseURL = "https://www.youtube.com/api/timedtext"
	}
	return &CaptionClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// Fetch retrieves an existing transcript for the video behind sourceURL
// in the preferred language, falling back to auto-generated captions and
// then to plain English before giving up.
func (c *CaptionClient) Fetch(ctx context.Context, sourceURL, language string) (*types.CaptionResult, error) {
	videoID := media.ExtractVideoID(sourceURL)
	if videoID == "" {
		return nil, fmt.Errorf("no video id in url %q", sourceURL)
	}

	langs := []string{language}
	if language != "en" {
		langs = append(langs, "en")
	}

	for _, lang := range langs {
		if lang == "" {
			continue
		}
		// Manual track first, then the auto-generated one.
		for _, kind := range []string{"", "asr"} {
			text, err := c.fetchTrack(ctx, videoID, lang, kind)
			if err != nil {
				c.logger.Debug("caption track unavailable", "video_id", videoID, "lang", lang, "kind", kind, "error", err)
				continue
			}
			return &types.CaptionResult{
				Text:      text,
				Language:  lang,
				Generated: kind == "asr",
			}, nil
		}
	}

	return nil, fmt.Errorf("no transcript available for video %s", videoID)
}

func (c *CaptionClient) fetchTrack(ctx context.Context, videoID, lang, kind string) (string, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)
	if kind != "" {
		q.Set("kind", kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("timedtext request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", fmt.Errorf("empty caption track")
	}

	text, err := parseTimedText(body)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("caption track has no text")
	}
	return text, nil
}

type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// parseTimedText joins all caption cues into one cleaned string.
func parseTimedText(data []byte) (string, error) {
	var doc timedText
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse timedtext XML: %w", err)
	}

	parts := make([]string, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		cue := strings.TrimSpace(html.UnescapeString(t.Body))
		if cue != "" {
			parts = append(parts, cue)
		}
	}

	joined := strings.Join(parts, " ")
	return strings.Join(strings.Fields(joined), " "), nil
}
