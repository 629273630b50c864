// Package speech calls the speech recognition service that transcribes
// voice recordings to text.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"sportscast/pkg/logger"
)

type Client struct {
	endpoint string
	model    string
	client   *http.Client
}

func NewClient(endpoint, model string) *Client {
	return &Client{
		endpoint: endpoint,
		model:    model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// RecognitionResult is the response of the recognition service.
type RecognitionResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
	DurationMs int64   `json:"duration_ms,omitempty"`
}

// Recognize sends the audio to the recognition service and returns the
// transcribed text. A blank transcription is an error, silence or
// unusable audio must not be treated as a valid query.
func (c *Client) Recognize(ctx context.Context, audio []byte, mimeType string) (string, error) {
	reqURL := fmt.Sprintf("%s/recognize?model=%s", c.endpoint, url.QueryEscape(c.model))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", mimeType)

	logger.Debug("Starting speech recognition",
		zap.Int("audio_bytes", len(audio)),
		zap.String("mime_type", mimeType))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recognition request failed: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var result RecognitionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if result.Text == "" {
		return "", fmt.Errorf("recognition returned no text, audio may be silent or unusable")
	}

	logger.Info("Recognition completed",
		zap.String("text", result.Text),
		zap.Int64("duration_ms", result.DurationMs))

	return result.Text, nil
}
