package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/windfall/drill_service/internal/errors"
)

// AzureWhisperClient wraps the Azure OpenAI Whisper REST API for audio transcription.
type AzureWhisperClient struct {
	endpoint string // full deployment URL including api-version
	apiKey   string
	client   *http.Client
}

type whisperResponse struct {
	Text string `json:"text"`
}

// NewAzureWhisperClient creates a new Azure OpenAI Whisper client.
func NewAzureWhisperClient(endpoint, apiKey string) *AzureWhisperClient {
	return &AzureWhisperClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 120 * time.Second, // Whisper can take longer for large files
		},
	}
}

// Transcribe uploads audio as multipart form data and returns the text.
// language is optional (e.g. "en"); empty lets Whisper detect it.
func (c *AzureWhisperClient) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" {
		return "", errors.New(errors.ErrAIService, "Azure Whisper credentials not configured")
	}
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	_ = writer.WriteField("response_format", "json")
	if language != "" {
		_ = writer.WriteField("language", language)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.AIService("azure whisper request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", errors.AIService("azure whisper request failed",
			fmt.Errorf("azure whisper api error %d: %s", resp.StatusCode, string(respBody)))
	}

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Text, nil
}
