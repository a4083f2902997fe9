package client

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/windfall/drill_service/internal/errors"
)

// AzureSpeechClient wraps the Azure AI Speech text-to-speech REST API.
type AzureSpeechClient struct {
	apiKey   string
	region   string
	voice    string
	endpoint string
	client   *http.Client
}

// NewAzureSpeechClient creates a new Azure Speech client. voice is the
// default neural voice, e.g. en-US-AnaNeural.
func NewAzureSpeechClient(apiKey, region, voice string) *AzureSpeechClient {
	if voice == "" {
		voice = "en-US-AnaNeural"
	}
	return &AzureSpeechClient{
		apiKey:   apiKey,
		region:   region,
		voice:    voice,
		endpoint: fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithEndpoint overrides the synthesis URL.
func (c *AzureSpeechClient) WithEndpoint(endpoint string) *AzureSpeechClient {
	c.endpoint = endpoint
	return c
}

// Synthesize renders text as mp3 through SSML.
// voice may be a full Azure voice name; anything else uses the default.
func (c *AzureSpeechClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if c.apiKey == "" || c.region == "" {
		return nil, errors.New(errors.ErrAIService, "Azure Speech credentials not configured")
	}

	voice = c.selectVoice(voice)
	ssml, err := buildSSML(text, voice)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "audio-24khz-48kbitrate-mono-mp3")
	req.Header.Set("User-Agent", "drill_service")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.AIService("azure speech synthesis failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.AIService("azure speech synthesis failed",
			fmt.Errorf("azure speech api error %d: %s", resp.StatusCode, string(body)))
	}
	return io.ReadAll(resp.Body)
}

// selectVoice accepts names shaped like "xx-YY-NameNeural".
func (c *AzureSpeechClient) selectVoice(voice string) string {
	if strings.Count(voice, "-") >= 2 && strings.HasSuffix(voice, "Neural") {
		return voice
	}
	return c.voice
}

func buildSSML(text, voice string) (string, error) {
	lang := "en-US"
	if parts := strings.SplitN(voice, "-", 3); len(parts) == 3 {
		lang = parts[0] + "-" + parts[1]
	}

	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return "", fmt.Errorf("failed to escape ssml text: %w", err)
	}
	return fmt.Sprintf(`<speak version="1.0" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		lang, voice, escaped.String()), nil
}
