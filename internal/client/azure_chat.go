package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/windfall/drill_service/internal/errors"
)

// AzureChatClient wraps the Azure OpenAI Chat Completions REST API.
type AzureChatClient struct {
	endpoint string // full deployment URL including api-version
	apiKey   string
	client   *http.Client
}

type azureChatRequest struct {
	Messages         []azureChatMessage `json:"messages"`
	Temperature      float32            `json:"temperature,omitempty"`
	TopP             float32            `json:"top_p,omitempty"`
	FrequencyPenalty float32            `json:"frequency_penalty,omitempty"`
	PresencePenalty  float32            `json:"presence_penalty,omitempty"`
	MaxTokens        int                `json:"max_tokens,omitempty"`
}

type azureChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type azureChatResponse struct {
	Choices []struct {
		Message azureChatMessage `json:"message"`
	} `json:"choices"`
}

// NewAzureChatClient creates a new Azure OpenAI Chat Completions client.
func NewAzureChatClient(endpoint, apiKey string) *AzureChatClient {
	return &AzureChatClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Complete posts the conversation to the deployment. The model is fixed by
// the deployment, so req.Model is ignored.
func (c *AzureChatClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.apiKey == "" || c.endpoint == "" {
		return "", errors.New(errors.ErrAIService, "Azure OpenAI Chat credentials not configured")
	}

	body := azureChatRequest{
		Temperature:      req.Sampling.Temperature,
		TopP:             req.Sampling.TopP,
		FrequencyPenalty: req.Sampling.FrequencyPenalty,
		PresencePenalty:  req.Sampling.PresencePenalty,
		MaxTokens:        req.Sampling.MaxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, azureChatMessage{Role: m.Role, Content: m.Content})
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", errors.AIService("azure chat request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", errors.AIService("azure chat request failed",
			fmt.Errorf("azure openai chat api error %d: %s", resp.StatusCode, string(respBody)))
	}

	var result azureChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}
