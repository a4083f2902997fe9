package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/genai"

	"github.com/windfall/drill_service/internal/errors"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GeminiClient wraps Gemini on Vertex AI for completions and Imagen for images.
type GeminiClient struct {
	client     *genai.Client
	model      string
	projectID  string
	location   string
	creds      *google.Credentials // for the Imagen REST call
	httpClient *http.Client
}

// NewGeminiClient creates a Vertex AI backed client. When serviceAccountPath
// is empty, application default credentials are used.
func NewGeminiClient(ctx context.Context, projectID, location, serviceAccountPath, model string) (*GeminiClient, error) {
	var creds *google.Credentials
	if serviceAccountPath != "" {
		// The SDK only picks up service accounts from the environment.
		if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", serviceAccountPath); err != nil {
			return nil, fmt.Errorf("failed to set GOOGLE_APPLICATION_CREDENTIALS: %w", err)
		}
		data, err := os.ReadFile(serviceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read service account: %w", err)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials from file: %w", err)
		}
		if projectID == "" {
			projectID = creds.ProjectID
		}
	} else {
		creds, _ = google.FindDefaultCredentials(ctx, cloudPlatformScope)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{
		client:     client,
		model:      model,
		projectID:  projectID,
		location:   location,
		creds:      creds,
		httpClient: &http.Client{},
	}, nil
}

// Complete maps the chat onto GenerateContent. System messages become the
// system instruction.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	cfg := &genai.GenerateContentConfig{}
	if s := req.Sampling; s != (Sampling{}) {
		cfg.Temperature = float32Ptr(s.Temperature)
		cfg.TopP = float32Ptr(s.TopP)
		cfg.FrequencyPenalty = float32Ptr(s.FrequencyPenalty)
		cfg.PresencePenalty = float32Ptr(s.PresencePenalty)
		if s.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(s.MaxTokens)
		}
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", errors.AIService("gemini completion failed", err)
	}
	return resp.Text(), nil
}

func float32Ptr(v float32) *float32 {
	if v == 0 {
		return nil
	}
	return &v
}

// GenerateImageBytes renders one image with Imagen via the REST predict API.
func (c *GeminiClient) GenerateImageBytes(ctx context.Context, prompt, aspectRatio string) ([]byte, error) {
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}
	url := fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		c.location, c.projectID, c.location, "imagen-3.0-generate-001")

	reqBody := map[string]interface{}{
		"instances": []map[string]interface{}{
			{"prompt": prompt},
		},
		"parameters": map[string]interface{}{
			"sampleCount": 1,
			"aspectRatio": aspectRatio,
		},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}

	if c.creds == nil {
		return nil, errors.New(errors.ErrAIService, "no google credentials for imagen")
	}
	token, err := c.creds.TokenSource.Token()
	if err != nil {
		return nil, errors.AIService("failed to get imagen token", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.AIService("imagen request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.AIService("imagen request failed",
			fmt.Errorf("imagen api error %d: %s", resp.StatusCode, string(body)))
	}

	var result struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
		} `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Predictions) == 0 || result.Predictions[0].BytesBase64Encoded == "" {
		return nil, errors.New(errors.ErrAIService, "imagen returned no predictions")
	}
	return base64.StdEncoding.DecodeString(result.Predictions[0].BytesBase64Encoded)
}
