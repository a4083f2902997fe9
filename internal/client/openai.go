package client

import (
	"bytes"
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/windfall/drill_service/internal/errors"
)

// OpenAIOptions selects the models used by OpenAIClient.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	TTSModel   string
	TTSVoice   string
	STTModel   string
	ImageModel string
}

// OpenAIClient covers chat completion, speech, transcription and images.
type OpenAIClient struct {
	client     *openai.Client
	chatModel  string
	ttsModel   string
	ttsVoice   string
	sttModel   string
	imageModel string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	c := &OpenAIClient{
		client:     openai.NewClientWithConfig(cfg),
		chatModel:  opts.ChatModel,
		ttsModel:   opts.TTSModel,
		ttsVoice:   opts.TTSVoice,
		sttModel:   opts.STTModel,
		imageModel: opts.ImageModel,
	}
	if c.chatModel == "" {
		c.chatModel = openai.GPT3Dot5Turbo
	}
	if c.ttsModel == "" {
		c.ttsModel = string(openai.TTSModel1)
	}
	if c.ttsVoice == "" {
		c.ttsVoice = string(openai.VoiceAlloy)
	}
	if c.sttModel == "" {
		c.sttModel = openai.Whisper1
	}
	if c.imageModel == "" {
		c.imageModel = openai.CreateImageModelDallE3
	}
	return c
}

// Complete runs one chat completion and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            model,
		Messages:         messages,
		Temperature:      req.Sampling.Temperature,
		TopP:             req.Sampling.TopP,
		FrequencyPenalty: req.Sampling.FrequencyPenalty,
		PresencePenalty:  req.Sampling.PresencePenalty,
		MaxTokens:        req.Sampling.MaxTokens,
	})
	if err != nil {
		return "", errors.AIService("openai chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesize renders text as mp3. An empty voice uses the configured one.
func (c *OpenAIClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = c.ttsVoice
	}
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, errors.AIService("openai speech synthesis failed", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech body: %w", err)
	}
	return audio, nil
}

// Transcribe converts uploaded audio to text with whisper.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	if filename == "" {
		filename = "audio.webm"
	}
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.sttModel,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: language,
	})
	if err != nil {
		return "", errors.AIService("openai transcription failed", err)
	}
	return resp.Text, nil
}

// GenerateImage returns the hosted URL of one generated image.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt, size, quality string) (string, error) {
	if size == "" {
		size = openai.CreateImageSize1024x1024
	}
	if quality == "" {
		quality = openai.CreateImageQualityStandard
	}
	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.imageModel,
		N:              1,
		Size:           size,
		Quality:        quality,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", errors.AIService("openai image generation failed", err)
	}
	if len(resp.Data) == 0 {
		return "", errors.New(errors.ErrAIService, "openai returned no image")
	}
	return resp.Data[0].URL, nil
}
