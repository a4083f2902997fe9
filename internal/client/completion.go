package client

import "context"

// Chat roles shared by every completion provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// Sampling tunes a completion. Zero values mean "provider default".
type Sampling struct {
	Temperature      float32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
	MaxTokens        int
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Messages []Message
	// Model overrides the client's default model when set.
	Model    string
	Sampling Sampling
}

// UserPrompt builds a request holding a single user message.
func UserPrompt(prompt string, sampling Sampling) CompletionRequest {
	return CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: prompt}},
		Sampling: sampling,
	}
}

// Completer returns the raw text of a chat completion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Synthesizer turns text into audio bytes (mp3).
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
}

// ImageGenerator returns a resolvable URL for a generated image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, size, quality string) (string, error)
}
