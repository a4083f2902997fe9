package exercise

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/client"
	"github.com/windfall/drill_service/internal/llmjson"
)

// Score accepts either a JSON number or a string.
type Score string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Score(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = Score(n.String())
	return nil
}

// Int parses the score, clamped to [0, limit]. Unparsable scores are 0.
func (s Score) Int(limit int) int {
	f, err := strconv.ParseFloat(strings.TrimSuffix(string(s), "%"), 64)
	if err != nil || f < 0 {
		return 0
	}
	if v := int(f + 0.5); v < limit {
		return v
	}
	return limit
}

// Evaluation is the feedback returned by every scoring endpoint.
type Evaluation struct {
	Score      Score  `json:"score"`
	Feedback   string `json:"feedback"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Transcript string `json:"transcript,omitempty"`
}

// Evaluation defaults used when the model reply is missing a field.
const (
	DefaultScore    = "0"
	DefaultFeedback = "No feedback available"
	DefaultStatus   = "error"
	DefaultMessage  = "Evaluation failed"
)

func (e *Evaluation) fillDefaults() {
	if e.Score == "" {
		e.Score = DefaultScore
	}
	if e.Feedback == "" {
		e.Feedback = DefaultFeedback
	}
	if e.Status == "" {
		e.Status = DefaultStatus
	}
	if e.Message == "" {
		e.Message = DefaultMessage
	}
}

// Evaluator scores spoken attempts: transcribe, prompt, decode.
type Evaluator struct {
	llm       client.Completer
	stt       client.Transcriber
	extractor *llmjson.Extractor
	sampling  client.Sampling
	language  string
	log       zerolog.Logger
}

// NewEvaluator creates an Evaluator. Scoring favors stable output, so the
// sampling is cooler than generation.
func NewEvaluator(llm client.Completer, stt client.Transcriber, log zerolog.Logger) *Evaluator {
	log = log.With().Str("component", "evaluator").Logger()
	return &Evaluator{
		llm:       llm,
		stt:       stt,
		extractor: llmjson.New(log),
		sampling:  client.Sampling{Temperature: 0.3},
		language:  "en",
		log:       log,
	}
}

// Transcribe converts an uploaded recording to text.
func (e *Evaluator) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	text, err := e.stt.Transcribe(ctx, audio, filename, e.language)
	if err != nil {
		e.log.Error().Err(err).Str("file", filename).Msg("Transcription failed")
		return "", providerError("transcription", err)
	}
	return strings.TrimSpace(text), nil
}

// Evaluate sends promptText and decodes the feedback object. A reply that
// cannot be decoded yields the default evaluation, not an error.
func (e *Evaluator) Evaluate(ctx context.Context, name, promptText string) (Evaluation, error) {
	raw, err := e.llm.Complete(ctx, client.UserPrompt(promptText, e.sampling))
	if err != nil {
		e.log.Error().Err(err).Str("exercise", name).Msg("Scoring completion failed")
		return Evaluation{}, providerError(name, err)
	}

	var ev Evaluation
	if !e.extractor.Decode(raw, "", &ev) {
		ev = Evaluation{}
	}
	ev.fillDefaults()
	return ev, nil
}

// Ask sends promptText and returns the cleaned plain-text reply.
func (e *Evaluator) Ask(ctx context.Context, name, promptText string) (string, error) {
	raw, err := e.llm.Complete(ctx, client.UserPrompt(promptText, e.sampling))
	if err != nil {
		e.log.Error().Err(err).Str("exercise", name).Msg("Completion failed")
		return "", providerError(name, err)
	}
	return llmjson.Clean(raw), nil
}
