package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/windfall/drill_service/internal/client"
	"github.com/windfall/drill_service/internal/errors"
	"github.com/windfall/drill_service/internal/exercise"
)

// Sampling presets. Generation favors mild diversity while staying inside
// the JSON contract.
var (
	generationSampling = client.Sampling{Temperature: 0.9, TopP: 0.95, FrequencyPenalty: 0.6, PresencePenalty: 0.6, MaxTokens: 1200}
	listSampling       = client.Sampling{Temperature: 0.8, TopP: 0.9, FrequencyPenalty: 0.5, PresencePenalty: 0.5, MaxTokens: 800}
)

// AudioText is a text fragment with its synthesized audio, nil when
// synthesis failed.
type AudioText struct {
	Text     string  `json:"text"`
	AudioURL *string `json:"audio_url"`
}

// Attempt is one recorded spoken answer.
type Attempt struct {
	Audio    []byte
	Filename string
}

func (a Attempt) validate() error {
	if len(a.Audio) == 0 {
		return errors.Validation("audio file is required")
	}
	return nil
}

// clampInt returns def when v is zero, else v bounded to [lo, hi].
func clampInt(v, lo, hi, def int) int {
	switch {
	case v == 0:
		return def
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func childAudience(age int) string {
	return fmt.Sprintf("children aged %d", age)
}

func pick(options []string) string {
	return options[rand.IntN(len(options))]
}

func audioTextPrimary(items []AudioText) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}

func attachAudioText(items []AudioText, refs []*string) {
	for i := range items {
		if i < len(refs) {
			items[i].AudioURL = refs[i]
		}
	}
}

// trimAudioText drops blank entries and keeps at most n.
func trimAudioText(items []AudioText, n int) []AudioText {
	out := items[:0]
	for _, it := range items {
		if it.Text = strings.TrimSpace(it.Text); it.Text != "" {
			out = append(out, it)
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func cleanWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// scoreAttempt transcribes a and asks the model to grade the transcript.
// An empty transcript short-circuits with a zero score.
func scoreAttempt(ctx context.Context, ev *exercise.Evaluator, name string, a Attempt, task func(transcript string) string) (*exercise.Evaluation, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	transcript, err := ev.Transcribe(ctx, a.Audio, a.Filename)
	if err != nil {
		return nil, err
	}
	if transcript == "" {
		return &exercise.Evaluation{
			Score:    exercise.DefaultScore,
			Feedback: "No speech was detected in the recording. Please try again.",
			Status:   exercise.DefaultStatus,
			Message:  "Empty transcript",
		}, nil
	}

	result, err := ev.Evaluate(ctx, name, task(transcript))
	if err != nil {
		return nil, err
	}
	result.Transcript = transcript
	return &result, nil
}

// scorePrompt wraps a grading task with the shared feedback contract.
func scorePrompt(task, transcript string, scale int) string {
	var b strings.Builder
	b.WriteString("You are a supportive English speaking coach.\n")
	b.WriteString(task)
	fmt.Fprintf(&b, "\n\nThe learner said: %q\n\n", transcript)
	fmt.Fprintf(&b, "Score the attempt from 0 to %d.\n", scale)
	b.WriteString("Return ONLY a JSON object in this exact format:\n")
	fmt.Fprintf(&b, `{"score": "<0-%d>", "feedback": "<two short sentences of specific feedback>", "status": "success", "message": "<one encouraging sentence>"}`, scale)
	b.WriteString("\nDo not include any additional text, explanations, or formatting.")
	return b.String()
}
