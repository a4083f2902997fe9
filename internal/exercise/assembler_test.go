package exercise

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/client"
	"github.com/windfall/drill_service/internal/enrich"
	apperrors "github.com/windfall/drill_service/internal/errors"
	"github.com/windfall/drill_service/internal/prompt"
)

// mockCompleter replays canned replies in order and keeps the last prompt.
type mockCompleter struct {
	replies    []string
	err        error
	calls      int
	LastPrompt string
}

func (m *mockCompleter) Complete(_ context.Context, req client.CompletionRequest) (string, error) {
	m.LastPrompt = req.Messages[len(req.Messages)-1].Content
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

type wordItem struct {
	Word     string  `json:"word"`
	AudioURL *string `json:"audio_url"`
}

type wordSet struct {
	Words []wordItem `json:"words"`
}

func wordRecipe() Recipe[wordSet] {
	return Recipe[wordSet]{
		Name:     "pronunciation",
		Seeds:    []string{"pronunciation", "articulation"},
		ArrayKey: "words",
		Prompt: func(req Request) prompt.Spec {
			return prompt.Spec{Task: "Generate words", Count: req.Count, Example: `{"words":[{"word":"sun"}]}`}
		},
		Primary: func(out *wordSet) []string {
			items := make([]string, len(out.Words))
			for i, w := range out.Words {
				items[i] = w.Word
			}
			return items
		},
		Fragments: func(out *wordSet) []string {
			frags := make([]string, len(out.Words))
			for i, w := range out.Words {
				frags[i] = w.Word
			}
			return frags
		},
		Attach: func(out *wordSet, refs []*string) {
			for i := range out.Words {
				out.Words[i].AudioURL = refs[i]
			}
		},
	}
}

func wordsReply(words ...string) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf(`{"word":%q}`, w)
	}
	return "```json\n{\"words\":[" + strings.Join(parts, ",") + "]}\n```"
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []Generation
	err  error
}

func (o *recordingObserver) Observe(_ context.Context, g Generation) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, g)
	return o.err
}

func TestGenerateWithEmptyCacheUsesSeeds(t *testing.T) {
	llm := &mockCompleter{replies: []string{wordsReply("sun", "moon", "star", "tree", "leaf")}}
	a := New(Deps{LLM: llm, Log: zerolog.Nop()}, wordRecipe())

	out, err := a.Generate(context.Background(), Request{Count: 5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out.Words) != 5 {
		t.Fatalf("words: want=5 got=%d", len(out.Words))
	}
	if !strings.Contains(llm.LastPrompt, "pronunciation, articulation") {
		t.Fatalf("prompt should carry the seed exclusions:\n%s", llm.LastPrompt)
	}

	batches := a.Cache().Batches(context.Background())
	if len(batches) != 1 || len(batches[0]) != 5 {
		t.Fatalf("batches: want one batch of 5, got %v", batches)
	}
}

func TestGenerateKeepsLastFiveBatches(t *testing.T) {
	var replies []string
	for i := 1; i <= 6; i++ {
		replies = append(replies, wordsReply(fmt.Sprintf("b%d-a", i), fmt.Sprintf("b%d-b", i)))
	}
	llm := &mockCompleter{replies: replies}
	a := New(Deps{LLM: llm, Log: zerolog.Nop()}, wordRecipe())

	for i := 0; i < 6; i++ {
		if _, err := a.Generate(context.Background(), Request{Count: 2}); err != nil {
			t.Fatalf("Generate #%d: %v", i+1, err)
		}
	}

	batches := a.Cache().Batches(context.Background())
	if len(batches) != 5 {
		t.Fatalf("batches: want=5 got=%d", len(batches))
	}
	for i, b := range batches {
		if want := fmt.Sprintf("b%d-a", i+2); b[0] != want {
			t.Fatalf("batch %d: want=%q got=%q", i, want, b[0])
		}
	}
	if !strings.Contains(llm.LastPrompt, "b1-a") || strings.Contains(llm.LastPrompt, "b6-a") {
		t.Fatalf("sixth prompt should exclude batches 1..5 recorded before it:\n%s", llm.LastPrompt)
	}
	if strings.Contains(a.Cache().ExclusionText(context.Background()), "b1-a") {
		t.Fatalf("batch 1 should be evicted after the sixth call")
	}
}

func TestGenerateProviderErrorSkipsRecord(t *testing.T) {
	llm := &mockCompleter{err: errors.New("rate limited")}
	obs := &recordingObserver{}
	a := New(Deps{LLM: llm, Observers: []Observer{obs}, Log: zerolog.Nop()}, wordRecipe())

	_, err := a.Generate(context.Background(), Request{})
	if !apperrors.Is(err, apperrors.ErrAIService) {
		t.Fatalf("error: want AI_SERVICE_ERROR got %v", err)
	}
	if n := len(a.Cache().Batches(context.Background())); n != 0 {
		t.Fatalf("batches: want=0 got=%d", n)
	}
	if len(obs.seen) != 0 {
		t.Fatalf("observers should not run on failure")
	}
}

func TestGenerateMalformedReplyRecordsEmptyBatch(t *testing.T) {
	llm := &mockCompleter{replies: []string{"Sorry, I cannot help with that."}}
	a := New(Deps{LLM: llm, Log: zerolog.Nop()}, wordRecipe())

	out, err := a.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out.Words) != 0 {
		t.Fatalf("words: want none got %v", out.Words)
	}
	batches := a.Cache().Batches(context.Background())
	if len(batches) != 1 || len(batches[0]) != 0 {
		t.Fatalf("want one empty batch, got %v", batches)
	}
}

func TestGeneratePartialDecodeReturnsDefault(t *testing.T) {
	synth := &countingSynth{}
	llm := &mockCompleter{replies: []string{`{"words": [{"word": "cat"}, {"word": 7}]}`}}
	a := New(Deps{
		LLM:    llm,
		Fanout: enrich.New(synth, &mapStore{}, enrich.Options{}, zerolog.Nop()),
		Log:    zerolog.Nop(),
	}, wordRecipe())

	out, err := a.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out.Words) != 0 {
		t.Fatalf("words: want none got %+v", out.Words)
	}
	if synth.calls != 0 {
		t.Fatalf("synthesis calls: want=0 got=%d", synth.calls)
	}
	batches := a.Cache().Batches(context.Background())
	if len(batches) != 1 || len(batches[0]) != 0 {
		t.Fatalf("want one empty batch, got %v", batches)
	}
}

type countingSynth struct{ calls int }

func (s *countingSynth) Synthesize(context.Context, string, string) ([]byte, error) {
	s.calls++
	return []byte("mp3"), nil
}

func TestGenerateUsesFallback(t *testing.T) {
	r := wordRecipe()
	r.Fallback = func(Request) wordSet { return wordSet{Words: []wordItem{{Word: "cat"}}} }
	a := New(Deps{LLM: &mockCompleter{replies: []string{"no json"}}, Log: zerolog.Nop()}, r)

	out, err := a.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out.Words) != 1 || out.Words[0].Word != "cat" {
		t.Fatalf("fallback: got %v", out.Words)
	}
}

type stubSynth struct{ fail string }

func (s stubSynth) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	if text == s.fail {
		return nil, errors.New("tts down")
	}
	return []byte(text), nil
}

type mapStore struct {
	mu    sync.Mutex
	names []string
}

func (m *mapStore) Put(_ context.Context, name string, _ []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	return "/audio/" + name, nil
}

func TestGenerateAttachesAudio(t *testing.T) {
	fan := enrich.New(stubSynth{fail: "dog"}, &mapStore{}, enrich.Options{}, zerolog.Nop())
	llm := &mockCompleter{replies: []string{wordsReply("cat", "dog", "cat")}}
	obs := &recordingObserver{err: errors.New("observer down")}
	a := New(Deps{LLM: llm, Fanout: fan, Observers: []Observer{obs}, Log: zerolog.Nop()}, wordRecipe())

	out, err := a.Generate(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	w := out.Words
	if w[0].AudioURL == nil || w[2].AudioURL == nil || *w[0].AudioURL != *w[2].AudioURL {
		t.Fatalf("duplicate words should share audio")
	}
	if w[1].AudioURL != nil {
		t.Fatalf("failed synthesis should leave a nil url, got %q", *w[1].AudioURL)
	}

	if len(obs.seen) != 1 {
		t.Fatalf("observer calls: want=1 got=%d", len(obs.seen))
	}
	g := obs.seen[0]
	if g.Service != "pronunciation" || g.UserID != "u1" || len(g.Items) != 3 {
		t.Fatalf("generation: got %+v", g)
	}
}

func TestGenerateWarnsOnOverlapButKeepsOutput(t *testing.T) {
	llm := &mockCompleter{replies: []string{wordsReply("Pronunciation", "tone")}}
	a := New(Deps{LLM: llm, Log: zerolog.Nop()}, wordRecipe())

	out, err := a.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out.Words) != 2 {
		t.Fatalf("overlapping items must not be filtered, got %v", out.Words)
	}
}
