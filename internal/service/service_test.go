package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/client"
	"github.com/windfall/drill_service/internal/enrich"
	apperrors "github.com/windfall/drill_service/internal/errors"
	"github.com/windfall/drill_service/internal/exercise"
	"github.com/windfall/drill_service/internal/repository"
)

// scriptedLLM replies with the first reply whose key appears in the prompt.
type scriptedLLM struct {
	mu      sync.Mutex
	replies map[string]string
	prompts []string
	err     error
}

func (s *scriptedLLM) Complete(_ context.Context, req client.CompletionRequest) (string, error) {
	p := req.Messages[len(req.Messages)-1].Content
	s.mu.Lock()
	s.prompts = append(s.prompts, p)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	for key, reply := range s.replies {
		if strings.Contains(p, key) {
			return reply, nil
		}
	}
	return "", nil
}

func (s *scriptedLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

type okSynth struct {
	mu    sync.Mutex
	calls int
}

func (s *okSynth) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return []byte(text), nil
}

type nameStore struct{}

func (nameStore) Put(_ context.Context, name string, _ []byte, _ string) (string, error) {
	return "/audio/" + name, nil
}

type fixedSTT struct {
	text string
	err  error
}

func (f fixedSTT) Transcribe(context.Context, []byte, string, string) (string, error) {
	return f.text, f.err
}

type fixedImages struct {
	url string
	err error
}

func (f fixedImages) GenerateImage(context.Context, string, string, string) (string, error) {
	return f.url, f.err
}

func testDeps(llm client.Completer, synth client.Synthesizer, observers ...exercise.Observer) exercise.Deps {
	deps := exercise.Deps{LLM: llm, Observers: observers, Log: zerolog.Nop()}
	if synth != nil {
		deps.Fanout = enrich.New(synth, nameStore{}, enrich.Options{}, zerolog.Nop())
	}
	return deps
}

func TestSightWordsClampsAndAttachesAudio(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{
		"sight words": `{"items": [
			{"word": "each", "definition": ["every one"], "sentence": "Each cat sat.", "quiz": ["each", "eat", "ear"], "answer": "each"},
			{"word": "which", "sentence": "Which one?", "quiz": ["which", "witch", "wish"], "answer": "which"},
			{"word": "she"}, {"word": "do"}, {"word": "how"}, {"word": "if"}]}`,
	}}
	synth := &okSynth{}
	svc := NewReadingService(testDeps(llm, synth), nil, ImageOptions{}, zerolog.Nop())

	out, err := svc.SightWords(context.Background(), "u1", 2, 9)
	if err != nil {
		t.Fatalf("SightWords: %v", err)
	}
	if len(out.Items) != 5 {
		t.Fatalf("items: want=5 (clamped) got=%d", len(out.Items))
	}
	if out.Grade != 2 {
		t.Fatalf("grade: want=2 got=%d", out.Grade)
	}
	for _, it := range out.Items {
		if it.AudioURL == nil {
			t.Fatalf("word %q has no audio", it.Word)
		}
	}
	if !strings.Contains(llm.lastPrompt(), "people") {
		t.Fatalf("prompt should list the grade 2 words")
	}
}

func TestComprehensionFallbackAndImage(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"story": "I can't write that."}}
	svc := NewReadingService(testDeps(llm, nil), fixedImages{url: "https://img/cat.png"}, ImageOptions{Size: "1024x1024"}, zerolog.Nop())

	out, err := svc.Comprehension(context.Background(), "", 20)
	if err != nil {
		t.Fatalf("Comprehension: %v", err)
	}
	if out.PassageName != "The Friendly Cat" || len(out.Questions) != 3 {
		t.Fatalf("fallback passage: got %+v", out)
	}
	if out.ImageURL == nil || *out.ImageURL != "https://img/cat.png" {
		t.Fatalf("image url: got %v", out.ImageURL)
	}

	svc = NewReadingService(testDeps(llm, nil), fixedImages{err: errors.New("quota")}, ImageOptions{}, zerolog.Nop())
	out, err = svc.Comprehension(context.Background(), "", 6)
	if err != nil || out.ImageURL != nil {
		t.Fatalf("image failure should leave nil url: %v %v", out.ImageURL, err)
	}
}

func TestPhonemeFlashcardSplitsLetters(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"phoneme": `{"word": "Lamp"}`}}
	svc := NewReadingService(testDeps(llm, &okSynth{}), nil, ImageOptions{}, zerolog.Nop())

	out, err := svc.PhonemeFlashcard(context.Background(), "", 6)
	if err != nil {
		t.Fatalf("PhonemeFlashcard: %v", err)
	}
	if out.Word != "lamp" || strings.Join(out.Letters, "") != "lamp" || len(out.Letters) != 4 {
		t.Fatalf("flashcard: got %+v", out)
	}
	if out.AudioURL == nil {
		t.Fatalf("want audio")
	}

	llm.replies = map[string]string{"phoneme": `{"word": "a"}`}
	out, _ = svc.PhonemeFlashcard(context.Background(), "", 8)
	found := false
	for _, w := range fallbackFlashcardWords[8] {
		found = found || w == out.Word
	}
	if !found {
		t.Fatalf("short word should fall back to the age list, got %q", out.Word)
	}
}

func TestAuditoryDiscriminationSharesAudio(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"same-or-different": `{"pairs": [
		{"word1": "pin", "word2": "pen", "answer": "same"},
		{"word1": "cup", "word2": "Cup", "answer": "different"}]}`}}
	synth := &okSynth{}
	svc := NewAdultService(testDeps(llm, synth), nil, zerolog.Nop())

	out, err := svc.AuditoryDiscrimination(context.Background(), "")
	if err != nil {
		t.Fatalf("AuditoryDiscrimination: %v", err)
	}
	if out.Pairs[0].Answer != "different" || out.Pairs[1].Answer != "same" {
		t.Fatalf("answers should follow the words: %+v", out.Pairs)
	}
	if out.Pairs[0].Audio1URL == nil || out.Pairs[0].Audio2URL == nil {
		t.Fatalf("missing audio")
	}
	same := out.Pairs[1]
	if same.Word1 != "cup" || same.Word2 != "cup" {
		t.Fatalf("words should be lowercased: %+v", same)
	}
	if same.Audio1URL == nil || same.Audio2URL == nil || *same.Audio1URL != *same.Audio2URL {
		t.Fatalf("a same pair should share one audio url: %v %v", same.Audio1URL, same.Audio2URL)
	}
	// pin, pen, cup
	if synth.calls != 3 {
		t.Fatalf("synthesis calls: want=3 got=%d", synth.calls)
	}
}

func TestPhonemeMappingAudioPerSyllable(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"syllables": `{"answers": [["win","dow"],["pa","per"]], "options": [["win","ter"]]}`}}
	synth := &okSynth{}
	svc := NewAdultService(testDeps(llm, synth), nil, zerolog.Nop())

	out, err := svc.PhonemeMapping(context.Background(), "")
	if err != nil {
		t.Fatalf("PhonemeMapping: %v", err)
	}
	if len(out.AudioURLs) != 5 {
		t.Fatalf("audio map: want 5 syllables got %d", len(out.AudioURLs))
	}
	if synth.calls != 5 {
		t.Fatalf("synthesis calls: want=5 got=%d", synth.calls)
	}
}

func TestPhrasesKeepTwoToFiveWords(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"PHRASES": `{"phrases": [["under","the","bridge"],["alone"],["one","two","three","four","five","six"],["after","lunch"]]}`}}
	svc := NewAdultService(testDeps(llm, nil), nil, zerolog.Nop())

	out, err := svc.Phrases(context.Background(), "")
	if err != nil {
		t.Fatalf("Phrases: %v", err)
	}
	if len(out.Phrases) != 2 {
		t.Fatalf("phrases: want 2 valid got %v", out.Phrases)
	}
}

func TestScoreWordFlash(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"meticulous": `{"score": 8, "feedback": "Good", "status": "success", "message": "Well done"}`}}
	ev := exercise.NewEvaluator(llm, fixedSTT{text: "meticulous planning"}, zerolog.Nop())
	svc := NewAdultService(testDeps(llm, nil), ev, zerolog.Nop())

	res, err := svc.ScoreWordFlash(context.Background(), "meticulous", Attempt{Audio: []byte("wav"), Filename: "a.wav"})
	if err != nil {
		t.Fatalf("ScoreWordFlash: %v", err)
	}
	if res.Score != "8" || res.Transcript != "meticulous planning" {
		t.Fatalf("evaluation: got %+v", res)
	}

	if _, err := svc.ScoreWordFlash(context.Background(), "meticulous", Attempt{}); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("missing audio: want validation error got %v", err)
	}
}

func TestScoreEmptyTranscriptSkipsModel(t *testing.T) {
	llm := &scriptedLLM{}
	ev := exercise.NewEvaluator(llm, fixedSTT{text: "  "}, zerolog.Nop())
	svc := NewSpeakingService(testDeps(llm, nil), ev, zerolog.Nop())

	res, err := svc.ScoreRepeat(context.Background(), "pronunciation", "butterfly", Attempt{Audio: []byte("x")})
	if err != nil {
		t.Fatalf("ScoreRepeat: %v", err)
	}
	if res.Score != "0" || res.Status != "error" {
		t.Fatalf("evaluation: got %+v", res)
	}
	if len(llm.prompts) != 0 {
		t.Fatalf("model should not be called for an empty transcript")
	}

	if _, err := svc.ScoreRepeat(context.Background(), "karaoke", "x", Attempt{Audio: []byte("x")}); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("unknown kind: want validation error got %v", err)
	}
}

func TestPronunciationSeedsInFirstPrompt(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"pronunciation practice": `{"words": [{"text": "rabbit"}]}`}}
	svc := NewSpeakingService(testDeps(llm, &okSynth{}), nil, zerolog.Nop())

	out, err := svc.Pronunciation(context.Background(), "", 6)
	if err != nil {
		t.Fatalf("Pronunciation: %v", err)
	}
	if len(out.Words) != 1 || out.Words[0].AudioURL == nil {
		t.Fatalf("words: got %+v", out.Words)
	}
	if !strings.Contains(llm.lastPrompt(), "pronunciation, articulation, vocabulary, communication, fluency") {
		t.Fatalf("first prompt should carry the seeds:\n%s", llm.lastPrompt())
	}

	svc.Pronunciation(context.Background(), "", 6)
	if !strings.Contains(llm.lastPrompt(), "fluency, rabbit") {
		t.Fatalf("second prompt should exclude the first batch:\n%s", llm.lastPrompt())
	}
}

func TestPowerWordsTrimToTen(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"theme": "vision", "words": [`)
	for i := 0; i < 12; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"word": "w` + string(rune('a'+i)) + `"}`)
	}
	b.WriteString("]}")
	llm := &scriptedLLM{replies: map[string]string{"power words": b.String()}}
	svc := NewPresentationService(testDeps(llm, nil), nil, zerolog.Nop())

	out, err := svc.PowerWords(context.Background(), "")
	if err != nil {
		t.Fatalf("PowerWords: %v", err)
	}
	if len(out.Words) != 10 || out.Theme != "vision" {
		t.Fatalf("power words: theme=%q words=%d", out.Theme, len(out.Words))
	}
}

func TestContextSpinScoreValidation(t *testing.T) {
	svc := NewPresentationService(testDeps(&scriptedLLM{}, nil), exercise.NewEvaluator(&scriptedLLM{}, fixedSTT{}, zerolog.Nop()), zerolog.Nop())
	_, err := svc.ScoreContextSpin(context.Background(), "", []string{"a"}, Attempt{Audio: []byte("x")})
	if !apperrors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestProviderErrorPropagates(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("provider down")}
	svc := NewPresentationService(testDeps(llm, nil), nil, zerolog.Nop())
	_, err := svc.FlowChain(context.Background(), "")
	if apperrors.From(err).HTTPStatus() != 500 {
		t.Fatalf("want a 500 class error, got %v", err)
	}
}

func TestWritingTopic(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{"Topic: Cooking": `{"words": ["bake", "oven"]}`}}
	svc := NewWritingService(testDeps(llm, nil), nil, zerolog.Nop())

	out, err := svc.Topic(context.Background(), "", "cooking")
	if err != nil {
		t.Fatalf("Topic: %v", err)
	}
	want := []string{"bake", "oven", "Cooking_related", "Cooking_related", "Cooking_related"}
	if strings.Join(out.Words, ",") != strings.Join(want, ",") {
		t.Fatalf("words: want=%v got=%v", want, out.Words)
	}

	if _, err := svc.Topic(context.Background(), "", "Astrology"); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("unknown topic: want validation error got %v", err)
	}
}

func TestWritingFinal(t *testing.T) {
	llm := &scriptedLLM{replies: map[string]string{
		"Rate the grammar": "Score: 8",
		"motivational":     "Great job, keep writing!",
	}}
	ev := exercise.NewEvaluator(llm, fixedSTT{}, zerolog.Nop())
	svc := NewWritingService(testDeps(llm, nil), ev, zerolog.Nop())

	res, err := svc.Final(context.Background(), WritingSubmission{
		Topic: "Cooking",
		Words: []string{"bake", "Oven", "spoon"},
		Text:  "I bake bread in the oven every Sunday.",
	})
	if err != nil {
		t.Fatalf("Final: %v", err)
	}
	// grammar 8, two words used -> (8 + 4) / 2 = 6
	if res.SentenceScore != 6 {
		t.Fatalf("score: want=6 got=%d", res.SentenceScore)
	}
	if n := len(strings.Fields(res.Motivation)); n != 10 {
		t.Fatalf("motivation words: want=10 got=%d (%q)", n, res.Motivation)
	}
}

func TestWritingFinalProviderFailureUsesDefaults(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("timeout")}
	ev := exercise.NewEvaluator(llm, fixedSTT{}, zerolog.Nop())
	svc := NewWritingService(testDeps(llm, nil), ev, zerolog.Nop())

	res, err := svc.Final(context.Background(), WritingSubmission{
		Topic: "Cooking",
		Words: []string{"bake", "oven"},
		Text:  "I bake bread in the oven.",
	})
	if err != nil {
		t.Fatalf("Final: %v", err)
	}
	if res.GrammarScore != 5 {
		t.Fatalf("grammar: want=5 got=%v", res.GrammarScore)
	}
	// (5 + 4) / 2 = 4.5 rounds to even
	if res.SentenceScore != 4 {
		t.Fatalf("score: want=4 got=%d", res.SentenceScore)
	}
	if len(strings.Fields(res.Motivation)) != 10 {
		t.Fatalf("motivation: want 10 words got %q", res.Motivation)
	}
}

func TestFinalScore(t *testing.T) {
	tests := []struct {
		grammar float64
		used    int
		want    int
	}{
		{10, 5, 10},
		{10, 9, 10},
		{5, 0, 2},
		{7, 1, 4},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := FinalScore(tt.grammar, tt.used); got != tt.want {
			t.Fatalf("FinalScore(%v, %d): want=%d got=%d", tt.grammar, tt.used, tt.want, got)
		}
	}
}

func TestParseGrammarScore(t *testing.T) {
	tests := map[string]float64{
		"7":                 7,
		"Score: 8.5/10":     8.5,
		"no number here":    5,
		"I would say 42":    10,
		"The grammar is 3.": 3,
	}
	for in, want := range tests {
		if got := ParseGrammarScore(in); got != want {
			t.Fatalf("ParseGrammarScore(%q): want=%v got=%v", in, want, got)
		}
	}
}

func TestNormalizeMotivation(t *testing.T) {
	if got := NormalizeMotivation("Nice"); got != "Nice going! You can do it! Practice more! Stay motivated!" {
		t.Fatalf("pad: got %q", got)
	}
	long := "one two three four five six seven eight nine ten eleven"
	if got := NormalizeMotivation(long); got != "one two three four five six seven eight nine ten" {
		t.Fatalf("trim: got %q", got)
	}
}

func TestUsedWordsMatchesWholeWords(t *testing.T) {
	got := UsedWords("The cathedral was big. A cat slept.", []string{"cat", "dog", "Big", " "})
	if strings.Join(got, ",") != "cat,Big" {
		t.Fatalf("used: got %v", got)
	}
}

type fakeVerifier struct {
	valid bool
	err   error
	calls int
}

func (f *fakeVerifier) Verify(context.Context, string) (bool, error) {
	f.calls++
	return f.valid, f.err
}

func TestAuthServiceValidateToken(t *testing.T) {
	v := &fakeVerifier{valid: true}
	svc := NewAuthService(v, "", zerolog.Nop())
	if err := svc.ValidateToken(context.Background(), "abc"); err != nil {
		t.Fatalf("valid token: %v", err)
	}
	if err := svc.ValidateToken(context.Background(), ""); !apperrors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("empty token: want unauthorized got %v", err)
	}

	v.valid = false
	if err := svc.ValidateToken(context.Background(), "abc"); !apperrors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("invalid token: want unauthorized got %v", err)
	}

	v.err = errors.New("backend down")
	if err := svc.ValidateToken(context.Background(), "abc"); !apperrors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("backend error: want unauthorized got %v", err)
	}
}

func TestAuthServiceBypass(t *testing.T) {
	v := &fakeVerifier{}
	svc := NewAuthService(v, "letmein", zerolog.Nop())
	if !svc.BypassEnabled() {
		t.Fatalf("bypass should be enabled")
	}
	if err := svc.ValidateToken(context.Background(), "letmein"); err != nil {
		t.Fatalf("bypass token: %v", err)
	}
	if v.calls != 0 {
		t.Fatalf("bypass must not reach the backend")
	}
	if NewAuthService(v, "", zerolog.Nop()).BypassEnabled() {
		t.Fatalf("bypass should be disabled by default")
	}
}

type recordingPublisher struct {
	attrs map[string]string
	err   error
}

func (p *recordingPublisher) PublishWithAttributes(_ context.Context, _ interface{}, attrs map[string]string) error {
	p.attrs = attrs
	return p.err
}

func TestHistoryServiceObserveAndRecent(t *testing.T) {
	repo := repository.NewInMemoryGenerationRepository(0)
	pub := &recordingPublisher{}
	history := NewHistoryService(repo, pub, zerolog.Nop())

	llm := &scriptedLLM{replies: map[string]string{"PHRASES": `{"phrases": [["after","lunch"]]}`}}
	svc := NewAdultService(testDeps(llm, nil, history), nil, zerolog.Nop())
	if _, err := svc.Phrases(context.Background(), "user-7"); err != nil {
		t.Fatalf("Phrases: %v", err)
	}

	recs, err := history.Recent(context.Background(), "phrase_maker", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 || recs[0].UserID != "user-7" || recs[0].Items[0] != "after lunch" {
		t.Fatalf("records: got %+v", recs)
	}
	if pub.attrs["service"] != "phrase_maker" {
		t.Fatalf("event attributes: got %v", pub.attrs)
	}

	if _, err := history.Recent(context.Background(), " ", 10); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("blank service: want validation error got %v", err)
	}
}

func TestHistoryServicePublishFailure(t *testing.T) {
	history := NewHistoryService(repository.NewInMemoryGenerationRepository(0), &recordingPublisher{err: errors.New("down")}, zerolog.Nop())
	err := history.Observe(context.Background(), exercise.Generation{Service: "x"})
	if !apperrors.Is(err, apperrors.ErrPubSubService) {
		t.Fatalf("want pubsub error got %v", err)
	}
}
