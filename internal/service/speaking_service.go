package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/errors"
	"github.com/windfall/drill_service/internal/exercise"
	"github.com/windfall/drill_service/internal/prompt"
)

// SentenceSet is the listen-and-speak response.
type SentenceSet struct {
	Sentences []AudioText `json:"sentences"`
}

// PhraseAudioSet is the phrase repeat response.
type PhraseAudioSet struct {
	Phrases []AudioText `json:"phrases"`
}

// WordAudioSet is the pronunciation response.
type WordAudioSet struct {
	Words []AudioText `json:"words"`
}

// VocabularyWord is a word with its meaning.
type VocabularyWord struct {
	Word       string  `json:"word"`
	Definition string  `json:"definition"`
	Example    string  `json:"example"`
	AudioURL   *string `json:"audio_url"`
}

// VocabularySet is the vocabulary challenge response.
type VocabularySet struct {
	Words []VocabularyWord `json:"words"`
}

// SpeakingService generates and scores the children's speaking drills.
type SpeakingService struct {
	listenSpeak   *exercise.Assembler[SentenceSet]
	phraseRepeat  *exercise.Assembler[PhraseAudioSet]
	pronunciation *exercise.Assembler[WordAudioSet]
	vocabulary    *exercise.Assembler[VocabularySet]
	evaluator     *exercise.Evaluator
	log           zerolog.Logger
}

// NewSpeakingService creates a SpeakingService.
func NewSpeakingService(deps exercise.Deps, evaluator *exercise.Evaluator, log zerolog.Logger) *SpeakingService {
	return &SpeakingService{
		listenSpeak:   exercise.New(deps, listenSpeakRecipe()),
		phraseRepeat:  exercise.New(deps, phraseRepeatRecipe()),
		pronunciation: exercise.New(deps, pronunciationRecipe()),
		vocabulary:    exercise.New(deps, vocabularyRecipe()),
		evaluator:     evaluator,
		log:           log.With().Str("service", "speaking").Logger(),
	}
}

func speakingRequest(userID string, age int) exercise.Request {
	return exercise.Request{UserID: userID, Age: clampInt(age, 4, 12, 7), Count: 5}
}

// ListenSpeak returns 5 sentences with audio for age.
func (s *SpeakingService) ListenSpeak(ctx context.Context, userID string, age int) (*SentenceSet, error) {
	out, err := s.listenSpeak.Generate(ctx, speakingRequest(userID, age))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PhraseRepeat returns 5 phrases with audio for age.
func (s *SpeakingService) PhraseRepeat(ctx context.Context, userID string, age int) (*PhraseAudioSet, error) {
	out, err := s.phraseRepeat.Generate(ctx, speakingRequest(userID, age))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Pronunciation returns 5 words with audio for age.
func (s *SpeakingService) Pronunciation(ctx context.Context, userID string, age int) (*WordAudioSet, error) {
	out, err := s.pronunciation.Generate(ctx, speakingRequest(userID, age))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Vocabulary returns 5 words with definitions and audio for age.
func (s *SpeakingService) Vocabulary(ctx context.Context, userID string, age int) (*VocabularySet, error) {
	out, err := s.vocabulary.Generate(ctx, speakingRequest(userID, age))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ScoreRepeat grades how closely the recording matches target. kind is one
// of listen_speak, phrase_repeat, pronunciation or vocabulary_challenge.
func (s *SpeakingService) ScoreRepeat(ctx context.Context, kind, target string, a Attempt) (*exercise.Evaluation, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.Validation("target text is required")
	}

	var task string
	switch kind {
	case "listen_speak":
		task = fmt.Sprintf("A child listened to the sentence %q and repeated it.", target)
	case "phrase_repeat":
		task = fmt.Sprintf("A child repeated the phrase %q.", target)
	case "pronunciation":
		task = fmt.Sprintf("A child practiced pronouncing the word %q.", target)
	case "vocabulary_challenge":
		task = fmt.Sprintf("A child was asked to say the word %q and use it in a sentence.", target)
	default:
		return nil, errors.Validation("unknown speaking exercise: " + kind)
	}
	task += " Be encouraging and judge accuracy and completeness."

	return scoreAttempt(ctx, s.evaluator, kind, a, func(transcript string) string {
		return scorePrompt(task, transcript, 10)
	})
}

func listenSpeakRecipe() exercise.Recipe[SentenceSet] {
	return exercise.Recipe[SentenceSet]{
		Name:     "listen_speak",
		Seeds:    []string{"The cat is on the mat.", "I like to play."},
		ArrayKey: "sentences",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:           "You are an English teacher for young learners.",
				Task:           "Generate short sentences for a listen-and-repeat exercise.",
				Audience:       childAudience(req.Age),
				Count:          req.Count,
				ExclusionLabel: "sentences",
				Rules:          []string{"4 to 8 words per sentence", "Everyday vocabulary"},
				Schema:         "sentences: list of {text}",
				Example:        `{"sentences": [{"text": "The dog runs in the park."}]}`,
			}
		},
		Finish:    func(out *SentenceSet, req exercise.Request) { out.Sentences = trimAudioText(out.Sentences, req.Count) },
		Primary:   func(out *SentenceSet) []string { return audioTextPrimary(out.Sentences) },
		Fragments: func(out *SentenceSet) []string { return audioTextPrimary(out.Sentences) },
		Attach:    func(out *SentenceSet, refs []*string) { attachAudioText(out.Sentences, refs) },
	}
}

func phraseRepeatRecipe() exercise.Recipe[PhraseAudioSet] {
	return exercise.Recipe[PhraseAudioSet]{
		Name:     "phrase_repeat",
		Seeds:    []string{"good morning", "thank you", "see you later"},
		ArrayKey: "phrases",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:           "You are an English teacher for young learners.",
				Task:           "Generate short everyday phrases to repeat aloud.",
				Audience:       childAudience(req.Age),
				Count:          req.Count,
				ExclusionLabel: "phrases",
				Rules:          []string{"2 to 5 words per phrase"},
				Schema:         "phrases: list of {text}",
				Example:        `{"phrases": [{"text": "under the bridge"}]}`,
			}
		},
		Finish:    func(out *PhraseAudioSet, req exercise.Request) { out.Phrases = trimAudioText(out.Phrases, req.Count) },
		Primary:   func(out *PhraseAudioSet) []string { return audioTextPrimary(out.Phrases) },
		Fragments: func(out *PhraseAudioSet) []string { return audioTextPrimary(out.Phrases) },
		Attach:    func(out *PhraseAudioSet, refs []*string) { attachAudioText(out.Phrases, refs) },
	}
}

func pronunciationRecipe() exercise.Recipe[WordAudioSet] {
	return exercise.Recipe[WordAudioSet]{
		Name:     "pronunciation",
		Seeds:    []string{"pronunciation", "articulation", "vocabulary", "communication", "fluency"},
		ArrayKey: "words",
		Sampling: listSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a speech coach for children.",
				Task:     "Generate words for pronunciation practice.",
				Audience: childAudience(req.Age),
				Count:    req.Count,
				Rules:    []string{"Age appropriate words with clear sounds", "Single words only"},
				Schema:   "words: list of {text}",
				Example:  `{"words": [{"text": "butterfly"}]}`,
			}
		},
		Finish:    func(out *WordAudioSet, req exercise.Request) { out.Words = trimAudioText(out.Words, req.Count) },
		Primary:   func(out *WordAudioSet) []string { return audioTextPrimary(out.Words) },
		Fragments: func(out *WordAudioSet) []string { return audioTextPrimary(out.Words) },
		Attach:    func(out *WordAudioSet, refs []*string) { attachAudioText(out.Words, refs) },
	}
}

func vocabularyRecipe() exercise.Recipe[VocabularySet] {
	words := func(out *VocabularySet) []string {
		ws := make([]string, len(out.Words))
		for i, w := range out.Words {
			ws[i] = w.Word
		}
		return ws
	}
	return exercise.Recipe[VocabularySet]{
		Name:     "vocabulary_challenge",
		Seeds:    []string{"happy", "big", "friend"},
		ArrayKey: "words",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a vocabulary teacher for children.",
				Task:     "Generate new vocabulary words with a simple definition and example sentence.",
				Audience: childAudience(req.Age),
				Count:    req.Count,
				Schema:   "words: list of {word, definition, example}",
				Example:  `{"words": [{"word": "curious", "definition": "wanting to know more", "example": "The curious cat looked in the box."}]}`,
			}
		},
		Finish: func(out *VocabularySet, req exercise.Request) {
			kept := out.Words[:0]
			for _, w := range out.Words {
				if w.Word = strings.TrimSpace(w.Word); w.Word != "" {
					kept = append(kept, w)
				}
			}
			if len(kept) > req.Count {
				kept = kept[:req.Count]
			}
			out.Words = kept
		},
		Primary:   words,
		Fragments: words,
		Attach: func(out *VocabularySet, refs []*string) {
			for i := range out.Words {
				out.Words[i].AudioURL = refs[i]
			}
		},
	}
}
