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

// FlashWord is a challenging word for adult learners.
type FlashWord struct {
	Word       string  `json:"word"`
	Definition string  `json:"definition"`
	Example    string  `json:"example"`
	AudioURL   *string `json:"audio_url"`
}

// WordFlashSet is the word flash response.
type WordFlashSet struct {
	Words []FlashWord `json:"words"`
}

// WordPart is a prefix, root or suffix.
type WordPart struct {
	Part     string   `json:"part"`
	Meaning  string   `json:"meaning"`
	Examples []string `json:"examples"`
}

// WordParts is the word parts workshop response.
type WordParts struct {
	Prefixes []WordPart `json:"prefixes"`
	Roots    []WordPart `json:"roots"`
	Suffixes []WordPart `json:"suffixes"`
}

// SentenceWords holds sentences split into words for reordering.
type SentenceWords struct {
	Sentences [][]string `json:"sentences"`
}

// PhraseWords holds short phrases split into words.
type PhraseWords struct {
	Phrases [][]string `json:"phrases"`
}

// PhonemeMapping holds words split into syllables. AudioURLs is keyed by
// syllable and covers both answers and options.
type PhonemeMapping struct {
	Answers   [][]string         `json:"answers"`
	Options   [][]string         `json:"options"`
	AudioURLs map[string]*string `json:"audio_urls"`
}

// WordPair is one same-or-different listening item.
type WordPair struct {
	Word1     string  `json:"word1"`
	Word2     string  `json:"word2"`
	Answer    string  `json:"answer"`
	Audio1URL *string `json:"audio1_url"`
	Audio2URL *string `json:"audio2_url"`
}

// AuditoryDiscrimination is the auditory discrimination response.
type AuditoryDiscrimination struct {
	Pairs []WordPair `json:"pairs"`
}

// AdultService generates the adult literacy drills.
type AdultService struct {
	wordFlash       *exercise.Assembler[WordFlashSet]
	wordParts       *exercise.Assembler[WordParts]
	sentenceBuilder *exercise.Assembler[SentenceWords]
	phraseMaker     *exercise.Assembler[PhraseWords]
	phonemeMapping  *exercise.Assembler[PhonemeMapping]
	auditory        *exercise.Assembler[AuditoryDiscrimination]
	evaluator       *exercise.Evaluator
	log             zerolog.Logger
}

// NewAdultService creates an AdultService.
func NewAdultService(deps exercise.Deps, evaluator *exercise.Evaluator, log zerolog.Logger) *AdultService {
	return &AdultService{
		wordFlash:       exercise.New(deps, wordFlashRecipe()),
		wordParts:       exercise.New(deps, wordPartsRecipe()),
		sentenceBuilder: exercise.New(deps, sentenceBuilderRecipe()),
		phraseMaker:     exercise.New(deps, phraseMakerRecipe()),
		phonemeMapping:  exercise.New(deps, phonemeMappingRecipe()),
		auditory:        exercise.New(deps, auditoryRecipe()),
		evaluator:       evaluator,
		log:             log.With().Str("service", "adult").Logger(),
	}
}

// WordFlash returns 5 challenging words with audio.
func (s *AdultService) WordFlash(ctx context.Context, userID string) (*WordFlashSet, error) {
	out, err := s.wordFlash.Generate(ctx, exercise.Request{UserID: userID, Count: 5})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ScoreWordFlash grades a spoken attempt at word.
func (s *AdultService) ScoreWordFlash(ctx context.Context, word string, a Attempt) (*exercise.Evaluation, error) {
	if strings.TrimSpace(word) == "" {
		return nil, errors.Validation("word is required")
	}
	return scoreAttempt(ctx, s.evaluator, "word_flash", a, func(transcript string) string {
		task := fmt.Sprintf("An adult learner read the word %q aloud and used it in a sentence. Judge pronunciation and correct usage.", word)
		return scorePrompt(task, transcript, 10)
	})
}

// WordParts returns prefixes, roots and suffixes with meanings.
func (s *AdultService) WordParts(ctx context.Context, userID string) (*WordParts, error) {
	out, err := s.wordParts.Generate(ctx, exercise.Request{UserID: userID, Count: 3})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Sentences returns 5 sentences split into words.
func (s *AdultService) Sentences(ctx context.Context, userID string) (*SentenceWords, error) {
	out, err := s.sentenceBuilder.Generate(ctx, exercise.Request{UserID: userID, Count: 5})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Phrases returns 5 phrases of 2 to 5 words.
func (s *AdultService) Phrases(ctx context.Context, userID string) (*PhraseWords, error) {
	out, err := s.phraseMaker.Generate(ctx, exercise.Request{UserID: userID, Count: 5})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PhonemeMapping returns syllable-split words with audio per syllable.
func (s *AdultService) PhonemeMapping(ctx context.Context, userID string) (*PhonemeMapping, error) {
	out, err := s.phonemeMapping.Generate(ctx, exercise.Request{UserID: userID, Count: 5})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditoryDiscrimination returns 5 word pairs with audio.
func (s *AdultService) AuditoryDiscrimination(ctx context.Context, userID string) (*AuditoryDiscrimination, error) {
	out, err := s.auditory.Generate(ctx, exercise.Request{UserID: userID, Count: 5})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func wordFlashRecipe() exercise.Recipe[WordFlashSet] {
	words := func(out *WordFlashSet) []string {
		ws := make([]string, len(out.Words))
		for i, w := range out.Words {
			ws[i] = w.Word
		}
		return ws
	}
	return exercise.Recipe[WordFlashSet]{
		Name:     "word_flash",
		Seeds:    []string{"ubiquitous", "ephemeral", "serendipity", "eloquent", "resilient"},
		ArrayKey: "words",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are an adult literacy tutor.",
				Task:     "Generate challenging but useful English words for flash reading practice.",
				Audience: "adult learners",
				Count:    req.Count,
				Schema:   "words: list of {word, definition, example}",
				Example:  `{"words": [{"word": "meticulous", "definition": "very careful about details", "example": "She kept meticulous records."}]}`,
			}
		},
		Finish: func(out *WordFlashSet, req exercise.Request) {
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
		Attach: func(out *WordFlashSet, refs []*string) {
			for i := range out.Words {
				out.Words[i].AudioURL = refs[i]
			}
		},
	}
}

func wordPartsRecipe() exercise.Recipe[WordParts] {
	return exercise.Recipe[WordParts]{
		Name:     "word_parts",
		Seeds:    []string{"un", "re", "pre", "able", "ing"},
		Sampling: listSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:           "You are an adult literacy tutor teaching word building.",
				Task:           fmt.Sprintf("Generate %d prefixes, %d roots and %d suffixes with meanings and two example words each.", req.Count, req.Count, req.Count),
				Audience:       "adult learners",
				ExclusionLabel: "word parts",
				Schema:         "prefixes, roots, suffixes: each a list of {part, meaning, examples: [string]}",
				Example:        `{"prefixes": [{"part": "dis", "meaning": "not", "examples": ["disagree", "dislike"]}], "roots": [{"part": "port", "meaning": "carry", "examples": ["transport", "portable"]}], "suffixes": [{"part": "ful", "meaning": "full of", "examples": ["hopeful", "careful"]}]}`,
			}
		},
		Primary: func(out *WordParts) []string {
			var parts []string
			for _, group := range [][]WordPart{out.Prefixes, out.Roots, out.Suffixes} {
				for _, p := range group {
					parts = append(parts, p.Part)
				}
			}
			return parts
		},
	}
}

// keepWordLists drops lists whose length is outside [lo, hi] and keeps at
// most n.
func keepWordLists(lists [][]string, lo, hi, n int) [][]string {
	out := make([][]string, 0, n)
	for _, l := range lists {
		l = cleanWords(l)
		if len(l) < lo || len(l) > hi {
			continue
		}
		out = append(out, l)
		if len(out) == n {
			break
		}
	}
	return out
}

func joinLists(lists [][]string, sep string) []string {
	out := make([]string, len(lists))
	for i, l := range lists {
		out[i] = strings.Join(l, sep)
	}
	return out
}

func sentenceBuilderRecipe() exercise.Recipe[SentenceWords] {
	return exercise.Recipe[SentenceWords]{
		Name:     "sentence_builder",
		Seeds:    []string{"The quick brown fox jumps over the lazy dog", "I go to work every day"},
		ArrayKey: "sentences",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:           "You are an adult literacy tutor.",
				Task:           "Generate everyday sentences for a sentence building exercise. Split each sentence into its words.",
				Audience:       "adult learners",
				Count:          req.Count,
				ExclusionLabel: "sentences",
				Rules:          []string{"5 to 10 words per sentence", "Keep punctuation attached to the last word"},
				Schema:         "sentences: list of word lists",
				Example:        `{"sentences": [["She", "paid", "the", "bill", "online."]]}`,
			}
		},
		Finish: func(out *SentenceWords, req exercise.Request) {
			out.Sentences = keepWordLists(out.Sentences, 2, 15, req.Count)
		},
		Primary: func(out *SentenceWords) []string { return joinLists(out.Sentences, " ") },
	}
}

func phraseMakerRecipe() exercise.Recipe[PhraseWords] {
	return exercise.Recipe[PhraseWords]{
		Name:     "phrase_maker",
		Seeds:    []string{"under the bridge", "in the morning", "at the store"},
		ArrayKey: "phrases",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:           "You are an adult literacy tutor.",
				Task:           fmt.Sprintf("Generate exactly %d PHRASES of 2-5 words each. Split each phrase into its words.", req.Count),
				Audience:       "adult learners",
				ExclusionLabel: "phrases",
				Schema:         "phrases: list of word lists",
				Example:        `{"phrases": [["under", "the", "bridge"], ["after", "lunch"]]}`,
			}
		},
		Finish: func(out *PhraseWords, req exercise.Request) {
			out.Phrases = keepWordLists(out.Phrases, 2, 5, req.Count)
		},
		Primary: func(out *PhraseWords) []string { return joinLists(out.Phrases, " ") },
	}
}

func phonemeMappingRecipe() exercise.Recipe[PhonemeMapping] {
	syllables := func(out *PhonemeMapping) []string {
		var all []string
		for _, group := range [][][]string{out.Answers, out.Options} {
			for _, word := range group {
				all = append(all, word...)
			}
		}
		return all
	}
	return exercise.Recipe[PhonemeMapping]{
		Name:     "phoneme_mapping",
		Seeds:    []string{"banana", "computer", "elephant"},
		ArrayKey: "answers",
		Sampling: listSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a phonics tutor for adult learners.",
				Task:     "Generate multi-syllable words split into syllables (answers), plus distractor words split the same way (options).",
				Audience: "adult learners",
				Count:    req.Count,
				Rules:    []string{"2 to 4 syllables per word", "Options must differ from answers"},
				Schema:   "answers: list of syllable lists, options: list of syllable lists",
				Example:  `{"answers": [["win", "dow"], ["pa", "per"]], "options": [["gar", "den"], ["pen", "cil"]]}`,
			}
		},
		Finish: func(out *PhonemeMapping, req exercise.Request) {
			out.Answers = keepWordLists(out.Answers, 1, 6, req.Count)
			out.Options = keepWordLists(out.Options, 1, 6, req.Count)
			out.AudioURLs = map[string]*string{}
		},
		Primary:   func(out *PhonemeMapping) []string { return joinLists(out.Answers, "") },
		Fragments: syllables,
		Attach: func(out *PhonemeMapping, refs []*string) {
			for i, syl := range syllables(out) {
				out.AudioURLs[syl] = refs[i]
			}
		},
	}
}

func auditoryRecipe() exercise.Recipe[AuditoryDiscrimination] {
	words := func(out *AuditoryDiscrimination) []string {
		ws := make([]string, 0, 2*len(out.Pairs))
		for _, p := range out.Pairs {
			ws = append(ws, p.Word1, p.Word2)
		}
		return ws
	}
	return exercise.Recipe[AuditoryDiscrimination]{
		Name:     "auditory_discrimination",
		Seeds:    []string{"ship", "sheep", "bat", "bad"},
		ArrayKey: "pairs",
		Sampling: listSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a listening skills tutor.",
				Task:     "Generate word pairs for a same-or-different listening exercise. Most pairs should be minimal pairs; some should be the same word twice.",
				Audience: "adult learners",
				Count:    req.Count,
				Schema:   "pairs: list of {word1, word2, answer: same|different}",
				Example:  `{"pairs": [{"word1": "pin", "word2": "pen", "answer": "different"}, {"word1": "cup", "word2": "cup", "answer": "same"}]}`,
			}
		},
		Finish: func(out *AuditoryDiscrimination, req exercise.Request) {
			kept := out.Pairs[:0]
			for _, p := range out.Pairs {
				// Lowercased so the answer and the audio dedup agree on "same".
				p.Word1 = strings.ToLower(strings.TrimSpace(p.Word1))
				p.Word2 = strings.ToLower(strings.TrimSpace(p.Word2))
				if p.Word1 == "" || p.Word2 == "" {
					continue
				}
				p.Answer = "different"
				if p.Word1 == p.Word2 {
					p.Answer = "same"
				}
				kept = append(kept, p)
			}
			if len(kept) > req.Count {
				kept = kept[:req.Count]
			}
			out.Pairs = kept
		},
		Primary:   words,
		Fragments: words,
		Attach: func(out *AuditoryDiscrimination, refs []*string) {
			for i := range out.Pairs {
				out.Pairs[i].Audio1URL = refs[2*i]
				out.Pairs[i].Audio2URL = refs[2*i+1]
			}
		},
	}
}
