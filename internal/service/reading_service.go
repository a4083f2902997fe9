package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/client"
	"github.com/windfall/drill_service/internal/exercise"
	"github.com/windfall/drill_service/internal/prompt"
)

// Dolch-style sight word lists by grade.
var sightWordsByGrade = map[int][]string{
	1: {"the", "and", "a", "to", "in", "is", "you", "that", "it", "he", "was", "for", "on", "are", "as", "with", "his", "they", "I", "at", "be", "this", "have", "from", "or", "one", "had", "by", "but", "not", "what", "all", "were", "we", "when", "your", "can", "said", "there", "use"},
	2: {"each", "which", "she", "do", "how", "their", "if", "will", "up", "other", "about", "out", "many", "then", "them", "these", "so", "some", "her", "would", "make", "like", "him", "into", "time", "has", "look", "two", "more", "write", "go", "see", "number", "no", "way", "could", "people", "my", "than", "first"},
	3: {"water", "been", "call", "who", "oil", "its", "now", "find", "long", "down", "day", "did", "get", "come", "made", "may", "part", "over", "new", "sound", "take", "only", "little", "work", "know", "place", "year", "live", "me", "back", "give", "most", "very", "after", "thing", "our", "just", "name", "good", "sentence"},
}

// Flashcard words used when the model reply is unusable.
var fallbackFlashcardWords = map[int][]string{
	5: {"frog", "duck", "fish", "milk", "bird"},
	6: {"jump", "star", "cake", "tree", "ship"},
	7: {"plant", "bread", "clock", "smile", "train"},
	8: {"brave", "cloud", "shelf", "grape", "storm"},
}

// SightWordItem is one practiced sight word.
type SightWordItem struct {
	Word       string   `json:"word"`
	AudioURL   *string  `json:"audio_url"`
	Definition []string `json:"definition"`
	Sentence   string   `json:"sentence"`
	Quiz       []string `json:"quiz"`
	Answer     string   `json:"answer"`
}

// SightWordSet is the sight word practice response.
type SightWordSet struct {
	Grade int             `json:"grade"`
	Items []SightWordItem `json:"items"`
}

// ComprehensionQuestion is a multiple choice question about the passage.
type ComprehensionQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Comprehension is a short illustrated reading passage.
type Comprehension struct {
	PassageName string                  `json:"passage_name"`
	Text        string                  `json:"text"`
	Questions   []ComprehensionQuestion `json:"questions"`
	ImageURL    *string                 `json:"image_url"`
}

// Flashcard is one word split into letters for phoneme practice.
type Flashcard struct {
	Word     string   `json:"word"`
	Letters  []string `json:"letters"`
	AudioURL *string  `json:"audio_url"`
}

// ImageOptions are passed to the image provider.
type ImageOptions struct {
	Size    string
	Quality string
}

// ReadingService generates the early-reader exercises.
type ReadingService struct {
	sightWords    *exercise.Assembler[SightWordSet]
	comprehension *exercise.Assembler[Comprehension]
	flashcards    *exercise.Assembler[Flashcard]
	images        client.ImageGenerator
	imageOpts     ImageOptions
	log           zerolog.Logger
}

// NewReadingService creates a ReadingService. images may be nil, in which
// case passages are returned without an illustration.
func NewReadingService(deps exercise.Deps, images client.ImageGenerator, imageOpts ImageOptions, log zerolog.Logger) *ReadingService {
	return &ReadingService{
		sightWords:    exercise.New(deps, sightWordRecipe()),
		comprehension: exercise.New(deps, comprehensionRecipe()),
		flashcards:    exercise.New(deps, flashcardRecipe()),
		images:        images,
		imageOpts:     imageOpts,
		log:           log.With().Str("service", "reading").Logger(),
	}
}

// SightWords returns numWords words from the grade's list. grade is
// clamped to 1..3 and numWords to 2..5 (default 3).
func (s *ReadingService) SightWords(ctx context.Context, userID string, grade, numWords int) (*SightWordSet, error) {
	grade = clampInt(grade, 1, 3, 1)
	out, err := s.sightWords.Generate(ctx, exercise.Request{
		UserID: userID,
		Level:  strconv.Itoa(grade),
		Count:  clampInt(numWords, 2, 5, 3),
	})
	if err != nil {
		return nil, err
	}
	out.Grade = grade
	return &out, nil
}

// Comprehension returns a passage for age (5..8) with an illustration.
// Image failures leave ImageURL nil.
func (s *ReadingService) Comprehension(ctx context.Context, userID string, age int) (*Comprehension, error) {
	out, err := s.comprehension.Generate(ctx, exercise.Request{UserID: userID, Age: clampInt(age, 5, 8, 6), Count: 3})
	if err != nil {
		return nil, err
	}

	if s.images != nil {
		url, err := s.images.GenerateImage(ctx, illustrationPrompt(&out), s.imageOpts.Size, s.imageOpts.Quality)
		if err != nil {
			s.log.Warn().Err(err).Str("passage", out.PassageName).Msg("Illustration failed")
		} else {
			out.ImageURL = &url
		}
	}
	return &out, nil
}

// PhonemeFlashcard returns one 4-5 letter word for age (5..8).
func (s *ReadingService) PhonemeFlashcard(ctx context.Context, userID string, age int) (*Flashcard, error) {
	out, err := s.flashcards.Generate(ctx, exercise.Request{UserID: userID, Age: clampInt(age, 5, 8, 6), Count: 1})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func illustrationPrompt(c *Comprehension) string {
	scene := c.Text
	if i := strings.IndexAny(scene, ".!?"); i > 0 {
		scene = scene[:i+1]
	}
	return fmt.Sprintf("A bright, friendly children's storybook illustration for the story %q. Scene: %s No text or letters in the image.", c.PassageName, scene)
}

func sightWordRecipe() exercise.Recipe[SightWordSet] {
	return exercise.Recipe[SightWordSet]{
		Name:     "sight_words",
		Seeds:    []string{"the", "and", "you"},
		ArrayKey: "items",
		Sampling: listSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			grade, _ := strconv.Atoi(req.Level)
			return prompt.Spec{
				Role:     "You are a reading teacher building sight word practice.",
				Task:     fmt.Sprintf("Pick %d sight words for grade %d from this list: %s", req.Count, grade, strings.Join(sightWordsByGrade[grade], ", ")),
				Audience: fmt.Sprintf("grade %d readers", grade),
				Count:    req.Count,
				Rules: []string{
					"Only use words from the given list",
					"Give 1-2 simple definitions per word",
					"Write one short example sentence per word",
					"Write a 3 option quiz per word; answer must be one of the options",
				},
				Schema:  "items: list of {word, definition: [string], sentence, quiz: [string], answer}",
				Example: `{"items": [{"word": "said", "definition": ["spoke words"], "sentence": "Mom said hello.", "quiz": ["said", "sad", "sand"], "answer": "said"}]}`,
			}
		},
		Finish: func(out *SightWordSet, req exercise.Request) {
			items := out.Items[:0]
			for _, it := range out.Items {
				if it.Word = strings.TrimSpace(it.Word); it.Word != "" {
					items = append(items, it)
				}
			}
			if len(items) > req.Count {
				items = items[:req.Count]
			}
			out.Items = items
		},
		Primary: func(out *SightWordSet) []string {
			words := make([]string, len(out.Items))
			for i, it := range out.Items {
				words[i] = it.Word
			}
			return words
		},
		Fragments: func(out *SightWordSet) []string {
			words := make([]string, len(out.Items))
			for i, it := range out.Items {
				words[i] = it.Word
			}
			return words
		},
		Attach: func(out *SightWordSet, refs []*string) {
			for i := range out.Items {
				out.Items[i].AudioURL = refs[i]
			}
		},
	}
}

func friendlyCatPassage() Comprehension {
	return Comprehension{
		PassageName: "The Friendly Cat",
		Text:        "Tom has a small cat named Whiskers. Whiskers likes to play with a red ball. Every morning, Whiskers drinks milk and sleeps in the sun.",
		Questions: []ComprehensionQuestion{
			{Question: "What is the cat's name?", Options: []string{"Whiskers", "Tom", "Ball"}, CorrectAnswer: "Whiskers"},
			{Question: "What color is the ball?", Options: []string{"Blue", "Red", "Green"}, CorrectAnswer: "Red"},
			{Question: "Where does Whiskers sleep?", Options: []string{"In a box", "In the sun", "On the bed"}, CorrectAnswer: "In the sun"},
		},
	}
}

func comprehensionRecipe() exercise.Recipe[Comprehension] {
	return exercise.Recipe[Comprehension]{
		Name:     "comprehension",
		Seeds:    []string{"friendly cat", "garden adventure", "butterfly chase"},
		ArrayKey: "questions",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:           "You are a children's author writing reading comprehension practice.",
				Task:           "Write one short story passage with questions about it.",
				Audience:       childAudience(req.Age),
				ExclusionLabel: "story themes",
				Rules: []string{
					fmt.Sprintf("Passage of %d-%d simple sentences", req.Age-2, req.Age),
					fmt.Sprintf("Exactly %d questions, each with 3 options", req.Count),
					"correct_answer must match one option exactly",
				},
				Schema:  "passage_name, text, questions: list of {question, options: [3 strings], correct_answer}",
				Example: `{"passage_name": "The Lost Kite", "text": "Mia had a blue kite...", "questions": [{"question": "What color was the kite?", "options": ["Blue", "Red", "Green"], "correct_answer": "Blue"}]}`,
			}
		},
		Fallback: func(exercise.Request) Comprehension { return friendlyCatPassage() },
		Finish: func(out *Comprehension, req exercise.Request) {
			if strings.TrimSpace(out.Text) == "" {
				*out = friendlyCatPassage()
			}
			if len(out.Questions) > req.Count {
				out.Questions = out.Questions[:req.Count]
			}
		},
		Primary: func(out *Comprehension) []string {
			return []string{strings.ToLower(out.PassageName)}
		},
	}
}

func flashcardRecipe() exercise.Recipe[Flashcard] {
	return exercise.Recipe[Flashcard]{
		Name:     "phoneme_flashcards",
		Seeds:    []string{"frog", "star", "cake"},
		Sampling: listSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a phonics teacher.",
				Task:     "Choose one common, easy to picture English word of 4 or 5 letters for phoneme practice.",
				Audience: childAudience(req.Age),
				Rules:    []string{"Lowercase letters only", "No proper nouns"},
				Schema:   "word",
				Example:  `{"word": "lamp"}`,
			}
		},
		Fallback: func(req exercise.Request) Flashcard {
			return Flashcard{Word: pick(fallbackFlashcardWords[req.Age])}
		},
		Finish: func(out *Flashcard, req exercise.Request) {
			word := strings.ToLower(strings.TrimSpace(out.Word))
			if n := len([]rune(word)); n < 4 || n > 5 || strings.IndexFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }) >= 0 {
				word = pick(fallbackFlashcardWords[req.Age])
			}
			out.Word = word
			out.Letters = make([]string, 0, len(word))
			for _, r := range word {
				out.Letters = append(out.Letters, string(r))
			}
		},
		Primary:   func(out *Flashcard) []string { return []string{out.Word} },
		Fragments: func(out *Flashcard) []string { return []string{out.Word} },
		Attach:    func(out *Flashcard, refs []*string) { out.AudioURL = refs[0] },
	}
}
