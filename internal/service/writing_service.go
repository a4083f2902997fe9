package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/errors"
	"github.com/windfall/drill_service/internal/exercise"
	"github.com/windfall/drill_service/internal/prompt"
)

// WritingTopics are the accepted writing practice topics.
var WritingTopics = []string{
	"Sports", "Dance", "Cooking", "Food", "Nature", "Art", "Music",
	"Travel", "Science", "Movies", "Meditation", "Gaming", "Animals",
}

const (
	relatedWordCount = 5
	motivationLength = 10
	defaultGrammar   = 5.0
)

var motivationPadding = []string{"Keep", "going!", "You", "can", "do", "it!", "Practice", "more!", "Stay", "motivated!"}

var grammarScorePattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// TopicWords is the writing topic response.
type TopicWords struct {
	Topic string   `json:"topic"`
	Words []string `json:"words"`
}

// WritingSubmission is a finished piece of writing.
type WritingSubmission struct {
	Topic string   `json:"topic"`
	Words []string `json:"words"`
	Text  string   `json:"text"`
}

// WritingResult scores a submission.
type WritingResult struct {
	Topic         string   `json:"topic"`
	SentenceScore int      `json:"sentence_score"`
	GrammarScore  float64  `json:"grammar_score"`
	UsedWords     []string `json:"used_words"`
	Motivation    string   `json:"motivation"`
}

// WritingService runs the topic writing exercise.
type WritingService struct {
	topics    *exercise.Assembler[TopicWords]
	evaluator *exercise.Evaluator
	log       zerolog.Logger
}

// NewWritingService creates a WritingService.
func NewWritingService(deps exercise.Deps, evaluator *exercise.Evaluator, log zerolog.Logger) *WritingService {
	return &WritingService{
		topics:    exercise.New(deps, topicWordsRecipe()),
		evaluator: evaluator,
		log:       log.With().Str("service", "writing").Logger(),
	}
}

// CanonicalTopic matches topic case-insensitively against WritingTopics.
// An empty topic picks one at random.
func CanonicalTopic(topic string) (string, bool) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return pick(WritingTopics), true
	}
	for _, t := range WritingTopics {
		if strings.EqualFold(t, topic) {
			return t, true
		}
	}
	return "", false
}

// Topic returns 5 words related to topic.
func (s *WritingService) Topic(ctx context.Context, userID, topic string) (*TopicWords, error) {
	canonical, ok := CanonicalTopic(topic)
	if !ok {
		return nil, errors.Validation(fmt.Sprintf("unknown topic %q", topic)).
			WithDetails(map[string]interface{}{"topics": WritingTopics})
	}

	out, err := s.topics.Generate(ctx, exercise.Request{UserID: userID, Topic: canonical, Count: relatedWordCount})
	if err != nil {
		return nil, err
	}
	out.Topic = canonical
	return &out, nil
}

// Final scores a submission. The grammar score comes from the model, or 5
// when the model call fails; the word score counts the given words present
// in the text.
func (s *WritingService) Final(ctx context.Context, sub WritingSubmission) (*WritingResult, error) {
	if strings.TrimSpace(sub.Text) == "" {
		return nil, errors.Validation("text is required")
	}

	grammar := defaultGrammar
	reply, err := s.evaluator.Ask(ctx, "writing", grammarPrompt(sub.Text))
	if err != nil {
		s.log.Warn().Err(err).Msg("Grammar scoring failed, using default score")
	} else {
		grammar = ParseGrammarScore(reply)
	}
	used := UsedWords(sub.Text, sub.Words)
	score := FinalScore(grammar, len(used))

	motivation, err := s.evaluator.Ask(ctx, "writing", motivationPrompt(sub.Topic, score))
	if err != nil {
		s.log.Warn().Err(err).Msg("Motivation message failed, using fallback")
		motivation = fallbackMotivation(score)
	}

	return &WritingResult{
		Topic:         sub.Topic,
		SentenceScore: score,
		GrammarScore:  grammar,
		UsedWords:     used,
		Motivation:    NormalizeMotivation(motivation),
	}, nil
}

// ParseGrammarScore reads the first number in reply, clamped to 0..10.
// Replies without a number score 5.
func ParseGrammarScore(reply string) float64 {
	m := grammarScorePattern.FindString(reply)
	if m == "" {
		return defaultGrammar
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return defaultGrammar
	}
	return math.Max(0, math.Min(v, 10))
}

// UsedWords returns the words that appear in text as whole words,
// case-insensitively.
func UsedWords(text string, words []string) []string {
	used := []string{}
	for _, w := range cleanWords(words) {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		if err == nil && re.MatchString(text) {
			used = append(used, w)
		}
	}
	return used
}

// FinalScore averages the grammar score with a word score of two points
// per used word (max 10), rounded half to even and capped at 10.
func FinalScore(grammar float64, used int) int {
	wordScore := math.Min(float64(2*used), 10)
	return int(math.Min(math.RoundToEven((grammar+wordScore)/2), 10))
}

// NormalizeMotivation trims or pads msg to exactly 10 words.
func NormalizeMotivation(msg string) string {
	words := strings.Fields(msg)
	if len(words) > motivationLength {
		words = words[:motivationLength]
	}
	for len(words) < motivationLength {
		words = append(words, motivationPadding[len(words)%len(motivationPadding)])
	}
	return strings.Join(words, " ")
}

func fallbackMotivation(score int) string {
	switch {
	case score >= 8:
		return "Excellent work! Your writing is clear, creative and truly impressive."
	case score >= 5:
		return "Good effort! Keep practicing and your writing will grow stronger."
	default:
		return "Every writer starts somewhere. Keep trying, you are improving daily."
	}
}

func grammarPrompt(text string) string {
	return "You are an English grammar teacher. Rate the grammar of the following text on a scale of 0 to 10, " +
		"where 10 means no mistakes. Reply with the number only.\n\nText: " + strconv.Quote(text)
}

func motivationPrompt(topic string, score int) string {
	return fmt.Sprintf("A student wrote about %s and scored %d out of 10. Write a motivational message of EXACTLY 10 words. Reply with the message only.", topic, score)
}

func topicWordsRecipe() exercise.Recipe[TopicWords] {
	return exercise.Recipe[TopicWords]{
		Name:     "writing_topics",
		Seeds:    []string{"ball", "food", "music"},
		ArrayKey: "words",
		Sampling: listSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a creative writing teacher.",
				Task:     "Give words a student can use when writing a few sentences about the topic.",
				Audience: "young writers",
				Topic:    req.Topic,
				Count:    req.Count,
				Rules:    []string{"Single common words", "Mix nouns, verbs and adjectives"},
				Schema:   "words: list of strings",
				Example:  `{"words": ["recipe", "bake", "delicious", "kitchen", "taste"]}`,
			}
		},
		Finish: func(out *TopicWords, req exercise.Request) {
			words := cleanWords(out.Words)
			if len(words) > req.Count {
				words = words[:req.Count]
			}
			for len(words) < req.Count {
				words = append(words, req.Topic+"_related")
			}
			out.Words = words
		},
		Primary: func(out *TopicWords) []string { return out.Words },
	}
}
