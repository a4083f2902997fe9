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

var powerWordThemes = []string{
	"leadership", "innovation", "teamwork", "resilience", "persuasion",
	"vision", "growth", "negotiation", "customer focus", "change",
}

var contextScenarios = []string{
	"a job interview", "a team meeting", "a product launch", "a client pitch",
	"a school presentation", "a wedding toast", "a project status update",
}

// PowerWord is a high impact word for presentations.
type PowerWord struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
}

// PowerWordSet is the power words response.
type PowerWordSet struct {
	Theme string      `json:"theme"`
	Words []PowerWord `json:"words"`
}

// FlowChain is a chain of connected words to weave into one talk.
type FlowChain struct {
	Topic string   `json:"topic"`
	Words []string `json:"words"`
}

// ContextSpin is a scenario plus words to use in it.
type ContextSpin struct {
	Scenario string   `json:"scenario"`
	Words    []string `json:"words"`
}

// PrecisionDrill is a set of words to articulate precisely.
type PrecisionDrill struct {
	Words []AudioText `json:"words"`
}

// PresentationService generates and scores presentation coaching drills.
type PresentationService struct {
	powerWords     *exercise.Assembler[PowerWordSet]
	flowChain      *exercise.Assembler[FlowChain]
	contextSpin    *exercise.Assembler[ContextSpin]
	precisionDrill *exercise.Assembler[PrecisionDrill]
	evaluator      *exercise.Evaluator
	log            zerolog.Logger
}

// NewPresentationService creates a PresentationService.
func NewPresentationService(deps exercise.Deps, evaluator *exercise.Evaluator, log zerolog.Logger) *PresentationService {
	return &PresentationService{
		powerWords:     exercise.New(deps, powerWordsRecipe()),
		flowChain:      exercise.New(deps, flowChainRecipe()),
		contextSpin:    exercise.New(deps, contextSpinRecipe()),
		precisionDrill: exercise.New(deps, precisionDrillRecipe()),
		evaluator:      evaluator,
		log:            log.With().Str("service", "presentation").Logger(),
	}
}

// PowerWords returns 10 words on a random theme.
func (s *PresentationService) PowerWords(ctx context.Context, userID string) (*PowerWordSet, error) {
	theme := pick(powerWordThemes)
	out, err := s.powerWords.Generate(ctx, exercise.Request{UserID: userID, Topic: theme, Count: 10})
	if err != nil {
		return nil, err
	}
	if out.Theme == "" {
		out.Theme = theme
	}
	return &out, nil
}

// ScorePowerWord grades how well word was used in the recording.
func (s *PresentationService) ScorePowerWord(ctx context.Context, word, definition string, a Attempt) (*exercise.Evaluation, error) {
	if strings.TrimSpace(word) == "" {
		return nil, errors.Validation("word is required")
	}
	return scoreAttempt(ctx, s.evaluator, "power_words", a, func(transcript string) string {
		task := fmt.Sprintf("The learner was asked to use the power word %q in a spoken sentence.", word)
		if definition != "" {
			task += fmt.Sprintf(" It means: %s.", definition)
		}
		task += " Judge correct usage, impact and delivery."
		return scorePrompt(task, transcript, 100)
	})
}

// FlowChain returns 10 connected words.
func (s *PresentationService) FlowChain(ctx context.Context, userID string) (*FlowChain, error) {
	out, err := s.flowChain.Generate(ctx, exercise.Request{UserID: userID, Count: 10})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ScoreFlowChain grades how smoothly the words were linked in one talk.
func (s *PresentationService) ScoreFlowChain(ctx context.Context, words []string, a Attempt) (*exercise.Evaluation, error) {
	words = cleanWords(words)
	if len(words) == 0 {
		return nil, errors.Validation("words are required")
	}
	return scoreAttempt(ctx, s.evaluator, "flow_chain", a, func(transcript string) string {
		task := fmt.Sprintf("The learner had to speak one continuous, logical passage using these words in order: %s. Judge coverage, order and flow between ideas.", strings.Join(words, ", "))
		return scorePrompt(task, transcript, 100)
	})
}

// ContextSpin returns a scenario with 5 words to use in it.
func (s *PresentationService) ContextSpin(ctx context.Context, userID string) (*ContextSpin, error) {
	scenario := pick(contextScenarios)
	out, err := s.contextSpin.Generate(ctx, exercise.Request{UserID: userID, Topic: scenario, Count: 5})
	if err != nil {
		return nil, err
	}
	if out.Scenario == "" {
		out.Scenario = scenario
	}
	return &out, nil
}

// ScoreContextSpin grades use of words within scenario.
func (s *PresentationService) ScoreContextSpin(ctx context.Context, scenario string, words []string, a Attempt) (*exercise.Evaluation, error) {
	words = cleanWords(words)
	if strings.TrimSpace(scenario) == "" || len(words) == 0 {
		return nil, errors.Validation("scenario and words are required")
	}
	return scoreAttempt(ctx, s.evaluator, "context_spin", a, func(transcript string) string {
		task := fmt.Sprintf("Scenario: %s. The learner had to speak naturally in this scenario using the words: %s. Judge how many words were used, whether they fit the context, and clarity.", scenario, strings.Join(words, ", "))
		return scorePrompt(task, transcript, 100)
	})
}

// PrecisionDrill returns 5 words with audio.
func (s *PresentationService) PrecisionDrill(ctx context.Context, userID string) (*PrecisionDrill, error) {
	out, err := s.precisionDrill.Generate(ctx, exercise.Request{UserID: userID, Count: 5})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ScorePrecisionDrill grades the articulation of wordlist.
func (s *PresentationService) ScorePrecisionDrill(ctx context.Context, wordlist []string, a Attempt) (*exercise.Evaluation, error) {
	wordlist = cleanWords(wordlist)
	if len(wordlist) == 0 {
		return nil, errors.Validation("wordlist is required")
	}
	return scoreAttempt(ctx, s.evaluator, "precision_drill", a, func(transcript string) string {
		task := fmt.Sprintf("The learner had to pronounce these words clearly and precisely: %s. Compare the transcript word by word and judge accuracy.", strings.Join(wordlist, ", "))
		return scorePrompt(task, transcript, 100)
	})
}

func powerWordsRecipe() exercise.Recipe[PowerWordSet] {
	return exercise.Recipe[PowerWordSet]{
		Name:     "power_words",
		Seeds:    []string{"innovative", "dynamic", "synergy", "leverage", "impactful"},
		ArrayKey: "words",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a presentation skills coach.",
				Task:     "Generate power words that make a presentation sound confident and vivid.",
				Audience: "adult professionals",
				Topic:    req.Topic,
				Count:    req.Count,
				Rules:    []string{"Single words only", "One short definition and one example sentence per word"},
				Schema:   "theme, words: list of {word, definition, example}",
				Example:  `{"theme": "leadership", "words": [{"word": "galvanize", "definition": "to inspire to action", "example": "Her speech galvanized the team."}]}`,
			}
		},
		Finish: func(out *PowerWordSet, req exercise.Request) {
			if len(out.Words) > req.Count {
				out.Words = out.Words[:req.Count]
			}
		},
		Primary: func(out *PowerWordSet) []string {
			words := make([]string, len(out.Words))
			for i, w := range out.Words {
				words[i] = w.Word
			}
			return words
		},
	}
}

func flowChainRecipe() exercise.Recipe[FlowChain] {
	return exercise.Recipe[FlowChain]{
		Name:     "flow_chain",
		Seeds:    []string{"idea", "plan", "action", "result", "future"},
		ArrayKey: "words",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a public speaking coach.",
				Task:     "Generate a chain of connected words where each word leads naturally to the next, for practicing smooth transitions in a short talk.",
				Audience: "adult learners",
				Count:    req.Count,
				Rules:    []string{"Single common words", "The whole chain should tell a small story"},
				Schema:   "topic, words: list of strings",
				Example:  `{"topic": "a morning routine", "words": ["alarm", "coffee", "commute", "meeting", "lunch", "deadline", "success", "celebrate", "home", "rest"]}`,
			}
		},
		Finish: func(out *FlowChain, req exercise.Request) {
			out.Words = cleanWords(out.Words)
			if len(out.Words) > req.Count {
				out.Words = out.Words[:req.Count]
			}
		},
		Primary: func(out *FlowChain) []string { return out.Words },
	}
}

func contextSpinRecipe() exercise.Recipe[ContextSpin] {
	return exercise.Recipe[ContextSpin]{
		Name:     "context_spin",
		Seeds:    []string{"opportunity", "challenge", "solution", "team", "goal"},
		ArrayKey: "words",
		Sampling: generationSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a communication coach.",
				Task:     "Generate words the learner must weave into a short improvised talk for the given scenario.",
				Audience: "adult learners",
				Topic:    req.Topic,
				Count:    req.Count,
				Rules:    []string{"Words should fit the scenario but not be obvious", "Single words only"},
				Schema:   "scenario, words: list of strings",
				Example:  `{"scenario": "a client pitch", "words": ["budget", "timeline", "confidence", "prototype", "feedback"]}`,
			}
		},
		Finish: func(out *ContextSpin, req exercise.Request) {
			out.Words = cleanWords(out.Words)
			if len(out.Words) > req.Count {
				out.Words = out.Words[:req.Count]
			}
		},
		Primary: func(out *ContextSpin) []string { return out.Words },
	}
}

func precisionDrillRecipe() exercise.Recipe[PrecisionDrill] {
	return exercise.Recipe[PrecisionDrill]{
		Name:     "precision_drill",
		Seeds:    []string{"particularly", "statistics", "specifically", "entrepreneur", "phenomenon"},
		ArrayKey: "words",
		Sampling: listSampling,
		Prompt: func(req exercise.Request) prompt.Spec {
			return prompt.Spec{
				Role:     "You are a diction coach.",
				Task:     "Generate words that are commonly mispronounced in professional presentations.",
				Audience: "adult professionals",
				Count:    req.Count,
				Rules:    []string{"Single words only", "Mix of syllable counts"},
				Schema:   "words: list of {text}",
				Example:  `{"words": [{"text": "hierarchy"}, {"text": "epitome"}]}`,
			}
		},
		Finish: func(out *PrecisionDrill, req exercise.Request) {
			out.Words = trimAudioText(out.Words, req.Count)
		},
		Primary:   func(out *PrecisionDrill) []string { return audioTextPrimary(out.Words) },
		Fragments: func(out *PrecisionDrill) []string { return audioTextPrimary(out.Words) },
		Attach:    func(out *PrecisionDrill, refs []*string) { attachAudioText(out.Words, refs) },
	}
}
