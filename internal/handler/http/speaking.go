package http

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/service"
	"github.com/windfall/drill_service/pkg/response"
)

// SpeakingHandler serves the children's speaking drills.
type SpeakingHandler struct {
	log      zerolog.Logger
	speaking *service.SpeakingService
}

// NewSpeakingHandler creates a new SpeakingHandler.
func NewSpeakingHandler(log zerolog.Logger, speaking *service.SpeakingService) *SpeakingHandler {
	return &SpeakingHandler{log: log, speaking: speaking}
}

func generateForAge[T any](log zerolog.Logger, w http.ResponseWriter, r *http.Request, gen func(ctx context.Context, userID string, age int) (*T, error)) {
	age, err := queryInt(r, "age")
	if err != nil {
		handleError(log, w, err)
		return
	}
	result, err := gen(r.Context(), callerID(r), age)
	if err != nil {
		handleError(log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// scoreRepeat grades a recording against the text in field.
func (h *SpeakingHandler) scoreRepeat(w http.ResponseWriter, r *http.Request, kind, field string) {
	attempt, err := readAttempt(w, r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	result, err := h.speaking.ScoreRepeat(r.Context(), kind, r.FormValue(field), attempt)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// GetListenSpeak handles GET /api/v1/speaking/listen-speak/get_listen_speak
func (h *SpeakingHandler) GetListenSpeak(w http.ResponseWriter, r *http.Request) {
	generateForAge(h.log, w, r, h.speaking.ListenSpeak)
}

// ScoreListenSpeak handles POST /api/v1/speaking/listen-speak/listen_speak
func (h *SpeakingHandler) ScoreListenSpeak(w http.ResponseWriter, r *http.Request) {
	h.scoreRepeat(w, r, "listen_speak", "sentence")
}

// GetPhraseRepeat handles GET /api/v1/speaking/phrase-repeat/get_phrase_repeat
func (h *SpeakingHandler) GetPhraseRepeat(w http.ResponseWriter, r *http.Request) {
	generateForAge(h.log, w, r, h.speaking.PhraseRepeat)
}

// ScorePhraseRepeat handles POST /api/v1/speaking/phrase-repeat/phrase_repeat
func (h *SpeakingHandler) ScorePhraseRepeat(w http.ResponseWriter, r *http.Request) {
	h.scoreRepeat(w, r, "phrase_repeat", "phrase")
}

// GetPronunciation handles GET /api/v1/speaking/pronunciation/get_pronunciation
func (h *SpeakingHandler) GetPronunciation(w http.ResponseWriter, r *http.Request) {
	generateForAge(h.log, w, r, h.speaking.Pronunciation)
}

// ScorePronunciation handles POST /api/v1/speaking/pronunciation/pronunciation
func (h *SpeakingHandler) ScorePronunciation(w http.ResponseWriter, r *http.Request) {
	h.scoreRepeat(w, r, "pronunciation", "word")
}

// GetVocabulary handles GET /api/v1/speaking/vocabulary-challenge/get_vocabulary
func (h *SpeakingHandler) GetVocabulary(w http.ResponseWriter, r *http.Request) {
	generateForAge(h.log, w, r, h.speaking.Vocabulary)
}

// ScoreVocabulary handles POST /api/v1/speaking/vocabulary-challenge/vocabulary_challenge
func (h *SpeakingHandler) ScoreVocabulary(w http.ResponseWriter, r *http.Request) {
	h.scoreRepeat(w, r, "vocabulary_challenge", "word")
}
