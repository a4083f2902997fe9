package http

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/service"
	"github.com/windfall/drill_service/pkg/response"
)

// AdultHandler serves the adult literacy drills.
type AdultHandler struct {
	log   zerolog.Logger
	adult *service.AdultService
}

// NewAdultHandler creates a new AdultHandler.
func NewAdultHandler(log zerolog.Logger, adult *service.AdultService) *AdultHandler {
	return &AdultHandler{log: log, adult: adult}
}

func generate[T any](log zerolog.Logger, w http.ResponseWriter, r *http.Request, gen func(ctx context.Context, userID string) (*T, error)) {
	result, err := gen(r.Context(), callerID(r))
	if err != nil {
		handleError(log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// GetWordFlash handles GET /api/v1/adult/word-flash/get_word_flash
func (h *AdultHandler) GetWordFlash(w http.ResponseWriter, r *http.Request) {
	generate(h.log, w, r, h.adult.WordFlash)
}

// ScoreWordFlash handles POST /api/v1/adult/word-flash/word_flash
//
// multipart/form-data: word, file
func (h *AdultHandler) ScoreWordFlash(w http.ResponseWriter, r *http.Request) {
	attempt, err := readAttempt(w, r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	result, err := h.adult.ScoreWordFlash(r.Context(), r.FormValue("word"), attempt)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// GetWordParts handles GET /api/v1/adult/word-parts-workshop/get_word_parts
func (h *AdultHandler) GetWordParts(w http.ResponseWriter, r *http.Request) {
	generate(h.log, w, r, h.adult.WordParts)
}

// GetSentences handles GET /api/v1/adult/sentence-builder/get_sentences
func (h *AdultHandler) GetSentences(w http.ResponseWriter, r *http.Request) {
	generate(h.log, w, r, h.adult.Sentences)
}

// GetPhrases handles GET /api/v1/adult/phrase-maker/get_phrases
func (h *AdultHandler) GetPhrases(w http.ResponseWriter, r *http.Request) {
	generate(h.log, w, r, h.adult.Phrases)
}

// GetPhonemeMapping handles GET /api/v1/adult/phoneme-mapping/get_phenome_mapping
func (h *AdultHandler) GetPhonemeMapping(w http.ResponseWriter, r *http.Request) {
	generate(h.log, w, r, h.adult.PhonemeMapping)
}

// GetAuditoryDiscrimination handles GET /api/v1/adult/auditory-discrimination/get_auditory_discrimination
func (h *AdultHandler) GetAuditoryDiscrimination(w http.ResponseWriter, r *http.Request) {
	generate(h.log, w, r, h.adult.AuditoryDiscrimination)
}
