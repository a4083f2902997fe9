package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/service"
	"github.com/windfall/drill_service/pkg/response"
)

// ReadingHandler serves the early-reader exercises.
type ReadingHandler struct {
	log     zerolog.Logger
	reading *service.ReadingService
}

// NewReadingHandler creates a new ReadingHandler.
func NewReadingHandler(log zerolog.Logger, reading *service.ReadingService) *ReadingHandler {
	return &ReadingHandler{log: log, reading: reading}
}

// SightWordsRequest is the body of the sight words endpoint.
type SightWordsRequest struct {
	Grade    int `json:"grade"`
	NumWords int `json:"num_words"`
}

// SightWords handles POST /api/v1/reading/sight-word-practice/sight_words
func (h *ReadingHandler) SightWords(w http.ResponseWriter, r *http.Request) {
	var req SightWordsRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.reading.SightWords(r.Context(), callerID(r), req.Grade, req.NumWords)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// Comprehension handles GET /api/v1/reading/comprehension/generate_comprehension
func (h *ReadingHandler) Comprehension(w http.ResponseWriter, r *http.Request) {
	age, err := queryInt(r, "age")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.reading.Comprehension(r.Context(), callerID(r), age)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// PhonemeFlashcards handles GET /api/v1/reading/phoneme-flashcards/generate_phoneme_flashcards
func (h *ReadingHandler) PhonemeFlashcards(w http.ResponseWriter, r *http.Request) {
	age, err := queryInt(r, "age")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.reading.PhonemeFlashcard(r.Context(), callerID(r), age)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}
