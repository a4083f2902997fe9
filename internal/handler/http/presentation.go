package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/service"
	"github.com/windfall/drill_service/pkg/response"
)

// PresentationHandler serves the presentation coaching drills.
type PresentationHandler struct {
	log          zerolog.Logger
	presentation *service.PresentationService
}

// NewPresentationHandler creates a new PresentationHandler.
func NewPresentationHandler(log zerolog.Logger, presentation *service.PresentationService) *PresentationHandler {
	return &PresentationHandler{log: log, presentation: presentation}
}

// GetPowerWords handles GET /api/v1/presentation/power-words/get_power_words
func (h *PresentationHandler) GetPowerWords(w http.ResponseWriter, r *http.Request) {
	result, err := h.presentation.PowerWords(r.Context(), callerID(r))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// ScorePowerWords handles POST /api/v1/presentation/power-words/power_words
//
// multipart/form-data: word, definition (optional), file
func (h *PresentationHandler) ScorePowerWords(w http.ResponseWriter, r *http.Request) {
	attempt, err := readAttempt(w, r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.presentation.ScorePowerWord(r.Context(), r.FormValue("word"), r.FormValue("definition"), attempt)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// GetFlowChain handles GET /api/v1/presentation/flow-chain/get_flow_chain
func (h *PresentationHandler) GetFlowChain(w http.ResponseWriter, r *http.Request) {
	result, err := h.presentation.FlowChain(r.Context(), callerID(r))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// ScoreFlowChain handles POST /api/v1/presentation/flow-chain/flow_chain
//
// multipart/form-data: words (JSON array or comma list), file
func (h *PresentationHandler) ScoreFlowChain(w http.ResponseWriter, r *http.Request) {
	attempt, err := readAttempt(w, r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.presentation.ScoreFlowChain(r.Context(), ParseWords(r.FormValue("words")), attempt)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// GetContextSpin handles GET /api/v1/presentation/context-spin/get_context_spin
func (h *PresentationHandler) GetContextSpin(w http.ResponseWriter, r *http.Request) {
	result, err := h.presentation.ContextSpin(r.Context(), callerID(r))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// ScoreContextSpin handles POST /api/v1/presentation/context-spin/context_spin
//
// multipart/form-data: scenario, words (JSON array or comma list), file
func (h *PresentationHandler) ScoreContextSpin(w http.ResponseWriter, r *http.Request) {
	attempt, err := readAttempt(w, r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.presentation.ScoreContextSpin(r.Context(), r.FormValue("scenario"), ParseWords(r.FormValue("words")), attempt)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// GetPrecisionDrill handles GET /api/v1/presentation/precision-drill/get_precision_drill
func (h *PresentationHandler) GetPrecisionDrill(w http.ResponseWriter, r *http.Request) {
	result, err := h.presentation.PrecisionDrill(r.Context(), callerID(r))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// ScorePrecisionDrill handles POST /api/v1/presentation/precision-drill/precision_drill
//
// multipart/form-data: wordlist (JSON array or comma list), file
func (h *PresentationHandler) ScorePrecisionDrill(w http.ResponseWriter, r *http.Request) {
	attempt, err := readAttempt(w, r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.presentation.ScorePrecisionDrill(r.Context(), ParseWords(r.FormValue("wordlist")), attempt)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}
