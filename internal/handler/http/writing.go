package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/service"
	"github.com/windfall/drill_service/pkg/response"
)

// WritingHandler serves the topic writing exercise.
type WritingHandler struct {
	log     zerolog.Logger
	writing *service.WritingService
}

// NewWritingHandler creates a new WritingHandler.
func NewWritingHandler(log zerolog.Logger, writing *service.WritingService) *WritingHandler {
	return &WritingHandler{log: log, writing: writing}
}

// TopicRequest is the body of POST /writing/topic.
type TopicRequest struct {
	Topic string `json:"topic"`
}

// Topic handles POST /api/v1/writing/topic
func (h *WritingHandler) Topic(w http.ResponseWriter, r *http.Request) {
	var req TopicRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.writing.Topic(r.Context(), callerID(r), req.Topic)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// Final handles POST /api/v1/writing/final
func (h *WritingHandler) Final(w http.ResponseWriter, r *http.Request) {
	var req service.WritingSubmission
	if err := decodeJSON(r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.writing.Final(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}
