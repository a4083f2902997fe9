package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/service"
	"github.com/windfall/drill_service/pkg/response"
)

// HistoryHandler serves the generation log.
type HistoryHandler struct {
	log     zerolog.Logger
	history *service.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(log zerolog.Logger, history *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{log: log, history: history}
}

// Recent handles GET /api/v1/history/{service}?limit=
func (h *HistoryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	name := chi.URLParam(r, "service")
	records, err := h.history.Recent(r.Context(), name, limit)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, records, &response.Meta{
		Total:   len(records),
		Limit:   limit,
		Service: name,
	})
}
