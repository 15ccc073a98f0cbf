package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantfold/zerodte/internal/domain"
)

// EventsHandler serves the stored event history.
type EventsHandler struct {
	stream domain.EventStream
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler over the event stream.
func NewEventsHandler(stream domain.EventStream, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{stream: stream, logger: logger}
}

// History returns the most recent events, oldest first, so a client can
// replay the feed it missed before its WebSocket connected.
// GET /api/history?limit=N
func (h *EventsHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	records, err := h.stream.History(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "history read failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	session, err := h.stream.SessionID(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "session lookup failed",
			slog.String("error", err.Error()),
		)
	}

	if records == nil {
		records = []domain.EventRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": session,
		"count":      len(records),
		"events":     records,
	})
}
