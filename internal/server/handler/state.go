package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/quantfold/zerodte/internal/domain"
)

// StateResolver reconstructs the current trade state.
type StateResolver interface {
	Resolve(ctx context.Context) (domain.TradeState, error)
}

// StateHandler serves the resolved trade state.
type StateHandler struct {
	resolver StateResolver
	logger   *slog.Logger
}

// NewStateHandler creates a StateHandler over the resolver.
func NewStateHandler(resolver StateResolver, logger *slog.Logger) *StateHandler {
	return &StateHandler{resolver: resolver, logger: logger}
}

// State returns the trade state reconstructed from the feed. The state is
// computed on every request; nothing is cached.
// GET /api/state
func (h *StateHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.resolver.Resolve(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "state resolution failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve trade state")
		return
	}

	writeJSON(w, http.StatusOK, state)
}
