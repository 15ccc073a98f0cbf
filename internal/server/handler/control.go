package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantfold/zerodte/internal/domain"
)

// ControlHandler exposes the two control-plane scalars the loop reads each
// cycle: the operating mode and the focus question.
type ControlHandler struct {
	control domain.ControlStore
	logger  *slog.Logger
}

// NewControlHandler creates a ControlHandler over the control store.
func NewControlHandler(control domain.ControlStore, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{control: control, logger: logger}
}

// GetMode returns the current operating mode.
// GET /api/mode
func (h *ControlHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	mode, err := h.control.Mode(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "mode read failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read mode")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

// SetMode updates the operating mode. The loop picks it up on its next cycle.
// PUT /api/mode {"mode": "auto|fast|full"}
func (h *ControlHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	mode, err := domain.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.control.SetMode(r.Context(), mode); err != nil {
		h.logger.ErrorContext(r.Context(), "mode write failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to set mode")
		return
	}

	h.logger.InfoContext(r.Context(), "mode changed", slog.String("mode", string(mode)))
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

// GetFocus returns the operator focus question, empty when scanning.
// GET /api/focus
func (h *ControlHandler) GetFocus(w http.ResponseWriter, r *http.Request) {
	focus, err := h.control.Focus(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "focus read failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read focus")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"focus": focus})
}

// SetFocus updates the focus question; an empty focus returns the loop to
// scanning.
// PUT /api/focus {"focus": "..."}
func (h *ControlHandler) SetFocus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Focus string `json:"focus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.control.SetFocus(r.Context(), body.Focus); err != nil {
		h.logger.ErrorContext(r.Context(), "focus write failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to set focus")
		return
	}

	h.logger.InfoContext(r.Context(), "focus changed", slog.Bool("cleared", body.Focus == ""))
	writeJSON(w, http.StatusOK, map[string]string{"focus": body.Focus})
}
