package handler

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/quantfold/zerodte/internal/domain"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// UsageHandler serves the token usage dashboard data.
type UsageHandler struct {
	usage  domain.UsageStore
	loc    *time.Location
	logger *slog.Logger
}

// NewUsageHandler creates a UsageHandler. loc picks today's date when the
// query omits one.
func NewUsageHandler(usage domain.UsageStore, loc *time.Location, logger *slog.Logger) *UsageHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &UsageHandler{usage: usage, loc: loc, logger: logger}
}

// Usage returns the daily summary and recent cycles for a date.
// GET /api/usage?date=YYYY-MM-DD
func (h *UsageHandler) Usage(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().In(h.loc).Format("2006-01-02")
	} else if !datePattern.MatchString(date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	summary, err := h.usage.DailySummary(r.Context(), date)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "usage summary read failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read usage")
		return
	}

	cycles, err := h.usage.RecentCycles(r.Context(), date, parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "usage cycles read failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read usage")
		return
	}
	if cycles == nil {
		cycles = []domain.UsageCycle{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":    date,
		"summary": summary,
		"cycles":  cycles,
	})
}
