package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/zerodte/internal/domain"
	"github.com/quantfold/zerodte/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memControl struct {
	mode  domain.OperatingMode
	focus string
}

func (m *memControl) Mode(context.Context) (domain.OperatingMode, error) {
	if m.mode == "" {
		return domain.ModeFast, nil
	}
	return m.mode, nil
}

func (m *memControl) SetMode(_ context.Context, mode domain.OperatingMode) error {
	m.mode = mode
	return nil
}

func (m *memControl) Focus(context.Context) (string, error) { return m.focus, nil }
func (m *memControl) SetFocus(_ context.Context, f string) error {
	m.focus = f
	return nil
}

func TestHistoryReturnsOldestFirst(t *testing.T) {
	mem := stream.NewMemory(0)
	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, mem.Append(context.Background(), domain.EventRecord{
			Type:    domain.EventQuestion,
			Content: content,
		}))
	}

	h := NewEventsHandler(mem, testLogger())
	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count  int                  `json:"count"`
		Events []domain.EventRecord `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "second", body.Events[0].Content)
	assert.Equal(t, "third", body.Events[1].Content)
}

func TestHistoryEmptyFeed(t *testing.T) {
	h := NewEventsHandler(stream.NewMemory(0), testLogger())
	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"events":[]`)
}

func TestSetModeValidates(t *testing.T) {
	control := &memControl{}
	h := NewControlHandler(control, testLogger())

	rec := httptest.NewRecorder()
	h.SetMode(rec, httptest.NewRequest(http.MethodPut, "/api/mode",
		strings.NewReader(`{"mode":"turbo"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.SetMode(rec, httptest.NewRequest(http.MethodPut, "/api/mode",
		strings.NewReader(`{"mode":"full"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ModeFull, control.mode)
}

func TestFocusRoundTrip(t *testing.T) {
	control := &memControl{}
	h := NewControlHandler(control, testLogger())

	rec := httptest.NewRecorder()
	h.SetFocus(rec, httptest.NewRequest(http.MethodPut, "/api/focus",
		strings.NewReader(`{"focus":"watch the put wall at 570"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "watch the put wall at 570", control.focus)

	rec = httptest.NewRecorder()
	h.GetFocus(rec, httptest.NewRequest(http.MethodGet, "/api/focus", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "put wall")

	// Empty focus clears back to scanning.
	rec = httptest.NewRecorder()
	h.SetFocus(rec, httptest.NewRequest(http.MethodPut, "/api/focus",
		strings.NewReader(`{"focus":""}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, control.focus)
}

func TestUsageRejectsBadDate(t *testing.T) {
	h := NewUsageHandler(usageStoreStub{}, nil, testLogger())
	rec := httptest.NewRecorder()
	h.Usage(rec, httptest.NewRequest(http.MethodGet, "/api/usage?date=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type usageStoreStub struct{}

func (usageStoreStub) SaveCycle(context.Context, domain.UsageCycle) error { return nil }
func (usageStoreStub) DailySummary(context.Context, string) (domain.UsageSummary, error) {
	return domain.UsageSummary{Cycles: 2, InputTokens: 100, OutputTokens: 40}, nil
}
func (usageStoreStub) RecentCycles(context.Context, string, int) ([]domain.UsageCycle, error) {
	return nil, nil
}

func TestUsageReturnsSummary(t *testing.T) {
	h := NewUsageHandler(usageStoreStub{}, nil, testLogger())
	rec := httptest.NewRecorder()
	h.Usage(rec, httptest.NewRequest(http.MethodGet, "/api/usage?date=2025-03-14", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cycles":[]`)
	assert.Contains(t, rec.Body.String(), `"input_tokens":100`)
}
