package swarm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quantfold/zerodte/internal/domain"
	"github.com/quantfold/zerodte/internal/platform/twelvedata"
)

// orbCandles is the opening range: the first six 5-minute bars of the day.
const orbCandles = 6

// SnapshotWorker is a data worker: instead of reasoning it fetches a market
// snapshot (quote, RSI, VWAP, EMA 9/21, MACD, opening range) and returns it
// as a JSON report for downstream agents. The snapshot is also published to
// the event feed so the UI can chart it.
type SnapshotWorker struct {
	td     *twelvedata.Client
	stream domain.EventStream
	symbol string
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// NewSnapshotWorker creates a snapshot worker for the given symbol. stream
// may be nil to skip feed publication.
func NewSnapshotWorker(td *twelvedata.Client, stream domain.EventStream, symbol string, loc *time.Location, logger *slog.Logger) *SnapshotWorker {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWorker{
		td:     td,
		stream: stream,
		symbol: symbol,
		loc:    loc,
		logger: logger.With(slog.String("component", "snapshot")),
		now:    time.Now,
	}
}

type snapshot struct {
	Symbol    string   `json:"symbol"`
	Timestamp string   `json:"timestamp"`
	Price     float64  `json:"price"`
	ChangePct float64  `json:"change_pct"`
	RSI       *float64 `json:"rsi,omitempty"`
	VWAP      *float64 `json:"vwap,omitempty"`
	EMA9      *float64 `json:"ema_9,omitempty"`
	EMA21     *float64 `json:"ema_21,omitempty"`
	MACD      *macd    `json:"macd,omitempty"`
	ORB       *orb     `json:"orb,omitempty"`
}

type macd struct {
	Line      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type orb struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Range float64 `json:"range"`
}

// Invoke fetches the snapshot. The quote is mandatory; indicator fetches are
// best-effort and a failed one simply leaves its field out of the report.
func (w *SnapshotWorker) Invoke(ctx context.Context, task string, shared map[string]string) (domain.WorkerResult, error) {
	symbol := w.symbol
	if s := shared["ticker"]; s != "" {
		symbol = s
	}

	quote, err := w.td.GetQuote(ctx, symbol)
	if err != nil {
		return domain.WorkerResult{}, fmt.Errorf("swarm: snapshot quote: %w", err)
	}

	now := w.now().In(w.loc)
	snap := snapshot{
		Symbol:    symbol,
		Timestamp: now.Format("2006-01-02 15:04:05"),
		Price:     float64(quote.Close),
		ChangePct: float64(quote.PercentChange),
	}

	const interval = "5min"

	if v, err := w.td.GetRSI(ctx, symbol, interval); err == nil {
		snap.RSI = ptr(float64(v.RSI))
	} else {
		w.logger.Debug("rsi fetch failed", slog.String("error", err.Error()))
	}
	if v, err := w.td.GetVWAP(ctx, symbol, interval); err == nil {
		snap.VWAP = ptr(float64(v.VWAP))
	} else {
		w.logger.Debug("vwap fetch failed", slog.String("error", err.Error()))
	}
	if v, err := w.td.GetEMA(ctx, symbol, interval, 9); err == nil {
		snap.EMA9 = ptr(float64(v.EMA))
	} else {
		w.logger.Debug("ema9 fetch failed", slog.String("error", err.Error()))
	}
	if v, err := w.td.GetEMA(ctx, symbol, interval, 21); err == nil {
		snap.EMA21 = ptr(float64(v.EMA))
	} else {
		w.logger.Debug("ema21 fetch failed", slog.String("error", err.Error()))
	}
	if v, err := w.td.GetMACD(ctx, symbol, interval); err == nil {
		snap.MACD = &macd{
			Line:      float64(v.MACD),
			Signal:    float64(v.MACDSignal),
			Histogram: float64(v.MACDHist),
		}
	} else {
		w.logger.Debug("macd fetch failed", slog.String("error", err.Error()))
	}
	if candles, err := w.td.GetTimeSeries(ctx, symbol, interval, 50); err == nil {
		snap.ORB = calcORB(candles, now.Format("2006-01-02"))
	} else {
		w.logger.Debug("time series fetch failed", slog.String("error", err.Error()))
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return domain.WorkerResult{}, fmt.Errorf("swarm: marshal snapshot: %w", err)
	}

	if w.stream != nil {
		rec := domain.EventRecord{
			Type:    domain.EventMarketSnapshot,
			Content: string(body),
		}
		if err := w.stream.Append(ctx, rec); err != nil {
			w.logger.Warn("snapshot publish failed", slog.String("error", err.Error()))
		}
	}

	return domain.WorkerResult{Text: string(body)}, nil
}

// calcORB derives the opening range from 5-minute candles. Returns nil until
// the first half hour of the day has printed.
func calcORB(candles []twelvedata.Candle, day string) *orb {
	var today []twelvedata.Candle
	for _, c := range candles {
		if strings.HasPrefix(c.Datetime, day) {
			today = append(today, c)
		}
	}
	if len(today) < orbCandles {
		return nil
	}

	// The API returns newest first; the opening range is the oldest six.
	opening := today[len(today)-orbCandles:]
	high := float64(opening[0].High)
	low := float64(opening[0].Low)
	for _, c := range opening[1:] {
		if h := float64(c.High); h > high {
			high = h
		}
		if l := float64(c.Low); l < low {
			low = l
		}
	}
	return &orb{High: high, Low: low, Range: high - low}
}

func ptr(f float64) *float64 { return &f }

// Compile-time interface check.
var _ domain.Worker = (*SnapshotWorker)(nil)
