package swarm

import (
	"fmt"

	"github.com/quantfold/zerodte/internal/domain"
)

// buildPrompt renders the shared graph prompt. Every agent sees the same
// text; the per-agent instruction blocks tell each specialist which slice is
// theirs.
func buildPrompt(depth domain.OperatingMode, task, ticker, date string) string {
	if depth == domain.ModeFull {
		return fmt.Sprintf(fullPromptTemplate, task, ticker, date,
			ticker, ticker, ticker, ticker, ticker)
	}
	return fmt.Sprintf(fastPromptTemplate, task, ticker, date, ticker, ticker)
}

const fullPromptTemplate = `TASK: %s

TICKER: %s
DATE: %s

INSTRUCTIONS FOR EACH AGENT:

[MARKET BREADTH AGENT]
Analyze open interest breadth for %s and identify key levels (max pain, put wall, call wall) for 0DTE trading today.

[SETUP AGENT]
Configure options monitoring for %s based on the OI key levels identified by the Market Breadth Agent.

[ORDER FLOW AGENT]
Analyze order flow for %s and Mag 7 tickers to detect institutional patterns, volume imbalances, and intraday trading signals.

[OPTIONS FLOW AGENT]
Analyze options flow for %s to identify smart money positioning, sweeps, blocks, and PUT/CALL bias.

[FINANCIAL DATA AGENT]
Perform technical analysis for %s including volume profile, technical indicators, ORB (Opening Range Breakout), and FVG (Fair Value Gaps).

[COORDINATOR AGENT]
Synthesize all specialist insights, cross-validate signals across agents, and decide on a single actionable stance. End your response with exactly one line of JSON:
{"action": "CALL|PUT|WAIT|EXIT", "signal": "ENTRY|HOLD|null", "price": <last>, "entry": <level|null>, "stop": <level|null>, "target": <level|null>, "conviction": "HIGH|MED|LOW"}`

const fastPromptTemplate = `TASK: %s

TICKER: %s
DATE: %s

INSTRUCTIONS FOR EACH AGENT:

[ORDER FLOW AGENT]
Quick read of order flow for %s: volume imbalance, tape pressure, any institutional prints since the last cycle.

[TECHNICALS AGENT]
Quick technical check for %s: price vs VWAP, RSI, EMA 9/21 cross, MACD, ORB position.

[COORDINATOR AGENT]
Synthesize both reads against the current position state in the task. End your response with exactly one line of JSON:
{"action": "CALL|PUT|WAIT|EXIT", "signal": "ENTRY|HOLD|null", "price": <last>, "entry": <level|null>, "stop": <level|null>, "target": <level|null>, "conviction": "HIGH|MED|LOW"}`
