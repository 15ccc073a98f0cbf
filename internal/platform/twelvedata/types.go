package twelvedata

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Number decodes a Twelve Data numeric field, which the API serialises as a
// JSON string ("571.42") but occasionally as a bare number.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*n = 0
	case float64:
		*n = Number(v)
	case string:
		if v == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("twelvedata: parse number %q: %w", v, err)
		}
		*n = Number(f)
	default:
		return fmt.Errorf("twelvedata: unexpected number type %T", raw)
	}
	return nil
}

// Quote is the real-time quote for a symbol.
type Quote struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Open          Number `json:"open"`
	High          Number `json:"high"`
	Low           Number `json:"low"`
	Close         Number `json:"close"`
	Volume        Number `json:"volume"`
	PreviousClose Number `json:"previous_close"`
	Change        Number `json:"change"`
	PercentChange Number `json:"percent_change"`
	IsMarketOpen  bool   `json:"is_market_open"`
}

// Candle is one bar of a time series, newest first as the API returns them.
type Candle struct {
	Datetime string `json:"datetime"`
	Open     Number `json:"open"`
	High     Number `json:"high"`
	Low      Number `json:"low"`
	Close    Number `json:"close"`
	Volume   Number `json:"volume"`
}

// IndicatorValue is one point of a technical indicator series. Only the
// fields matching the requested indicator are populated.
type IndicatorValue struct {
	Datetime   string `json:"datetime"`
	RSI        Number `json:"rsi,omitempty"`
	VWAP       Number `json:"vwap,omitempty"`
	EMA        Number `json:"ema,omitempty"`
	MACD       Number `json:"macd,omitempty"`
	MACDSignal Number `json:"macd_signal,omitempty"`
	MACDHist   Number `json:"macd_hist,omitempty"`
}

// apiError is the error envelope the API returns with HTTP 200.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
