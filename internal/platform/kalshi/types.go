package kalshi

import "encoding/json"

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// Market represents a market as returned by the Kalshi public REST API.
// Prices arrive in cents (1-99) on this API surface.
type Market struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle"`
	Status         string  `json:"status"` // "open", "closed", "settled"
	YesBid         float64 `json:"yes_bid"`
	YesAsk         float64 `json:"yes_ask"`
	LastPrice      float64 `json:"last_price"`
	Volume         int64   `json:"volume"`
	Volume24H      int64   `json:"volume_24h"`
	OpenInterest   int64   `json:"open_interest"`
	Category       string  `json:"category"`
	StrikeType     string  `json:"strike_type"`
	FloorStrike    float64 `json:"floor_strike"`
	CapStrike      float64 `json:"cap_strike"`
	Result         string  `json:"result"` // "yes", "no", "" (unsettled)
	OpenTime       string  `json:"open_time"`
	CloseTime      string  `json:"close_time"`
	ExpirationTime string  `json:"expiration_time"`
}

// Settled reports whether the market has resolved to a side.
func (m Market) Settled() bool {
	return m.Result == "yes" || m.Result == "no"
}

// ErrorResponse represents a Kalshi API error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// Kalshi WebSocket DTOs
// --------------------------------------------------------------------------

// WSMessage is the envelope for Kalshi WebSocket messages.
type WSMessage struct {
	Type string          `json:"type"` // "ticker", "ticker_v2", ...
	Msg  json.RawMessage `json:"msg"`
	SID  int64           `json:"sid"`
}

// WSTicker is the price update payload of the ticker channel, in cents.
type WSTicker struct {
	Ticker string  `json:"market_ticker"`
	Price  float64 `json:"price"`
	YesBid float64 `json:"yes_bid"`
	YesAsk float64 `json:"yes_ask"`
	Volume int64   `json:"volume"`
	TS     int64   `json:"ts"`
}

// WSSubscribeCmd is the command sent to subscribe to WebSocket channels.
type WSSubscribeCmd struct {
	ID     int64             `json:"id"`
	Cmd    string            `json:"cmd"` // "subscribe" or "unsubscribe"
	Params WSSubscribeParams `json:"params"`
}

// WSSubscribeParams defines the subscription parameters.
type WSSubscribeParams struct {
	Channels []string `json:"channels"`
	Tickers  []string `json:"market_tickers"`
}
