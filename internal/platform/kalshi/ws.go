package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/galebot/galebot/internal/domain"
)

const (
	// wsWriteWait is the time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// wsPongWait is the time allowed to read the next pong message.
	wsPongWait = 30 * time.Second

	// wsPingPeriod sends pings at this interval. Must be less than pongWait.
	wsPingPeriod = (wsPongWait * 9) / 10

	// wsReconnectDelay is the base delay before attempting to reconnect.
	wsReconnectDelay = 2 * time.Second

	// wsMaxReconnectDelay caps the exponential backoff.
	wsMaxReconnectDelay = 60 * time.Second
)

// QuoteHandler is called for every price update received via WebSocket.
type QuoteHandler func(domain.MarketQuote)

// WSClient streams real-time Kalshi price updates over the ticker channel.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Tracked subscriptions for reconnection.
	subscribedTickers []string
	cmdID             int64

	quoteHandlers []QuoteHandler
	handlerMu     sync.RWMutex

	// done is closed when the client shuts down.
	done chan struct{}
}

// NewWSClient creates a new Kalshi WebSocket client.
//
// wsURL is the WebSocket endpoint, e.g. "wss://api.elections.kalshi.com/trade-api/ws/v2".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("kalshi/ws: client is closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("kalshi/ws: connect: %w", err)
	}

	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	go w.readLoop()
	go w.pingLoop()

	// Re-subscribe to any previously tracked tickers.
	if len(w.subscribedTickers) > 0 {
		if err := w.sendSubscribe(w.subscribedTickers); err != nil {
			return fmt.Errorf("kalshi/ws: restore subscriptions: %w", err)
		}
	}

	return nil
}

// Subscribe subscribes to price updates for the given market tickers.
func (w *WSClient) Subscribe(ctx context.Context, tickers []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("kalshi/ws: not connected")
	}

	if err := w.sendSubscribe(tickers); err != nil {
		return fmt.Errorf("kalshi/ws: subscribe: %w", err)
	}

	// Track subscriptions for reconnection.
	existing := make(map[string]struct{}, len(w.subscribedTickers))
	for _, t := range w.subscribedTickers {
		existing[t] = struct{}{}
	}
	for _, t := range tickers {
		if _, ok := existing[t]; !ok {
			w.subscribedTickers = append(w.subscribedTickers, t)
		}
	}

	return nil
}

// OnQuote registers a handler that is called for every price update.
func (w *WSClient) OnQuote(handler QuoteHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.quoteHandlers = append(w.quoteHandlers, handler)
}

// Close shuts down the WebSocket connection.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// sendSubscribe sends a subscribe command. Caller must hold w.mu.
func (w *WSClient) sendSubscribe(tickers []string) error {
	w.cmdID++

	cmd := WSSubscribeCmd{
		ID:  w.cmdID,
		Cmd: "subscribe",
		Params: WSSubscribeParams{
			Channels: []string{"ticker"},
			Tickers:  tickers,
		},
	}

	w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads messages from the WebSocket and dispatches
// them to handlers. On disconnect it attempts reconnection.
func (w *WSClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.RLock()
			conn := w.conn
			w.mu.RUnlock()

			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw WebSocket message and routes it.
func (w *WSClient) handleMessage(raw []byte) {
	var envelope WSMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}

	switch envelope.Type {
	case "ticker", "ticker_v2":
		var tick WSTicker
		if err := json.Unmarshal(envelope.Msg, &tick); err != nil {
			return
		}

		quote := tickToQuote(tick)

		w.handlerMu.RLock()
		handlers := w.quoteHandlers
		w.handlerMu.RUnlock()

		for _, h := range handlers {
			h(quote)
		}
	}
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff.
func (w *WSClient) reconnect() {
	delay := wsReconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > wsMaxReconnectDelay {
			delay = wsMaxReconnectDelay
		}
	}
}

// tickToQuote converts a ticker payload into a venue quote, stamped with the
// exchange timestamp when present.
func tickToQuote(t WSTicker) domain.MarketQuote {
	fetchedAt := time.Now().UTC()
	if t.TS > 0 {
		fetchedAt = time.Unix(t.TS, 0).UTC()
	}
	q := domain.MarketQuote{
		Venue:          Venue,
		ContractTicker: t.Ticker,
		Price:          NormalizePrice(t.Price),
		FetchedAt:      fetchedAt,
	}
	if t.YesBid > 0 && t.YesAsk > 0 {
		bid := NormalizePrice(t.YesBid)
		ask := NormalizePrice(t.YesAsk)
		q.YesBid = &bid
		q.YesAsk = &ask
	}
	return q
}
