package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"

	"github.com/joelklabo/nostr-api/identity"
)

const (
	maxStreamSubs  = 10
	wsWriteTimeout = 5 * time.Second
	streamEndpoint = "/api/event/stream"
)

// StreamMessage is the envelope for all event stream messages.
type StreamMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Filter  *nostr.Filter   `json:"filter,omitempty"`
	Relays  []string        `json:"relays,omitempty"`
	Event   *identity.Event `json:"event,omitempty"`
	Error   string          `json:"error,omitempty"`
	Clients int             `json:"clients,omitempty"`
}

// StreamClient is one connected WebSocket client and its live subscriptions.
type StreamClient struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	subs   map[string]*streamSub
	cancel context.CancelFunc
}

// streamSub is one live subscription. Its address identifies it, so a
// finished subscription never removes a newer one that reuses its id.
type streamSub struct {
	cancel context.CancelFunc
}

// StreamHub tracks connected clients and feeds their subscriptions from a
// RelayTransport.
type StreamHub struct {
	mu        sync.Mutex
	clients   map[*StreamClient]bool
	transport RelayTransport
}

func NewStreamHub(t RelayTransport) *StreamHub {
	return &StreamHub{
		clients:   make(map[*StreamClient]bool),
		transport: t,
	}
}

func (h *StreamHub) Register(c *StreamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *StreamHub) Unregister(c *StreamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *StreamHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Used on shutdown.
func (h *StreamHub) Close() {
	h.mu.Lock()
	clients := make([]*StreamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.cancel()
	}
}

func (c *StreamClient) send(ctx context.Context, msg StreamMessage) error {
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, c.conn, msg)
}

// subscribe opens a relay subscription and forwards its events until the
// subscription is cancelled or the relays close it.
func (h *StreamHub) subscribe(ctx context.Context, c *StreamClient, msg StreamMessage) {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}

	c.mu.Lock()
	_, dup := c.subs[id]
	full := len(c.subs) >= maxStreamSubs
	c.mu.Unlock()
	switch {
	case dup:
		_ = c.send(ctx, StreamMessage{Type: "error", ID: id, Error: "subscription id already in use"})
		return
	case full:
		_ = c.send(ctx, StreamMessage{Type: "error", ID: id, Error: "too many subscriptions"})
		return
	}

	urls, err := relaysFor("", msg.Relays)
	if err != nil {
		_ = c.send(ctx, StreamMessage{Type: "error", ID: id, Error: err.Error()})
		return
	}
	var filter nostr.Filter
	if msg.Filter != nil {
		filter = *msg.Filter
	}

	subCtx, cancel := context.WithCancel(ctx)
	events, err := h.transport.Subscribe(subCtx, urls, filter)
	if err != nil {
		cancel()
		_ = c.send(ctx, StreamMessage{Type: "error", ID: id, Error: err.Error()})
		return
	}

	sub := &streamSub{cancel: cancel}
	c.mu.Lock()
	c.subs[id] = sub
	c.mu.Unlock()
	_ = c.send(ctx, StreamMessage{Type: "subscribed", ID: id, Relays: urls})

	go func() {
		defer func() {
			c.mu.Lock()
			if c.subs[id] == sub {
				delete(c.subs, id)
			}
			c.mu.Unlock()
			cancel()
		}()
		for evt := range events {
			if err := c.send(subCtx, StreamMessage{Type: "event", ID: id, Event: &evt}); err != nil {
				slog.Debug("ws: send event failed", "sub", id, "err", err)
				return
			}
		}
		if subCtx.Err() == nil {
			_ = c.send(ctx, StreamMessage{Type: "closed", ID: id})
		}
	}()
}

// unsubscribe cancels one subscription, or all of them when id is empty.
func (c *StreamClient) unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for subID, sub := range c.subs {
		if id == "" || subID == id {
			sub.cancel()
			delete(c.subs, subID)
		}
	}
}

func (h *StreamHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("ws: accept failed", "err", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &StreamClient{
		conn:   conn,
		subs:   make(map[string]*streamSub),
		cancel: cancel,
	}
	h.Register(client)
	defer func() {
		h.Unregister(client)
		client.unsubscribe("")
		cancel()
		conn.CloseNow()
	}()

	_ = client.send(ctx, StreamMessage{Type: "connected", Clients: h.ClientCount()})

	for {
		var msg StreamMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return
		}

		switch msg.Type {
		case "subscribe":
			h.subscribe(ctx, client, msg)
		case "unsubscribe":
			client.unsubscribe(msg.ID)
			_ = client.send(ctx, StreamMessage{Type: "unsubscribed", ID: msg.ID})
		default:
			_ = client.send(ctx, StreamMessage{Type: "error", Error: "unknown message type: " + msg.Type})
		}
	}
}

// handleEventStream upgrades WebSocket requests and documents the endpoint
// for plain GETs.
func handleEventStream(hub *StreamHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			hub.handleWebSocket(w, r)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"endpoint":          streamEndpoint,
			"protocol":          "websocket",
			"connected_clients": hub.ClientCount(),
			"description":       "Live relay events matching a filter. Every event is id- and signature-checked before it is pushed.",
			"messages": map[string]interface{}{
				"subscribe": map[string]interface{}{
					"description": "Open a subscription (max 10 per connection). id is optional.",
					"example":     `{"type":"subscribe","id":"notes","filter":{"kinds":[1],"limit":10},"relays":["wss://nos.lol"]}`,
				},
				"unsubscribe": map[string]interface{}{
					"description": "Close one subscription by id, or all of them without an id",
					"example":     `{"type":"unsubscribe","id":"notes"}`,
				},
			},
			"responses": map[string]interface{}{
				"connected":    "Sent on connection",
				"subscribed":   "Subscription is open; carries its id and relays",
				"event":        "A verified event for subscription id",
				"closed":       "The relays ended subscription id",
				"unsubscribed": "Acknowledges unsubscribe",
				"error":        "Sent when a message cannot be processed",
			},
		})
	}
}
