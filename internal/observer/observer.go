// Package observer serves a read-only WebSocket feed of the controller's
// packet traffic, so a dashboard can watch a run live without getting in
// the way of C10's dispatch loop.
package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/ehrlich-b/deskmonkey/internal/logging"
)

const writeTimeout = 2 * time.Second

// subscriberBuffer bounds how many frames a slow client can fall behind by
// before it gets dropped; the controller's broadcast never blocks on it.
const subscriberBuffer = 64

// Frame is one observer event, matching the ObserverFrame wire shape.
type Frame struct {
	Seq     uint64 `json:"seq"`
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// Hub fans a sequence of Frames out to every connected WebSocket client.
// Broadcast is fire-and-forget: a subscriber whose buffer fills is dropped
// rather than allowed to stall the sender.
type Hub struct {
	seq atomic.Uint64

	mu   sync.Mutex
	subs map[chan Frame]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Frame]struct{})}
}

// Broadcast assigns the next sequence number to kind/payload and fans it out
// to every connected subscriber, dropping any that aren't keeping up.
func (h *Hub) Broadcast(kind, payload string) {
	frame := Frame{Seq: h.seq.Add(1), Kind: kind, Payload: payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- frame:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *Hub) subscribe() chan Frame {
	ch := make(chan Frame, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Handler returns an http.Handler serving GET /v1/observe: it upgrades to a
// WebSocket, streams Frames to the client, and never reads anything beyond
// noticing a client-initiated close.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(h.serveWS)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logging.Warn("observer: accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	ctx := r.Context()
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// The only thing read from the client is its close frame.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case frame, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "slow consumer")
				return
			}
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
