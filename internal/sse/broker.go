// Package sse streams workspace, vault and palette changes to browser
// clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event types published by the server besides the editor changes, which
// keep their own names.
const (
	TypeVaultCreated   = "vault.document.created"
	TypeVaultUpdated   = "vault.document.updated"
	TypeVaultDeleted   = "vault.document.deleted"
	TypeVaultChanged   = "vault.changed"
	TypePaletteChanged = "palette.changed"
)

// Event represents an SSE event to broadcast. An empty ID is filled with a
// random UUID so clients can resume with Last-Event-ID.
type Event struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

type vaultEventReq struct {
	kind string
	path string
}

// subscription is a client channel and the event type prefixes it wants.
// No prefixes means every event.
type subscription struct {
	ch       chan []byte
	prefixes []string
}

func (s subscription) wants(eventType string) bool {
	if len(s.prefixes) == 0 {
		return true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}
	return false
}

// keepAlive is how often an idle stream gets a comment line.
const keepAlive = 25 * time.Second

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set and the vault.changed
// throttle; public methods talk to it over channels.
type Broker struct {
	vaultMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	vaultEventCh  chan vaultEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one vault.changed summary
// per throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		vaultMin:      throttle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		vaultEventCh:  make(chan vaultEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]subscription)
	var lastVault time.Time

	broadcast := func(event Event) {
		raw, err := encode(event)
		if err != nil {
			return
		}

		for ch, sub := range clients {
			if !sub.wants(event.Type) {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.vaultEventCh:
			data := map[string]string{"path": req.path}
			switch req.kind {
			case "created":
				broadcast(Event{Type: TypeVaultCreated, Data: data})
			case "updated":
				broadcast(Event{Type: TypeVaultUpdated, Data: data})
			case "deleted":
				broadcast(Event{Type: TypeVaultDeleted, Data: data})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastVault) >= b.vaultMin {
				lastVault = now
				broadcast(Event{Type: TypeVaultChanged, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. With prefixes the
// client only receives events whose type starts with one of them.
func (b *Broker) Subscribe(prefixes ...string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, prefixes: prefixes}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishVaultEvent publishes an on-disk document change seen by the index
// watcher, followed by a throttled vault.changed summary. kind is one of
// "created", "updated", "deleted".
func (b *Broker) PublishVaultEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.vaultEventCh <- vaultEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	return fmt.Appendf(nil, "id: %s\nevent: %s\ndata: %s\n\n", id, event.Type, payload), nil
}

// typePrefixes parses ?types=snippet.,palette. into subscription prefixes.
func typePrefixes(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["types"] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// types query parameter restricts the stream to some event families.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(typePrefixes(r)...)
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
