package server

import (
	"context"
	"sync"
	"time"

	"github.com/cadre-oss/reqcheck/internal/event"
	"github.com/cadre-oss/reqcheck/internal/telemetry"
)

// clientBuffer is how many events a slow client may lag before events
// are dropped for it.
const clientBuffer = 64

// SSEEvent is one pipeline event as streamed to clients.
type SSEEvent struct {
	Seq       uint64                 `json:"seq"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	RunID     string                 `json:"run_id,omitempty"`
	Stage     string                 `json:"stage,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Client is one connected event stream.
type Client struct {
	ID    string
	RunID string // empty receives every run
	// Events is closed once the subscription context ends.
	Events <-chan SSEEvent

	events  chan SSEEvent
	dropped uint64
}

// Broker fans pipeline events out to SSE clients. It is an event.Hook,
// registered on the bus of every review the server runs.
type Broker struct {
	mu      sync.RWMutex
	clients map[string]*Client
	seq     uint64
	logger  *telemetry.Logger
}

// NewBroker creates a broker with no clients.
func NewBroker(logger *telemetry.Logger) *Broker {
	return &Broker{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Subscribe registers a client until ctx is done. runID limits the
// stream to one run.
func (b *Broker) Subscribe(ctx context.Context, clientID, runID string) *Client {
	ch := make(chan SSEEvent, clientBuffer)
	c := &Client{ID: clientID, RunID: runID, Events: ch, events: ch}

	b.mu.Lock()
	b.clients[clientID] = c
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.clients, clientID)
		b.mu.Unlock()
		close(c.events)
		if c.dropped > 0 {
			b.logger.Warn("SSE client lagged", "client", clientID, "dropped", c.dropped)
		}
	}()

	return c
}

// Broadcast numbers ev and queues it for every client following its run.
// Events without a run ID reach every client.
func (b *Broker) Broadcast(ev SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev.Seq = b.seq
	for _, c := range b.clients {
		if c.RunID != "" && ev.RunID != "" && c.RunID != ev.RunID {
			continue
		}
		select {
		case c.events <- ev:
		default:
			c.dropped++
		}
	}
}

// Clients reports how many SSE clients are connected.
func (b *Broker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// --- event.Hook ---

func (b *Broker) Name() string                 { return "sse-broker" }
func (b *Broker) Matches(event.EventType) bool { return true }
func (b *Broker) IsBlocking() bool             { return false }

// Handle converts a bus event and broadcasts it.
func (b *Broker) Handle(ev event.Event) error {
	runID, _ := ev.Data["run_id"].(string)
	stage, _ := ev.Data["stage"].(string)
	b.Broadcast(SSEEvent{
		Type:      string(ev.Type),
		Timestamp: ev.Timestamp,
		RunID:     runID,
		Stage:     stage,
		Data:      ev.Data,
	})
	return nil
}
