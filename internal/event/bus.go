package event

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Bus delivers pipeline events to hooks.
//
// Blocking hooks run in registration order on the emitting goroutine, and
// the first failure is returned. Non-blocking hooks each get a goroutine;
// their failures and panics are logged. Drain waits for those goroutines.
// A nil Bus ignores every call.
type Bus struct {
	mu       sync.RWMutex
	hooks    []Hook
	enabled  bool
	logger   Logger
	inflight sync.WaitGroup
}

// Logger is the slice of telemetry.Logger the bus needs.
type Logger interface {
	Warn(msg string, keyvals ...interface{})
}

// NewBus creates an enabled bus. logger may be nil.
func NewBus(logger Logger) *Bus {
	return &Bus{enabled: true, logger: logger}
}

// Register adds a hook.
func (b *Bus) Register(h Hook) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, h)
}

// SetEnabled turns delivery on or off.
func (b *Bus) SetEnabled(enabled bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// Emit delivers ev to every matching hook. An event without a timestamp
// is stamped with the current time.
func (b *Bus) Emit(ev Event) error {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	if !b.enabled {
		b.mu.RUnlock()
		return nil
	}
	hooks := append([]Hook(nil), b.hooks...)
	b.mu.RUnlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	for _, h := range hooks {
		if !h.Matches(ev.Type) {
			continue
		}
		if h.IsBlocking() {
			if err := h.Handle(ev); err != nil {
				return fmt.Errorf("blocking hook %s failed: %w", h.Name(), err)
			}
			continue
		}
		b.inflight.Add(1)
		go b.deliver(h, ev)
	}
	return nil
}

func (b *Bus) deliver(h Hook, ev Event) {
	defer b.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			b.warn("Non-blocking hook panicked", h, ev, "panic", r)
		}
	}()
	if err := h.Handle(ev); err != nil {
		b.warn("Non-blocking hook failed", h, ev, "error", err)
	}
}

func (b *Bus) warn(msg string, h Hook, ev Event, keyvals ...interface{}) {
	if b.logger == nil {
		return
	}
	b.logger.Warn(msg, append([]interface{}{"hook", h.Name(), "event", string(ev.Type)}, keyvals...)...)
}

// Drain waits until every non-blocking delivery started so far has
// finished, or ctx is done.
func (b *Bus) Drain(ctx context.Context) error {
	if b == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
