// Package events delivers committed state transitions to subscribers:
// the audit log, the trade store, metrics, logs and the websocket feed.
package events

import (
	"context"
	"log"
	"strings"
	"sync"

	"token-launchpad/internal/domain"
)

// Sink receives committed events. Publish must not call back into the
// component that emitted the event; producers hold their state lock while publishing.
type Sink interface {
	Publish(ctx context.Context, e domain.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e domain.Event)

// Publish calls f(ctx, e).
func (f SinkFunc) Publish(ctx context.Context, e domain.Event) {
	f(ctx, e)
}

// Nop discards every event.
var Nop Sink = SinkFunc(func(context.Context, domain.Event) {})

// Bus fans an event out to every subscribed sink in subscription order.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewBus creates a bus with the given sinks.
func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: append([]Sink(nil), sinks...)}
}

// Subscribe adds a sink.
func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish delivers e to every sink.
func (b *Bus) Publish(ctx context.Context, e domain.Event) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()

	for _, s := range sinks {
		s.Publish(ctx, e)
	}
}

// LogSink writes one line per event.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs e.
func (s *LogSink) Publish(_ context.Context, e domain.Event) {
	var sb strings.Builder
	for i, a := range e.Attributes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(a.Key)
		sb.WriteByte('=')
		sb.WriteString(a.Value)
	}
	s.logger.Printf("%s subject=%s %s", e.Kind, e.Subject, sb.String())
}

// Collector keeps every event in memory. Used by tests and the simulator.
type Collector struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Publish appends e.
func (c *Collector) Publish(_ context.Context, e domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the collected events.
func (c *Collector) Events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.events...)
}

// Kinds returns the kinds of the collected events in order.
func (c *Collector) Kinds() []domain.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]domain.EventKind, len(c.events))
	for i, e := range c.events {
		kinds[i] = e.Kind
	}
	return kinds
}
