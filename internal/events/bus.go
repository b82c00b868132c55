// Package events carries domain events from request handlers to background
// consumers. Publishing never blocks the request path; consumer failures are
// logged and never reach the publisher.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind names an event type.
type Kind string

const (
	UserRegistered  Kind = "user.registered"
	OrderCompleted  Kind = "order.completed"
	ReviewSubmitted Kind = "review.submitted"
)

// Event is a fact that already happened. Fields beyond Kind and UserID are
// filled according to Kind.
type Event struct {
	Kind         Kind
	UserID       uuid.UUID
	ReferralCode string
	OrderID      string
	Amount       decimal.Decimal
	ReviewID     uuid.UUID
	OccurredAt   time.Time
}

// Handler consumes one event.
type Handler func(ctx context.Context, evt Event) error

const handlerTimeout = 15 * time.Second

// Bus is a bounded in-process queue drained by a fixed pool of workers.
type Bus struct {
	queue   chan Event
	handler Handler
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewBus constructs a Bus with room for size pending events.
func NewBus(size, workers int, handler Handler) *Bus {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Bus{
		queue:   make(chan Event, size),
		handler: handler,
		workers: workers,
	}
}

// Start launches the workers. Handlers run detached from ctx cancellation so
// queued events still drain during shutdown.
func (b *Bus) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for evt := range b.queue {
				b.dispatch(base, evt)
			}
		}()
	}
}

// Publish enqueues evt and reports whether it was accepted. A full queue or a
// closed bus drops the event.
func (b *Bus) Publish(evt Event) bool {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		slog.Warn("event dropped: bus closed", "kind", evt.Kind, "user_id", evt.UserID)
		return false
	}
	select {
	case b.queue <- evt:
		return true
	default:
		slog.Warn("event dropped: queue full", "kind", evt.Kind, "user_id", evt.UserID)
		return false
	}
}

// Close stops intake and waits until every queued event has been handled.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bus) dispatch(base context.Context, evt Event) {
	ctx, cancel := context.WithTimeout(base, handlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panic", "kind", evt.Kind, "user_id", evt.UserID, "panic", r)
		}
	}()

	if err := b.handler(ctx, evt); err != nil {
		slog.Error("event handler failed", "kind", evt.Kind, "user_id", evt.UserID, "error", err)
	}
}
