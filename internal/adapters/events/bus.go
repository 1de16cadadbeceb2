// Package events fans domain events out to handlers on a background goroutine,
// so request paths never wait on brokers or websocket clients.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/metrics"
)

const drainTimeout = 5 * time.Second

type Bus struct {
	ch       chan domain.Event
	handlers []ports.EventHandler
	logger   *slog.Logger
}

func NewBus(buffer int, logger *slog.Logger, handlers ...ports.EventHandler) *Bus {
	return &Bus{
		ch:       make(chan domain.Event, buffer),
		handlers: handlers,
		logger:   logger,
	}
}

// Publish enqueues the event. A full buffer drops it with a warning.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	select {
	case b.ch <- event:
	default:
		metrics.IncEventsDropped(string(event.Type))
		b.logger.WarnContext(ctx, "event dropped, buffer full", "type", event.Type, "poll_id", event.PollID)
	}
}

// Run dispatches events until ctx is canceled, then drains what is buffered.
func (b *Bus) Run(ctx context.Context) {
	b.logger.Info("event bus started", "handlers", len(b.handlers))
	for {
		select {
		case <-ctx.Done():
			b.drain()
			b.logger.Info("event bus stopped")
			return
		case ev := <-b.ch:
			b.dispatch(ctx, ev)
		}
	}
}

func (b *Bus) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case ev := <-b.ch:
			b.dispatch(ctx, ev)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, ev domain.Event) {
	for _, h := range b.handlers {
		if err := h.HandleEvent(ctx, ev); err != nil {
			b.logger.ErrorContext(ctx, "event handler failed",
				"type", ev.Type,
				"poll_id", ev.PollID,
				"error", err,
			)
		}
	}
}
