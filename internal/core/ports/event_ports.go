package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

// EventPublisher must not block the caller on network I/O.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// EventHandler receives events from the bus, one at a time.
type EventHandler interface {
	HandleEvent(ctx context.Context, event domain.Event) error
}
