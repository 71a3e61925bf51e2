// README: Order persistence contract; implemented in memory and on PostgreSQL.
package order

import (
	"context"

	"semas/internal/types"
)

type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id types.ID) (*Order, error)
	// List returns matching orders newest first.
	List(ctx context.Context, f Filter) ([]*Order, error)
	// UpdateStatus is a compare-and-swap on (status, status_version). A nil
	// technicianID keeps the current assignment.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, technicianID *types.ID) (bool, error)
	// SetRating succeeds only for a completed, unrated order at version.
	SetRating(ctx context.Context, id types.ID, rating, version int) (bool, error)
	// AppendMessage stores m, bumping its timestamp past the order's last message if needed.
	AppendMessage(ctx context.Context, id types.ID, m Message) (Message, error)
	AppendEvent(ctx context.Context, e *Event) error
	Events(ctx context.Context, id types.ID) ([]Event, error)
	// Ratings returns every rating given to orders of serviceType.
	Ratings(ctx context.Context, serviceType string) ([]int, error)
}
