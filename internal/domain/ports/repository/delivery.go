package repository

import (
	"context"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
)

// DeliveryRepository is the port for delivery slots. (subscription_id,
// delivery_date) is unique at the storage layer.
type DeliveryRepository interface {
	// InsertScheduled inserts the given slots as scheduled. A slot that already
	// exists is skipped, except a cancelled one which is revived. Returns the
	// number of rows written.
	InsertScheduled(ctx context.Context, tx Tx, ds []*model.Delivery) (int, error)
	// Create inserts one slot and returns domain.ErrDeliverySlotTaken on a duplicate.
	Create(ctx context.Context, tx Tx, d *model.Delivery) error
	Update(ctx context.Context, tx Tx, d *model.Delivery) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Delivery, error)
	// ActiveDates returns the non-cancelled delivery dates of a subscription in [from, to].
	ActiveDates(ctx context.Context, tx Tx, subscriptionID string, from, to time.Time) ([]time.Time, error)
	// CountActiveBetween counts non-cancelled slots in [from, to).
	CountActiveBetween(ctx context.Context, tx Tx, subscriptionID string, from, to time.Time) (int, error)
	// CancelScheduledFrom cancels scheduled or pending slots dated on or after day.
	CancelScheduledFrom(ctx context.Context, tx Tx, subscriptionID string, day time.Time) (int, error)
	// ListByUser lists a user's slots dated in [from, to); nil bounds are open.
	ListByUser(ctx context.Context, tx Tx, userID string, from, to *time.Time) ([]*model.Delivery, error)
	// NextForSubscription returns the earliest scheduled slot on or after from,
	// or nil when there is none.
	NextForSubscription(ctx context.Context, tx Tx, subscriptionID string, from time.Time) (*model.Delivery, error)
	// CountUpcoming counts scheduled or pending slots in [from, to).
	CountUpcoming(ctx context.Context, tx Tx, subscriptionID string, from, to time.Time) (int, error)
	List(ctx context.Context, tx Tx, f model.DeliveryFilter) ([]*model.Delivery, error)
}
