package repository

import (
	"context"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
)

// SubscriptionFilter narrows admin listings. Zero fields are ignored.
type SubscriptionFilter struct {
	Status model.SubscriptionStatus
	PlanID string
	UserID string
	Limit  int
	Offset int
}

// SubscriptionRepository is the port for subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	// FindByID locks the row FOR UPDATE when tx is a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindLatestActiveByUser returns the newest non-terminal subscription.
	FindLatestActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string, statuses ...model.SubscriptionStatus) ([]*model.Subscription, error)
	List(ctx context.Context, tx Tx, f SubscriptionFilter) ([]*model.Subscription, error)
	// ExpireDue flips every active subscription whose end date is before now
	// to expired and returns the ids it changed.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) ([]string, error)
	// ListPausedUntilBefore returns paused subscriptions whose pause window has ended.
	ListPausedUntilBefore(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
