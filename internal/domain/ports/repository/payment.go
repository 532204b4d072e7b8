package repository

import (
	"context"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
)

// PaymentRepository is the port for the payment ledger.
type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.Payment, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Payment, error)
	LatestSuccessful(ctx context.Context, tx Tx, userID string) (*model.Payment, error)

	// ClaimForProcessing moves unprocessed -> processing (or re-claims a
	// processing row older than staleBefore). It reports whether this caller won.
	ClaimForProcessing(ctx context.Context, tx Tx, id string, now, staleBefore time.Time) (bool, error)
	// MarkSuccess records the verified gateway identifiers.
	MarkSuccess(ctx context.Context, tx Tx, id, providerPaymentID, signature string, at time.Time) error
	// MarkProcessed moves processing -> processed with the created subscription.
	MarkProcessed(ctx context.Context, tx Tx, id, subscriptionID string) (bool, error)
	// MarkFailedIfCreated flips a created payment to failed; other states are untouched.
	MarkFailedIfCreated(ctx context.Context, tx Tx, orderID, reason string) (bool, error)
}
