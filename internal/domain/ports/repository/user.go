package repository

import (
	"context"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	SetActiveSubscription(ctx context.Context, tx Tx, userID string, subscriptionID *string) error
}
