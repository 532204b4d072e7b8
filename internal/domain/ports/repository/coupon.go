package repository

import (
	"context"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
)

// CouponRepository is the port for coupons and per-user usage counters.
type CouponRepository interface {
	Create(ctx context.Context, tx Tx, c *model.Coupon) error
	Update(ctx context.Context, tx Tx, c *model.Coupon) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Coupon, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Coupon, error)
	List(ctx context.Context, tx Tx) ([]*model.Coupon, error)
	SetActive(ctx context.Context, tx Tx, id string, active bool) error

	UsageCount(ctx context.Context, tx Tx, couponID, userID string) (int, error)
	// RecordUsage increments total_used and the user's counter in one step and
	// deactivates the coupon when total_used reaches usage_limit.
	RecordUsage(ctx context.Context, tx Tx, couponID, userID string, at time.Time) error
}
