// File: internal/usecase/coupon_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/metrics"
)

// Compile-time check
var _ CouponUseCase = (*couponUC)(nil)

type CouponUseCase interface {
	// Evaluate has no side effects; usage is only recorded on payment success.
	Evaluate(ctx context.Context, p model.Principal, code string, amount int64, planID string) (model.DiscountSnapshot, error)
	Create(ctx context.Context, c *model.Coupon) (*model.Coupon, error)
	Update(ctx context.Context, id string, patch model.CouponPatch) (*model.Coupon, error)
	List(ctx context.Context) ([]*model.Coupon, error)
	Toggle(ctx context.Context, id string) (*model.Coupon, error)
	// RecordUsage is called by the payment handoff inside its transaction.
	RecordUsage(ctx context.Context, tx repository.Tx, couponID, userID string) error
}

type couponUC struct {
	coupons repository.CouponRepository
	cal     Calendar
	log     *zerolog.Logger
}

func NewCouponUseCase(coupons repository.CouponRepository, cal Calendar, logger *zerolog.Logger) *couponUC {
	l := logger.With().Str("component", "CouponUC").Logger()
	return &couponUC{coupons: coupons, cal: cal, log: &l}
}

func (u *couponUC) Evaluate(ctx context.Context, p model.Principal, code string, amount int64, planID string) (model.DiscountSnapshot, error) {
	snap, err := u.evaluate(ctx, p, code, amount, planID)
	if err != nil {
		metrics.IncCouponEvaluation(string(domain.KindOf(err)))
		return snap, err
	}
	metrics.IncCouponEvaluation("accepted")
	return snap, nil
}

func (u *couponUC) evaluate(ctx context.Context, p model.Principal, code string, amount int64, planID string) (model.DiscountSnapshot, error) {
	code = model.NormalizeCode(code)
	if code == "" {
		return model.DiscountSnapshot{}, domain.ErrCouponCodeRequired
	}
	if amount <= 0 {
		return model.DiscountSnapshot{}, domain.ErrInvalidAmount
	}
	c, err := u.coupons.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		if domain.IsNotFound(err) {
			return model.DiscountSnapshot{}, domain.ErrCouponNotFound
		}
		return model.DiscountSnapshot{}, err
	}
	used := 0
	if c.PerUserLimit != nil && p.UserID != "" {
		if used, err = u.coupons.UsageCount(ctx, repository.NoTX, c.ID, p.UserID); err != nil {
			return model.DiscountSnapshot{}, err
		}
	}
	return c.Evaluate(amount, planID, used, u.cal.now())
}

func (u *couponUC) Create(ctx context.Context, c *model.Coupon) (*model.Coupon, error) {
	c.Code = model.NormalizeCode(c.Code)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	now := u.cal.now()
	c.ID = uuid.NewString()
	c.TotalUsed = 0
	c.CreatedAt, c.UpdatedAt = now, now
	if err := u.coupons.Create(ctx, repository.NoTX, c); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	u.log.Info().Str("coupon_id", c.ID).Str("code", c.Code).Msg("coupon created")
	return c, nil
}

func (u *couponUC) Update(ctx context.Context, id string, patch model.CouponPatch) (*model.Coupon, error) {
	c, err := u.coupons.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if err := c.Apply(patch, u.cal.now()); err != nil {
		return nil, err
	}
	if err := u.coupons.Update(ctx, repository.NoTX, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *couponUC) List(ctx context.Context) ([]*model.Coupon, error) {
	return u.coupons.List(ctx, repository.NoTX)
}

func (u *couponUC) Toggle(ctx context.Context, id string) (*model.Coupon, error) {
	c, err := u.coupons.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	c.Active = !c.Active
	if err := u.coupons.SetActive(ctx, repository.NoTX, id, c.Active); err != nil {
		return nil, err
	}
	u.log.Info().Str("coupon_id", id).Bool("active", c.Active).Msg("coupon toggled")
	return c, nil
}

func (u *couponUC) RecordUsage(ctx context.Context, tx repository.Tx, couponID, userID string) error {
	if strings.TrimSpace(couponID) == "" {
		return nil
	}
	if err := u.coupons.RecordUsage(ctx, tx, couponID, userID, u.cal.now()); err != nil {
		return err
	}
	metrics.IncCouponRedemption()
	return nil
}
