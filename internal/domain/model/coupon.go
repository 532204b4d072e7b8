package model

import (
	"strings"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountFlat    DiscountType = "flat"
	DiscountPercent DiscountType = "percent"
)

var hundred = decimal.NewFromInt(100)

// Coupon is a discount rule. UsageLimit nil means unlimited redemptions.
type Coupon struct {
	ID             string
	Code           string
	Description    string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinAmount      int64
	MaxDiscount    *int64
	ValidFrom      *time.Time
	ValidTo        *time.Time
	Active         bool
	UsageLimit     *int
	PerUserLimit   *int
	TotalUsed      int
	AllowedPlanIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CouponUsage counts one user's redemptions of one coupon.
type CouponUsage struct {
	CouponID   string
	UserID     string
	UsedCount  int
	LastUsedAt time.Time
}

// NormalizeCode is the canonical lookup form of a coupon code.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

// Validate checks the rule itself, independent of any order.
func (c *Coupon) Validate() error {
	if c.Code == "" || !c.DiscountValue.IsPositive() {
		return domain.ErrInvalidArgument
	}
	switch c.DiscountType {
	case DiscountFlat:
	case DiscountPercent:
		if c.DiscountValue.GreaterThan(hundred) {
			return domain.ErrInvalidArgument
		}
	default:
		return domain.ErrInvalidArgument
	}
	if c.UsageLimit != nil && *c.UsageLimit <= 0 {
		return domain.ErrCouponUsageLimitBad
	}
	if c.PerUserLimit != nil && *c.PerUserLimit <= 0 {
		return domain.ErrInvalidArgument
	}
	if c.MinAmount < 0 || (c.MaxDiscount != nil && *c.MaxDiscount <= 0) {
		return domain.ErrInvalidArgument
	}
	if c.ValidFrom != nil && c.ValidTo != nil && c.ValidTo.Before(*c.ValidFrom) {
		return domain.ErrInvalidArgument
	}
	return nil
}

// Exhausted reports whether the global usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.TotalUsed >= *c.UsageLimit
}

// Evaluate applies the coupon to an order. userUsed is how many times the
// requesting user has already redeemed it. The first failing rule wins.
func (c *Coupon) Evaluate(amount int64, planID string, userUsed int, now time.Time) (DiscountSnapshot, error) {
	if !c.Active {
		return DiscountSnapshot{}, domain.ErrCouponInactive
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return DiscountSnapshot{}, domain.ErrCouponNotStarted
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return DiscountSnapshot{}, domain.ErrCouponExpired
	}
	if c.Exhausted() {
		return DiscountSnapshot{}, domain.ErrCouponExhausted
	}
	if amount < c.MinAmount {
		return DiscountSnapshot{}, domain.ErrCouponMinAmount
	}
	if len(c.AllowedPlanIDs) > 0 && !contains(c.AllowedPlanIDs, planID) {
		return DiscountSnapshot{}, domain.ErrCouponPlanMismatch
	}
	if c.PerUserLimit != nil && userUsed >= *c.PerUserLimit {
		return DiscountSnapshot{}, domain.ErrCouponUserLimit
	}

	discount := c.Discount(amount)
	if discount <= 0 {
		return DiscountSnapshot{}, domain.ErrCouponNoBenefit
	}
	return DiscountSnapshot{
		CouponID:       c.ID,
		Code:           c.Code,
		Discount:       discount,
		OriginalAmount: amount,
	}, nil
}

// Discount computes the rupee discount on amount, before the no-benefit check.
func (c *Coupon) Discount(amount int64) int64 {
	amt := decimal.NewFromInt(amount)
	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercent:
		d = amt.Mul(c.DiscountValue).Div(hundred).Floor()
		if c.MaxDiscount != nil {
			d = decimal.Min(d, decimal.NewFromInt(*c.MaxDiscount))
		}
	case DiscountFlat:
		d = decimal.Min(c.DiscountValue.Floor(), amt)
	}
	return d.IntPart()
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// CouponPatch lists the fields an admin may change on an existing coupon.
type CouponPatch struct {
	Description    *string
	DiscountType   *DiscountType
	DiscountValue  *decimal.Decimal
	MinAmount      *int64
	MaxDiscount    *int64
	ValidFrom      *time.Time
	ValidTo        *time.Time
	UsageLimit     *int
	PerUserLimit   *int
	AllowedPlanIDs []string
}

func (c *Coupon) Apply(p CouponPatch, now time.Time) error {
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.DiscountType != nil {
		c.DiscountType = *p.DiscountType
	}
	if p.DiscountValue != nil {
		c.DiscountValue = *p.DiscountValue
	}
	if p.MinAmount != nil {
		c.MinAmount = *p.MinAmount
	}
	if p.MaxDiscount != nil {
		c.MaxDiscount = p.MaxDiscount
	}
	if p.ValidFrom != nil {
		c.ValidFrom = p.ValidFrom
	}
	if p.ValidTo != nil {
		c.ValidTo = p.ValidTo
	}
	if p.UsageLimit != nil {
		c.UsageLimit = p.UsageLimit
	}
	if p.PerUserLimit != nil {
		c.PerUserLimit = p.PerUserLimit
	}
	if p.AllowedPlanIDs != nil {
		c.AllowedPlanIDs = p.AllowedPlanIDs
	}
	c.UpdatedAt = now
	return c.Validate()
}
