//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
)

func TestCouponRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	repo := NewPostgresCouponRepo(testPool)
	ctx := context.Background()

	newCoupon := func(code string, limit *int) *model.Coupon {
		now := time.Now()
		return &model.Coupon{
			ID:             uuid.NewString(),
			Code:           code,
			DiscountType:   model.DiscountPercent,
			DiscountValue:  decimal.RequireFromString("12.5"),
			Active:         true,
			UsageLimit:     limit,
			AllowedPlanIDs: []string{"plan-1"},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	t.Run("should normalise codes and keep decimal precision", func(t *testing.T) {
		cleanup(t)
		c := newCoupon(" fresh10 ", nil)
		if err := repo.Create(ctx, nil, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		got, err := repo.FindByCode(ctx, nil, "Fresh10")
		if err != nil {
			t.Fatalf("FindByCode failed: %v", err)
		}
		if got.Code != "FRESH10" || !got.DiscountValue.Equal(decimal.RequireFromString("12.5")) || got.AllowedPlanIDs[0] != "plan-1" {
			t.Errorf("unexpected coupon: %+v", got)
		}
		if err := repo.Create(ctx, nil, newCoupon("FRESH10", nil)); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
		if err := repo.SetActive(ctx, nil, c.ID, false); err != nil {
			t.Fatalf("SetActive failed: %v", err)
		}
		got, _ = repo.FindByID(ctx, nil, c.ID)
		if got.Active {
			t.Error("expected coupon to be inactive")
		}
		if _, err := repo.FindByCode(ctx, nil, "NOPE"); !errors.Is(err, domain.ErrCouponNotFound) {
			t.Errorf("expected ErrCouponNotFound, got %v", err)
		}
	})

	t.Run("should count redemptions atomically and deactivate at the limit", func(t *testing.T) {
		cleanup(t)
		limit := 5
		c := newCoupon("RUSH", &limit)
		if err := repo.Create(ctx, nil, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := repo.RecordUsage(ctx, nil, c.ID, "u1", time.Now()); err != nil {
					t.Errorf("RecordUsage failed: %v", err)
				}
			}()
		}
		wg.Wait()

		got, _ := repo.FindByID(ctx, nil, c.ID)
		if got.TotalUsed != 5 || got.Active {
			t.Errorf("expected 5 uses and inactive, got used=%d active=%v", got.TotalUsed, got.Active)
		}
		if n, _ := repo.UsageCount(ctx, nil, c.ID, "u1"); n != 5 {
			t.Errorf("expected per-user count 5, got %d", n)
		}
		if n, _ := repo.UsageCount(ctx, nil, c.ID, "u2"); n != 0 {
			t.Errorf("expected 0 for a fresh user, got %d", n)
		}
		if err := repo.RecordUsage(ctx, nil, "missing", "u1", time.Now()); !errors.Is(err, domain.ErrCouponNotFound) {
			t.Errorf("expected ErrCouponNotFound, got %v", err)
		}
	})

	t.Run("should update the rule but not the usage counter", func(t *testing.T) {
		cleanup(t)
		c := newCoupon("EDIT", nil)
		if err := repo.Create(ctx, nil, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		_ = repo.RecordUsage(ctx, nil, c.ID, "u1", time.Now())

		max := int64(150)
		c.MaxDiscount = &max
		c.TotalUsed = 0
		if err := repo.Update(ctx, nil, c); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, c.ID)
		if got.MaxDiscount == nil || *got.MaxDiscount != 150 || got.TotalUsed != 1 {
			t.Errorf("unexpected coupon after update: %+v", got)
		}
	})
}
