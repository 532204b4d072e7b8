//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func seedPlan(t *testing.T, slug string, price int64) *model.Plan {
	t.Helper()
	p, err := model.NewPlan(uuid.NewString(), slug, "Bowl "+slug, price, 30)
	if err != nil {
		t.Fatalf("model.NewPlan() failed: %v", err)
	}
	if err := NewPostgresPlanRepo(testPool).Save(context.Background(), nil, p); err != nil {
		t.Fatalf("failed to save plan: %v", err)
	}
	return p
}

func seedSubscription(t *testing.T, userID string, plan *model.Plan, start time.Time) *model.Subscription {
	t.Helper()
	s, err := model.NewSubscription(uuid.NewString(), userID, plan, start)
	if err != nil {
		t.Fatalf("model.NewSubscription() failed: %v", err)
	}
	if err := NewPostgresSubscriptionRepo(testPool).Save(context.Background(), nil, s); err != nil {
		t.Fatalf("failed to save subscription: %v", err)
	}
	return s
}

func slot(sub *model.Subscription, date time.Time) *model.Delivery {
	now := time.Now()
	return &model.Delivery{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		DeliveryDate:   date,
		Status:         model.DeliveryStatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
