//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

var monday = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

func newMWFSubscription(t *testing.T, f *fixture, start time.Time) (*model.Subscription, *model.Plan) {
	t.Helper()
	plan := f.seedPlan("plan-mwf", "mwf-bowl", 1000, intPtr(6), time.Monday, time.Wednesday, time.Friday)
	sub, err := model.NewSubscription("sub-1", "user-1", plan, start)
	if err != nil {
		t.Fatalf("NewSubscription: %v", err)
	}
	if err := f.subs.Save(context.Background(), repository.NoTX, sub); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return sub, plan
}

func TestDeliveryUseCase_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("should insert six Mon/Wed/Fri slots starting on the start Monday", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(monday)
		sub, plan := newMWFSubscription(t, f, monday)

		// --- Act ---
		res, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if res.Inserted != 6 {
			t.Fatalf("expected 6 inserted, got %d", res.Inserted)
		}
		if res.FirstDeliveryDate == nil || !res.FirstDeliveryDate.Equal(date(2025, 3, 3)) {
			t.Fatalf("expected first delivery 2025-03-03, got %v", res.FirstDeliveryDate)
		}
		want := []time.Time{
			date(2025, 3, 3), date(2025, 3, 5), date(2025, 3, 7),
			date(2025, 3, 10), date(2025, 3, 12), date(2025, 3, 14),
		}
		got := f.deliveries.ActiveFor(sub.ID)
		if len(got) != len(want) {
			t.Fatalf("expected %d slots, got %d", len(want), len(got))
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("slot %d: expected %s, got %s", i, want[i].Format("2006-01-02"), got[i].Format("2006-01-02"))
			}
			if wd := got[i].Weekday(); wd != time.Monday && wd != time.Wednesday && wd != time.Friday {
				t.Errorf("slot %d falls on %s", i, wd)
			}
		}
	})

	t.Run("should insert nothing on a second run", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(monday)
		sub, plan := newMWFSubscription(t, f, monday)
		if _, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan); err != nil {
			t.Fatalf("first Generate: %v", err)
		}

		// --- Act ---
		res, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)

		// --- Assert ---
		if err != nil {
			t.Fatalf("second Generate: %v", err)
		}
		if res.Inserted != 0 {
			t.Fatalf("expected 0 inserted on the second run, got %d", res.Inserted)
		}
		if res.FirstDeliveryDate == nil || !res.FirstDeliveryDate.Equal(date(2025, 3, 3)) {
			t.Fatalf("expected first delivery to still be reported, got %v", res.FirstDeliveryDate)
		}
		if n := len(f.deliveries.ForSubscription(sub.ID)); n != 6 {
			t.Fatalf("expected 6 rows, got %d", n)
		}
	})

	t.Run("should stay idempotent as days pass", func(t *testing.T) {
		// --- Arrange ---
		f := newFixture(monday)
		sub, plan := newMWFSubscription(t, f, monday)
		if _, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan); err != nil {
			t.Fatalf("first Generate: %v", err)
		}
		f.clock.Set(monday.AddDate(0, 0, 7))

		// --- Act ---
		res, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if res.Inserted != 0 {
			t.Fatalf("expected no new slots a week later, got %d", res.Inserted)
		}
		if !res.FirstDeliveryDate.Equal(date(2025, 3, 10)) {
			t.Fatalf("expected next delivery 2025-03-10, got %v", res.FirstDeliveryDate)
		}
	})

	t.Run("should start at the start date when it is in the future", func(t *testing.T) {
		f := newFixture(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
		sub, plan := newMWFSubscription(t, f, monday)

		res, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if !res.FirstDeliveryDate.Equal(date(2025, 3, 3)) {
			t.Fatalf("expected 2025-03-03, got %v", res.FirstDeliveryDate)
		}
	})

	t.Run("should generate nothing for a paused subscription", func(t *testing.T) {
		f := newFixture(monday)
		sub, plan := newMWFSubscription(t, f, monday)
		sub.Status = model.SubscriptionStatusPaused

		res, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if res.Inserted != 0 || res.FirstDeliveryDate != nil {
			t.Fatalf("expected empty result, got %+v", res)
		}
		if n := len(f.deliveries.ForSubscription(sub.ID)); n != 0 {
			t.Fatalf("expected no rows, got %d", n)
		}
	})

	t.Run("should return at once when no weekday can match", func(t *testing.T) {
		f := newFixture(monday)
		sub, plan := newMWFSubscription(t, f, monday)
		sub.DeliveryDays = model.NewWeekdaySet(time.Saturday, time.Sunday)
		sub.DeliveryMode = model.DeliveryModeWeekdays

		called := false
		f.deliveries.InsertScheduledFunc = func(ctx context.Context, tx repository.Tx, ds []*model.Delivery) (int, error) {
			called = true
			return 0, nil
		}

		res, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if res.Inserted != 0 || called {
			t.Fatalf("expected no insert attempt, got %+v (insert called: %v)", res, called)
		}
	})

	t.Run("should reject a non-positive delivery count", func(t *testing.T) {
		f := newFixture(monday)
		sub, plan := newMWFSubscription(t, f, monday)
		sub.TotalDeliveries = 0
		plan.DeliveryCount = intPtr(0)

		_, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)
		if !errors.Is(err, domain.ErrInvalidDeliveryCount) {
			t.Fatalf("expected ErrInvalidDeliveryCount, got %v", err)
		}
	})

	t.Run("should honour skip dates and alternate mode", func(t *testing.T) {
		f := newFixture(monday)
		plan := f.seedPlan("plan-daily", "daily-bowl", 1000, intPtr(4))
		sub, _ := model.NewSubscription("sub-alt", "user-1", plan, monday)
		sub.DeliveryMode = model.DeliveryModeAlternate
		sub.SkipDates = []time.Time{date(2025, 3, 5)}

		_, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		want := []time.Time{date(2025, 3, 3), date(2025, 3, 7), date(2025, 3, 11), date(2025, 3, 13)}
		got := f.deliveries.ActiveFor(sub.ID)
		if len(got) != len(want) {
			t.Fatalf("expected %d slots, got %v", len(want), got)
		}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("slot %d: expected %s, got %s", i, want[i].Format("2006-01-02"), got[i].Format("2006-01-02"))
			}
		}
	})

	t.Run("should surface a storage failure for a later retry", func(t *testing.T) {
		f := newFixture(monday)
		sub, plan := newMWFSubscription(t, f, monday)
		f.deliveries.InsertScheduledFunc = func(ctx context.Context, tx repository.Tx, ds []*model.Delivery) (int, error) {
			return 2, errBoom
		}

		res, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected storage error, got %v", err)
		}
		if res.Inserted != 2 {
			t.Fatalf("expected partial count 2, got %d", res.Inserted)
		}

		f.deliveries.InsertScheduledFunc = nil
		res, err = f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan)
		if err != nil || res.Inserted != 6 {
			t.Fatalf("expected retry to insert 6, got %d (%v)", res.Inserted, err)
		}
	})
}

func TestDeliveryUseCase_SkipAndUpdate(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *model.Subscription) {
		f := newFixture(monday)
		sub, plan := newMWFSubscription(t, f, monday)
		if _, err := f.deliveryUC.Generate(ctx, repository.NoTX, sub, plan); err != nil {
			t.Fatalf("Generate: %v", err)
		}
		return f, sub
	}
	owner := model.Principal{UserID: "user-1", Role: model.RoleUser}

	t.Run("should let the owner skip a scheduled slot", func(t *testing.T) {
		f, sub := setup(t)
		slot := f.deliveries.ForSubscription(sub.ID)[1]

		d, err := f.deliveryUC.Skip(ctx, owner, slot.ID)
		if err != nil {
			t.Fatalf("Skip: %v", err)
		}
		if d.Status != model.DeliveryStatusSkipped {
			t.Fatalf("expected skipped, got %s", d.Status)
		}
	})

	t.Run("should forbid skipping someone else's slot", func(t *testing.T) {
		f, sub := setup(t)
		slot := f.deliveries.ForSubscription(sub.ID)[0]

		_, err := f.deliveryUC.Skip(ctx, model.Principal{UserID: "intruder", Role: model.RoleUser}, slot.ID)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("should refuse to skip a delivered slot", func(t *testing.T) {
		f, sub := setup(t)
		slot := f.deliveries.ForSubscription(sub.ID)[0]
		delivered := model.DeliveryStatusDelivered
		if _, err := f.deliveryUC.Update(ctx, slot.ID, model.DeliveryPatch{Status: &delivered}); err != nil {
			t.Fatalf("Update: %v", err)
		}

		_, err := f.deliveryUC.Skip(ctx, owner, slot.ID)
		if !errors.Is(err, domain.ErrDeliveryNotSkippable) {
			t.Fatalf("expected ErrDeliveryNotSkippable, got %v", err)
		}
	})

	t.Run("should consume one remaining delivery when marked delivered", func(t *testing.T) {
		f, sub := setup(t)
		slot := f.deliveries.ForSubscription(sub.ID)[0]
		delivered := model.DeliveryStatusDelivered
		note := "left at door"

		if _, err := f.deliveryUC.Update(ctx, slot.ID, model.DeliveryPatch{Status: &delivered, Notes: &note}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		// a repeated update must not consume again
		if _, err := f.deliveryUC.Update(ctx, slot.ID, model.DeliveryPatch{Status: &delivered}); err != nil {
			t.Fatalf("second Update: %v", err)
		}

		got, _ := f.subs.FindByID(ctx, repository.NoTX, sub.ID)
		if got.RemainingDeliveries != 5 {
			t.Fatalf("expected 5 remaining, got %d", got.RemainingDeliveries)
		}
	})

	t.Run("should reject an unknown status", func(t *testing.T) {
		f, sub := setup(t)
		slot := f.deliveries.ForSubscription(sub.ID)[0]
		bogus := model.DeliveryStatus("teleported")

		_, err := f.deliveryUC.Update(ctx, slot.ID, model.DeliveryPatch{Status: &bogus})
		if domain.KindOf(err) != domain.KindValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("should reject a duplicate manual slot", func(t *testing.T) {
		f, sub := setup(t)

		_, err := f.deliveryUC.CreateManual(ctx, usecase.ManualDelivery{SubscriptionID: sub.ID, DeliveryDate: date(2025, 3, 5)})
		if !errors.Is(err, domain.ErrDeliverySlotTaken) {
			t.Fatalf("expected ErrDeliverySlotTaken, got %v", err)
		}
		if _, err := f.deliveryUC.CreateManual(ctx, usecase.ManualDelivery{SubscriptionID: sub.ID, DeliveryDate: date(2025, 3, 4)}); err != nil {
			t.Fatalf("expected a free day to be accepted, got %v", err)
		}
	})

	t.Run("should split upcoming and history around today", func(t *testing.T) {
		f, _ := setup(t)
		f.clock.Set(time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC))

		upcoming, err := f.deliveryUC.ListMine(ctx, owner, usecase.DeliveryScopeUpcoming)
		if err != nil {
			t.Fatalf("ListMine upcoming: %v", err)
		}
		history, err := f.deliveryUC.ListMine(ctx, owner, usecase.DeliveryScopeHistory)
		if err != nil {
			t.Fatalf("ListMine history: %v", err)
		}
		// window is [7 Mar, 14 Mar): 7, 10, 12
		if len(upcoming) != 3 {
			t.Fatalf("expected 3 upcoming, got %d", len(upcoming))
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 past, got %d", len(history))
		}
	})
}
