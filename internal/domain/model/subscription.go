package model

import (
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPaused, SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return true
	}
	return false
}

// Terminal statuses can only be left through a renew.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// Subscription is one cycle of a user's plan. Rows are never deleted; history
// is kept by status.
type Subscription struct {
	ID       string
	UserID   string
	PlanID   string
	PlanName string // snapshot at creation or admin plan change

	Status    SubscriptionStatus
	StartDate time.Time
	EndDate   time.Time

	DeliveryDays        WeekdaySet // snapshot, may be overridden by the user
	DeliveryMode        DeliveryMode
	SkipDates           []time.Time // civil dates
	TotalDeliveries     int
	RemainingDeliveries int

	PausedAt    *time.Time
	PausedUntil *time.Time
	CancelledAt *time.Time
	AutoRenew   bool

	OriginatingPaymentID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscription opens a fresh active cycle of plan for userID starting at now.
func NewSubscription(id, userID string, plan *Plan, now time.Time) (*Subscription, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	target, err := plan.DeliveryTarget()
	if err != nil {
		return nil, err
	}
	return &Subscription{
		ID:                  id,
		UserID:              userID,
		PlanID:              plan.ID,
		PlanName:            plan.Name,
		Status:              SubscriptionStatusActive,
		StartDate:           now,
		EndDate:             now.AddDate(0, 0, plan.DurationDays),
		DeliveryDays:        plan.AllowedDays(),
		DeliveryMode:        DeliveryModeDaily,
		TotalDeliveries:     target,
		RemainingDeliveries: target,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Schedule returns the effective delivery policy, falling back to plan days.
func (s *Subscription) Schedule(plan *Plan, loc *time.Location) Schedule {
	days := s.DeliveryDays
	if days.Empty() {
		days = plan.AllowedDays()
	}
	mode := s.DeliveryMode
	if !mode.Valid() {
		mode = DeliveryModeDaily
	}
	skip := make(map[time.Time]struct{}, len(s.SkipDates))
	for _, d := range s.SkipDates {
		skip[CivilDate(d)] = struct{}{}
	}
	return Schedule{Days: days, Mode: mode, Anchor: DateOf(s.StartDate, loc), Skip: skip}
}

// DeliveryTarget is the subscription's snapshot count, else the plan's.
func (s *Subscription) DeliveryTarget(plan *Plan) (int, error) {
	if s.TotalDeliveries > 0 {
		return s.TotalDeliveries, nil
	}
	return plan.DeliveryTarget()
}

func (s *Subscription) to(next SubscriptionStatus) error {
	if !CanTransition(s.Status, next) {
		return domain.ErrInvalidTransition
	}
	s.Status = next
	return nil
}

// Pause stamps the pause; until is optional.
func (s *Subscription) Pause(now time.Time, until *time.Time) error {
	if until != nil && !until.After(now) {
		return domain.ErrInvalidArgument
	}
	if err := s.to(SubscriptionStatusPaused); err != nil {
		return err
	}
	s.PausedAt = &now
	s.PausedUntil = until
	s.UpdatedAt = now
	return nil
}

// Resume clears the pause and pushes EndDate out by the whole days spent paused.
func (s *Subscription) Resume(now time.Time) error {
	pausedAt := s.PausedAt
	if err := s.to(SubscriptionStatusActive); err != nil {
		return err
	}
	if pausedAt != nil {
		if days := int(now.Sub(*pausedAt).Hours() / 24); days > 0 {
			s.EndDate = s.EndDate.AddDate(0, 0, days)
		}
	}
	s.PausedAt = nil
	s.PausedUntil = nil
	s.UpdatedAt = now
	return nil
}

func (s *Subscription) Cancel(now time.Time) error {
	if err := s.to(SubscriptionStatusCancelled); err != nil {
		return err
	}
	s.CancelledAt = &now
	s.UpdatedAt = now
	return nil
}

// Renew starts a fresh cycle of plan from now.
func (s *Subscription) Renew(plan *Plan, now time.Time) error {
	if s.Status == SubscriptionStatusPaused {
		return domain.ErrInvalidTransition
	}
	target, err := plan.DeliveryTarget()
	if err != nil {
		return err
	}
	s.Status = SubscriptionStatusActive
	s.StartDate = now
	s.EndDate = now.AddDate(0, 0, plan.DurationDays)
	s.TotalDeliveries = target
	s.RemainingDeliveries = target
	s.PausedAt = nil
	s.PausedUntil = nil
	s.CancelledAt = nil
	s.UpdatedAt = now
	return nil
}

// Expire marks an active subscription past its end date.
func (s *Subscription) Expire(now time.Time) error {
	if !s.EndDate.Before(now) {
		return domain.ErrInvalidTransition
	}
	if err := s.to(SubscriptionStatusExpired); err != nil {
		return err
	}
	s.UpdatedAt = now
	return nil
}

// ChangePlan re-snapshots plan identity. Materialized deliveries are untouched.
func (s *Subscription) ChangePlan(plan *Plan, now time.Time) {
	s.PlanID = plan.ID
	s.PlanName = plan.Name
	s.UpdatedAt = now
}

func (s *Subscription) ExtendDays(n int, now time.Time) error {
	if n <= 0 {
		return domain.ErrInvalidArgument
	}
	s.EndDate = s.EndDate.AddDate(0, 0, n)
	s.UpdatedAt = now
	return nil
}

func (s *Subscription) SetEndDate(end, now time.Time) error {
	if !end.After(s.StartDate) {
		return domain.ErrInvalidArgument
	}
	s.EndDate = end
	s.UpdatedAt = now
	return nil
}

// ConsumeDelivery decrements the remaining counter, never below zero.
func (s *Subscription) ConsumeDelivery() {
	if s.RemainingDeliveries > 0 {
		s.RemainingDeliveries--
	}
}

// ForceExpire is the admin override: an active or paused subscription is
// expired regardless of its end date.
func (s *Subscription) ForceExpire(now time.Time) error {
	if s.Status.Terminal() {
		return domain.ErrInvalidTransition
	}
	s.Status = SubscriptionStatusExpired
	s.PausedAt = nil
	s.PausedUntil = nil
	s.UpdatedAt = now
	return nil
}
