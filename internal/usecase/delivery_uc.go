// File: internal/usecase/delivery_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/metrics"
)

// Compile-time check
var _ DeliveryUseCase = (*deliveryUC)(nil)

// GenerateResult is the outcome of one generator run. FirstDeliveryDate is the
// earliest candidate day, materialised before or not.
type GenerateResult struct {
	Inserted          int
	FirstDeliveryDate *time.Time
}

// DeliveryScope selects which of a customer's deliveries to list.
type DeliveryScope string

const (
	DeliveryScopeAll      DeliveryScope = "all"
	DeliveryScopeUpcoming DeliveryScope = "upcoming"
	DeliveryScopeHistory  DeliveryScope = "history"
)

// ManualDelivery is an admin-created one-off slot.
type ManualDelivery struct {
	SubscriptionID string
	DeliveryDate   time.Time
	AssignedTo     *string
	Notes          string
}

type DeliveryUseCase interface {
	// Generate materialises the remaining delivery slots of sub. It runs inside
	// the caller's transaction when tx is one.
	Generate(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.Plan) (GenerateResult, error)
	CreateManual(ctx context.Context, in ManualDelivery) (*model.Delivery, error)
	Update(ctx context.Context, id string, patch model.DeliveryPatch) (*model.Delivery, error)
	Skip(ctx context.Context, p model.Principal, id string) (*model.Delivery, error)
	ListMine(ctx context.Context, p model.Principal, scope DeliveryScope) ([]*model.Delivery, error)
	AdminList(ctx context.Context, f model.DeliveryFilter) ([]*model.Delivery, error)
}

type deliveryUC struct {
	deliveries repository.DeliveryRepository
	subs       repository.SubscriptionRepository
	tm         repository.TransactionManager
	cal        Calendar
	log        *zerolog.Logger
}

func NewDeliveryUseCase(
	deliveries repository.DeliveryRepository,
	subs repository.SubscriptionRepository,
	tm repository.TransactionManager,
	cal Calendar,
	logger *zerolog.Logger,
) *deliveryUC {
	l := logger.With().Str("component", "DeliveryUC").Logger()
	return &deliveryUC{deliveries: deliveries, subs: subs, tm: tm, cal: cal, log: &l}
}

func (u *deliveryUC) Generate(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.Plan) (GenerateResult, error) {
	defer logging.TraceDuration(u.log, "DeliveryUC.Generate")()

	var res GenerateResult
	if sub.Status != model.SubscriptionStatusActive {
		metrics.ObserveGenerate("skipped_status", 0)
		return res, nil
	}
	target, err := sub.DeliveryTarget(plan)
	if err != nil {
		metrics.ObserveGenerate("invalid", 0)
		return res, err
	}
	sched := sub.Schedule(plan, u.cal.loc())
	if sched.Empty() {
		metrics.ObserveGenerate("empty_schedule", 0)
		return res, nil
	}

	start := model.DateOf(sub.StartDate, u.cal.loc())
	cursor := model.MaxDate(start, u.cal.today())

	consumed := 0
	if cursor.After(start) {
		consumed, err = u.deliveries.CountActiveBetween(ctx, tx, sub.ID, start, cursor)
		if err != nil {
			metrics.ObserveGenerate("error", 0)
			return res, err
		}
	}
	remaining := target - consumed
	candidates := sched.Candidates(cursor, remaining, u.cal.lookahead())
	if len(candidates) == 0 {
		metrics.ObserveGenerate("complete", 0)
		return res, nil
	}
	first := candidates[0]
	res.FirstDeliveryDate = &first

	existing, err := u.deliveries.ActiveDates(ctx, tx, sub.ID, first, candidates[len(candidates)-1])
	if err != nil {
		metrics.ObserveGenerate("error", 0)
		return res, err
	}
	have := make(map[time.Time]struct{}, len(existing))
	for _, d := range existing {
		have[model.CivilDate(d)] = struct{}{}
	}

	now := u.cal.now()
	var missing []*model.Delivery
	for _, day := range candidates {
		if _, ok := have[day]; ok {
			continue
		}
		missing = append(missing, &model.Delivery{
			ID:             uuid.NewString(),
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			PlanID:         sub.PlanID,
			DeliveryDate:   day,
			Status:         model.DeliveryStatusScheduled,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if len(missing) == 0 {
		metrics.ObserveGenerate("noop", 0)
		return res, nil
	}

	inserted, err := u.deliveries.InsertScheduled(ctx, tx, missing)
	res.Inserted = inserted
	if err != nil {
		metrics.ObserveGenerate("error", inserted)
		u.log.Error().Err(err).Str("subscription_id", sub.ID).Int("inserted", inserted).Msg("delivery insert failed partway")
		return res, err
	}
	metrics.ObserveGenerate("ok", inserted)
	u.log.Debug().
		Str("subscription_id", sub.ID).
		Int("target", target).
		Int("consumed", consumed).
		Int("inserted", inserted).
		Time("first", first).
		Msg("deliveries generated")
	return res, nil
}

func (u *deliveryUC) CreateManual(ctx context.Context, in ManualDelivery) (*model.Delivery, error) {
	if in.SubscriptionID == "" || in.DeliveryDate.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := u.subs.FindByID(ctx, repository.NoTX, in.SubscriptionID)
	if err != nil {
		return nil, err
	}
	now := u.cal.now()
	d := &model.Delivery{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		DeliveryDate:   model.CivilDate(in.DeliveryDate),
		Status:         model.DeliveryStatusScheduled,
		AssignedTo:     in.AssignedTo,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.deliveries.Create(ctx, repository.NoTX, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Update applies an admin patch. Moving a slot into delivered consumes one of
// the subscription's remaining deliveries in the same transaction.
func (u *deliveryUC) Update(ctx context.Context, id string, patch model.DeliveryPatch) (*model.Delivery, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery status %q", domain.ErrInvalidArgument, *patch.Status)
	}
	var out *model.Delivery
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		d, err := u.deliveries.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		prev := d.Status
		if patch.Status != nil {
			d.Status = *patch.Status
		}
		if patch.AssignedTo != nil {
			d.AssignedTo = patch.AssignedTo
		}
		if patch.Notes != nil {
			d.Notes = *patch.Notes
		}
		if patch.ProofImage != nil {
			d.ProofImage = *patch.ProofImage
		}
		d.UpdatedAt = u.cal.now()

		if d.Status == model.DeliveryStatusDelivered && prev != model.DeliveryStatusDelivered {
			sub, err := u.subs.FindByID(ctx, tx, d.SubscriptionID)
			if err != nil {
				return err
			}
			sub.ConsumeDelivery()
			sub.UpdatedAt = d.UpdatedAt
			if err := u.subs.Save(ctx, tx, sub); err != nil {
				return err
			}
		}
		if err := u.deliveries.Update(ctx, tx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	if patch.Status != nil {
		metrics.IncDeliveryStatus(string(out.Status))
	}
	return out, nil
}

func (u *deliveryUC) Skip(ctx context.Context, p model.Principal, id string) (*model.Delivery, error) {
	d, err := u.deliveries.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(d.UserID) {
		return nil, domain.ErrForbidden
	}
	if !d.Status.Skippable() {
		return nil, domain.ErrDeliveryNotSkippable
	}
	d.Status = model.DeliveryStatusSkipped
	d.UpdatedAt = u.cal.now()
	if err := u.deliveries.Update(ctx, repository.NoTX, d); err != nil {
		return nil, err
	}
	metrics.IncDeliveryStatus(string(d.Status))
	return d, nil
}

// ListMine lists the caller's deliveries. Upcoming covers the configured
// window starting today; history is everything before today.
func (u *deliveryUC) ListMine(ctx context.Context, p model.Principal, scope DeliveryScope) ([]*model.Delivery, error) {
	today := u.cal.today()
	var from, to *time.Time
	switch scope {
	case DeliveryScopeUpcoming:
		end := model.AddDays(today, u.cal.upcomingWindow())
		from, to = &today, &end
	case DeliveryScopeHistory:
		to = &today
	case DeliveryScopeAll, "":
	default:
		return nil, domain.ErrInvalidArgument
	}
	return u.deliveries.ListByUser(ctx, repository.NoTX, p.UserID, from, to)
}

func (u *deliveryUC) AdminList(ctx context.Context, f model.DeliveryFilter) ([]*model.Delivery, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if f.Date != nil {
		d := model.CivilDate(*f.Date)
		f.Date = &d
	}
	return u.deliveries.List(ctx, repository.NoTX, f)
}
