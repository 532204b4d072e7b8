// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	portuc "github.com/aaftab343/dailyfruit-backend/internal/domain/ports/usecase"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/metrics"
)

// Compile-time checks
var (
	_ SubscriptionUseCase = (*subscriptionUC)(nil)
	_ portuc.Sweeper      = (*subscriptionUC)(nil)
)

// resumeBatch bounds how many elapsed pauses one sweep resumes.
const resumeBatch = 200

// systemPrincipal is used by the sweeper; it passes every ownership check.
var systemPrincipal = model.Principal{UserID: "system", Role: model.RoleSuperAdmin}

// SubscriptionSummary is the "my subscription" read model.
type SubscriptionSummary struct {
	Subscription     *model.Subscription
	NextDeliveryDate *time.Time
	UpcomingCount    int
}

// SchedulePatch changes how a subscription's deliveries are laid out.
// Nil fields are left alone.
type SchedulePatch struct {
	Mode         *model.DeliveryMode
	DeliveryDays *model.WeekdaySet
	SkipDates    *[]time.Time
}

// AdminModification changes plan and dates without touching status.
type AdminModification struct {
	NewPlanID  *string
	ExtendDays *int
	NewEndDate *time.Time
}

type SubscriptionUseCase interface {
	// CreateFromPayment opens a subscription for a verified payment inside tx,
	// materialises its deliveries and points the user at it.
	CreateFromPayment(ctx context.Context, tx repository.Tx, pay *model.Payment, plan *model.Plan) (*model.Subscription, GenerateResult, error)

	Pause(ctx context.Context, p model.Principal, id string, until *time.Time) (*model.Subscription, error)
	Resume(ctx context.Context, p model.Principal, id string) (*model.Subscription, error)
	Cancel(ctx context.Context, p model.Principal, id string) (*model.Subscription, error)
	Renew(ctx context.Context, p model.Principal, id string) (*model.Subscription, error)
	UpdateDeliverySchedule(ctx context.Context, p model.Principal, id string, patch SchedulePatch) (*model.Subscription, error)

	GetActive(ctx context.Context, p model.Principal) (*SubscriptionSummary, error)
	ListMine(ctx context.Context, p model.Principal) ([]*model.Subscription, error)
	History(ctx context.Context, p model.Principal) ([]*model.Subscription, error)

	AdminList(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, error)
	AdminSetStatus(ctx context.Context, p model.Principal, id string, status model.SubscriptionStatus) (*model.Subscription, error)
	AdminModify(ctx context.Context, p model.Principal, id string, mod AdminModification) (*model.Subscription, error)
	AdminGenerate(ctx context.Context, p model.Principal, id string) (GenerateResult, error)

	ExpireDue(ctx context.Context) (int, error)
	ResumeDue(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	subs       repository.SubscriptionRepository
	plans      repository.PlanRepository
	users      repository.UserRepository
	deliveries repository.DeliveryRepository
	generator  DeliveryUseCase
	tm         repository.TransactionManager
	cal        Calendar
	log        *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	users repository.UserRepository,
	deliveries repository.DeliveryRepository,
	generator DeliveryUseCase,
	tm repository.TransactionManager,
	cal Calendar,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{
		subs:       subs,
		plans:      plans,
		users:      users,
		deliveries: deliveries,
		generator:  generator,
		tm:         tm,
		cal:        cal,
		log:        &l,
	}
}

func (u *subscriptionUC) CreateFromPayment(ctx context.Context, tx repository.Tx, pay *model.Payment, plan *model.Plan) (*model.Subscription, GenerateResult, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.CreateFromPayment")()

	sub, err := model.NewSubscription(uuid.NewString(), pay.UserID, plan, u.cal.now())
	if err != nil {
		return nil, GenerateResult{}, err
	}
	payID := pay.ID
	sub.OriginatingPaymentID = &payID
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return nil, GenerateResult{}, err
	}
	gen, err := u.generator.Generate(ctx, tx, sub, plan)
	if err != nil {
		return nil, gen, fmt.Errorf("generate deliveries: %w", err)
	}
	if err := u.users.SetActiveSubscription(ctx, tx, pay.UserID, &sub.ID); err != nil {
		return nil, gen, err
	}
	metrics.IncSubscriptionTransition("create", sub.Status)
	return sub, gen, nil
}

// mutate loads id under a row lock, re-checks ownership and runs fn in one
// transaction.
func (u *subscriptionUC) mutate(
	ctx context.Context,
	p model.Principal,
	id, op string,
	fn func(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.Plan) error,
) (*model.Subscription, error) {
	var out *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if !p.CanAccess(sub.UserID) {
			return domain.ErrForbidden
		}
		plan, err := u.plans.FindByID(ctx, tx, sub.PlanID)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, sub, plan); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptionTransition(op, out.Status)
	logging.With(ctx, u.log).Info().
		Str("op", op).
		Str("subscription_id", out.ID).
		Str("status", string(out.Status)).
		Msg("subscription updated")
	return out, nil
}

func (u *subscriptionUC) Pause(ctx context.Context, p model.Principal, id string, until *time.Time) (*model.Subscription, error) {
	return u.mutate(ctx, p, id, "pause", func(ctx context.Context, tx repository.Tx, sub *model.Subscription, _ *model.Plan) error {
		if err := sub.Pause(u.cal.now(), until); err != nil {
			return err
		}
		return u.saveAndCancelFuture(ctx, tx, sub)
	})
}

func (u *subscriptionUC) Resume(ctx context.Context, p model.Principal, id string) (*model.Subscription, error) {
	return u.mutate(ctx, p, id, "resume", func(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.Plan) error {
		if err := sub.Resume(u.cal.now()); err != nil {
			return err
		}
		return u.saveAndGenerate(ctx, tx, sub, plan)
	})
}

func (u *subscriptionUC) Cancel(ctx context.Context, p model.Principal, id string) (*model.Subscription, error) {
	return u.mutate(ctx, p, id, "cancel", func(ctx context.Context, tx repository.Tx, sub *model.Subscription, _ *model.Plan) error {
		if err := sub.Cancel(u.cal.now()); err != nil {
			return err
		}
		if err := u.saveAndCancelFuture(ctx, tx, sub); err != nil {
			return err
		}
		return u.releaseActivePointer(ctx, tx, sub)
	})
}

func (u *subscriptionUC) Renew(ctx context.Context, p model.Principal, id string) (*model.Subscription, error) {
	return u.mutate(ctx, p, id, "renew", func(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.Plan) error {
		if !plan.Active {
			return domain.ErrPlanInactive
		}
		if err := sub.Renew(plan, u.cal.now()); err != nil {
			return err
		}
		if err := u.saveAndGenerate(ctx, tx, sub, plan); err != nil {
			return err
		}
		return u.users.SetActiveSubscription(ctx, tx, sub.UserID, &sub.ID)
	})
}

func (u *subscriptionUC) UpdateDeliverySchedule(ctx context.Context, p model.Principal, id string, patch SchedulePatch) (*model.Subscription, error) {
	if patch.Mode != nil && !patch.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery mode %q", domain.ErrInvalidArgument, *patch.Mode)
	}
	if patch.DeliveryDays != nil && patch.DeliveryDays.Empty() {
		return nil, fmt.Errorf("%w: deliveryDays must name at least one weekday", domain.ErrInvalidArgument)
	}
	return u.mutate(ctx, p, id, "schedule", func(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.Plan) error {
		if sub.Status.Terminal() {
			return domain.ErrInvalidTransition
		}
		if patch.Mode != nil {
			sub.DeliveryMode = *patch.Mode
		}
		if patch.DeliveryDays != nil {
			sub.DeliveryDays = *patch.DeliveryDays
		}
		if patch.SkipDates != nil {
			skip := make([]time.Time, 0, len(*patch.SkipDates))
			for _, d := range *patch.SkipDates {
				skip = append(skip, model.CivilDate(d))
			}
			sub.SkipDates = skip
		}
		sub.UpdatedAt = u.cal.now()
		if err := u.saveAndCancelFuture(ctx, tx, sub); err != nil {
			return err
		}
		_, err := u.generator.Generate(ctx, tx, sub, plan)
		return err
	})
}

// saveAndCancelFuture cancels every undelivered slot from today on. Today's
// slot goes too; a later Generate revives it if it is still wanted.
func (u *subscriptionUC) saveAndCancelFuture(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return err
	}
	n, err := u.deliveries.CancelScheduledFrom(ctx, tx, sub.ID, u.cal.today())
	if err != nil {
		return err
	}
	if n > 0 {
		u.log.Debug().Str("subscription_id", sub.ID).Int("cancelled", n).Msg("future deliveries cancelled")
	}
	return nil
}

func (u *subscriptionUC) saveAndGenerate(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.Plan) error {
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return err
	}
	_, err := u.generator.Generate(ctx, tx, sub, plan)
	return err
}

func (u *subscriptionUC) releaseActivePointer(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	user, err := u.users.FindByID(ctx, tx, sub.UserID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	}
	if user.ActiveSubscriptionID == nil || *user.ActiveSubscriptionID != sub.ID {
		return nil
	}
	return u.users.SetActiveSubscription(ctx, tx, sub.UserID, nil)
}

// GetActive resolves the user's current subscription through the user's
// pointer, falling back to the latest non-terminal one.
func (u *subscriptionUC) GetActive(ctx context.Context, p model.Principal) (*SubscriptionSummary, error) {
	sub, err := u.findActive(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	today := u.cal.today()
	sum := &SubscriptionSummary{Subscription: sub}

	next, err := u.deliveries.NextForSubscription(ctx, repository.NoTX, sub.ID, today)
	if err != nil {
		return nil, err
	}
	if next != nil {
		d := next.DeliveryDate
		sum.NextDeliveryDate = &d
	}
	sum.UpcomingCount, err = u.deliveries.CountUpcoming(ctx, repository.NoTX, sub.ID, today, model.AddDays(today, u.cal.upcomingWindow()))
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (u *subscriptionUC) findActive(ctx context.Context, userID string) (*model.Subscription, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}
	if user != nil && user.ActiveSubscriptionID != nil {
		sub, err := u.subs.FindByID(ctx, repository.NoTX, *user.ActiveSubscriptionID)
		switch {
		case err == nil && sub.UserID == userID && !sub.Status.Terminal():
			return sub, nil
		case err != nil && !domain.IsNotFound(err):
			return nil, err
		}
	}
	sub, err := u.subs.FindLatestActiveByUser(ctx, repository.NoTX, userID)
	if domain.IsNotFound(err) {
		return nil, domain.ErrNoActiveSubscription
	}
	return sub, err
}

func (u *subscriptionUC) ListMine(ctx context.Context, p model.Principal) ([]*model.Subscription, error) {
	return u.subs.ListByUser(ctx, repository.NoTX, p.UserID)
}

func (u *subscriptionUC) History(ctx context.Context, p model.Principal) ([]*model.Subscription, error) {
	return u.subs.ListByUser(ctx, repository.NoTX, p.UserID, model.SubscriptionStatusExpired, model.SubscriptionStatusCancelled)
}

func (u *subscriptionUC) AdminList(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return u.subs.List(ctx, repository.NoTX, f)
}

// AdminSetStatus forces a status through the same transitions users go
// through. Leaving a terminal status is only possible via Renew.
func (u *subscriptionUC) AdminSetStatus(ctx context.Context, p model.Principal, id string, status model.SubscriptionStatus) (*model.Subscription, error) {
	switch status {
	case model.SubscriptionStatusActive:
		return u.Resume(ctx, p, id)
	case model.SubscriptionStatusPaused:
		return u.Pause(ctx, p, id, nil)
	case model.SubscriptionStatusCancelled:
		return u.Cancel(ctx, p, id)
	case model.SubscriptionStatusExpired:
		return u.mutate(ctx, p, id, "expire", func(ctx context.Context, tx repository.Tx, sub *model.Subscription, _ *model.Plan) error {
			if err := sub.ForceExpire(u.cal.now()); err != nil {
				return err
			}
			if err := u.saveAndCancelFuture(ctx, tx, sub); err != nil {
				return err
			}
			return u.releaseActivePointer(ctx, tx, sub)
		})
	}
	return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, status)
}

// AdminModify changes plan and dates. Already materialised deliveries are kept.
func (u *subscriptionUC) AdminModify(ctx context.Context, p model.Principal, id string, mod AdminModification) (*model.Subscription, error) {
	if mod.NewPlanID == nil && mod.ExtendDays == nil && mod.NewEndDate == nil {
		return nil, fmt.Errorf("%w: nothing to modify", domain.ErrInvalidArgument)
	}
	return u.mutate(ctx, p, id, "modify", func(ctx context.Context, tx repository.Tx, sub *model.Subscription, _ *model.Plan) error {
		now := u.cal.now()
		if mod.NewPlanID != nil && *mod.NewPlanID != sub.PlanID {
			plan, err := u.plans.FindByID(ctx, tx, *mod.NewPlanID)
			if err != nil {
				return err
			}
			sub.ChangePlan(plan, now)
		}
		if mod.ExtendDays != nil {
			if err := sub.ExtendDays(*mod.ExtendDays, now); err != nil {
				return err
			}
		}
		if mod.NewEndDate != nil {
			if err := sub.SetEndDate(*mod.NewEndDate, now); err != nil {
				return err
			}
		}
		return u.subs.Save(ctx, tx, sub)
	})
}

func (u *subscriptionUC) AdminGenerate(ctx context.Context, p model.Principal, id string) (GenerateResult, error) {
	var res GenerateResult
	_, err := u.mutate(ctx, p, id, "generate", func(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.Plan) error {
		var err error
		res, err = u.generator.Generate(ctx, tx, sub, plan)
		return err
	})
	return res, err
}

// ExpireDue is a single conditional update; re-running it is a no-op. Slots
// of the expired subscriptions from today on are cancelled in the same
// transaction, as an admin force-expire does.
func (u *subscriptionUC) ExpireDue(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ExpireDue")()

	var n int
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ids, err := u.subs.ExpireDue(ctx, tx, u.cal.now())
		if err != nil {
			return err
		}
		today := u.cal.today()
		for _, id := range ids {
			if _, err := u.deliveries.CancelScheduledFrom(ctx, tx, id, today); err != nil {
				return err
			}
		}
		n = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.IncSubscriptionsExpired(n)
	if counts, err := u.subs.CountByStatus(ctx, repository.NoTX); err == nil {
		metrics.SetSubscriptionsTotal(counts)
	} else {
		u.log.Warn().Err(err).Msg("count subscriptions by status")
	}
	return n, nil
}

// ResumeDue resumes paused subscriptions whose pause-until has passed. One
// failing row does not stop the rest.
func (u *subscriptionUC) ResumeDue(ctx context.Context) (int, error) {
	due, err := u.subs.ListPausedUntilBefore(ctx, repository.NoTX, u.cal.now(), resumeBatch)
	if err != nil {
		return 0, err
	}
	resumed := 0
	for _, s := range due {
		if _, err := u.Resume(ctx, systemPrincipal, s.ID); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				continue
			}
			u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("auto-resume failed")
			continue
		}
		resumed++
	}
	return resumed, nil
}
