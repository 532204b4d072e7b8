// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// errLostClaim means another verify owns (or already finished) the handoff.
var errLostClaim = errors.New("payment claimed by another request")

// OrderResult is what the checkout widget needs to open the gateway.
type OrderResult struct {
	PaymentID string
	OrderID   string
	Amount    int64 // minor units
	Currency  string
	Key       string
	Coupon    *model.DiscountSnapshot
}

// VerifyResult reports the subscription bound to a payment. Replayed is true
// when the payment had already been processed by an earlier call.
type VerifyResult struct {
	PaymentID         string
	SubscriptionID    string
	Replayed          bool
	Inserted          int
	FirstDeliveryDate *time.Time
}

// ManualPayment is an offline payment an admin records for a user.
type ManualPayment struct {
	UserID    string
	PlanID    string
	Amount    *int64 // defaults to the plan price
	Reference string
}

type PaymentUseCase interface {
	CreateOrder(ctx context.Context, p model.Principal, planSlug, couponCode string) (*OrderResult, error)
	// Verify authenticates a checkout and hands the payment off to exactly one
	// subscription. Retries after success replay the stored subscription id.
	Verify(ctx context.Context, p model.Principal, orderID, paymentID, signature string) (*VerifyResult, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	ListMine(ctx context.Context, p model.Principal) ([]*model.Payment, error)
	LatestInvoice(ctx context.Context, p model.Principal) (*model.Invoice, error)
	RecordManual(ctx context.Context, in ManualPayment) (*VerifyResult, error)
}

type paymentUC struct {
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	users    repository.UserRepository
	coupons  CouponUseCase
	subs     SubscriptionUseCase
	notify   NotificationUseCase
	gateway  adapter.PaymentGateway
	tm       repository.TransactionManager
	cal      Calendar
	currency string
	lease    time.Duration
	log      *zerolog.Logger
}

// PaymentOptions carries the ledger settings from config.
type PaymentOptions struct {
	Currency    string
	VerifyLease time.Duration
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	plans repository.PlanRepository,
	users repository.UserRepository,
	coupons CouponUseCase,
	subs SubscriptionUseCase,
	notify NotificationUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	cal Calendar,
	opts PaymentOptions,
	logger *zerolog.Logger,
) *paymentUC {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.VerifyLease <= 0 {
		opts.VerifyLease = 2 * time.Minute
	}
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments: payments,
		plans:    plans,
		users:    users,
		coupons:  coupons,
		subs:     subs,
		notify:   notify,
		gateway:  gateway,
		tm:       tm,
		cal:      cal,
		currency: opts.Currency,
		lease:    opts.VerifyLease,
		log:      &l,
	}
}

func newReceipt() string { return "rcpt_" + ulid.Make().String() }

func (u *paymentUC) CreateOrder(ctx context.Context, p model.Principal, planSlug, couponCode string) (*OrderResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateOrder")()

	planSlug = strings.ToLower(strings.TrimSpace(planSlug))
	if planSlug == "" {
		return nil, fmt.Errorf("%w: plan slug missing", domain.ErrInvalidArgument)
	}
	plan, err := u.plans.FindBySlug(ctx, repository.NoTX, planSlug)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, domain.ErrPlanInactive
	}

	amount := plan.Price
	var snap *model.DiscountSnapshot
	if strings.TrimSpace(couponCode) != "" {
		s, err := u.coupons.Evaluate(ctx, p, couponCode, plan.Price, plan.ID)
		if err != nil {
			return nil, err
		}
		snap = &s
		amount = s.FinalAmount()
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: order total must be positive", domain.ErrInvalidAmount)
	}

	receipt := newReceipt()
	order, err := u.gateway.CreateOrder(ctx, amount*100, u.currency, receipt)
	if err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("plan", plan.Slug).Msg("gateway order failed")
		return nil, err
	}

	now := u.cal.now()
	pay := &model.Payment{
		ID:              uuid.NewString(),
		UserID:          p.UserID,
		UserEmail:       p.Email,
		PlanID:          plan.ID,
		PlanName:        plan.Name,
		Amount:          amount,
		Currency:        u.currency,
		Coupon:          snap,
		Status:          model.PaymentStatusCreated,
		OrderID:         order.ID,
		Receipt:         receipt,
		ProcessingState: model.ProcessingUnprocessed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := u.payments.Save(ctx, repository.NoTX, pay); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusCreated))

	return &OrderResult{
		PaymentID: pay.ID,
		OrderID:   order.ID,
		Amount:    amount * 100,
		Currency:  u.currency,
		Key:       u.gateway.KeyID(),
		Coupon:    snap,
	}, nil
}

func (u *paymentUC) Verify(ctx context.Context, p model.Principal, orderID, paymentID, signature string) (*VerifyResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Verify")()
	start := time.Now()

	res, err := u.verify(ctx, p, orderID, paymentID, signature)
	switch {
	case err != nil:
		metrics.ObservePaymentVerify("error", string(domain.KindOf(err)), time.Since(start))
		logging.With(ctx, u.log).Warn().Err(err).Str("order_id", orderID).Msg("payment verification rejected")
	case res.Replayed:
		metrics.ObservePaymentVerify("replayed", "", time.Since(start))
	default:
		metrics.ObservePaymentVerify("ok", "", time.Since(start))
	}
	return res, err
}

func (u *paymentUC) verify(ctx context.Context, p model.Principal, orderID, paymentID, signature string) (*VerifyResult, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, fmt.Errorf("%w: order id, payment id and signature are required", domain.ErrInvalidArgument)
	}
	if !u.gateway.VerifySignature(orderID, paymentID, signature) {
		return nil, domain.ErrInvalidSignature
	}
	pay, err := u.payments.FindByOrderID(ctx, repository.NoTX, orderID)
	if err != nil {
		return nil, err
	}
	if pay.UserID != p.UserID {
		return nil, domain.ErrForbidden
	}
	if pay.Processed() {
		return replay(pay), nil
	}

	var (
		sub *model.Subscription
		gen GenerateResult
	)
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := u.cal.now()
		won, err := u.payments.ClaimForProcessing(ctx, tx, pay.ID, now, now.Add(-u.lease))
		if err != nil {
			return err
		}
		if !won {
			return errLostClaim
		}
		if err := u.payments.MarkSuccess(ctx, tx, pay.ID, paymentID, signature, now); err != nil {
			return err
		}
		pay.Status = model.PaymentStatusSuccess
		pay.ProviderPaymentID = &paymentID
		pay.Signature = &signature
		pay.VerifiedAt = &now

		sub, gen, err = u.handoff(ctx, tx, pay)
		return err
	})
	if errors.Is(err, errLostClaim) {
		return u.afterLostClaim(ctx, pay.ID)
	}
	if err != nil {
		return nil, err
	}

	metrics.IncPayment(string(model.PaymentStatusSuccess))
	metrics.AddPaymentRevenue(pay.Currency, pay.Amount)
	logging.With(ctx, u.log).Info().
		Str("payment_id", pay.ID).
		Str("subscription_id", sub.ID).
		Int("deliveries", gen.Inserted).
		Msg("payment verified")
	u.notify.PaymentConfirmed(ctx, pay, sub, gen.FirstDeliveryDate)

	return &VerifyResult{
		PaymentID:         pay.ID,
		SubscriptionID:    sub.ID,
		Inserted:          gen.Inserted,
		FirstDeliveryDate: gen.FirstDeliveryDate,
	}, nil
}

// handoff records coupon usage, opens the subscription and marks the payment
// processed. MarkProcessed is the last write.
func (u *paymentUC) handoff(ctx context.Context, tx repository.Tx, pay *model.Payment) (*model.Subscription, GenerateResult, error) {
	plan, err := u.plans.FindByID(ctx, tx, pay.PlanID)
	if err != nil {
		return nil, GenerateResult{}, err
	}
	if pay.Coupon != nil {
		if err := u.coupons.RecordUsage(ctx, tx, pay.Coupon.CouponID, pay.UserID); err != nil {
			return nil, GenerateResult{}, err
		}
	}
	sub, gen, err := u.subs.CreateFromPayment(ctx, tx, pay, plan)
	if err != nil {
		return nil, gen, err
	}
	ok, err := u.payments.MarkProcessed(ctx, tx, pay.ID, sub.ID)
	if err != nil {
		return nil, gen, err
	}
	if !ok {
		return nil, gen, errLostClaim
	}
	pay.ProcessingState = model.ProcessingDone
	pay.SubscriptionID = &sub.ID
	return sub, gen, nil
}

func (u *paymentUC) afterLostClaim(ctx context.Context, id string) (*VerifyResult, error) {
	cur, err := u.payments.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if cur.Processed() {
		return replay(cur), nil
	}
	return nil, domain.ErrVerifyInProgress
}

func replay(pay *model.Payment) *VerifyResult {
	res := &VerifyResult{PaymentID: pay.ID, Replayed: true}
	if pay.SubscriptionID != nil {
		res.SubscriptionID = *pay.SubscriptionID
	}
	return res
}

// HandleWebhook authenticates a gateway callback. Only payment.failed changes
// state, and only for payments still in created.
func (u *paymentUC) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	ev, err := u.gateway.ParseWebhook(body, signature)
	if err != nil {
		return err
	}
	log := logging.With(ctx, u.log)
	switch ev.Event {
	case "payment.failed":
		if ev.OrderID == "" {
			log.Warn().Msg("payment.failed webhook without order id")
			return nil
		}
		changed, err := u.payments.MarkFailedIfCreated(ctx, repository.NoTX, ev.OrderID, ev.FailureReason)
		if err != nil {
			return err
		}
		if changed {
			metrics.IncPayment(string(model.PaymentStatusFailed))
			u.notify.PaymentFailed(ctx, ev.OrderID, ev.FailureReason)
		}
		log.Info().Str("order_id", ev.OrderID).Bool("changed", changed).Msg("payment failure recorded")
	default:
		log.Debug().Str("event", ev.Event).Msg("webhook event ignored")
	}
	return nil
}

func (u *paymentUC) ListMine(ctx context.Context, p model.Principal) ([]*model.Payment, error) {
	return u.payments.ListByUser(ctx, repository.NoTX, p.UserID)
}

func (u *paymentUC) LatestInvoice(ctx context.Context, p model.Principal) (*model.Invoice, error) {
	pay, err := u.payments.LatestSuccessful(ctx, repository.NoTX, p.UserID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrNoSuccessfulPayment
		}
		return nil, err
	}
	inv := pay.Invoice()
	return &inv, nil
}

// RecordManual books an offline payment and runs the same handoff a verified
// online payment gets.
func (u *paymentUC) RecordManual(ctx context.Context, in ManualPayment) (*VerifyResult, error) {
	if in.UserID == "" || in.PlanID == "" {
		return nil, domain.ErrInvalidArgument
	}
	user, err := u.users.FindByID(ctx, repository.NoTX, in.UserID)
	if err != nil {
		return nil, err
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, in.PlanID)
	if err != nil {
		return nil, err
	}
	amount := plan.Price
	if in.Amount != nil {
		if *in.Amount < 0 {
			return nil, domain.ErrInvalidAmount
		}
		amount = *in.Amount
	}

	now := u.cal.now()
	id := ulid.Make().String()
	pay := &model.Payment{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		UserEmail:       user.Email,
		PlanID:          plan.ID,
		PlanName:        plan.Name,
		Amount:          amount,
		Currency:        u.currency,
		Status:          model.PaymentStatusManual,
		OrderID:         "manual_" + id,
		Receipt:         "rcpt_" + id,
		VerifiedAt:      &now,
		ProcessingState: model.ProcessingUnprocessed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ref := strings.TrimSpace(in.Reference); ref != "" {
		pay.ProviderPaymentID = &ref
	}

	var (
		sub *model.Subscription
		gen GenerateResult
	)
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.Save(ctx, tx, pay); err != nil {
			return err
		}
		won, err := u.payments.ClaimForProcessing(ctx, tx, pay.ID, now, now.Add(-u.lease))
		if err != nil {
			return err
		}
		if !won {
			return errLostClaim
		}
		sub, gen, err = u.handoff(ctx, tx, pay)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPayment(string(model.PaymentStatusManual))
	metrics.AddPaymentRevenue(pay.Currency, pay.Amount)
	u.log.Info().Str("payment_id", pay.ID).Str("user_id", user.ID).Msg("manual payment recorded")
	u.notify.PaymentConfirmed(ctx, pay, sub, gen.FirstDeliveryDate)

	return &VerifyResult{
		PaymentID:         pay.ID,
		SubscriptionID:    sub.ID,
		Inserted:          gen.Inserted,
		FirstDeliveryDate: gen.FirstDeliveryDate,
	}, nil
}
