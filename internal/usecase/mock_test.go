//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// date builds a civil date.
func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// testClock is a settable clock shared by a test's use cases.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock { return &testClock{now: now} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Calendar() usecase.Calendar {
	return usecase.Calendar{Location: time.UTC, LookaheadDays: 400, UpcomingWindowDays: 7, Now: c.Now}
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Repositories
// =============================

// ---- Plans ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error)
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo { return &MockPlanRepo{data: map[string]*model.Plan{}} }

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPlanNotFound
}

func (r *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Plan
	for _, p := range r.data {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

// ---- Subscriptions ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription

	SaveFunc func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) FindLatestActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.Subscription
	for _, s := range r.data {
		if s.UserID != userID || s.Status.Terminal() {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *MockSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, statuses ...model.SubscriptionStatus) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.UserID != userID {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, s.Status) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func hasStatus(xs []model.SubscriptionStatus, s model.SubscriptionStatus) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func (r *MockSubscriptionRepo) List(ctx context.Context, tx repository.Tx, f repository.SubscriptionFilter) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if (f.Status != "" && s.Status != f.Status) || (f.PlanID != "" && s.PlanID != f.PlanID) || (f.UserID != "" && s.UserID != f.UserID) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockSubscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && s.EndDate.Before(now) {
			s.Status = model.SubscriptionStatusExpired
			s.UpdatedAt = now
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (r *MockSubscriptionRepo) ListPausedUntilBefore(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusPaused && s.PausedUntil != nil && s.PausedUntil.Before(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, s := range r.data {
		out[s.Status]++
	}
	return out, nil
}

func (r *MockSubscriptionRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- Deliveries ----

type slotKey struct {
	sub  string
	date time.Time
}

type MockDeliveryRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Delivery
	bySlot map[slotKey]string

	InsertScheduledFunc func(ctx context.Context, tx repository.Tx, ds []*model.Delivery) (int, error)
}

var _ repository.DeliveryRepository = (*MockDeliveryRepo)(nil)

func NewMockDeliveryRepo() *MockDeliveryRepo {
	return &MockDeliveryRepo{byID: map[string]*model.Delivery{}, bySlot: map[slotKey]string{}}
}

func active(d *model.Delivery) bool { return d.Status != model.DeliveryStatusCancelled }

func (r *MockDeliveryRepo) InsertScheduled(ctx context.Context, tx repository.Tx, ds []*model.Delivery) (int, error) {
	if r.InsertScheduledFunc != nil {
		return r.InsertScheduledFunc(ctx, tx, ds)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range ds {
		key := slotKey{d.SubscriptionID, d.DeliveryDate}
		if id, ok := r.bySlot[key]; ok {
			if cur := r.byID[id]; cur.Status == model.DeliveryStatusCancelled {
				cur.Status = model.DeliveryStatusScheduled
				n++
			}
			continue
		}
		cp := *d
		cp.Status = model.DeliveryStatusScheduled
		r.byID[d.ID] = &cp
		r.bySlot[key] = d.ID
		n++
	}
	return n, nil
}

func (r *MockDeliveryRepo) Create(ctx context.Context, tx repository.Tx, d *model.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := slotKey{d.SubscriptionID, d.DeliveryDate}
	if _, ok := r.bySlot[key]; ok {
		return domain.ErrDeliverySlotTaken
	}
	cp := *d
	r.byID[d.ID] = &cp
	r.bySlot[key] = d.ID
	return nil
}

func (r *MockDeliveryRepo) Update(ctx context.Context, tx repository.Tx, d *model.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; !ok {
		return domain.ErrDeliveryNotFound
	}
	cp := *d
	r.byID[d.ID] = &cp
	return nil
}

func (r *MockDeliveryRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrDeliveryNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *MockDeliveryRepo) ActiveDates(ctx context.Context, tx repository.Tx, subscriptionID string, from, to time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, d := range r.byID {
		if d.SubscriptionID == subscriptionID && active(d) && !d.DeliveryDate.Before(from) && !d.DeliveryDate.After(to) {
			out = append(out, d.DeliveryDate)
		}
	}
	return out, nil
}

func (r *MockDeliveryRepo) CountActiveBetween(ctx context.Context, tx repository.Tx, subscriptionID string, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.byID {
		if d.SubscriptionID == subscriptionID && active(d) && !d.DeliveryDate.Before(from) && d.DeliveryDate.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *MockDeliveryRepo) CancelScheduledFrom(ctx context.Context, tx repository.Tx, subscriptionID string, day time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.byID {
		if d.SubscriptionID == subscriptionID && d.Status.Skippable() && !d.DeliveryDate.Before(day) {
			d.Status = model.DeliveryStatusCancelled
			n++
		}
	}
	return n, nil
}

func (r *MockDeliveryRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, from, to *time.Time) ([]*model.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Delivery
	for _, d := range r.byID {
		if d.UserID != userID {
			continue
		}
		if (from != nil && d.DeliveryDate.Before(*from)) || (to != nil && !d.DeliveryDate.Before(*to)) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sortDeliveries(out)
	return out, nil
}

func (r *MockDeliveryRepo) NextForSubscription(ctx context.Context, tx repository.Tx, subscriptionID string, from time.Time) (*model.Delivery, error) {
	var next *model.Delivery
	for _, d := range r.ForSubscription(subscriptionID) {
		if d.Status.Skippable() && !d.DeliveryDate.Before(from) {
			next = d
			break
		}
	}
	return next, nil
}

func (r *MockDeliveryRepo) CountUpcoming(ctx context.Context, tx repository.Tx, subscriptionID string, from, to time.Time) (int, error) {
	n := 0
	for _, d := range r.ForSubscription(subscriptionID) {
		if d.Status.Skippable() && !d.DeliveryDate.Before(from) && d.DeliveryDate.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *MockDeliveryRepo) List(ctx context.Context, tx repository.Tx, f model.DeliveryFilter) ([]*model.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Delivery
	for _, d := range r.byID {
		if f.Date != nil && !d.DeliveryDate.Equal(*f.Date) {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.AssignedTo != "" && (d.AssignedTo == nil || *d.AssignedTo != f.AssignedTo) {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sortDeliveries(out)
	return out, nil
}

// ForSubscription returns every slot of a subscription ordered by date.
func (r *MockDeliveryRepo) ForSubscription(subscriptionID string) []*model.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Delivery
	for _, d := range r.byID {
		if d.SubscriptionID == subscriptionID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sortDeliveries(out)
	return out
}

// ActiveFor returns the non-cancelled slot dates of a subscription.
func (r *MockDeliveryRepo) ActiveFor(subscriptionID string) []time.Time {
	var out []time.Time
	for _, d := range r.ForSubscription(subscriptionID) {
		if active(d) {
			out = append(out, d.DeliveryDate)
		}
	}
	return out
}

func sortDeliveries(ds []*model.Delivery) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].DeliveryDate.Before(ds[j].DeliveryDate) })
}

// ---- Payments ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment

	MarkProcessedFunc func(ctx context.Context, tx repository.Tx, id, subscriptionID string) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) LatestSuccessful(ctx context.Context, tx repository.Tx, userID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.Payment
	for _, p := range r.data {
		if p.UserID != userID || p.Status != model.PaymentStatusSuccess {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, domain.ErrPaymentNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *MockPaymentRepo) ClaimForProcessing(ctx context.Context, tx repository.Tx, id string, now, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, nil
	}
	stale := p.ProcessingState == model.ProcessingInProgress && p.ProcessingStartedAt != nil && p.ProcessingStartedAt.Before(staleBefore)
	if p.ProcessingState != model.ProcessingUnprocessed && !stale {
		return false, nil
	}
	p.ProcessingState = model.ProcessingInProgress
	p.ProcessingStartedAt = &now
	return true, nil
}

func (r *MockPaymentRepo) MarkSuccess(ctx context.Context, tx repository.Tx, id, providerPaymentID, signature string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = model.PaymentStatusSuccess
	p.ProviderPaymentID = &providerPaymentID
	p.Signature = &signature
	p.VerifiedAt = &at
	return nil
}

func (r *MockPaymentRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id, subscriptionID string) (bool, error) {
	if r.MarkProcessedFunc != nil {
		return r.MarkProcessedFunc(ctx, tx, id, subscriptionID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.ProcessingState != model.ProcessingInProgress {
		return false, nil
	}
	p.ProcessingState = model.ProcessingDone
	p.SubscriptionID = &subscriptionID
	return true, nil
}

func (r *MockPaymentRepo) MarkFailedIfCreated(ctx context.Context, tx repository.Tx, orderID, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.OrderID == orderID && p.Status == model.PaymentStatusCreated {
			p.Status = model.PaymentStatusFailed
			p.FailureReason = reason
			return true, nil
		}
	}
	return false, nil
}

// ---- Coupons ----

type usageKey struct{ coupon, user string }

type MockCouponRepo struct {
	mu    sync.Mutex
	data  map[string]*model.Coupon
	usage map[usageKey]int
}

var _ repository.CouponRepository = (*MockCouponRepo)(nil)

func NewMockCouponRepo() *MockCouponRepo {
	return &MockCouponRepo{data: map[string]*model.Coupon{}, usage: map[usageKey]int{}}
}

func (r *MockCouponRepo) Create(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.data {
		if x.Code == c.Code {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	r.data[c.ID] = &cp
	return nil
}

func (r *MockCouponRepo) Update(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[c.ID]; !ok {
		return domain.ErrCouponNotFound
	}
	cp := *c
	r.data[c.ID] = &cp
	return nil
}

func (r *MockCouponRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MockCouponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.data {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrCouponNotFound
}

func (r *MockCouponRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Coupon
	for _, c := range r.data {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockCouponRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok {
		return domain.ErrCouponNotFound
	}
	c.Active = active
	return nil
}

func (r *MockCouponRepo) UsageCount(ctx context.Context, tx repository.Tx, couponID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage[usageKey{couponID, userID}], nil
}

func (r *MockCouponRepo) RecordUsage(ctx context.Context, tx repository.Tx, couponID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[couponID]
	if !ok {
		return domain.ErrCouponNotFound
	}
	c.TotalUsed++
	if c.UsageLimit != nil && c.TotalUsed >= *c.UsageLimit {
		c.Active = false
	}
	r.usage[usageKey{couponID, userID}]++
	return nil
}

// ---- Users ----

type MockUserRepo struct {
	mu   sync.Mutex
	data map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo { return &MockUserRepo{data: map[string]*model.User{}} }

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.data[u.ID] = &cp
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MockUserRepo) SetActiveSubscription(ctx context.Context, tx repository.Tx, userID string, subscriptionID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.data[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.ActiveSubscriptionID = subscriptionID
	return nil
}

// =============================
// Adapters
// =============================

// ---- Payment gateway ----

// MockGateway accepts signatures of the form "sig:<order>|<payment>".
type MockGateway struct {
	mu     sync.Mutex
	orders int

	CreateOrderFunc  func(ctx context.Context, amountMinor int64, currency, receipt string) (adapter.Order, error)
	ParseWebhookFunc func(body []byte, signature string) (adapter.WebhookEvent, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func validSig(orderID, paymentID string) string { return "sig:" + orderID + "|" + paymentID }

func (g *MockGateway) Name() string  { return "mock" }
func (g *MockGateway) KeyID() string { return "rzp_test_key" }

func (g *MockGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (adapter.Order, error) {
	if g.CreateOrderFunc != nil {
		return g.CreateOrderFunc(ctx, amountMinor, currency, receipt)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	return adapter.Order{ID: fmt.Sprintf("order_%d", g.orders), Amount: amountMinor, Currency: currency, Receipt: receipt}, nil
}

func (g *MockGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == validSig(orderID, paymentID)
}

func (g *MockGateway) ParseWebhook(body []byte, signature string) (adapter.WebhookEvent, error) {
	if g.ParseWebhookFunc != nil {
		return g.ParseWebhookFunc(body, signature)
	}
	if signature != "ok" {
		return adapter.WebhookEvent{}, domain.ErrInvalidSignature
	}
	return adapter.WebhookEvent{Event: "payment.failed", OrderID: string(body), FailureReason: "card declined"}, nil
}

// ---- Notifier ----

type MockNotifier struct {
	mu   sync.Mutex
	name string
	Sent []adapter.Notification

	SendFunc func(ctx context.Context, n adapter.Notification) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func NewMockNotifier(name string) *MockNotifier { return &MockNotifier{name: name} }

func (m *MockNotifier) Name() string { return m.name }

func (m *MockNotifier) Send(ctx context.Context, n adapter.Notification) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
	return nil
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// ---- Notification use case ----

type MockNotificationUC struct {
	mu        sync.Mutex
	Confirmed []string // subscription ids
	Failed    []string // order ids
}

var _ usecase.NotificationUseCase = (*MockNotificationUC)(nil)

func (m *MockNotificationUC) PaymentConfirmed(ctx context.Context, pay *model.Payment, sub *model.Subscription, first *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Confirmed = append(m.Confirmed, sub.ID)
}

func (m *MockNotificationUC) PaymentFailed(ctx context.Context, orderID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failed = append(m.Failed, orderID)
}

var errBoom = errors.New("boom")

// =============================
// Fixture: every use case wired over the in-memory repositories
// =============================

type fixture struct {
	clock      *testClock
	plans      *MockPlanRepo
	subs       *MockSubscriptionRepo
	deliveries *MockDeliveryRepo
	payments   *MockPaymentRepo
	coupons    *MockCouponRepo
	users      *MockUserRepo
	tm         *MockTxManager
	gateway    *MockGateway
	notify     *MockNotificationUC

	deliveryUC usecase.DeliveryUseCase
	subUC      usecase.SubscriptionUseCase
	couponUC   usecase.CouponUseCase
	paymentUC  usecase.PaymentUseCase
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		clock:      newTestClock(now),
		plans:      NewMockPlanRepo(),
		subs:       NewMockSubscriptionRepo(),
		deliveries: NewMockDeliveryRepo(),
		payments:   NewMockPaymentRepo(),
		coupons:    NewMockCouponRepo(),
		users:      NewMockUserRepo(),
		tm:         NewMockTxManager(),
		gateway:    &MockGateway{},
		notify:     &MockNotificationUC{},
	}
	logger := newTestLogger()
	cal := f.clock.Calendar()
	f.deliveryUC = usecase.NewDeliveryUseCase(f.deliveries, f.subs, f.tm, cal, logger)
	f.subUC = usecase.NewSubscriptionUseCase(f.subs, f.plans, f.users, f.deliveries, f.deliveryUC, f.tm, cal, logger)
	f.couponUC = usecase.NewCouponUseCase(f.coupons, cal, logger)
	f.paymentUC = usecase.NewPaymentUseCase(
		f.payments, f.plans, f.users, f.couponUC, f.subUC, f.notify, f.gateway, f.tm, cal,
		usecase.PaymentOptions{Currency: "INR", VerifyLease: 2 * time.Minute}, logger,
	)
	return f
}

// seedPlan stores an active plan. count nil means the days-per-cycle fallback.
func (f *fixture) seedPlan(id, slug string, price int64, count *int, days ...time.Weekday) *model.Plan {
	p, err := model.NewPlan(id, slug, "Plan "+slug, price, 30)
	if err != nil {
		panic(err)
	}
	p.DeliveryCount = count
	if len(days) > 0 {
		p.DeliveryDays = model.NewWeekdaySet(days...)
	}
	_ = f.plans.Save(context.Background(), repository.NoTX, p)
	return p
}

func (f *fixture) seedUser(id string) model.Principal {
	u, err := model.NewUser(id, "User "+id, id+"@example.com")
	if err != nil {
		panic(err)
	}
	_ = f.users.Save(context.Background(), repository.NoTX, u)
	return model.Principal{UserID: u.ID, Email: u.Email, Role: model.RoleUser}
}

func intPtr(v int) *int { return &v }
