//go:build !integration

package api

import (
	"context"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

// Each mock embeds its use case interface; calling a method without a func
// field set panics, which the Recover middleware turns into a 500.

type mockPlanUC struct {
	usecase.PlanUseCase
	ListFunc      func(ctx context.Context) ([]*model.Plan, error)
	GetBySlugFunc func(ctx context.Context, slug string) (*model.Plan, error)
}

func (m *mockPlanUC) List(ctx context.Context) ([]*model.Plan, error) { return m.ListFunc(ctx) }
func (m *mockPlanUC) GetBySlug(ctx context.Context, slug string) (*model.Plan, error) {
	return m.GetBySlugFunc(ctx, slug)
}

type mockCouponUC struct {
	usecase.CouponUseCase
	EvaluateFunc func(ctx context.Context, p model.Principal, code string, amount int64, planID string) (model.DiscountSnapshot, error)
	CreateFunc   func(ctx context.Context, c *model.Coupon) (*model.Coupon, error)
	UpdateFunc   func(ctx context.Context, id string, patch model.CouponPatch) (*model.Coupon, error)
	ToggleFunc   func(ctx context.Context, id string) (*model.Coupon, error)
}

func (m *mockCouponUC) Evaluate(ctx context.Context, p model.Principal, code string, amount int64, planID string) (model.DiscountSnapshot, error) {
	return m.EvaluateFunc(ctx, p, code, amount, planID)
}
func (m *mockCouponUC) Create(ctx context.Context, c *model.Coupon) (*model.Coupon, error) {
	return m.CreateFunc(ctx, c)
}
func (m *mockCouponUC) Update(ctx context.Context, id string, patch model.CouponPatch) (*model.Coupon, error) {
	return m.UpdateFunc(ctx, id, patch)
}
func (m *mockCouponUC) Toggle(ctx context.Context, id string) (*model.Coupon, error) {
	return m.ToggleFunc(ctx, id)
}

type mockPaymentUC struct {
	usecase.PaymentUseCase
	CreateOrderFunc   func(ctx context.Context, p model.Principal, planSlug, couponCode string) (*usecase.OrderResult, error)
	VerifyFunc        func(ctx context.Context, p model.Principal, orderID, paymentID, signature string) (*usecase.VerifyResult, error)
	HandleWebhookFunc func(ctx context.Context, body []byte, signature string) error
	RecordManualFunc  func(ctx context.Context, in usecase.ManualPayment) (*usecase.VerifyResult, error)
}

func (m *mockPaymentUC) CreateOrder(ctx context.Context, p model.Principal, planSlug, couponCode string) (*usecase.OrderResult, error) {
	return m.CreateOrderFunc(ctx, p, planSlug, couponCode)
}
func (m *mockPaymentUC) Verify(ctx context.Context, p model.Principal, orderID, paymentID, signature string) (*usecase.VerifyResult, error) {
	return m.VerifyFunc(ctx, p, orderID, paymentID, signature)
}
func (m *mockPaymentUC) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return m.HandleWebhookFunc(ctx, body, signature)
}
func (m *mockPaymentUC) RecordManual(ctx context.Context, in usecase.ManualPayment) (*usecase.VerifyResult, error) {
	return m.RecordManualFunc(ctx, in)
}

type mockSubscriptionUC struct {
	usecase.SubscriptionUseCase
	PauseFunc          func(ctx context.Context, p model.Principal, id string, until *time.Time) (*model.Subscription, error)
	UpdateScheduleFunc func(ctx context.Context, p model.Principal, id string, patch usecase.SchedulePatch) (*model.Subscription, error)
	GetActiveFunc      func(ctx context.Context, p model.Principal) (*usecase.SubscriptionSummary, error)
	AdminListFunc      func(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, error)
	AdminGenerateFunc  func(ctx context.Context, p model.Principal, id string) (usecase.GenerateResult, error)
}

func (m *mockSubscriptionUC) Pause(ctx context.Context, p model.Principal, id string, until *time.Time) (*model.Subscription, error) {
	return m.PauseFunc(ctx, p, id, until)
}
func (m *mockSubscriptionUC) UpdateDeliverySchedule(ctx context.Context, p model.Principal, id string, patch usecase.SchedulePatch) (*model.Subscription, error) {
	return m.UpdateScheduleFunc(ctx, p, id, patch)
}
func (m *mockSubscriptionUC) GetActive(ctx context.Context, p model.Principal) (*usecase.SubscriptionSummary, error) {
	return m.GetActiveFunc(ctx, p)
}
func (m *mockSubscriptionUC) AdminList(ctx context.Context, f repository.SubscriptionFilter) ([]*model.Subscription, error) {
	return m.AdminListFunc(ctx, f)
}
func (m *mockSubscriptionUC) AdminGenerate(ctx context.Context, p model.Principal, id string) (usecase.GenerateResult, error) {
	return m.AdminGenerateFunc(ctx, p, id)
}

type mockDeliveryUC struct {
	usecase.DeliveryUseCase
	SkipFunc         func(ctx context.Context, p model.Principal, id string) (*model.Delivery, error)
	ListMineFunc     func(ctx context.Context, p model.Principal, scope usecase.DeliveryScope) ([]*model.Delivery, error)
	AdminListFunc    func(ctx context.Context, f model.DeliveryFilter) ([]*model.Delivery, error)
	CreateManualFunc func(ctx context.Context, in usecase.ManualDelivery) (*model.Delivery, error)
}

func (m *mockDeliveryUC) Skip(ctx context.Context, p model.Principal, id string) (*model.Delivery, error) {
	return m.SkipFunc(ctx, p, id)
}
func (m *mockDeliveryUC) ListMine(ctx context.Context, p model.Principal, scope usecase.DeliveryScope) ([]*model.Delivery, error) {
	return m.ListMineFunc(ctx, p, scope)
}
func (m *mockDeliveryUC) AdminList(ctx context.Context, f model.DeliveryFilter) ([]*model.Delivery, error) {
	return m.AdminListFunc(ctx, f)
}
func (m *mockDeliveryUC) CreateManual(ctx context.Context, in usecase.ManualDelivery) (*model.Delivery, error) {
	return m.CreateManualFunc(ctx, in)
}

type mockUserUC struct {
	usecase.UserUseCase
	RegisterOrFetchFunc func(ctx context.Context, p model.Principal, name string) (*model.User, error)
}

func (m *mockUserUC) RegisterOrFetch(ctx context.Context, p model.Principal, name string) (*model.User, error) {
	if m.RegisterOrFetchFunc == nil {
		return &model.User{ID: p.UserID, Email: p.Email, Role: p.Role}, nil
	}
	return m.RegisterOrFetchFunc(ctx, p, name)
}

type mockLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allow, m.err
}
