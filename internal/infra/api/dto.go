package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

const dateLayout = "2006-01-02"

// parseDate accepts a civil date or an RFC 3339 instant.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, &domain.Error{Kind: domain.KindValidation, Msg: fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field)}
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

// ----- requests -----

type applyCouponRequest struct {
	Code   string `json:"code" validate:"required,max=64"`
	Amount int64  `json:"amount" validate:"gt=0"`
	PlanID string `json:"planId" validate:"required"`
}

type couponRequest struct {
	Code           string          `json:"code" validate:"required,max=64"`
	Description    string          `json:"description" validate:"max=500"`
	DiscountType   string          `json:"discountType" validate:"required,oneof=flat percent"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	MinAmount      int64           `json:"minAmount" validate:"gte=0"`
	MaxDiscount    *int64          `json:"maxDiscount" validate:"omitempty,gt=0"`
	ValidFrom      *time.Time      `json:"validFrom"`
	ValidTo        *time.Time      `json:"validTo"`
	Active         *bool           `json:"active"`
	UsageLimit     *int            `json:"usageLimit" validate:"omitempty,gt=0"`
	PerUserLimit   *int            `json:"perUserLimit" validate:"omitempty,gt=0"`
	AllowedPlanIDs []string        `json:"allowedPlanIds" validate:"omitempty,dive,required"`
}

func (r couponRequest) toModel() *model.Coupon {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &model.Coupon{
		Code:           r.Code,
		Description:    r.Description,
		DiscountType:   model.DiscountType(r.DiscountType),
		DiscountValue:  r.DiscountValue,
		MinAmount:      r.MinAmount,
		MaxDiscount:    r.MaxDiscount,
		ValidFrom:      r.ValidFrom,
		ValidTo:        r.ValidTo,
		Active:         active,
		UsageLimit:     r.UsageLimit,
		PerUserLimit:   r.PerUserLimit,
		AllowedPlanIDs: r.AllowedPlanIDs,
	}
}

type couponPatchRequest struct {
	Description    *string          `json:"description" validate:"omitempty,max=500"`
	DiscountType   *string          `json:"discountType" validate:"omitempty,oneof=flat percent"`
	DiscountValue  *decimal.Decimal `json:"discountValue"`
	MinAmount      *int64           `json:"minAmount" validate:"omitempty,gte=0"`
	MaxDiscount    *int64           `json:"maxDiscount" validate:"omitempty,gt=0"`
	ValidFrom      *time.Time       `json:"validFrom"`
	ValidTo        *time.Time       `json:"validTo"`
	UsageLimit     *int             `json:"usageLimit" validate:"omitempty,gt=0"`
	PerUserLimit   *int             `json:"perUserLimit" validate:"omitempty,gt=0"`
	AllowedPlanIDs []string         `json:"allowedPlanIds" validate:"omitempty,dive,required"`
}

func (r couponPatchRequest) toPatch() model.CouponPatch {
	p := model.CouponPatch{
		Description:    r.Description,
		DiscountValue:  r.DiscountValue,
		MinAmount:      r.MinAmount,
		MaxDiscount:    r.MaxDiscount,
		ValidFrom:      r.ValidFrom,
		ValidTo:        r.ValidTo,
		UsageLimit:     r.UsageLimit,
		PerUserLimit:   r.PerUserLimit,
		AllowedPlanIDs: r.AllowedPlanIDs,
	}
	if r.DiscountType != nil {
		dt := model.DiscountType(*r.DiscountType)
		p.DiscountType = &dt
	}
	return p
}

type createOrderRequest struct {
	PlanSlug   string `json:"planSlug" validate:"required,max=100"`
	CouponCode string `json:"couponCode" validate:"omitempty,max=64"`
	Name       string `json:"name" validate:"omitempty,max=120"`
}

// verifyPaymentRequest carries the fields the Razorpay checkout hands back.
type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

type manualPaymentRequest struct {
	UserID    string `json:"userId" validate:"required"`
	PlanID    string `json:"planId" validate:"required"`
	Amount    *int64 `json:"amount" validate:"omitempty,gt=0"`
	Reference string `json:"reference" validate:"max=200"`
}

type pauseRequest struct {
	Until *string `json:"until"`
}

type scheduleRequest struct {
	Mode         *string   `json:"mode" validate:"omitempty,oneof=daily alternate weekdays"`
	DeliveryDays *[]string `json:"deliveryDays" validate:"omitnil,min=1,dive,required"`
	SkipDates    *[]string `json:"skipDates" validate:"omitempty,dive,required"`
}

func (r scheduleRequest) toPatch() (usecase.SchedulePatch, error) {
	var patch usecase.SchedulePatch
	if r.Mode != nil {
		m := model.DeliveryMode(*r.Mode)
		patch.Mode = &m
	}
	if r.DeliveryDays != nil {
		days, err := model.ParseWeekdays(*r.DeliveryDays)
		if err != nil {
			return patch, &domain.Error{Kind: domain.KindValidation, Msg: err.Error()}
		}
		patch.DeliveryDays = &days
	}
	if r.SkipDates != nil {
		skip := make([]time.Time, 0, len(*r.SkipDates))
		for _, s := range *r.SkipDates {
			d, err := parseDate("skipDates", s)
			if err != nil {
				return patch, err
			}
			skip = append(skip, d)
		}
		patch.SkipDates = &skip
	}
	return patch, nil
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active paused cancelled expired"`
}

type modifyRequest struct {
	NewPlanID  *string `json:"newPlanId" validate:"omitempty,min=1"`
	ExtendDays *int    `json:"extendDays" validate:"omitempty,gt=0,lte=3650"`
	NewEndDate *string `json:"newEndDate"`
}

func (r modifyRequest) toModification() (usecase.AdminModification, error) {
	end, err := parseOptionalDate("newEndDate", r.NewEndDate)
	if err != nil {
		return usecase.AdminModification{}, err
	}
	return usecase.AdminModification{NewPlanID: r.NewPlanID, ExtendDays: r.ExtendDays, NewEndDate: end}, nil
}

type manualDeliveryRequest struct {
	SubscriptionID string  `json:"subscriptionId" validate:"required"`
	DeliveryDate   string  `json:"deliveryDate" validate:"required"`
	AssignedTo     *string `json:"assignedTo" validate:"omitempty,max=120"`
	Notes          string  `json:"notes" validate:"max=1000"`
}

type deliveryPatchRequest struct {
	Status     *string `json:"status" validate:"omitempty,oneof=pending scheduled out_for_delivery delivered missed cancelled skipped"`
	AssignedTo *string `json:"assignedTo" validate:"omitempty,max=120"`
	Notes      *string `json:"notes" validate:"omitempty,max=1000"`
	ProofImage *string `json:"proofImage" validate:"omitempty,url"`
}

func (r deliveryPatchRequest) toPatch() model.DeliveryPatch {
	p := model.DeliveryPatch{AssignedTo: r.AssignedTo, Notes: r.Notes, ProofImage: r.ProofImage}
	if r.Status != nil {
		s := model.DeliveryStatus(*r.Status)
		p.Status = &s
	}
	return p
}

// ----- responses -----

type planView struct {
	ID            string   `json:"id"`
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         int64    `json:"price"`
	DurationDays  int      `json:"durationDays"`
	DeliveryDays  []string `json:"deliveryDays"`
	DeliveryCount *int     `json:"deliveryCount,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Type          string   `json:"type,omitempty"`
	Tags          []string `json:"tags"`
	IsSeasonal    bool     `json:"isSeasonal"`
}

func toPlanView(p *model.Plan) planView {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return planView{
		ID:            p.ID,
		Slug:          p.Slug,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		DurationDays:  p.DurationDays,
		DeliveryDays:  p.AllowedDays().Tags(),
		DeliveryCount: p.DeliveryCount,
		ImageURL:      p.ImageURL,
		Type:          p.Type,
		Tags:          tags,
		IsSeasonal:    p.IsSeasonal,
	}
}

type couponView struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	DiscountType   string          `json:"discountType"`
	DiscountValue  decimal.Decimal `json:"discountValue"`
	MinAmount      int64           `json:"minAmount"`
	MaxDiscount    *int64          `json:"maxDiscount,omitempty"`
	ValidFrom      *time.Time      `json:"validFrom,omitempty"`
	ValidTo        *time.Time      `json:"validTo,omitempty"`
	Active         bool            `json:"active"`
	UsageLimit     *int            `json:"usageLimit,omitempty"`
	PerUserLimit   *int            `json:"perUserLimit,omitempty"`
	TotalUsed      int             `json:"totalUsed"`
	AllowedPlanIDs []string        `json:"allowedPlanIds"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func toCouponView(c *model.Coupon) couponView {
	plans := c.AllowedPlanIDs
	if plans == nil {
		plans = []string{}
	}
	return couponView{
		ID:             c.ID,
		Code:           c.Code,
		Description:    c.Description,
		DiscountType:   string(c.DiscountType),
		DiscountValue:  c.DiscountValue,
		MinAmount:      c.MinAmount,
		MaxDiscount:    c.MaxDiscount,
		ValidFrom:      c.ValidFrom,
		ValidTo:        c.ValidTo,
		Active:         c.Active,
		UsageLimit:     c.UsageLimit,
		PerUserLimit:   c.PerUserLimit,
		TotalUsed:      c.TotalUsed,
		AllowedPlanIDs: plans,
		UpdatedAt:      c.UpdatedAt,
	}
}

type applyCouponResponse struct {
	Code           string `json:"code"`
	Discount       int64  `json:"discount"`
	OriginalAmount int64  `json:"originalAmount"`
	FinalAmount    int64  `json:"finalAmount"`
}

type orderView struct {
	PaymentID string                  `json:"paymentId"`
	OrderID   string                  `json:"orderId"`
	Amount    int64                   `json:"amount"`
	Currency  string                  `json:"currency"`
	Key       string                  `json:"key"`
	Coupon    *model.DiscountSnapshot `json:"coupon,omitempty"`
}

type verifyView struct {
	PaymentID         string  `json:"paymentId"`
	SubscriptionID    string  `json:"subscriptionId"`
	AlreadyProcessed  bool    `json:"alreadyProcessed"`
	DeliveriesCreated int     `json:"deliveriesCreated"`
	FirstDeliveryDate *string `json:"firstDeliveryDate,omitempty"`
}

func toVerifyView(v *usecase.VerifyResult) verifyView {
	return verifyView{
		PaymentID:         v.PaymentID,
		SubscriptionID:    v.SubscriptionID,
		AlreadyProcessed:  v.Replayed,
		DeliveriesCreated: v.Inserted,
		FirstDeliveryDate: formatOptionalDate(v.FirstDeliveryDate),
	}
}

type paymentView struct {
	ID             string                  `json:"id"`
	PlanID         string                  `json:"planId"`
	PlanName       string                  `json:"planName"`
	Amount         int64                   `json:"amount"`
	Currency       string                  `json:"currency"`
	Coupon         *model.DiscountSnapshot `json:"coupon,omitempty"`
	Status         string                  `json:"status"`
	OrderID        string                  `json:"orderId"`
	Receipt        string                  `json:"receipt"`
	FailureReason  string                  `json:"failureReason,omitempty"`
	Processed      bool                    `json:"processed"`
	SubscriptionID *string                 `json:"subscriptionId,omitempty"`
	VerifiedAt     *time.Time              `json:"verifiedAt,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
}

func toPaymentView(p *model.Payment) paymentView {
	return paymentView{
		ID:             p.ID,
		PlanID:         p.PlanID,
		PlanName:       p.PlanName,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Coupon:         p.Coupon,
		Status:         string(p.Status),
		OrderID:        p.OrderID,
		Receipt:        p.Receipt,
		FailureReason:  p.FailureReason,
		Processed:      p.Processed(),
		SubscriptionID: p.SubscriptionID,
		VerifiedAt:     p.VerifiedAt,
		CreatedAt:      p.CreatedAt,
	}
}

type subscriptionView struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"userId"`
	PlanID              string     `json:"planId"`
	PlanName            string     `json:"planName"`
	Status              string     `json:"status"`
	StartDate           time.Time  `json:"startDate"`
	EndDate             time.Time  `json:"endDate"`
	DeliveryDays        []string   `json:"deliveryDays"`
	DeliveryMode        string     `json:"deliveryMode"`
	SkipDates           []string   `json:"skipDates"`
	TotalDeliveries     int        `json:"totalDeliveries"`
	RemainingDeliveries int        `json:"remainingDeliveries"`
	PausedAt            *time.Time `json:"pausedAt,omitempty"`
	PausedUntil         *time.Time `json:"pausedUntil,omitempty"`
	CancelledAt         *time.Time `json:"cancelledAt,omitempty"`
	AutoRenew           bool       `json:"autoRenew"`
}

func toSubscriptionView(s *model.Subscription) subscriptionView {
	skip := make([]string, 0, len(s.SkipDates))
	for _, d := range s.SkipDates {
		skip = append(skip, formatDate(d))
	}
	return subscriptionView{
		ID:                  s.ID,
		UserID:              s.UserID,
		PlanID:              s.PlanID,
		PlanName:            s.PlanName,
		Status:              string(s.Status),
		StartDate:           s.StartDate,
		EndDate:             s.EndDate,
		DeliveryDays:        s.DeliveryDays.Tags(),
		DeliveryMode:        string(s.DeliveryMode),
		SkipDates:           skip,
		TotalDeliveries:     s.TotalDeliveries,
		RemainingDeliveries: s.RemainingDeliveries,
		PausedAt:            s.PausedAt,
		PausedUntil:         s.PausedUntil,
		CancelledAt:         s.CancelledAt,
		AutoRenew:           s.AutoRenew,
	}
}

func toSubscriptionViews(subs []*model.Subscription) []subscriptionView {
	out := make([]subscriptionView, 0, len(subs))
	for _, s := range subs {
		out = append(out, toSubscriptionView(s))
	}
	return out
}

type summaryView struct {
	Subscription     subscriptionView `json:"subscription"`
	NextDeliveryDate *string          `json:"nextDeliveryDate"`
	UpcomingCount    int              `json:"upcomingCount"`
}

type generateView struct {
	Inserted          int     `json:"inserted"`
	FirstDeliveryDate *string `json:"firstDeliveryDate"`
}

type deliveryView struct {
	ID             string  `json:"id"`
	SubscriptionID string  `json:"subscriptionId"`
	UserID         string  `json:"userId"`
	PlanID         string  `json:"planId"`
	DeliveryDate   string  `json:"deliveryDate"`
	Status         string  `json:"status"`
	AssignedTo     *string `json:"assignedTo,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	ProofImage     string  `json:"proofImage,omitempty"`
}

func toDeliveryView(d *model.Delivery) deliveryView {
	return deliveryView{
		ID:             d.ID,
		SubscriptionID: d.SubscriptionID,
		UserID:         d.UserID,
		PlanID:         d.PlanID,
		DeliveryDate:   formatDate(d.DeliveryDate),
		Status:         string(d.Status),
		AssignedTo:     d.AssignedTo,
		Notes:          d.Notes,
		ProofImage:     d.ProofImage,
	}
}

func toDeliveryViews(ds []*model.Delivery) []deliveryView {
	out := make([]deliveryView, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDeliveryView(d))
	}
	return out
}

type userView struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Email                string  `json:"email"`
	Role                 string  `json:"role"`
	ActiveSubscriptionID *string `json:"activeSubscriptionId"`
}

func toUserView(u *model.User) userView {
	return userView{
		ID:                   u.ID,
		Name:                 u.Name,
		Email:                u.Email,
		Role:                 string(u.Role),
		ActiveSubscriptionID: u.ActiveSubscriptionID,
	}
}
