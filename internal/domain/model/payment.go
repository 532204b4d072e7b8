package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCreated PaymentStatus = "created" // order opened at the gateway
	PaymentStatusSuccess PaymentStatus = "success" // signature verified
	PaymentStatusFailed  PaymentStatus = "failed"  // reported failed by gateway webhook
	PaymentStatusManual  PaymentStatus = "manual"  // recorded offline by an admin
)

// ProcessingState guards the payment -> subscription handoff.
// unprocessed -> processing -> processed, each step a compare-and-set.
type ProcessingState string

const (
	ProcessingUnprocessed ProcessingState = "unprocessed"
	ProcessingInProgress  ProcessingState = "processing"
	ProcessingDone        ProcessingState = "processed"
)

// DiscountSnapshot is the coupon outcome locked onto a payment at order time.
type DiscountSnapshot struct {
	CouponID       string `json:"couponId"`
	Code           string `json:"code"`
	Discount       int64  `json:"discount"`
	OriginalAmount int64  `json:"originalAmount"`
}

func (d DiscountSnapshot) FinalAmount() int64 { return d.OriginalAmount - d.Discount }

// Payment records one checkout attempt. Amounts are whole rupees.
type Payment struct {
	ID        string
	UserID    string
	UserEmail string
	PlanID    string
	PlanName  string
	Amount    int64 // after discount
	Currency  string
	Coupon    *DiscountSnapshot

	Status            PaymentStatus
	OrderID           string
	Receipt           string
	ProviderPaymentID *string
	Signature         *string
	VerifiedAt        *time.Time
	FailureReason     string

	ProcessingState     ProcessingState
	ProcessingStartedAt *time.Time
	SubscriptionID      *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Processed is the idempotency flag exposed to callers.
func (p *Payment) Processed() bool { return p.ProcessingState == ProcessingDone }

// Invoice is the summary returned for the latest successful payment.
type Invoice struct {
	PaymentID      string            `json:"paymentId"`
	OrderID        string            `json:"orderId"`
	Receipt        string            `json:"receipt"`
	PlanName       string            `json:"planName"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Coupon         *DiscountSnapshot `json:"coupon,omitempty"`
	PaidAt         *time.Time        `json:"paidAt"`
	SubscriptionID *string           `json:"subscriptionId,omitempty"`
}

func (p *Payment) Invoice() Invoice {
	return Invoice{
		PaymentID:      p.ID,
		OrderID:        p.OrderID,
		Receipt:        p.Receipt,
		PlanName:       p.PlanName,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Coupon:         p.Coupon,
		PaidAt:         p.VerifiedAt,
		SubscriptionID: p.SubscriptionID,
	}
}
