package adapter

import "context"

// Order is the gateway-side order opened for a checkout.
type Order struct {
	ID       string
	Amount   int64 // minor units (paise)
	Currency string
	Receipt  string
}

// WebhookEvent is the subset of a gateway callback the ledger acts on.
type WebhookEvent struct {
	Event         string
	OrderID       string
	PaymentID     string
	FailureReason string
}

// PaymentGateway is the port for payment providers.
type PaymentGateway interface {
	Name() string
	// KeyID is the public key the client checkout widget needs.
	KeyID() string
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (Order, error)
	// VerifySignature checks the checkout signature over "<orderId>|<paymentId>".
	VerifySignature(orderID, paymentID, signature string) bool
	// ParseWebhook authenticates a raw webhook body against its signature header.
	ParseWebhook(body []byte, signature string) (WebhookEvent, error)
}
