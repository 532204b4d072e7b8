package payment

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*DevGateway)(nil)

// DevGateway opens orders locally and signs with a fixed secret so the whole
// checkout can be exercised without gateway credentials.
type DevGateway struct {
	secret string
}

func NewDevGateway(secret string) *DevGateway {
	if secret == "" {
		secret = "dev-secret"
	}
	return &DevGateway{secret: secret}
}

func (g *DevGateway) Name() string  { return "dev" }
func (g *DevGateway) KeyID() string { return "rzp_dev" }

func (g *DevGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (adapter.Order, error) {
	if err := ctx.Err(); err != nil {
		return adapter.Order{}, err
	}
	return adapter.Order{ID: "order_dev_" + ulid.Make().String(), Amount: amountMinor, Currency: currency, Receipt: receipt}, nil
}

// SignCheckout produces the signature a real checkout would hand the client.
func (g *DevGateway) SignCheckout(orderID, paymentID string) string {
	return Sign(g.secret, []byte(orderID+"|"+paymentID))
}

func (g *DevGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" {
		return false
	}
	return validHMAC(g.secret, []byte(orderID+"|"+paymentID), signature)
}

func (g *DevGateway) ParseWebhook(body []byte, signature string) (adapter.WebhookEvent, error) {
	return parseWebhook(g.secret, body, signature)
}
