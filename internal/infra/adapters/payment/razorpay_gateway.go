package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

// RazorpayGateway implements adapter.PaymentGateway using direct HTTP calls.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	client        *http.Client
}

// NewRazorpayGateway creates a gateway against baseURL (the /v1 API root).
func NewRazorpayGateway(keyID, keySecret, webhookSecret, baseURL string, timeout time.Duration) *RazorpayGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        &http.Client{Timeout: timeout},
	}
}

func (g *RazorpayGateway) Name() string  { return "razorpay" }
func (g *RazorpayGateway) KeyID() string { return g.keyID }

// razorpayOrderResponse is the subset of the order entity we read.
type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens an order for amountMinor (paise). Any transport or API
// failure is reported as domain.ErrUpstream.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (adapter.Order, error) {
	requestData := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return adapter.Order{}, fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(jsonData))
	if err != nil {
		return adapter.Order{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.Order{}, fmt.Errorf("%w: razorpay request: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return adapter.Order{}, fmt.Errorf("%w: read response body: %v", domain.ErrUpstream, err)
	}

	if resp.StatusCode/100 != 2 {
		var apiErr razorpayErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		return adapter.Order{}, fmt.Errorf("%w: razorpay error: status %d, code %s, %s",
			domain.ErrUpstream, resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
	}

	var order razorpayOrderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return adapter.Order{}, fmt.Errorf("%w: unmarshal order: %v", domain.ErrUpstream, err)
	}
	if order.ID == "" {
		return adapter.Order{}, fmt.Errorf("%w: razorpay returned no order id", domain.ErrUpstream)
	}
	return adapter.Order{ID: order.ID, Amount: order.Amount, Currency: order.Currency, Receipt: order.Receipt}, nil
}

// VerifySignature checks the checkout handler signature with the key secret.
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return validHMAC(g.keySecret, []byte(orderID+"|"+paymentID), signature)
}

// ParseWebhook authenticates body with the webhook secret and extracts the
// payment entity.
func (g *RazorpayGateway) ParseWebhook(body []byte, signature string) (adapter.WebhookEvent, error) {
	return parseWebhook(g.webhookSecret, body, signature)
}
