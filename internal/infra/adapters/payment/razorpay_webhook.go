package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
)

// Sign returns the hex HMAC-SHA256 of data under secret, the scheme used for
// both checkout and webhook signatures.
func Sign(secret string, data []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func validHMAC(secret string, data []byte, signature string) bool {
	if secret == "" {
		return false
	}
	want, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hmac.Equal(h.Sum(nil), want)
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
				ErrorReason      string `json:"error_reason"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func parseWebhook(secret string, body []byte, signature string) (adapter.WebhookEvent, error) {
	if !validHMAC(secret, body, signature) {
		return adapter.WebhookEvent{}, domain.ErrInvalidSignature
	}
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return adapter.WebhookEvent{}, fmt.Errorf("%w: webhook body: %v", domain.ErrInvalidArgument, err)
	}
	ent := env.Payload.Payment.Entity
	reason := ent.ErrorDescription
	if reason == "" {
		reason = ent.ErrorReason
	}
	return adapter.WebhookEvent{
		Event:         env.Event,
		OrderID:       ent.OrderID,
		PaymentID:     ent.ID,
		FailureReason: reason,
	}, nil
}
