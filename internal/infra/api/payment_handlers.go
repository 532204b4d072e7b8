package api

import (
	"io"
	"net/http"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

const headerRazorpaySignature = "X-Razorpay-Signature"

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p := principal(r)
	// The handoff points the user row at the new subscription, so it must exist first.
	if _, err := s.users.RegisterOrFetch(r.Context(), p, req.Name); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.payments.CreateOrder(r.Context(), p, req.PlanSlug, req.CouponCode)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderView{
		PaymentID: res.PaymentID,
		OrderID:   res.OrderID,
		Amount:    res.Amount,
		Currency:  res.Currency,
		Key:       res.Key,
		Coupon:    res.Coupon,
	})
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.payments.Verify(r.Context(), principal(r), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerifyView(res))
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	pays, err := s.payments.ListMine(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]paymentView, 0, len(pays))
	for _, p := range pays {
		out = append(out, toPaymentView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) latestInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.payments.LatestInvoice(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// razorpayWebhook authenticates the raw body, so it is read before any decoding.
func (s *Server) razorpayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, &domain.Error{Kind: domain.KindValidation, Msg: "unreadable body"})
		return
	}
	if err := s.payments.HandleWebhook(r.Context(), body, r.Header.Get(headerRazorpaySignature)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) manualPayment(w http.ResponseWriter, r *http.Request) {
	var req manualPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.payments.RecordManual(r.Context(), usecase.ManualPayment{
		UserID:    req.UserID,
		PlanID:    req.PlanID,
		Amount:    req.Amount,
		Reference: req.Reference,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVerifyView(res))
}
