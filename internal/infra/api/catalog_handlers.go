package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.plans.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanView(p))
}

func (s *Server) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	snap, err := s.coupons.Evaluate(r.Context(), principal(r), req.Code, req.Amount, req.PlanID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applyCouponResponse{
		Code:           snap.Code,
		Discount:       snap.Discount,
		OriginalAmount: snap.OriginalAmount,
		FinalAmount:    snap.FinalAmount(),
	})
}

func (s *Server) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := s.coupons.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]couponView, 0, len(coupons))
	for _, c := range coupons {
		out = append(out, toCouponView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.coupons.Create(r.Context(), req.toModel())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponView(c))
}

func (s *Server) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.coupons.Update(r.Context(), chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponView(c))
}

func (s *Server) toggleCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := s.coupons.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponView(c))
}
