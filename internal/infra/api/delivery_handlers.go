package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

func (s *Server) myDeliveries(scope usecase.DeliveryScope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := s.deliveries.ListMine(r.Context(), principal(r), scope)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeliveryViews(ds))
	}
}

func (s *Server) skipDelivery(w http.ResponseWriter, r *http.Request) {
	d, err := s.deliveries.Skip(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryView(d))
}

func (s *Server) adminListDeliveries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := page(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f := model.DeliveryFilter{
		Status:     model.DeliveryStatus(q.Get("status")),
		AssignedTo: q.Get("assignedTo"),
		UserID:     q.Get("userId"),
		Limit:      limit,
		Offset:     offset,
	}
	if v := q.Get("date"); v != "" {
		d, err := parseDate("date", v)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		f.Date = &d
	}
	ds, err := s.deliveries.AdminList(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryViews(ds))
}

func (s *Server) adminCreateDelivery(w http.ResponseWriter, r *http.Request) {
	var req manualDeliveryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := parseDate("deliveryDate", req.DeliveryDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.deliveries.CreateManual(r.Context(), usecase.ManualDelivery{
		SubscriptionID: req.SubscriptionID,
		DeliveryDate:   date,
		AssignedTo:     req.AssignedTo,
		Notes:          req.Notes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeliveryView(d))
}

func (s *Server) adminUpdateDelivery(w http.ResponseWriter, r *http.Request) {
	var req deliveryPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.deliveries.Update(r.Context(), chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryView(d))
}
