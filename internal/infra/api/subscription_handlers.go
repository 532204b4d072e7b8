package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
)

const maxPageSize = 500

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subscriptions.ListMine(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionViews(subs))
}

func (s *Server) subscriptionHistory(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subscriptions.History(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionViews(subs))
}

// subscriptionSummary reports the active subscription with its next delivery.
func (s *Server) subscriptionSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.subscriptions.GetActive(r.Context(), principal(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryView{
		Subscription:     toSubscriptionView(sum.Subscription),
		NextDeliveryDate: formatOptionalDate(sum.NextDeliveryDate),
		UpcomingCount:    sum.UpcomingCount,
	})
}

// activeSubscription answers null rather than 404 when nothing is active.
func (s *Server) activeSubscription(w http.ResponseWriter, r *http.Request) {
	sum, err := s.subscriptions.GetActive(r.Context(), principal(r))
	if errors.Is(err, domain.ErrNoActiveSubscription) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionView(sum.Subscription))
}

func (s *Server) pauseSubscription(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	until, err := parseOptionalDate("until", req.Until)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := s.subscriptions.Pause(r.Context(), principal(r), chi.URLParam(r, "id"), until)
	s.writeSubscription(w, r, sub, err)
}

func (s *Server) resumeSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subscriptions.Resume(r.Context(), principal(r), chi.URLParam(r, "id"))
	s.writeSubscription(w, r, sub, err)
}

func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subscriptions.Cancel(r.Context(), principal(r), chi.URLParam(r, "id"))
	s.writeSubscription(w, r, sub, err)
}

func (s *Server) renewSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subscriptions.Renew(r.Context(), principal(r), chi.URLParam(r, "id"))
	s.writeSubscription(w, r, sub, err)
}

func (s *Server) updateDeliverySchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := s.subscriptions.UpdateDeliverySchedule(r.Context(), principal(r), chi.URLParam(r, "id"), patch)
	s.writeSubscription(w, r, sub, err)
}

func (s *Server) adminListSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := page(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f := repository.SubscriptionFilter{
		Status: model.SubscriptionStatus(q.Get("status")),
		PlanID: q.Get("planId"),
		UserID: q.Get("userId"),
		Limit:  limit,
		Offset: offset,
	}
	subs, err := s.subscriptions.AdminList(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionViews(subs))
}

func (s *Server) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := s.subscriptions.AdminSetStatus(r.Context(), principal(r), chi.URLParam(r, "id"), model.SubscriptionStatus(req.Status))
	s.writeSubscription(w, r, sub, err)
}

func (s *Server) adminModify(w http.ResponseWriter, r *http.Request) {
	var req modifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	mod, err := req.toModification()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := s.subscriptions.AdminModify(r.Context(), principal(r), chi.URLParam(r, "id"), mod)
	s.writeSubscription(w, r, sub, err)
}

func (s *Server) adminGenerate(w http.ResponseWriter, r *http.Request) {
	res, err := s.subscriptions.AdminGenerate(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateView{
		Inserted:          res.Inserted,
		FirstDeliveryDate: formatOptionalDate(res.FirstDeliveryDate),
	})
}

func (s *Server) writeSubscription(w http.ResponseWriter, r *http.Request, sub *model.Subscription, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionView(sub))
}

// page reads limit and offset. Zero limit leaves the repository default.
func page(q url.Values) (limit, offset int, err error) {
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 || limit > maxPageSize {
			return 0, 0, &domain.Error{Kind: domain.KindValidation, Msg: "limit must be between 0 and 500"}
		}
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, &domain.Error{Kind: domain.KindValidation, Msg: "offset must be a non-negative integer"}
		}
	}
	return limit, offset, nil
}
