package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

// HealthCheck pings one dependency. Named checks are reported by /health.
type HealthCheck func(ctx context.Context) error

type Options struct {
	RequestTimeout  time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
	Checks          map[string]HealthCheck
}

// Server holds the use cases behind the HTTP API.
type Server struct {
	plans         usecase.PlanUseCase
	coupons       usecase.CouponUseCase
	payments      usecase.PaymentUseCase
	subscriptions usecase.SubscriptionUseCase
	deliveries    usecase.DeliveryUseCase
	users         usecase.UserUseCase

	tokens  *TokenManager
	limiter Limiter
	opts    Options
	log     *zerolog.Logger
}

func NewServer(
	plans usecase.PlanUseCase,
	coupons usecase.CouponUseCase,
	payments usecase.PaymentUseCase,
	subscriptions usecase.SubscriptionUseCase,
	deliveries usecase.DeliveryUseCase,
	users usecase.UserUseCase,
	tokens *TokenManager,
	limiter Limiter,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "api").Logger()
	return &Server{
		plans:         plans,
		coupons:       coupons,
		payments:      payments,
		subscriptions: subscriptions,
		deliveries:    deliveries,
		users:         users,
		tokens:        tokens,
		limiter:       limiter,
		opts:          opts,
		log:           &l,
	}
}

// Routes builds the chi router. Everything lives under /api.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.opts.RequestTimeout),
		Authenticate(s.tokens),
		RateLimit(s.limiter, s.opts.RateLimit, s.opts.RateLimitWindow, s.log),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeKind(w, domain.KindNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: domain.KindValidation, Message: "method not allowed"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())

		r.Get("/plans", s.listPlans)
		r.Get("/plans/{slug}", s.getPlan)

		r.Post("/webhooks/razorpay", s.razorpayWebhook)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser())

			r.Get("/me", s.me)
			r.Post("/coupons/apply", s.applyCoupon)

			r.Post("/payments/create-order", s.createOrder)
			r.Post("/payments/verify", s.verifyPayment)
			r.Get("/payments", s.listPayments)
			r.Get("/payments/latest-invoice", s.latestInvoice)

			r.Get("/subscriptions", s.listSubscriptions)
			r.Get("/subscriptions/me", s.subscriptionSummary)
			r.Get("/subscriptions/active", s.activeSubscription)
			r.Get("/subscriptions/history", s.subscriptionHistory)
			r.Post("/subscriptions/{id}/pause", s.pauseSubscription)
			r.Post("/subscriptions/{id}/resume", s.resumeSubscription)
			r.Post("/subscriptions/{id}/cancel", s.cancelSubscription)
			r.Post("/subscriptions/{id}/renew", s.renewSubscription)
			r.Put("/subscriptions/{id}/delivery-schedule", s.updateDeliverySchedule)

			r.Get("/deliveries/me", s.myDeliveries(usecase.DeliveryScopeAll))
			r.Get("/deliveries/upcoming", s.myDeliveries(usecase.DeliveryScopeUpcoming))
			r.Get("/deliveries/history", s.myDeliveries(usecase.DeliveryScopeHistory))
			r.Post("/deliveries/{id}/skip", s.skipDelivery)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin())

			r.Get("/coupons", s.listCoupons)
			r.Post("/coupons", s.createCoupon)
			r.Put("/coupons/{id}", s.updateCoupon)
			r.Patch("/coupons/{id}/toggle", s.toggleCoupon)

			r.Post("/payments/manual", s.manualPayment)

			r.Get("/subscriptions", s.adminListSubscriptions)
			r.Put("/subscriptions/{id}/status", s.adminSetStatus)
			r.Put("/subscriptions/{id}/modify", s.adminModify)
			r.Post("/subscriptions/{id}/generate", s.adminGenerate)

			r.Get("/deliveries", s.adminListDeliveries)
			r.Post("/deliveries", s.adminCreateDelivery)
			r.Put("/deliveries/{id}", s.adminUpdateDelivery)
		})
	})
	return r
}

// principal is only called behind RequireUser or RequireAdmin.
func principal(r *http.Request) model.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, s.log, err)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.opts.Checks))
	status := http.StatusOK
	for name, check := range s.opts.Checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := check(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.RegisterOrFetch(r.Context(), principal(r), "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}
