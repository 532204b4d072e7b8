// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"
	"html"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/i18n"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/metrics"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/worker"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationUseCase queues best-effort messages. Nothing here can fail the
// operation that triggered it.
type NotificationUseCase interface {
	PaymentConfirmed(ctx context.Context, pay *model.Payment, sub *model.Subscription, firstDelivery *time.Time)
	PaymentFailed(ctx context.Context, orderID, reason string)
}

type notificationUC struct {
	customer adapter.Notifier // email to the payer
	ops      adapter.Notifier // admin chat
	msgs     *i18n.Translator
	pool     *worker.Pool
	log      *zerolog.Logger
}

// NewNotificationUseCase falls back to the embedded English catalog when msgs is nil.
func NewNotificationUseCase(customer, ops adapter.Notifier, msgs *i18n.Translator, pool *worker.Pool, logger *zerolog.Logger) *notificationUC {
	l := logger.With().Str("component", "NotificationUC").Logger()
	if msgs == nil {
		msgs = i18n.MustDefault()
	}
	return &notificationUC{customer: customer, ops: ops, msgs: msgs, pool: pool, log: &l}
}

func (n *notificationUC) PaymentConfirmed(ctx context.Context, pay *model.Payment, sub *model.Subscription, firstDelivery *time.Time) {
	first := n.msgs.T("payment_confirmed.unscheduled")
	if firstDelivery != nil {
		first = firstDelivery.Format("Mon, 02 Jan 2006")
	}
	until := sub.EndDate.Format("02 Jan 2006")
	if pay.UserEmail != "" {
		n.submit(n.customer, adapter.Notification{
			To:      pay.UserEmail,
			Subject: n.msgs.T("payment_confirmed.subject", pay.PlanName),
			HTML:    n.msgs.T("payment_confirmed.html", pay.Amount, html.EscapeString(pay.PlanName), until, first),
			Text:    n.msgs.T("payment_confirmed.text", pay.Amount, pay.PlanName, until, first),
		})
	}
	n.submit(n.ops, adapter.Notification{
		Subject: n.msgs.T("ops.new_subscription.subject"),
		Text:    n.msgs.T("ops.new_subscription.text", sub.ID, pay.PlanName, pay.Amount, pay.Currency, pay.OrderID, first),
	})
}

func (n *notificationUC) PaymentFailed(ctx context.Context, orderID, reason string) {
	n.submit(n.ops, adapter.Notification{
		Subject: n.msgs.T("ops.payment_failed.subject"),
		Text:    n.msgs.T("ops.payment_failed.text", orderID, reason),
	})
}

func (n *notificationUC) submit(to adapter.Notifier, msg adapter.Notification) {
	if to == nil {
		return
	}
	channel := to.Name()
	task := func(ctx context.Context) error {
		if err := to.Send(ctx, msg); err != nil {
			metrics.IncNotification(channel, "failed")
			n.log.Warn().Err(err).Str("channel", channel).Str("subject", msg.Subject).Msg("notification not delivered")
			return nil
		}
		metrics.IncNotification(channel, "sent")
		return nil
	}
	if err := n.pool.Submit(task); err != nil {
		metrics.IncNotification(channel, "dropped")
		n.log.Warn().Err(err).Str("channel", channel).Msg("notification dropped")
	}
}
