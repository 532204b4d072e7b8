package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)

const defaultListLimit = 100

type PostgresSubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSubscriptionRepo(pool *pgxpool.Pool) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, plan_name, status, start_date, end_date,
       delivery_days, delivery_mode, skip_dates, total_deliveries, remaining_deliveries,
       paused_at, paused_until, cancelled_at, auto_renew, originating_payment_id,
       created_at, updated_at`

func (r *PostgresSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (id) DO UPDATE SET
  plan_id              = EXCLUDED.plan_id,
  plan_name            = EXCLUDED.plan_name,
  status               = EXCLUDED.status,
  start_date           = EXCLUDED.start_date,
  end_date             = EXCLUDED.end_date,
  delivery_days        = EXCLUDED.delivery_days,
  delivery_mode        = EXCLUDED.delivery_mode,
  skip_dates           = EXCLUDED.skip_dates,
  total_deliveries     = EXCLUDED.total_deliveries,
  remaining_deliveries = EXCLUDED.remaining_deliveries,
  paused_at            = EXCLUDED.paused_at,
  paused_until         = EXCLUDED.paused_until,
  cancelled_at         = EXCLUDED.cancelled_at,
  auto_renew           = EXCLUDED.auto_renew,
  updated_at           = EXCLUDED.updated_at;
`
	skip := s.SkipDates
	if skip == nil {
		skip = []time.Time{}
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.PlanName, string(s.Status), s.StartDate, s.EndDate,
		int16(s.DeliveryDays), string(s.DeliveryMode), skip, s.TotalDeliveries, s.RemainingDeliveries,
		s.PausedAt, s.PausedUntil, s.CancelledAt, s.AutoRenew, s.OriginatingPaymentID,
		s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *PostgresSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *PostgresSubscriptionRepo) FindLatestActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE user_id=$1 AND status IN ('active','paused')
 ORDER BY created_at DESC
 LIMIT 1`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *PostgresSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, statuses ...model.SubscriptionStatus) ([]*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1`
	args := []any{userID}
	if len(statuses) > 0 {
		ss := make([]string, len(statuses))
		for i, s := range statuses {
			ss[i] = string(s)
		}
		q += ` AND status = ANY($2)`
		args = append(args, ss)
	}
	q += ` ORDER BY created_at DESC`
	return r.list(ctx, tx, q, args...)
}

func (r *PostgresSubscriptionRepo) List(ctx context.Context, tx repository.Tx, f repository.SubscriptionFilter) ([]*model.Subscription, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status=$%d", string(f.Status))
	}
	if f.PlanID != "" {
		add("plan_id=$%d", f.PlanID)
	}
	if f.UserID != "" {
		add("user_id=$%d", f.UserID)
	}
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return r.list(ctx, tx, q, args...)
}

func (r *PostgresSubscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) ([]string, error) {
	const q = `
UPDATE subscriptions SET status='expired', updated_at=$1
 WHERE status='active' AND end_date < $1
RETURNING id;`
	rows, err := queryRows(ctx, r.pool, tx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		ids = append(ids, id)
	}
	return ids, mapPgErr(rows.Err())
}

func (r *PostgresSubscriptionRepo) ListPausedUntilBefore(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const q = `SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE status='paused' AND paused_until IS NOT NULL AND paused_until <= $1
 ORDER BY paused_until
 LIMIT $2`
	return r.list(ctx, tx, q, now, limit)
}

func (r *PostgresSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM subscriptions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out[model.SubscriptionStatus(status)] = n
	}
	return out, mapPgErr(rows.Err())
}

func (r *PostgresSubscriptionRepo) list(ctx context.Context, tx repository.Tx, q string, args ...any) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapPgErr(rows.Err())
}

func scanSubscription(row scanner) (*model.Subscription, error) {
	var (
		s            model.Subscription
		status, mode string
		days         int16
	)
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &status, &s.StartDate, &s.EndDate,
		&days, &mode, &s.SkipDates, &s.TotalDeliveries, &s.RemainingDeliveries,
		&s.PausedAt, &s.PausedUntil, &s.CancelledAt, &s.AutoRenew, &s.OriginatingPaymentID,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, scanErr(err, domain.ErrSubscriptionNotFound)
	}
	s.Status = model.SubscriptionStatus(status)
	s.DeliveryMode = model.DeliveryMode(mode)
	s.DeliveryDays = model.WeekdaySet(days)
	return &s, nil
}
