package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PostgresPaymentRepo)(nil)

type PostgresPaymentRepo struct{ pool *pgxpool.Pool }

func NewPostgresPaymentRepo(pool *pgxpool.Pool) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{pool: pool}
}

const paymentColumns = `id, user_id, user_email, plan_id, plan_name, amount, currency, coupon, status,
       order_id, receipt, provider_payment_id, signature, verified_at, failure_reason,
       processing_state, processing_started_at, subscription_id, created_at, updated_at`

// Save inserts or fully rewrites a payment row. Handoff fields are normally
// moved by the compare-and-set methods below, not by Save.
func (r *PostgresPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
ON CONFLICT (id) DO UPDATE SET
  user_email=$3, plan_id=$4, plan_name=$5, amount=$6, currency=$7, coupon=$8, status=$9,
  receipt=$11, provider_payment_id=$12, signature=$13, verified_at=$14, failure_reason=$15,
  processing_state=$16, processing_started_at=$17, subscription_id=$18, updated_at=$20;`

	coupon, err := marshalCoupon(p.Coupon)
	if err != nil {
		return err
	}
	state := p.ProcessingState
	if state == "" {
		state = model.ProcessingUnprocessed
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.UserEmail, p.PlanID, p.PlanName, p.Amount, p.Currency, coupon, string(p.Status),
		p.OrderID, p.Receipt, p.ProviderPaymentID, p.Signature, p.VerifiedAt, p.FailureReason,
		string(state), p.ProcessingStartedAt, p.SubscriptionID, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PostgresPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	return r.one(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id)
}

func (r *PostgresPaymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	return r.one(ctx, tx, `SELECT `+paymentColumns+` FROM payments WHERE order_id=$1`, orderID)
}

func (r *PostgresPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapPgErr(rows.Err())
}

func (r *PostgresPaymentRepo) LatestSuccessful(ctx context.Context, tx repository.Tx, userID string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + `
  FROM payments
 WHERE user_id=$1 AND status IN ('success','manual')
 ORDER BY COALESCE(verified_at, created_at) DESC
 LIMIT 1`
	return r.one(ctx, tx, q, userID)
}

func (r *PostgresPaymentRepo) ClaimForProcessing(ctx context.Context, tx repository.Tx, id string, now, staleBefore time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET processing_state='processing', processing_started_at=$2, updated_at=$2
 WHERE id=$1
   AND (processing_state='unprocessed'
        OR (processing_state='processing' AND processing_started_at < $3));`
	ct, err := execSQL(ctx, r.pool, tx, q, id, now, staleBefore)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PostgresPaymentRepo) MarkSuccess(ctx context.Context, tx repository.Tx, id, providerPaymentID, signature string, at time.Time) error {
	const q = `
UPDATE payments
   SET status='success', provider_payment_id=$2, signature=$3, verified_at=$4, updated_at=$4
 WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q, id, providerPaymentID, signature, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *PostgresPaymentRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id, subscriptionID string) (bool, error) {
	const q = `
UPDATE payments
   SET processing_state='processed', subscription_id=$2, updated_at=NOW()
 WHERE id=$1 AND processing_state='processing';`
	ct, err := execSQL(ctx, r.pool, tx, q, id, subscriptionID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PostgresPaymentRepo) MarkFailedIfCreated(ctx context.Context, tx repository.Tx, orderID, reason string) (bool, error) {
	const q = `
UPDATE payments
   SET status='failed', failure_reason=$2, updated_at=NOW()
 WHERE order_id=$1 AND status='created';`
	ct, err := execSQL(ctx, r.pool, tx, q, orderID, reason)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *PostgresPaymentRepo) one(ctx context.Context, tx repository.Tx, q string, args ...any) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func scanPayment(row scanner) (*model.Payment, error) {
	var (
		p             model.Payment
		coupon        []byte
		status, state string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.UserEmail, &p.PlanID, &p.PlanName, &p.Amount, &p.Currency, &coupon, &status,
		&p.OrderID, &p.Receipt, &p.ProviderPaymentID, &p.Signature, &p.VerifiedAt, &p.FailureReason,
		&state, &p.ProcessingStartedAt, &p.SubscriptionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, scanErr(err, domain.ErrPaymentNotFound)
	}
	p.Status = model.PaymentStatus(status)
	p.ProcessingState = model.ProcessingState(state)
	if len(coupon) > 0 {
		var snap model.DiscountSnapshot
		if err := json.Unmarshal(coupon, &snap); err != nil {
			return nil, fmt.Errorf("%w: coupon snapshot: %v", domain.ErrReadDatabaseRow, err)
		}
		p.Coupon = &snap
	}
	return &p, nil
}

func marshalCoupon(s *model.DiscountSnapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return b, nil
}
