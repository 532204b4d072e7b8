package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
)

var _ repository.DeliveryRepository = (*PostgresDeliveryRepo)(nil)

type PostgresDeliveryRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresDeliveryRepo(pool *pgxpool.Pool) *PostgresDeliveryRepo {
	return &PostgresDeliveryRepo{pool: pool}
}

const deliveryColumns = `id, subscription_id, user_id, plan_id, delivery_date, status,
       assigned_to, notes, proof_image, created_at, updated_at`

// InsertScheduled sends all slots in one batch. Existing live slots are left
// alone; a cancelled slot on the same day is revived as scheduled.
func (r *PostgresDeliveryRepo) InsertScheduled(ctx context.Context, tx repository.Tx, ds []*model.Delivery) (int, error) {
	if len(ds) == 0 {
		return 0, nil
	}
	const q = `
INSERT INTO deliveries (` + deliveryColumns + `)
VALUES ($1,$2,$3,$4,$5,'scheduled',NULL,'','',$6,$6)
ON CONFLICT (subscription_id, delivery_date) DO UPDATE
  SET status='scheduled', updated_at=EXCLUDED.updated_at
  WHERE deliveries.status='cancelled';
`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	b := &pgx.Batch{}
	for _, d := range ds {
		b.Queue(q, d.ID, d.SubscriptionID, d.UserID, d.PlanID, model.CivilDate(d.DeliveryDate), d.CreatedAt)
	}
	res := ex.SendBatch(ctx, b)
	defer res.Close()

	inserted := 0
	for range ds {
		ct, err := res.Exec()
		if err != nil {
			return inserted, mapPgErr(err)
		}
		inserted += int(ct.RowsAffected())
	}
	return inserted, nil
}

func (r *PostgresDeliveryRepo) Create(ctx context.Context, tx repository.Tx, d *model.Delivery) error {
	const q = `INSERT INTO deliveries (` + deliveryColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := execSQL(ctx, r.pool, tx, q,
		d.ID, d.SubscriptionID, d.UserID, d.PlanID, model.CivilDate(d.DeliveryDate), string(d.Status),
		d.AssignedTo, d.Notes, d.ProofImage, d.CreatedAt, d.UpdatedAt)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return domain.ErrDeliverySlotTaken
	}
	return err
}

func (r *PostgresDeliveryRepo) Update(ctx context.Context, tx repository.Tx, d *model.Delivery) error {
	const q = `
UPDATE deliveries
   SET delivery_date=$2, status=$3, assigned_to=$4, notes=$5, proof_image=$6, updated_at=$7
 WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q,
		d.ID, model.CivilDate(d.DeliveryDate), string(d.Status), d.AssignedTo, d.Notes, d.ProofImage, d.UpdatedAt)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return domain.ErrDeliverySlotTaken
	}
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrDeliveryNotFound
	}
	return nil
}

func (r *PostgresDeliveryRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Delivery, error) {
	q := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id=$1`
	if inTx(tx) {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanDelivery(row)
}

func (r *PostgresDeliveryRepo) ActiveDates(ctx context.Context, tx repository.Tx, subscriptionID string, from, to time.Time) ([]time.Time, error) {
	const q = `
SELECT delivery_date FROM deliveries
 WHERE subscription_id=$1 AND status <> 'cancelled'
   AND delivery_date BETWEEN $2 AND $3
 ORDER BY delivery_date`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriptionID, model.CivilDate(from), model.CivilDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, model.CivilDate(d))
	}
	return out, mapPgErr(rows.Err())
}

func (r *PostgresDeliveryRepo) CountActiveBetween(ctx context.Context, tx repository.Tx, subscriptionID string, from, to time.Time) (int, error) {
	const q = `
SELECT COUNT(*) FROM deliveries
 WHERE subscription_id=$1 AND status <> 'cancelled'
   AND delivery_date >= $2 AND delivery_date < $3`
	return r.count(ctx, tx, q, subscriptionID, model.CivilDate(from), model.CivilDate(to))
}

func (r *PostgresDeliveryRepo) CountUpcoming(ctx context.Context, tx repository.Tx, subscriptionID string, from, to time.Time) (int, error) {
	const q = `
SELECT COUNT(*) FROM deliveries
 WHERE subscription_id=$1 AND status IN ('scheduled','pending')
   AND delivery_date >= $2 AND delivery_date < $3`
	return r.count(ctx, tx, q, subscriptionID, model.CivilDate(from), model.CivilDate(to))
}

func (r *PostgresDeliveryRepo) CancelScheduledFrom(ctx context.Context, tx repository.Tx, subscriptionID string, day time.Time) (int, error) {
	const q = `
UPDATE deliveries SET status='cancelled', updated_at=$3
 WHERE subscription_id=$1 AND status IN ('scheduled','pending') AND delivery_date >= $2`
	ct, err := execSQL(ctx, r.pool, tx, q, subscriptionID, model.CivilDate(day), time.Now())
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (r *PostgresDeliveryRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, from, to *time.Time) ([]*model.Delivery, error) {
	q := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE user_id=$1`
	args := []any{userID}
	if from != nil {
		args = append(args, model.CivilDate(*from))
		q += fmt.Sprintf(` AND delivery_date >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, model.CivilDate(*to))
		q += fmt.Sprintf(` AND delivery_date < $%d`, len(args))
	}
	q += ` ORDER BY delivery_date`
	return r.list(ctx, tx, q, args...)
}

func (r *PostgresDeliveryRepo) NextForSubscription(ctx context.Context, tx repository.Tx, subscriptionID string, from time.Time) (*model.Delivery, error) {
	const q = `SELECT ` + deliveryColumns + `
  FROM deliveries
 WHERE subscription_id=$1 AND status='scheduled' AND delivery_date >= $2
 ORDER BY delivery_date
 LIMIT 1`
	row, err := pickRow(ctx, r.pool, tx, q, subscriptionID, model.CivilDate(from))
	if err != nil {
		return nil, err
	}
	d, err := scanDelivery(row)
	if errors.Is(err, domain.ErrDeliveryNotFound) {
		return nil, nil
	}
	return d, err
}

func (r *PostgresDeliveryRepo) List(ctx context.Context, tx repository.Tx, f model.DeliveryFilter) ([]*model.Delivery, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Date != nil {
		add("delivery_date=$%d", model.CivilDate(*f.Date))
	}
	if f.Status != "" {
		add("status=$%d", string(f.Status))
	}
	if f.AssignedTo != "" {
		add("assigned_to=$%d", f.AssignedTo)
	}
	if f.UserID != "" {
		add("user_id=$%d", f.UserID)
	}
	q := `SELECT ` + deliveryColumns + ` FROM deliveries`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY delivery_date, created_at LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return r.list(ctx, tx, q, args...)
}

func (r *PostgresDeliveryRepo) count(ctx context.Context, tx repository.Tx, q string, args ...any) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return n, nil
}

func (r *PostgresDeliveryRepo) list(ctx context.Context, tx repository.Tx, q string, args ...any) ([]*model.Delivery, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, mapPgErr(rows.Err())
}

func scanDelivery(row scanner) (*model.Delivery, error) {
	var (
		d      model.Delivery
		status string
	)
	err := row.Scan(&d.ID, &d.SubscriptionID, &d.UserID, &d.PlanID, &d.DeliveryDate, &status,
		&d.AssignedTo, &d.Notes, &d.ProofImage, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, scanErr(err, domain.ErrDeliveryNotFound)
	}
	d.Status = model.DeliveryStatus(status)
	d.DeliveryDate = model.CivilDate(d.DeliveryDate)
	return &d, nil
}
