package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
)

var _ repository.CouponRepository = (*PostgresCouponRepo)(nil)

type PostgresCouponRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresCouponRepo(pool *pgxpool.Pool) *PostgresCouponRepo {
	return &PostgresCouponRepo{pool: pool}
}

// discount_value is NUMERIC; it travels as text so no precision is lost.
const couponColumns = `id, code, description, discount_type, discount_value::text, min_amount, max_discount,
       valid_from, valid_to, active, usage_limit, per_user_limit, total_used, allowed_plan_ids,
       created_at, updated_at`

func (r *PostgresCouponRepo) Create(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	const q = `
INSERT INTO coupons (id, code, description, discount_type, discount_value, min_amount, max_discount,
                     valid_from, valid_to, active, usage_limit, per_user_limit, total_used, allowed_plan_ids,
                     created_at, updated_at)
VALUES ($1,$2,$3,$4,$5::numeric,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16);`
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, model.NormalizeCode(c.Code), c.Description, string(c.DiscountType), c.DiscountValue.String(),
		c.MinAmount, c.MaxDiscount, c.ValidFrom, c.ValidTo, c.Active, c.UsageLimit, c.PerUserLimit,
		c.TotalUsed, nonNilStrings(c.AllowedPlanIDs), c.CreatedAt, c.UpdatedAt)
	return err
}

// Update rewrites the rule. total_used is owned by RecordUsage and not touched.
func (r *PostgresCouponRepo) Update(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	const q = `
UPDATE coupons SET
  description=$2, discount_type=$3, discount_value=$4::numeric, min_amount=$5, max_discount=$6,
  valid_from=$7, valid_to=$8, active=$9, usage_limit=$10, per_user_limit=$11, allowed_plan_ids=$12,
  updated_at=$13
 WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.Description, string(c.DiscountType), c.DiscountValue.String(), c.MinAmount, c.MaxDiscount,
		c.ValidFrom, c.ValidTo, c.Active, c.UsageLimit, c.PerUserLimit, nonNilStrings(c.AllowedPlanIDs),
		c.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

func (r *PostgresCouponRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Coupon, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+couponColumns+` FROM coupons WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	return scanCoupon(row)
}

func (r *PostgresCouponRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Coupon, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+couponColumns+` FROM coupons WHERE code=$1`, model.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	return scanCoupon(row)
}

func (r *PostgresCouponRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Coupon, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, mapPgErr(rows.Err())
}

func (r *PostgresCouponRepo) SetActive(ctx context.Context, tx repository.Tx, id string, active bool) error {
	ct, err := execSQL(ctx, r.pool, tx, `UPDATE coupons SET active=$2, updated_at=$3 WHERE id=$1`, id, active, time.Now())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

func (r *PostgresCouponRepo) UsageCount(ctx context.Context, tx repository.Tx, couponID, userID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT used_count FROM coupon_usages WHERE coupon_id=$1 AND user_id=$2`, couponID, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return n, nil
}

// RecordUsage bumps both counters in a single statement so concurrent
// redemptions cannot lose an increment.
func (r *PostgresCouponRepo) RecordUsage(ctx context.Context, tx repository.Tx, couponID, userID string, at time.Time) error {
	const q = `
WITH bumped AS (
  UPDATE coupons
     SET total_used = total_used + 1,
         active = CASE WHEN usage_limit IS NOT NULL AND total_used + 1 >= usage_limit THEN FALSE ELSE active END,
         updated_at = $3
   WHERE id = $1
  RETURNING id
)
INSERT INTO coupon_usages (coupon_id, user_id, used_count, last_used_at)
SELECT id, $2, 1, $3 FROM bumped
ON CONFLICT (coupon_id, user_id) DO UPDATE
  SET used_count = coupon_usages.used_count + 1,
      last_used_at = EXCLUDED.last_used_at;`
	ct, err := execSQL(ctx, r.pool, tx, q, couponID, userID, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

func scanCoupon(row scanner) (*model.Coupon, error) {
	var (
		c          model.Coupon
		kind, dval string
	)
	err := row.Scan(&c.ID, &c.Code, &c.Description, &kind, &dval, &c.MinAmount, &c.MaxDiscount,
		&c.ValidFrom, &c.ValidTo, &c.Active, &c.UsageLimit, &c.PerUserLimit, &c.TotalUsed, &c.AllowedPlanIDs,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, scanErr(err, domain.ErrCouponNotFound)
	}
	c.DiscountType = model.DiscountType(kind)
	if c.DiscountValue, err = decimal.NewFromString(dval); err != nil {
		return nil, fmt.Errorf("%w: discount_value: %v", domain.ErrReadDatabaseRow, err)
	}
	return &c, nil
}
