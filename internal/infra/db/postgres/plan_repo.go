package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

const planColumns = `id, slug, name, description, price, duration_days, delivery_days,
       delivery_count, image_url, type, tags, is_seasonal, active, created_at, updated_at`

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (` + planColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  slug           = EXCLUDED.slug,
  name           = EXCLUDED.name,
  description    = EXCLUDED.description,
  price          = EXCLUDED.price,
  duration_days  = EXCLUDED.duration_days,
  delivery_days  = EXCLUDED.delivery_days,
  delivery_count = EXCLUDED.delivery_count,
  image_url      = EXCLUDED.image_url,
  type           = EXCLUDED.type,
  tags           = EXCLUDED.tags,
  is_seasonal    = EXCLUDED.is_seasonal,
  active         = EXCLUDED.active,
  updated_at     = EXCLUDED.updated_at;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.Slug, p.Name, p.Description, p.Price, p.DurationDays, int16(p.DeliveryDays),
		p.DeliveryCount, p.ImageURL, p.Type, nonNilStrings(p.Tags), p.IsSeasonal, p.Active,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *PostgresPlanRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Plan, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+planColumns+` FROM plans WHERE slug = $1`,
		strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

// ListActive returns active plans, cheapest first.
func (r *PostgresPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+planColumns+` FROM plans WHERE active ORDER BY price, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapPgErr(rows.Err())
}

func scanPlan(row scanner) (*model.Plan, error) {
	var (
		p    model.Plan
		days int16
	)
	err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Price, &p.DurationDays, &days,
		&p.DeliveryCount, &p.ImageURL, &p.Type, &p.Tags, &p.IsSeasonal, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, scanErr(err, domain.ErrPlanNotFound)
	}
	p.DeliveryDays = model.WeekdaySet(days)
	return &p, nil
}

func nonNilStrings(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
