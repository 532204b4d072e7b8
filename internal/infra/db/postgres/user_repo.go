package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

// Save upserts profile fields. The active subscription pointer is owned by
// SetActiveSubscription and left alone on conflict.
func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, phone, role, active_subscription_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, email=$3, phone=$4, role=$5, updated_at=$8;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.Name, u.Email, u.Phone, string(u.Role), u.ActiveSubscriptionID, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	const q = `
SELECT id, name, email, phone, role, active_subscription_id, created_at, updated_at
  FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var (
		u    model.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &role, &u.ActiveSubscriptionID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, scanErr(err, domain.ErrNotFound)
	}
	u.Role = model.Role(role)
	return &u, nil
}

// SetActiveSubscription points the user at subscriptionID; nil clears it.
func (r *PostgresUserRepo) SetActiveSubscription(ctx context.Context, tx repository.Tx, userID string, subscriptionID *string) error {
	const q = `UPDATE users SET active_subscription_id=$2, updated_at=$3 WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q, userID, subscriptionID, time.Now())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
