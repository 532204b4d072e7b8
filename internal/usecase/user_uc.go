package usecase

import (
	"context"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase keeps a local user row in step with the authenticated principal.
type UserUseCase interface {
	RegisterOrFetch(ctx context.Context, p model.Principal, name string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		tm:    tm,
		log:   logger,
	}
}

// RegisterOrFetch creates the user row on first contact. Identity is owned by
// the token issuer, so an existing row only has its email and role refreshed.
func (u *userUC) RegisterOrFetch(ctx context.Context, p model.Principal, name string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	if p.UserID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var user *model.User
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByID(ctx, tx, p.UserID)
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		if usr != nil {
			changed := false
			if p.Email != "" && usr.Email != p.Email {
				usr.Email = p.Email
				changed = true
			}
			if p.Role != "" && usr.Role != p.Role {
				usr.Role = p.Role
				changed = true
			}
			if changed {
				if err := u.users.Save(ctx, tx, usr); err != nil {
					u.log.Error().Err(err).Str("user_id", usr.ID).Msg("failed to update user")
					return err
				}
			}
			user = usr
			return nil
		}

		nu, err := model.NewUser(p.UserID, name, p.Email)
		if err != nil {
			return err
		}
		if p.Role != "" {
			nu.Role = p.Role
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		user = nu
		return nil
	})

	return user, err
}

func (u *userUC) Get(ctx context.Context, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Get")()
	return u.users.FindByID(ctx, repository.NoTX, id)
}
