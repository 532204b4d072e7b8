// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

type PlanUseCase interface {
	List(ctx context.Context) ([]*model.Plan, error)
	GetBySlug(ctx context.Context, slug string) (*model.Plan, error)
	Save(ctx context.Context, plan *model.Plan) error
}

type planUC struct {
	repo repository.PlanRepository
	log  *zerolog.Logger
}

func NewPlanUseCase(repo repository.PlanRepository, logger *zerolog.Logger) *planUC {
	return &planUC{repo: repo, log: logger}
}

func (p *planUC) List(ctx context.Context) ([]*model.Plan, error) {
	defer logging.TraceDuration(p.log, "PlanUC.List")()
	return p.repo.ListActive(ctx, repository.NoTX)
}

// GetBySlug hides inactive plans from the storefront.
func (p *planUC) GetBySlug(ctx context.Context, slug string) (*model.Plan, error) {
	defer logging.TraceDuration(p.log, "PlanUC.GetBySlug")()
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, domain.ErrInvalidArgument
	}
	plan, err := p.repo.FindBySlug(ctx, repository.NoTX, slug)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}

func (p *planUC) Save(ctx context.Context, plan *model.Plan) error {
	defer logging.TraceDuration(p.log, "PlanUC.Save")()
	if plan.IsZero() {
		return domain.ErrInvalidArgument
	}
	if _, err := plan.DeliveryTarget(); err != nil {
		return err
	}
	return p.repo.Save(ctx, repository.NoTX, plan)
}
