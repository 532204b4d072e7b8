// File: cmd/seed/main.go
package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/aaftab343/dailyfruit-backend/internal/config"
	"github.com/aaftab343/dailyfruit-backend/internal/domain"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/model"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/api"
	pg "github.com/aaftab343/dailyfruit-backend/internal/infra/db/postgres"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"
	red "github.com/aaftab343/dailyfruit-backend/internal/infra/redis"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

//go:embed plans.yaml
var defaultPlans []byte

type planSeed struct {
	Slug          string   `yaml:"slug"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Price         int64    `yaml:"price"`
	DurationDays  int      `yaml:"duration_days"`
	DeliveryDays  []string `yaml:"delivery_days"`
	DeliveryCount *int     `yaml:"delivery_count"`
	ImageURL      string   `yaml:"image_url"`
	Type          string   `yaml:"type"`
	Tags          []string `yaml:"tags"`
	IsSeasonal    bool     `yaml:"is_seasonal"`
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	plansPath := flag.String("plans", "", "plan catalog YAML (defaults to the built-in catalog)")
	update := flag.Bool("update", false, "overwrite plans whose slug already exists")
	tokenUser := flag.String("token-user", "", "also print a dev bearer token for this user id")
	tokenEmail := flag.String("token-email", "", "email claim for -token-user")
	tokenRole := flag.String("token-role", string(model.RoleUser), "role claim for -token-user")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seedPlans(ctx, cfg, *plansPath, *update, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}

	if *tokenUser != "" {
		tm := api.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		tok, err := tm.Mint(model.Principal{UserID: *tokenUser, Email: *tokenEmail, Role: model.Role(*tokenRole)})
		if err != nil {
			logger.Fatal().Err(err).Msg("mint token")
		}
		fmt.Println(tok)
	}
}

func seedPlans(ctx context.Context, cfg *config.Config, path string, update bool, logger *zerolog.Logger) error {
	raw := defaultPlans
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read plans: %w", err)
		}
		raw = b
	}
	var seeds []planSeed
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&seeds); err != nil {
		return fmt.Errorf("parse plans: %w", err)
	}

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	var repo repository.PlanRepository = pg.NewPostgresPlanRepo(pool)
	// Going through the cache decorator keeps running API replicas from
	// serving stale plans after a reseed.
	if rc, err := red.NewClient(ctx, &cfg.Redis); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; plan cache will expire on its own")
	} else {
		defer rc.Close()
		repo = pg.NewPlanRepoCacheDecorator(repo, rc, cfg.Redis.TTL, logger)
	}
	planUC := usecase.NewPlanUseCase(repo, logger)

	created, updated, skipped := 0, 0, 0
	for _, s := range seeds {
		existing, err := repo.FindBySlug(ctx, repository.NoTX, s.Slug)
		if err != nil && !domain.IsNotFound(err) {
			return fmt.Errorf("lookup %s: %w", s.Slug, err)
		}
		if existing != nil && !update {
			skipped++
			continue
		}

		id := uuid.NewString()
		if existing != nil {
			id = existing.ID
		}
		plan, err := s.toPlan(id)
		if err != nil {
			return fmt.Errorf("plan %s: %w", s.Slug, err)
		}
		if existing != nil {
			plan.CreatedAt = existing.CreatedAt
		}
		if err := planUC.Save(ctx, plan); err != nil {
			return fmt.Errorf("save %s: %w", s.Slug, err)
		}
		if existing != nil {
			updated++
		} else {
			created++
		}
		logger.Info().Str("slug", plan.Slug).Int64("price", plan.Price).Str("days", plan.AllowedDays().String()).Msg("plan seeded")
	}
	logger.Info().Int("created", created).Int("updated", updated).Int("skipped", skipped).Msg("seeding complete")
	return nil
}

func (s planSeed) toPlan(id string) (*model.Plan, error) {
	p, err := model.NewPlan(id, s.Slug, s.Name, s.Price, s.DurationDays)
	if err != nil {
		return nil, err
	}
	if len(s.DeliveryDays) > 0 {
		days, err := model.ParseWeekdays(s.DeliveryDays)
		if err != nil {
			return nil, err
		}
		p.DeliveryDays = days
	}
	p.Description = s.Description
	p.DeliveryCount = s.DeliveryCount
	p.ImageURL = s.ImageURL
	p.Type = s.Type
	p.Tags = s.Tags
	p.IsSeasonal = s.IsSeasonal
	return p, nil
}
