package model

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/aaftab343/dailyfruit-backend/internal/domain"
)

// DefaultDeliveryCount is the per-cycle delivery target when nothing else applies.
const DefaultDeliveryCount = 26

// DefaultDurationDays is the cycle length of a plan created without one.
const DefaultDurationDays = 30

// Plan is a purchasable fruit-bowl plan. Price is in whole rupees.
type Plan struct {
	ID           string
	Slug         string
	Name         string
	Description  string
	Price        int64
	DurationDays int
	DeliveryDays WeekdaySet // empty means the Mon-Sat default
	// DeliveryCount is the explicit delivery target per cycle; nil falls back
	// to a days-per-cycle estimate.
	DeliveryCount *int
	ImageURL      string
	Type          string
	Tags          []string
	IsSeasonal    bool
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NewPlan validates and constructs a plan.
func NewPlan(id, slug, name string, price int64, durationDays int) (*Plan, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	name = strings.TrimSpace(name)
	if id == "" || !slugRe.MatchString(slug) || name == "" || price < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if durationDays == 0 {
		durationDays = DefaultDurationDays
	}
	if durationDays < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Plan{
		ID:           id,
		Slug:         slug,
		Name:         name,
		Price:        price,
		DurationDays: durationDays,
		DeliveryDays: MonToSat,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AllowedDays returns the plan's delivery weekdays, defaulting to Mon-Sat.
func (p *Plan) AllowedDays() WeekdaySet {
	if p == nil || p.DeliveryDays.Empty() {
		return MonToSat
	}
	return p.DeliveryDays
}

// DeliveryTarget resolves how many deliveries one cycle of the plan is worth.
func (p *Plan) DeliveryTarget() (int, error) {
	if p == nil {
		return DefaultDeliveryCount, nil
	}
	if p.DeliveryCount != nil {
		if *p.DeliveryCount <= 0 {
			return 0, domain.ErrInvalidDeliveryCount
		}
		return *p.DeliveryCount, nil
	}
	if p.DurationDays > 0 {
		n := int(math.Round(float64(p.DurationDays) * float64(p.AllowedDays().Len()) / 7))
		if n > 0 {
			return n, nil
		}
	}
	return DefaultDeliveryCount, nil
}
