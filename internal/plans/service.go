package plans

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	"github.com/vendlyhq/vendly-backend/pkg/enums"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
)

// Service defines the plan catalog surface.
type Service interface {
	ListActivePlans(ctx context.Context) ([]models.Plan, error)
	CreatePlan(ctx context.Context, input CreatePlanInput) (*models.Plan, error)
	DeactivatePlan(ctx context.Context, id string) error
}

// CreatePlanInput captures the data required to register a plan.
type CreatePlanInput struct {
	Name        string
	DisplayName string
	Price       decimal.Decimal
	Currency    string
	Frequency   enums.BillingFrequency
	TrialDays   int
	Features    []string
	Priority    int
}

type service struct {
	repo Repository
}

// NewService wires plan catalog dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListActivePlans(ctx context.Context) ([]models.Plan, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	return rows, nil
}

func (s *service) CreatePlan(ctx context.Context, input CreatePlanInput) (*models.Plan, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name is required")
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan display name is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan price must be positive")
	}
	if !input.Frequency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billing frequency must be monthly or yearly")
	}
	if input.TrialDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trial days cannot be negative")
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "ARS"
	}

	plan := &models.Plan{
		ID:          "plan_" + uuid.NewString(),
		Name:        name,
		DisplayName: displayName,
		Price:       input.Price,
		Currency:    currency,
		Frequency:   input.Frequency,
		TrialDays:   input.TrialDays,
		IsTrial:     input.TrialDays > 0,
		Features:    pq.StringArray(input.Features),
		Active:      true,
		Priority:    input.Priority,
	}

	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist plan")
	}
	return plan, nil
}

// DeactivatePlan hides a plan from the catalog. Existing subscriptions keep
// referencing it.
func (s *service) DeactivatePlan(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
	}
	if existing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate plan")
	}
	return nil
}
