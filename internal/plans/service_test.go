package plans

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	"github.com/vendlyhq/vendly-backend/pkg/enums"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
)

type stubRepo struct {
	created []*models.Plan
	active  []models.Plan
	byID    map[string]*models.Plan
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) Create(ctx context.Context, plan *models.Plan) error {
	s.created = append(s.created, plan)
	return nil
}
func (s *stubRepo) ListActive(ctx context.Context) ([]models.Plan, error) {
	return s.active, nil
}
func (s *stubRepo) FindByID(ctx context.Context, id string) (*models.Plan, error) {
	return s.byID[id], nil
}
func (s *stubRepo) FindByName(ctx context.Context, name string) (*models.Plan, error) {
	return nil, nil
}
func (s *stubRepo) SetActive(ctx context.Context, id string, active bool) error {
	if plan, ok := s.byID[id]; ok {
		plan.Active = active
	}
	return nil
}

func TestCreatePlanValidation(t *testing.T) {
	svc, _ := NewService(&stubRepo{})

	cases := []struct {
		name  string
		input CreatePlanInput
	}{
		{"empty name", CreatePlanInput{DisplayName: "Pro", Price: decimal.NewFromInt(10), Frequency: enums.BillingFrequencyMonthly}},
		{"empty display name", CreatePlanInput{Name: "pro", Price: decimal.NewFromInt(10), Frequency: enums.BillingFrequencyMonthly}},
		{"zero price", CreatePlanInput{Name: "pro", DisplayName: "Pro", Price: decimal.Zero, Frequency: enums.BillingFrequencyMonthly}},
		{"negative price", CreatePlanInput{Name: "pro", DisplayName: "Pro", Price: decimal.NewFromInt(-5), Frequency: enums.BillingFrequencyMonthly}},
		{"bad frequency", CreatePlanInput{Name: "pro", DisplayName: "Pro", Price: decimal.NewFromInt(10), Frequency: "weekly"}},
		{"negative trial", CreatePlanInput{Name: "pro", DisplayName: "Pro", Price: decimal.NewFromInt(10), Frequency: enums.BillingFrequencyMonthly, TrialDays: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePlan(context.Background(), tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestCreatePlanSetsTrialFlag(t *testing.T) {
	repo := &stubRepo{}
	svc, _ := NewService(repo)

	plan, err := svc.CreatePlan(context.Background(), CreatePlanInput{
		Name:        "pro",
		DisplayName: "Pro",
		Price:       decimal.NewFromInt(4999),
		Frequency:   enums.BillingFrequencyMonthly,
		TrialDays:   15,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if !plan.IsTrial {
		t.Fatal("expected trial flag when trial days > 0")
	}
	if plan.Currency != "ARS" {
		t.Fatalf("expected default currency, got %s", plan.Currency)
	}
	if len(repo.created) != 1 {
		t.Fatal("expected plan persisted")
	}

	noTrial, err := svc.CreatePlan(context.Background(), CreatePlanInput{
		Name:        "basic",
		DisplayName: "Basic",
		Price:       decimal.NewFromInt(999),
		Frequency:   enums.BillingFrequencyYearly,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if noTrial.IsTrial {
		t.Fatal("expected no trial flag when trial days == 0")
	}
}

func TestDeactivatePlanNotFound(t *testing.T) {
	svc, _ := NewService(&stubRepo{byID: map[string]*models.Plan{}})
	err := svc.DeactivatePlan(context.Background(), "plan_missing")
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeactivatePlan(t *testing.T) {
	plan := &models.Plan{ID: "plan_1", Active: true}
	svc, _ := NewService(&stubRepo{byID: map[string]*models.Plan{"plan_1": plan}})
	if err := svc.DeactivatePlan(context.Background(), "plan_1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if plan.Active {
		t.Fatal("expected plan deactivated")
	}
}
