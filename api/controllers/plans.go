package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vendlyhq/vendly-backend/api/responses"
	"github.com/vendlyhq/vendly-backend/api/validators"
	"github.com/vendlyhq/vendly-backend/internal/plans"
	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	"github.com/vendlyhq/vendly-backend/pkg/enums"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
)

type planResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Price       string   `json:"price"`
	Currency    string   `json:"currency"`
	Frequency   string   `json:"frequency"`
	TrialDays   int      `json:"trial_days"`
	IsTrial     bool     `json:"is_trial"`
	Features    []string `json:"features"`
	Priority    int      `json:"priority"`
}

func toPlanResponse(plan models.Plan) planResponse {
	return planResponse{
		ID:          plan.ID,
		Name:        plan.Name,
		DisplayName: plan.DisplayName,
		Price:       plan.Price.StringFixed(2),
		Currency:    plan.Currency,
		Frequency:   plan.Frequency.String(),
		TrialDays:   plan.TrialDays,
		IsTrial:     plan.IsTrial,
		Features:    plan.Features,
		Priority:    plan.Priority,
	}
}

// PlanList exposes the active plan catalog for pricing pages.
func PlanList(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListActivePlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]planResponse, 0, len(rows))
		for _, plan := range rows {
			out = append(out, toPlanResponse(plan))
		}
		responses.WriteSuccess(w, out)
	}
}

type createPlanRequest struct {
	Name        string   `json:"name" validate:"required"`
	DisplayName string   `json:"display_name" validate:"required"`
	Price       string   `json:"price" validate:"required"`
	Currency    string   `json:"currency"`
	Frequency   string   `json:"frequency" validate:"required,oneof=monthly yearly"`
	TrialDays   int      `json:"trial_days" validate:"min=0"`
	Features    []string `json:"features"`
	Priority    int      `json:"priority"`
}

// AdminPlanCreate registers a new catalog plan.
func AdminPlanCreate(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPlanRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price must be a decimal string"))
			return
		}
		frequency, err := enums.ParseBillingFrequency(req.Frequency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency"))
			return
		}

		plan, err := svc.CreatePlan(r.Context(), plans.CreatePlanInput{
			Name:        req.Name,
			DisplayName: req.DisplayName,
			Price:       price,
			Currency:    req.Currency,
			Frequency:   frequency,
			TrialDays:   req.TrialDays,
			Features:    req.Features,
			Priority:    req.Priority,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPlanResponse(*plan))
	}
}

// AdminPlanDeactivate removes a plan from the catalog without touching the
// subscriptions already on it.
func AdminPlanDeactivate(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planID := chi.URLParam(r, "planId")
		if err := svc.DeactivatePlan(r.Context(), planID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
