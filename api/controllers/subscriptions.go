package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vendlyhq/vendly-backend/api/middleware"
	"github.com/vendlyhq/vendly-backend/api/responses"
	"github.com/vendlyhq/vendly-backend/api/validators"
	"github.com/vendlyhq/vendly-backend/internal/subscriptions"
	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
)

type subscriptionResponse struct {
	ID                     uuid.UUID  `json:"id"`
	StoreID                uuid.UUID  `json:"store_id"`
	PlanID                 string     `json:"plan_id"`
	Status                 string     `json:"status"`
	ExternalSubscriptionID *string    `json:"external_subscription_id,omitempty"`
	CurrentPeriodStart     *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `json:"current_period_end,omitempty"`
	TrialEndsAt            *time.Time `json:"trial_ends_at,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	PausedAt               *time.Time `json:"paused_at,omitempty"`
	LastSyncedAt           *time.Time `json:"last_synced_at,omitempty"`
}

func toSubscriptionResponse(sub *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                     sub.ID,
		StoreID:                sub.StoreID,
		PlanID:                 sub.PlanID,
		Status:                 sub.Status.String(),
		ExternalSubscriptionID: sub.ExternalSubscriptionID,
		CurrentPeriodStart:     sub.CurrentPeriodStart,
		CurrentPeriodEnd:       sub.CurrentPeriodEnd,
		TrialEndsAt:            sub.TrialEndsAt,
		CancelledAt:            sub.CancelledAt,
		PausedAt:               sub.PausedAt,
		LastSyncedAt:           sub.LastSyncedAt,
	}
}

// requireStoreAccess rejects non-admin sessions touching another store.
func requireStoreAccess(r *http.Request, storeID uuid.UUID) error {
	if ctxStore, ok := middleware.StoreIDFromContext(r.Context()); ok && ctxStore != storeID {
		if !middleware.IsAdminFromContext(r.Context()) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "store mismatch")
		}
	}
	return nil
}

func storeIDFromRequest(r *http.Request) (uuid.UUID, error) {
	storeID, err := uuid.Parse(chi.URLParam(r, "storeId"))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "store id must be a uuid")
	}
	if err := requireStoreAccess(r, storeID); err != nil {
		return uuid.Nil, err
	}
	return storeID, nil
}

// SubscriptionFetch returns the store's subscription with its trial runway.
func SubscriptionFetch(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.GetSubscription(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteSuccess(w, map[string]any{
				"subscription": nil,
				"active":       false,
			})
			return
		}

		active, err := svc.IsActive(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trial, err := svc.GetTrialStatus(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"subscription": toSubscriptionResponse(sub),
			"active":       active,
			"trial":        trial,
		})
	}
}

type manageSubscriptionRequest struct {
	Action string `json:"action" validate:"required,oneof=create pause resume"`
	PlanID string `json:"plan_id"`
}

// SubscriptionManage handles trial creation and the pause/resume toggles.
func SubscriptionManage(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req manageSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch req.Action {
		case "create":
			if req.PlanID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "plan_id is required for create"))
				return
			}
			sub, err := svc.Create(r.Context(), storeID, req.PlanID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, toSubscriptionResponse(sub))
			return
		case "pause":
			err = svc.Pause(r.Context(), storeID)
		case "resume":
			err = svc.Resume(r.Context(), storeID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": req.Action + "d"})
	}
}

// SubscriptionCancel is terminal and idempotent.
func SubscriptionCancel(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := storeIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Cancel(r.Context(), storeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// SubscriptionSync pulls the processor's authoritative state for one
// subscription. It is the manual repair path for missed webhooks.
func SubscriptionSync(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriptionID, err := uuid.Parse(chi.URLParam(r, "subscriptionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "subscription id must be a uuid"))
			return
		}

		existing, err := svc.GetSubscriptionByID(r.Context(), subscriptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if existing == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found"))
			return
		}
		if err := requireStoreAccess(r, existing.StoreID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Sync(r.Context(), subscriptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSubscriptionResponse(sub))
	}
}
