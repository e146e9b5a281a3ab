package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vendlyhq/vendly-backend/api/middleware"
	"github.com/vendlyhq/vendly-backend/api/responses"
	"github.com/vendlyhq/vendly-backend/api/validators"
	"github.com/vendlyhq/vendly-backend/internal/checkout"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
)

type createSessionRequest struct {
	PlanName string `json:"plan_name" validate:"required"`
	StoreID  string `json:"store_id"`
}

// CheckoutSessionCreate opens a checkout session and returns the redirect URL.
// The store comes from the session token unless an admin supplies one.
func CheckoutSessionCreate(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		storeID, ok := middleware.StoreIDFromContext(r.Context())
		if req.StoreID != "" && middleware.IsAdminFromContext(r.Context()) {
			parsed, err := uuid.Parse(req.StoreID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "store_id must be a uuid"))
				return
			}
			storeID, ok = parsed, true
		}
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session has no active store"))
			return
		}

		created, err := svc.CreateSession(r.Context(), storeID, req.PlanName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// CheckoutSessionStatus is the storefront polling endpoint after redirect-back.
func CheckoutSessionStatus(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := uuid.Parse(r.URL.Query().Get("session_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session_id must be a uuid"))
			return
		}
		status, err := svc.GetSessionStatus(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
