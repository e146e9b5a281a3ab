package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vendlyhq/vendly-backend/api/responses"
	"github.com/vendlyhq/vendly-backend/internal/orders"
	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
)

type orderResponse struct {
	ID                uuid.UUID `json:"id"`
	StoreID           uuid.UUID `json:"store_id"`
	CheckoutSessionID uuid.UUID `json:"checkout_session_id"`
	Total             string    `json:"total"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

func toOrderResponse(order *models.Order) orderResponse {
	return orderResponse{
		ID:                order.ID,
		StoreID:           order.StoreID,
		CheckoutSessionID: order.CheckoutSessionID,
		Total:             order.Total.StringFixed(2),
		Currency:          order.Currency,
		CreatedAt:         order.CreatedAt,
	}
}

// OrderFetch returns one order created from a completed checkout session.
func OrderFetch(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a uuid"))
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := requireStoreAccess(r, order.StoreID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toOrderResponse(order))
	}
}
