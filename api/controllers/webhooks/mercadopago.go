package webhooks

import (
	"io"
	"net/http"

	"github.com/vendlyhq/vendly-backend/api/responses"
	mpwebhook "github.com/vendlyhq/vendly-backend/internal/webhooks/mercadopago"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
	"github.com/vendlyhq/vendly-backend/pkg/mercadopago"
)

type mercadoPagoReceipt struct {
	Received  bool `json:"received"`
	Processed bool `json:"processed"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// MercadoPagoWebhook handles payment, merchant order and preapproval
// notifications. Authenticity failures are rejected outright; everything past
// the signature check is acknowledged with a 2xx unless processing hit a
// transient failure, in which case the processor is left to redeliver.
func MercadoPagoWebhook(svc mpwebhook.Service, verifier mercadopago.SignatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		notification, err := mpwebhook.ParseNotification(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed notification body"))
			return
		}

		// The signed manifest binds the resource id from the query string;
		// older notification formats omit it, so fall back to the body.
		dataID := r.URL.Query().Get("data.id")
		if dataID == "" {
			dataID = notification.ResourceID()
		}
		// An unverifiable delivery is acknowledged without acting: the
		// processor will never produce a valid signature for it, so a
		// non-2xx would only make it retry forever.
		if !verifier.Verify(r.Header.Get("x-signature"), r.Header.Get("x-request-id"), dataID) {
			if logg != nil {
				logg.Warn(ctx, "discarding webhook with unverifiable signature")
			}
			responses.WriteSuccess(w, mercadoPagoReceipt{Received: true})
			return
		}

		result, err := svc.Process(ctx, notification)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, mercadoPagoReceipt{
			Received:  true,
			Processed: result.Processed,
			Duplicate: result.Duplicate,
		})
	}
}
