package mpwebhook

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vendlyhq/vendly-backend/internal/checkout"
	"github.com/vendlyhq/vendly-backend/internal/orders"
	"github.com/vendlyhq/vendly-backend/internal/subscriptions"
	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	"github.com/vendlyhq/vendly-backend/pkg/enums"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
	"github.com/vendlyhq/vendly-backend/pkg/metrics"
	"github.com/vendlyhq/vendly-backend/pkg/mercadopago"
)

// ProcessorClient is the read surface the reconciler fetches authoritative
// state from. Webhook payloads only carry ids; state always comes from here.
type ProcessorClient interface {
	GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error)
	GetMerchantOrder(ctx context.Context, id string) (*mercadopago.MerchantOrder, error)
	GetPreapproval(ctx context.Context, id string) (*mercadopago.Preapproval, error)
}

// CheckoutNotifier announces completed checkouts downstream.
type CheckoutNotifier interface {
	CheckoutCompleted(ctx context.Context, storeID, sessionID, orderID uuid.UUID) error
}

// Result summarizes one webhook delivery for the controller and metrics.
type Result struct {
	Processed  bool `json:"processed"`
	Duplicate  bool `json:"duplicate"`
	Unresolved bool `json:"unresolved"`
}

// Service reconciles processor callbacks against local billing state. Every
// path ends in an acknowledgment: unresolvable events are recorded and
// logged rather than errored, so the processor stops redelivering them.
type Service interface {
	Process(ctx context.Context, notif *Notification) (*Result, error)
}

// ServiceParams groups dependencies for the reconciler.
type ServiceParams struct {
	Ledger        LedgerRepository
	Guard         *IdempotencyGuard
	Processor     ProcessorClient
	Checkout      checkout.Service
	Subscriptions subscriptions.Service
	Orders        orders.Service
	Notifier      CheckoutNotifier
	Metrics       *metrics.WebhookMetrics
	Logger        *logger.Logger
}

type service struct {
	ledger        LedgerRepository
	guard         *IdempotencyGuard
	processor     ProcessorClient
	checkout      checkout.Service
	subscriptions subscriptions.Service
	orders        orders.Service
	notifier      CheckoutNotifier
	metrics       *metrics.WebhookMetrics
	logg          *logger.Logger
}

// NewService builds the webhook reconciler.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook ledger required")
	}
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "processor client required")
	}
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	return &service{
		ledger:        params.Ledger,
		guard:         params.Guard,
		processor:     params.Processor,
		checkout:      params.Checkout,
		subscriptions: params.Subscriptions,
		orders:        params.Orders,
		notifier:      params.Notifier,
		metrics:       params.Metrics,
		logg:          params.Logger,
	}, nil
}

// outcome is the internal verdict of one dispatch.
type outcome struct {
	applied   bool
	resolved  bool
	discarded bool
}

func (s *service) Process(ctx context.Context, notif *Notification) (*Result, error) {
	if notif == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification required")
	}
	start := time.Now()

	eventType, known := notif.EventType()
	if !known {
		s.metrics.IncUnresolved("unknown")
		s.warnf(ctx, "ignoring webhook with unknown type %q", notif.Type+notif.Topic)
		return &Result{Unresolved: true}, nil
	}
	defer func() {
		s.metrics.ObserveDuration(eventType.String(), time.Since(start))
	}()

	deliveryID := notif.DeliveryID()
	if deliveryID == "" {
		s.metrics.IncUnresolved(eventType.String())
		s.warnf(ctx, "ignoring %s webhook without a delivery id", eventType)
		return &Result{Unresolved: true}, nil
	}

	if !s.guard.CheckAndMark(ctx, eventType.String(), deliveryID) {
		s.metrics.IncDuplicate(eventType.String())
		return &Result{Duplicate: true}, nil
	}

	event, created, err := s.ledger.Record(ctx, eventType, deliveryID, notif.Action, notif.Raw())
	if err != nil {
		s.guard.Release(ctx, eventType.String(), deliveryID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record webhook event")
	}
	if !created && event.Resolved {
		s.metrics.IncDuplicate(eventType.String())
		return &Result{Duplicate: true}, nil
	}

	out, err := s.dispatch(ctx, eventType, notif.ResourceID())
	if err != nil {
		// Leave the ledger row unresolved and free the fast-path key so the
		// processor's redelivery gets a clean retry.
		s.guard.Release(ctx, eventType.String(), deliveryID)
		return nil, err
	}

	if err := s.ledger.MarkOutcome(ctx, event.ID, out.resolved); err != nil {
		s.guard.Release(ctx, eventType.String(), deliveryID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark webhook outcome")
	}

	switch {
	case out.applied:
		s.metrics.IncProcessed(eventType.String())
	case out.discarded:
		s.metrics.IncDiscarded(eventType.String())
	case !out.resolved:
		s.metrics.IncUnresolved(eventType.String())
	}
	return &Result{Processed: out.applied, Unresolved: !out.resolved}, nil
}

func (s *service) dispatch(ctx context.Context, eventType enums.WebhookEventType, resourceID string) (outcome, error) {
	if resourceID == "" {
		s.warnf(ctx, "%s webhook carries no resource id", eventType)
		return outcome{}, nil
	}
	switch eventType {
	case enums.WebhookEventPayment:
		return s.handlePayment(ctx, resourceID)
	case enums.WebhookEventMerchantOrder:
		return s.handleMerchantOrder(ctx, resourceID)
	case enums.WebhookEventPreapproval:
		return s.handlePreapproval(ctx, resourceID)
	}
	return outcome{}, nil
}

func (s *service) handlePayment(ctx context.Context, resourceID string) (outcome, error) {
	payment, err := s.processor.GetPayment(ctx, resourceID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.warnf(ctx, "payment %s not found at processor", resourceID)
			return outcome{}, nil
		}
		return outcome{}, err
	}
	return s.applyPayment(ctx, payment, "")
}

func (s *service) handleMerchantOrder(ctx context.Context, resourceID string) (outcome, error) {
	order, err := s.processor.GetMerchantOrder(ctx, resourceID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.warnf(ctx, "merchant order %s not found at processor", resourceID)
			return outcome{}, nil
		}
		return outcome{}, err
	}
	payment, ok := settlingPayment(order)
	if !ok {
		// Order exists but no payment reached a final state yet. A later
		// notification will carry the settlement.
		return outcome{resolved: true}, nil
	}
	if payment.ExternalReference == "" {
		payment.ExternalReference = order.ExternalReference
	}
	return s.applyPayment(ctx, &payment, order.PreferenceID)
}

func (s *service) handlePreapproval(ctx context.Context, resourceID string) (outcome, error) {
	pre, err := s.processor.GetPreapproval(ctx, resourceID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.warnf(ctx, "preapproval %s not found at processor", resourceID)
			return outcome{}, nil
		}
		return outcome{}, err
	}

	var hint *subscriptions.ResolveHint
	if ref, err := checkout.ParseReference(pre.ExternalReference); err == nil {
		hint = &subscriptions.ResolveHint{StoreID: ref.StoreID, PlanName: ref.PlanName}
	}

	applied, err := s.subscriptions.ReconcilePreapproval(ctx, pre, hint)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnresolvedEvent) {
			s.warnf(ctx, "preapproval %s could not be correlated", pre.ID)
			return outcome{}, nil
		}
		return outcome{}, err
	}
	if !applied {
		return outcome{resolved: true, discarded: true}, nil
	}
	return outcome{applied: true, resolved: true}, nil
}

// applyPayment drives both halves of a payment outcome: checkout session
// resolution with order creation, and the subscription lifecycle effect.
func (s *service) applyPayment(ctx context.Context, payment *mercadopago.Payment, preferenceID string) (outcome, error) {
	if !isFinalPayment(payment) {
		// pending / in_process; the settled state arrives as its own event.
		return outcome{resolved: true}, nil
	}

	paymentID := strconv.FormatInt(payment.ID, 10)
	session, err := s.checkout.ResolveSession(ctx, paymentID, preferenceID, payment.ExternalReference)
	if err != nil {
		return outcome{}, err
	}

	ref, refErr := checkout.ParseReference(payment.ExternalReference)
	if session == nil && refErr != nil {
		s.warnf(ctx, "payment %s carries a foreign external reference", paymentID)
		return outcome{}, nil
	}

	out := outcome{resolved: true}

	if session != nil {
		applied, err := s.resolveSessionOutcome(ctx, session, payment, paymentID)
		if err != nil {
			return outcome{}, err
		}
		out.applied = out.applied || applied
		out.discarded = out.discarded || !applied
	}

	if refErr == nil {
		applied, err := s.applySubscriptionOutcome(ctx, ref, payment)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeUnresolvedEvent) {
				s.warnf(ctx, "payment %s references unknown plan %q", paymentID, ref.PlanName)
				out.resolved = session != nil
				return out, nil
			}
			return outcome{}, err
		}
		out.applied = out.applied || applied
	}

	return out, nil
}

func (s *service) resolveSessionOutcome(ctx context.Context, session *models.CheckoutSession, payment *mercadopago.Payment, paymentID string) (bool, error) {
	switch {
	case payment.IsApproved():
		applied, err := s.checkout.MarkCompleted(ctx, session.ID, paymentID)
		if err != nil {
			return false, err
		}
		if !applied {
			// An earlier delivery won the status write. If it failed between
			// completing the session and inserting the order, this redelivery
			// finishes that half; otherwise there is nothing left to apply.
			status, err := s.checkout.GetSessionStatus(ctx, session.ID)
			if err != nil {
				return false, err
			}
			if status.PaymentStatus != enums.PaymentStatusCompleted || status.OrderID != nil {
				return false, nil
			}
		}
		order, err := s.orders.CreateFromSession(ctx, nil, session, payment.TransactionAmount, payment.CurrencyID)
		if err != nil {
			return false, err
		}
		if err := s.checkout.AttachOrder(ctx, session.ID, order.ID); err != nil {
			return false, err
		}
		if s.notifier != nil {
			if err := s.notifier.CheckoutCompleted(ctx, session.StoreID, session.ID, order.ID); err != nil {
				s.warnf(ctx, "checkout notification failed for session %s", session.ID)
			}
		}
		return true, nil
	case payment.Status == mercadopago.PaymentStatusExpired:
		return s.checkout.MarkExpired(ctx, session.ID)
	default:
		return s.checkout.MarkFailed(ctx, session.ID, paymentID)
	}
}

func (s *service) applySubscriptionOutcome(ctx context.Context, ref checkout.Reference, payment *mercadopago.Payment) (bool, error) {
	if payment.IsApproved() {
		return s.subscriptions.ActivateForStore(ctx, ref.StoreID, ref.PlanName)
	}

	sub, err := s.subscriptions.GetSubscription(ctx, ref.StoreID)
	if err != nil {
		return false, err
	}
	if sub == nil || sub.ExternalSubscriptionID == nil {
		return false, nil
	}
	return s.subscriptions.HandlePaymentOutcome(ctx, *sub.ExternalSubscriptionID, false)
}

func (s *service) warnf(ctx context.Context, format string, args ...any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(ctx, fmt.Sprintf(format, args...))
}

func settlingPayment(order *mercadopago.MerchantOrder) (mercadopago.Payment, bool) {
	var fallback *mercadopago.Payment
	for i := range order.Payments {
		p := order.Payments[i]
		if p.IsApproved() {
			return p, true
		}
		if isFinalPayment(&p) {
			fallback = &order.Payments[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return mercadopago.Payment{}, false
}

func isFinalPayment(payment *mercadopago.Payment) bool {
	return payment.IsApproved() ||
		payment.IsFailure() ||
		payment.Status == mercadopago.PaymentStatusExpired
}
