package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/vendlyhq/vendly-backend/internal/plans"
	"github.com/vendlyhq/vendly-backend/internal/stores"
	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	"github.com/vendlyhq/vendly-backend/pkg/enums"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
	"github.com/vendlyhq/vendly-backend/pkg/mercadopago"
)

// PreferenceCreator is the slice of the processor API checkout needs.
type PreferenceCreator interface {
	CreatePreference(ctx context.Context, params *mercadopago.PreferenceParams) (*mercadopago.Preference, error)
}

// CreatedSession is what the storefront needs to hand the buyer off to the
// processor-hosted checkout page.
type CreatedSession struct {
	SessionID   uuid.UUID `json:"session_id"`
	CheckoutURL string    `json:"checkout_url"`
}

// SessionStatus is the polling view a storefront uses after redirect-back.
type SessionStatus struct {
	SessionID     uuid.UUID           `json:"session_id"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	OrderID       *uuid.UUID          `json:"order_id,omitempty"`
}

// Service tracks checkout sessions from preference creation to payment
// resolution. Resolution is single-shot per session: once a session leaves
// pending it never changes status again.
type Service interface {
	CreateSession(ctx context.Context, storeID uuid.UUID, planName string) (*CreatedSession, error)
	GetSessionStatus(ctx context.Context, sessionID uuid.UUID) (*SessionStatus, error)

	// ResolveSession locates the session a processor callback refers to,
	// trying the strongest correlation first.
	ResolveSession(ctx context.Context, externalPaymentID, preferenceID, externalReference string) (*models.CheckoutSession, error)

	MarkCompleted(ctx context.Context, sessionID uuid.UUID, externalPaymentID string) (bool, error)
	MarkFailed(ctx context.Context, sessionID uuid.UUID, externalPaymentID string) (bool, error)
	MarkExpired(ctx context.Context, sessionID uuid.UUID) (bool, error)
	AttachOrder(ctx context.Context, sessionID, orderID uuid.UUID) error
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Repo            Repository
	PlanRepo        plans.Repository
	StoreRepo       stores.Repository
	Processor       PreferenceCreator
	NotificationURL string
	Logger          *logger.Logger
}

type service struct {
	repo            Repository
	planRepo        plans.Repository
	storeRepo       stores.Repository
	processor       PreferenceCreator
	notificationURL string
	logg            *logger.Logger
}

// NewService builds the checkout session service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout repo required")
	}
	if params.PlanRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan repo required")
	}
	if params.StoreRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store repo required")
	}
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "processor client required")
	}
	return &service{
		repo:            params.Repo,
		planRepo:        params.PlanRepo,
		storeRepo:       params.StoreRepo,
		processor:       params.Processor,
		notificationURL: params.NotificationURL,
		logg:            params.Logger,
	}, nil
}

// CreateSession records the pending session before calling the processor so
// a callback racing the response still finds a row to resolve against.
func (s *service) CreateSession(ctx context.Context, storeID uuid.UUID, planName string) (*CreatedSession, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	store, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup store")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}

	plan, err := s.planRepo.FindByName(ctx, planName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
	}
	if plan == nil || !plan.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}

	ref := NewReference(storeID, plan.Name)
	session := &models.CheckoutSession{
		StoreID:           storeID,
		PlanName:          plan.Name,
		ExternalReference: ref.String(),
		PaymentStatus:     enums.PaymentStatusPending,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist checkout session")
	}

	pref, err := s.processor.CreatePreference(ctx, &mercadopago.PreferenceParams{
		Items: []mercadopago.PreferenceItem{{
			Title:      plan.DisplayName,
			Quantity:   1,
			UnitPrice:  plan.Price,
			CurrencyID: plan.Currency,
		}},
		ExternalReference: ref.String(),
		NotificationURL:   s.notificationURL,
		Metadata: map[string]string{
			"store_id":  storeID.String(),
			"plan_name": plan.Name,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout preference")
	}
	if err := s.repo.SetPreferenceID(ctx, session.ID, pref.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record preference id")
	}

	return &CreatedSession{SessionID: session.ID, CheckoutURL: pref.InitPoint}, nil
}

func (s *service) GetSessionStatus(ctx context.Context, sessionID uuid.UUID) (*SessionStatus, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup checkout session")
	}
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
	}
	return &SessionStatus{
		SessionID:     session.ID,
		PaymentStatus: session.PaymentStatus,
		OrderID:       session.OrderID,
	}, nil
}

func (s *service) ResolveSession(ctx context.Context, externalPaymentID, preferenceID, externalReference string) (*models.CheckoutSession, error) {
	if id := strings.TrimSpace(externalPaymentID); id != "" {
		session, err := s.repo.FindByExternalPaymentID(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup session by payment id")
		}
		if session != nil {
			return session, nil
		}
	}
	if id := strings.TrimSpace(preferenceID); id != "" {
		session, err := s.repo.FindByPreferenceID(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup session by preference id")
		}
		if session != nil {
			return session, nil
		}
	}
	if ref := strings.TrimSpace(externalReference); ref != "" {
		session, err := s.repo.FindByReference(ctx, ref)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup session by reference")
		}
		if session != nil {
			return session, nil
		}
	}
	return nil, nil
}

// MarkCompleted resolves the session to completed. The conditional write
// makes replayed payment notifications no-ops.
func (s *service) MarkCompleted(ctx context.Context, sessionID uuid.UUID, externalPaymentID string) (bool, error) {
	return s.resolve(ctx, sessionID, enums.PaymentStatusCompleted, externalPaymentID)
}

func (s *service) MarkFailed(ctx context.Context, sessionID uuid.UUID, externalPaymentID string) (bool, error) {
	return s.resolve(ctx, sessionID, enums.PaymentStatusFailed, externalPaymentID)
}

func (s *service) MarkExpired(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return s.resolve(ctx, sessionID, enums.PaymentStatusExpired, "")
}

// AttachOrder backfills the order id on a resolved session. The repository
// only writes when no order is attached yet.
func (s *service) AttachOrder(ctx context.Context, sessionID, orderID uuid.UUID) error {
	if err := s.repo.SetOrderID(ctx, sessionID, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach order to session")
	}
	return nil
}

func (s *service) resolve(ctx context.Context, sessionID uuid.UUID, next enums.PaymentStatus, externalPaymentID string) (bool, error) {
	var paymentID *string
	if id := strings.TrimSpace(externalPaymentID); id != "" {
		paymentID = &id
	}
	applied, err := s.repo.ResolveStatusIf(ctx, sessionID, enums.PaymentStatusPending, next, paymentID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve checkout session")
	}
	return applied, nil
}
