package subscriptions

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendlyhq/vendly-backend/internal/plans"
	"github.com/vendlyhq/vendly-backend/internal/stores"
	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	"github.com/vendlyhq/vendly-backend/pkg/enums"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
	"github.com/vendlyhq/vendly-backend/pkg/mercadopago"
)

// ProcessorClient is the slice of the payment processor API the lifecycle
// controller needs.
type ProcessorClient interface {
	GetPreapproval(ctx context.Context, id string) (*mercadopago.Preapproval, error)
	UpdatePreapprovalStatus(ctx context.Context, id, status string) (*mercadopago.Preapproval, error)
}

// Notifier dispatches fire-and-forget messages on state transitions. Failures
// are logged by the caller and never roll anything back.
type Notifier interface {
	SubscriptionStatusChanged(ctx context.Context, storeID uuid.UUID, from, to enums.SubscriptionStatus) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TrialStatus reports how much trial runway a store has left.
type TrialStatus struct {
	DaysRemaining int  `json:"days_remaining"`
	Lapsed        bool `json:"lapsed"`
}

// ResolveHint carries correlation data decoded from an external reference,
// used when a processor event arrives before we stored the external id.
type ResolveHint struct {
	StoreID  uuid.UUID
	PlanName string
}

// Service is the only writer of subscription status. Both user actions and
// the webhook reconciler go through it so one transition table governs both.
type Service interface {
	Create(ctx context.Context, storeID uuid.UUID, planID string) (*models.Subscription, error)
	Pause(ctx context.Context, storeID uuid.UUID) error
	Resume(ctx context.Context, storeID uuid.UUID) error
	Cancel(ctx context.Context, storeID uuid.UUID) error
	Sync(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error)

	ReconcilePreapproval(ctx context.Context, pre *mercadopago.Preapproval, hint *ResolveHint) (bool, error)
	HandlePaymentOutcome(ctx context.Context, externalID string, approved bool) (bool, error)
	ActivateForStore(ctx context.Context, storeID uuid.UUID, planName string) (bool, error)

	GetSubscription(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error)
	GetSubscriptionByID(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error)
	IsActive(ctx context.Context, storeID uuid.UUID) (bool, error)
	GetTrialStatus(ctx context.Context, storeID uuid.UUID) (*TrialStatus, error)
}

// ServiceParams groups dependencies for the lifecycle service.
type ServiceParams struct {
	Repo              Repository
	PlanRepo          plans.Repository
	StoreRepo         stores.Repository
	Processor         ProcessorClient
	TransactionRunner txRunner
	Notifier          Notifier
	Logger            *logger.Logger
}

type service struct {
	repo      Repository
	planRepo  plans.Repository
	storeRepo stores.Repository
	processor ProcessorClient
	txRunner  txRunner
	notifier  Notifier
	logg      *logger.Logger
}

// NewService builds the lifecycle service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
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
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		repo:      params.Repo,
		planRepo:  params.PlanRepo,
		storeRepo: params.StoreRepo,
		processor: params.Processor,
		txRunner:  params.TransactionRunner,
		notifier:  params.Notifier,
		logg:      params.Logger,
	}, nil
}

// Create starts a trial subscription for the store. Plans without a trial
// activate through checkout and the first approved payment instead.
func (s *service) Create(ctx context.Context, storeID uuid.UUID, planID string) (*models.Subscription, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
	}
	if plan == nil || !plan.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	if plan.TrialDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "plan has no trial; subscription activates on first payment")
	}

	existing, err := s.repo.FindByStoreID(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "store already has a subscription")
	}

	now := time.Now().UTC()
	trialEnd := now.AddDate(0, 0, plan.TrialDays)
	sub := &models.Subscription{
		StoreID:     storeID,
		PlanID:      plan.ID,
		Status:      enums.SubscriptionStatusTrialing,
		TrialEndsAt: &trialEnd,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, sub); err != nil {
			return err
		}
		return s.storeRepo.UpdateSubscriptionActiveWithTx(tx, storeID, true)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
	}

	s.notify(ctx, storeID, StatusNone, sub.Status)
	return sub, nil
}

// Pause suspends access immediately. Only an active subscription can pause.
func (s *service) Pause(ctx context.Context, storeID uuid.UUID) error {
	sub, err := s.requireSubscription(ctx, storeID)
	if err != nil {
		return err
	}
	if !CanTransition(sub.Status, enums.SubscriptionStatusPaused) {
		return illegalTransition(sub.Status, enums.SubscriptionStatusPaused)
	}

	if id := externalID(sub); id != "" {
		if _, err := s.processor.UpdatePreapprovalStatus(ctx, id, mercadopago.PreapprovalStatusPaused); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pause processor subscription")
		}
	}

	now := time.Now().UTC()
	return s.applyTransition(ctx, sub, enums.SubscriptionStatusPaused, map[string]any{
		"paused_at": &now,
	})
}

// Resume restores access without touching the billing period.
func (s *service) Resume(ctx context.Context, storeID uuid.UUID) error {
	sub, err := s.requireSubscription(ctx, storeID)
	if err != nil {
		return err
	}
	if sub.Status != enums.SubscriptionStatusPaused {
		return illegalTransition(sub.Status, enums.SubscriptionStatusActive)
	}

	if id := externalID(sub); id != "" {
		if _, err := s.processor.UpdatePreapprovalStatus(ctx, id, mercadopago.PreapprovalStatusAuthorized); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resume processor subscription")
		}
	}

	return s.applyTransition(ctx, sub, enums.SubscriptionStatusActive, map[string]any{
		"paused_at": gorm.Expr("NULL"),
	})
}

// Cancel is terminal and idempotent: cancelling an already-cancelled
// subscription succeeds without touching the row.
func (s *service) Cancel(ctx context.Context, storeID uuid.UUID) error {
	sub, err := s.requireSubscription(ctx, storeID)
	if err != nil {
		return err
	}
	if sub.Status == enums.SubscriptionStatusCancelled {
		return nil
	}
	if !CanTransition(sub.Status, enums.SubscriptionStatusCancelled) {
		return illegalTransition(sub.Status, enums.SubscriptionStatusCancelled)
	}

	if id := externalID(sub); id != "" {
		if _, err := s.processor.UpdatePreapprovalStatus(ctx, id, mercadopago.PreapprovalStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel processor subscription")
		}
	}

	now := time.Now().UTC()
	return s.applyTransition(ctx, sub, enums.SubscriptionStatusCancelled, map[string]any{
		"cancelled_at": &now,
	})
}

// Sync pulls the authoritative status from the processor and reconciles it
// through the same transition table the webhook path uses. It is the manual
// repair path when webhook delivery is suspected to have failed.
func (s *service) Sync(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	id := externalID(sub)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription was never activated with the processor")
	}

	pre, err := s.processor.GetPreapproval(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch processor subscription")
	}
	if _, err := s.ReconcilePreapproval(ctx, pre, nil); err != nil {
		return nil, err
	}
	if err := s.repo.Touch(ctx, sub.ID, time.Now().UTC()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sync time")
	}
	return s.repo.FindByID(ctx, subscriptionID)
}

// ReconcilePreapproval merges a processor-reported preapproval state into the
// stored subscription. Stale or illegal transitions are discarded, not
// errored, so webhook replays and reordering stay harmless. The returned bool
// reports whether a transition was applied.
func (s *service) ReconcilePreapproval(ctx context.Context, pre *mercadopago.Preapproval, hint *ResolveHint) (bool, error) {
	if pre == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "preapproval required")
	}

	sub, err := s.repo.FindByExternalID(ctx, pre.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription by external id")
	}
	if sub == nil && hint != nil && hint.StoreID != uuid.Nil {
		sub, err = s.repo.FindByStoreID(ctx, hint.StoreID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription by store")
		}
	}

	target, ok := statusFromPreapproval(pre.Status)
	if !ok {
		// pending and other intermediate states carry no transition.
		return false, nil
	}

	if sub == nil {
		if target != enums.SubscriptionStatusActive || hint == nil || hint.StoreID == uuid.Nil {
			return false, pkgerrors.New(pkgerrors.CodeUnresolvedEvent, "preapproval does not match any subscription")
		}
		return s.activateNew(ctx, pre, hint)
	}

	if sub.Status == target {
		// Replay of a state we already hold.
		return false, nil
	}
	if !CanTransition(sub.Status, target) {
		s.warn(ctx, sub, fmt.Sprintf("discarding stale transition %s -> %s", sub.Status, target))
		return false, nil
	}

	now := time.Now().UTC()
	fields := map[string]any{
		"external_subscription_id": pre.ID,
		"last_synced_at":           &now,
	}
	switch target {
	case enums.SubscriptionStatusActive:
		start, end := pre.CycleBounds(now)
		fields["current_period_start"] = &start
		fields["current_period_end"] = &end
		fields["paused_at"] = gorm.Expr("NULL")
	case enums.SubscriptionStatusPaused:
		fields["paused_at"] = &now
	case enums.SubscriptionStatusCancelled:
		fields["cancelled_at"] = &now
	}

	if err := s.applyTransition(ctx, sub, target, fields); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			// Lost the conditional write to a concurrent delivery.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HandlePaymentOutcome reacts to recurring payment results that reference an
// already-activated subscription: failures push active/trialing to past_due,
// a later success recovers past_due back to active.
func (s *service) HandlePaymentOutcome(ctx context.Context, externalSubID string, approved bool) (bool, error) {
	if strings.TrimSpace(externalSubID) == "" {
		return false, nil
	}
	sub, err := s.repo.FindByExternalID(ctx, externalSubID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription by external id")
	}
	if sub == nil {
		return false, nil
	}

	var target enums.SubscriptionStatus
	if approved {
		if sub.Status != enums.SubscriptionStatusPastDue {
			return false, nil
		}
		target = enums.SubscriptionStatusActive
	} else {
		if sub.Status != enums.SubscriptionStatusActive && sub.Status != enums.SubscriptionStatusTrialing {
			return false, nil
		}
		target = enums.SubscriptionStatusPastDue
	}

	if err := s.applyTransition(ctx, sub, target, nil); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ActivateForStore is the checkout-payment activation path: the first
// approved payment creates an active subscription, or promotes an existing
// trialing or past_due one. Already-active stores are a no-op.
func (s *service) ActivateForStore(ctx context.Context, storeID uuid.UUID, planName string) (bool, error) {
	plan, err := s.planRepo.FindByName(ctx, planName)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
	}
	if plan == nil {
		return false, pkgerrors.New(pkgerrors.CodeUnresolvedEvent, "payment references unknown plan")
	}

	sub, err := s.repo.FindByStoreID(ctx, storeID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}

	now := time.Now().UTC()
	start, end := planPeriod(plan, now)

	if sub == nil {
		created := &models.Subscription{
			StoreID:            storeID,
			PlanID:             plan.ID,
			Status:             enums.SubscriptionStatusActive,
			CurrentPeriodStart: &start,
			CurrentPeriodEnd:   &end,
			LastSyncedAt:       &now,
		}
		err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			if err := txRepo.Create(ctx, created); err != nil {
				return err
			}
			return s.storeRepo.UpdateSubscriptionActiveWithTx(tx, storeID, true)
		})
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist activated subscription")
		}
		s.notify(ctx, storeID, StatusNone, enums.SubscriptionStatusActive)
		return true, nil
	}

	if sub.Status == enums.SubscriptionStatusActive {
		return false, nil
	}
	if !CanTransition(sub.Status, enums.SubscriptionStatusActive) {
		s.warn(ctx, sub, fmt.Sprintf("discarding payment activation from status %s", sub.Status))
		return false, nil
	}

	fields := map[string]any{
		"plan_id":              plan.ID,
		"current_period_start": &start,
		"current_period_end":   &end,
		"last_synced_at":       &now,
	}
	if err := s.applyTransition(ctx, sub, enums.SubscriptionStatusActive, fields); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetSubscription returns the store's subscription row or nil.
func (s *service) GetSubscription(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	sub, err := s.repo.FindByStoreID(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	return sub, nil
}

// GetSubscriptionByID returns the subscription row or nil. Callers that act
// on behalf of a tenant must check the row's store id themselves.
func (s *service) GetSubscriptionByID(ctx context.Context, subscriptionID uuid.UUID) (*models.Subscription, error) {
	if subscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}
	sub, err := s.repo.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	return sub, nil
}

// IsActive is the authoritative access-control check: active status, or
// trialing with trial time left.
func (s *service) IsActive(ctx context.Context, storeID uuid.UUID) (bool, error) {
	sub, err := s.GetSubscription(ctx, storeID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	switch sub.Status {
	case enums.SubscriptionStatusActive:
		return true, nil
	case enums.SubscriptionStatusTrialing:
		return sub.TrialEndsAt != nil && time.Now().UTC().Before(*sub.TrialEndsAt), nil
	default:
		return false, nil
	}
}

// GetTrialStatus reports trial runway for renewal prompts. It is advisory;
// IsActive stays authoritative for access control.
func (s *service) GetTrialStatus(ctx context.Context, storeID uuid.UUID) (*TrialStatus, error) {
	sub, err := s.GetSubscription(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.TrialEndsAt == nil {
		return &TrialStatus{DaysRemaining: 0, Lapsed: false}, nil
	}

	now := time.Now().UTC()
	if !now.Before(*sub.TrialEndsAt) {
		return &TrialStatus{
			DaysRemaining: 0,
			Lapsed:        sub.Status == enums.SubscriptionStatusTrialing,
		}, nil
	}
	days := int(math.Ceil(sub.TrialEndsAt.Sub(now).Hours() / 24))
	return &TrialStatus{DaysRemaining: days, Lapsed: false}, nil
}

func (s *service) activateNew(ctx context.Context, pre *mercadopago.Preapproval, hint *ResolveHint) (bool, error) {
	plan, err := s.planRepo.FindByName(ctx, hint.PlanName)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
	}
	if plan == nil {
		return false, pkgerrors.New(pkgerrors.CodeUnresolvedEvent, "preapproval references unknown plan")
	}

	now := time.Now().UTC()
	start, end := pre.CycleBounds(now)
	preID := pre.ID
	sub := &models.Subscription{
		StoreID:                hint.StoreID,
		PlanID:                 plan.ID,
		Status:                 enums.SubscriptionStatusActive,
		ExternalSubscriptionID: &preID,
		CurrentPeriodStart:     &start,
		CurrentPeriodEnd:       &end,
		LastSyncedAt:           &now,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, sub); err != nil {
			return err
		}
		return s.storeRepo.UpdateSubscriptionActiveWithTx(tx, hint.StoreID, true)
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist activated subscription")
	}

	s.notify(ctx, hint.StoreID, StatusNone, enums.SubscriptionStatusActive)
	return true, nil
}

// applyTransition performs the compare-and-swap status write and the store
// flag update in one transaction, then dispatches notification after commit.
func (s *service) applyTransition(ctx context.Context, sub *models.Subscription, to enums.SubscriptionStatus, fields map[string]any) error {
	from := sub.Status
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		applied, err := txRepo.TransitionStatus(ctx, sub.ID, from, to, fields)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("subscription no longer in status %s", from))
		}
		active := IsActiveStatus(to) || to == enums.SubscriptionStatusTrialing
		return s.storeRepo.UpdateSubscriptionActiveWithTx(tx, sub.StoreID, active)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist transition")
	}

	sub.Status = to
	s.notify(ctx, sub.StoreID, from, to)
	return nil
}

func (s *service) requireSubscription(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.GetSubscription(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return sub, nil
}

func (s *service) notify(ctx context.Context, storeID uuid.UUID, from, to enums.SubscriptionStatus) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SubscriptionStatusChanged(ctx, storeID, from, to); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithStoreID(ctx, storeID.String()), "notification dispatch failed", err)
	}
}

func (s *service) warn(ctx context.Context, sub *models.Subscription, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithStoreID(ctx, sub.StoreID.String()), msg)
}

func statusFromPreapproval(status string) (enums.SubscriptionStatus, bool) {
	switch status {
	case mercadopago.PreapprovalStatusAuthorized:
		return enums.SubscriptionStatusActive, true
	case mercadopago.PreapprovalStatusPaused:
		return enums.SubscriptionStatusPaused, true
	case mercadopago.PreapprovalStatusCancelled:
		return enums.SubscriptionStatusCancelled, true
	default:
		return "", false
	}
}

func externalID(sub *models.Subscription) string {
	if sub == nil || sub.ExternalSubscriptionID == nil {
		return ""
	}
	return strings.TrimSpace(*sub.ExternalSubscriptionID)
}

func planPeriod(plan *models.Plan, now time.Time) (time.Time, time.Time) {
	if plan.Frequency == enums.BillingFrequencyYearly {
		return now, now.AddDate(1, 0, 0)
	}
	return now, now.AddDate(0, 1, 0)
}

func illegalTransition(from, to enums.SubscriptionStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot transition subscription from %s to %s", from, to))
}
