package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendlyhq/vendly-backend/pkg/enums"
)

// Subscription persists the payment processor subscription state per store.
// A store has at most one subscription row; status is only ever written by the
// lifecycle service, never directly by handlers.
type Subscription struct {
	ID                    uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID               uuid.UUID                `gorm:"column:store_id;type:uuid;not null;uniqueIndex"`
	PlanID                string                   `gorm:"column:plan_id;not null;index"`
	Status                enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null"`
	ExternalSubscriptionID *string                 `gorm:"column:external_subscription_id;uniqueIndex"`
	CurrentPeriodStart    *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd      *time.Time               `gorm:"column:current_period_end"`
	TrialEndsAt           *time.Time               `gorm:"column:trial_ends_at"`
	CancelledAt           *time.Time               `gorm:"column:cancelled_at"`
	PausedAt              *time.Time               `gorm:"column:paused_at"`
	LastSyncedAt          *time.Time               `gorm:"column:last_synced_at"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
