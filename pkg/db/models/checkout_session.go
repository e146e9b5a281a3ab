package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendlyhq/vendly-backend/pkg/enums"
)

// CheckoutSession correlates an outbound checkout preference with the payment
// outcome the processor eventually reports back. Once resolved it is immutable
// except for the order-id backfill.
type CheckoutSession struct {
	ID                uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	PlanName          string              `gorm:"column:plan_name;not null"`
	ExternalReference string              `gorm:"column:external_reference;not null;uniqueIndex"`
	PreferenceID      *string             `gorm:"column:preference_id;index"`
	ExternalPaymentID *string             `gorm:"column:external_payment_id;index"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	OrderID           *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
