package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the storefront order a completed checkout session materializes
// into. The reconciler creates at most one per session.
type Order struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	CheckoutSessionID uuid.UUID       `gorm:"column:checkout_session_id;type:uuid;not null;uniqueIndex"`
	Total             decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	Currency          string          `gorm:"column:currency;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
