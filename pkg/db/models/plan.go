package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/vendlyhq/vendly-backend/pkg/enums"
)

// Plan captures the catalog metadata for a subscription tier. Rows are
// immutable once referenced by a live subscription except for deactivation.
type Plan struct {
	ID          string                 `gorm:"column:id;primaryKey"`
	Name        string                 `gorm:"column:name;not null;uniqueIndex"`
	DisplayName string                 `gorm:"column:display_name;not null"`
	Price       decimal.Decimal        `gorm:"column:price;type:numeric(12,2);not null"`
	Currency    string                 `gorm:"column:currency;not null;default:'ARS'"`
	Frequency   enums.BillingFrequency `gorm:"column:frequency;type:billing_frequency;not null"`
	TrialDays   int                    `gorm:"column:trial_days;not null;default:0"`
	IsTrial     bool                   `gorm:"column:is_trial;not null;default:false"`
	Features    pq.StringArray         `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	Active      bool                   `gorm:"column:active;not null;default:true"`
	Priority    int                    `gorm:"column:priority;not null;default:0"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
