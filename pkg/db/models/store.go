package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is one merchant tenant. Only the fields the billing core touches live
// here; storefront configuration is managed elsewhere.
type Store struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID        string    `gorm:"column:owner_user_id;not null;index"`
	Name               string    `gorm:"column:name;not null"`
	Slug               string    `gorm:"column:slug;not null;uniqueIndex"`
	WhatsAppNumber     *string   `gorm:"column:whatsapp_number"`
	SubscriptionActive bool      `gorm:"column:subscription_active;not null;default:false"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
