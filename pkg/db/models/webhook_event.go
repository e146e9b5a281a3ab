package models

import (
	"encoding/json"
	"time"

	"github.com/vendlyhq/vendly-backend/pkg/enums"
)

// WebhookEvent is the durable dedup ledger for processor callbacks. The unique
// (event_type, provider_id) index is what makes transition application
// idempotent under concurrent redelivery.
type WebhookEvent struct {
	ID          int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	EventType   enums.WebhookEventType `gorm:"column:event_type;not null;uniqueIndex:webhook_events_dedup_key"`
	ProviderID  string                 `gorm:"column:provider_id;not null;uniqueIndex:webhook_events_dedup_key"`
	Action      string                 `gorm:"column:action"`
	Resolved    bool                   `gorm:"column:resolved;not null;default:false"`
	Payload     json.RawMessage        `gorm:"column:payload;type:jsonb"`
	ReceivedAt  time.Time              `gorm:"column:received_at;autoCreateTime"`
	ProcessedAt *time.Time             `gorm:"column:processed_at"`
}
