package mpwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vendlyhq/vendly-backend/pkg/db"
	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	"github.com/vendlyhq/vendly-backend/pkg/enums"
)

// LedgerRepository is the durable webhook dedup ledger. The unique
// (event_type, provider_id) index is the authoritative duplicate check;
// Redis only short-circuits ahead of it.
type LedgerRepository interface {
	// Record inserts the event, or returns the existing row when the
	// delivery was seen before. The bool reports whether this call created
	// the row.
	Record(ctx context.Context, eventType enums.WebhookEventType, providerID, action string, payload json.RawMessage) (*models.WebhookEvent, bool, error)
	MarkOutcome(ctx context.Context, id int64, resolved bool) error
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(gdb *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: gdb}
}

func (r *ledgerRepository) Record(ctx context.Context, eventType enums.WebhookEventType, providerID, action string, payload json.RawMessage) (*models.WebhookEvent, bool, error) {
	event := &models.WebhookEvent{
		EventType:  eventType,
		ProviderID: providerID,
		Action:     action,
		Payload:    payload,
	}
	err := r.db.WithContext(ctx).Create(event).Error
	if err == nil {
		return event, true, nil
	}
	if !db.IsUniqueViolation(err, "webhook_events_dedup_key") {
		return nil, false, err
	}

	var existing models.WebhookEvent
	ferr := r.db.WithContext(ctx).
		Where("event_type = ? AND provider_id = ?", eventType, providerID).
		First(&existing).Error
	if ferr != nil {
		if errors.Is(ferr, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		return nil, false, ferr
	}
	return &existing, false, nil
}

func (r *ledgerRepository) MarkOutcome(ctx context.Context, id int64, resolved bool) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"resolved":     resolved,
			"processed_at": &now,
		}).Error
}
