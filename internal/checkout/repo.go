package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	"github.com/vendlyhq/vendly-backend/pkg/enums"
)

// Repository persists checkout sessions. Status resolution goes through
// ResolveStatusIf so concurrent webhook deliveries cannot double-resolve a
// session.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.CheckoutSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	FindByPreferenceID(ctx context.Context, preferenceID string) (*models.CheckoutSession, error)
	FindByExternalPaymentID(ctx context.Context, paymentID string) (*models.CheckoutSession, error)
	FindByReference(ctx context.Context, reference string) (*models.CheckoutSession, error)
	SetPreferenceID(ctx context.Context, id uuid.UUID, preferenceID string) error

	// ResolveStatusIf moves the session out of the expected status in one
	// conditional write and reports whether this caller won the write.
	ResolveStatusIf(ctx context.Context, id uuid.UUID, expected, next enums.PaymentStatus, externalPaymentID *string) (bool, error)

	// SetOrderID backfills the order reference only once.
	SetOrderID(ctx context.Context, id uuid.UUID, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, session *models.CheckoutSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByPreferenceID(ctx context.Context, preferenceID string) (*models.CheckoutSession, error) {
	return r.findOne(ctx, "preference_id = ?", preferenceID)
}

func (r *repository) FindByExternalPaymentID(ctx context.Context, paymentID string) (*models.CheckoutSession, error) {
	return r.findOne(ctx, "external_payment_id = ?", paymentID)
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.CheckoutSession, error) {
	return r.findOne(ctx, "external_reference = ?", reference)
}

func (r *repository) SetPreferenceID(ctx context.Context, id uuid.UUID, preferenceID string) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ?", id).
		Update("preference_id", preferenceID).Error
}

func (r *repository) ResolveStatusIf(ctx context.Context, id uuid.UUID, expected, next enums.PaymentStatus, externalPaymentID *string) (bool, error) {
	updates := map[string]any{"payment_status": next}
	if externalPaymentID != nil {
		updates["external_payment_id"] = externalPaymentID
	}
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND payment_status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SetOrderID(ctx context.Context, id uuid.UUID, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND order_id IS NULL", id).
		Update("order_id", orderID).Error
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).Where(query, arg).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}
