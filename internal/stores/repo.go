package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendlyhq/vendly-backend/pkg/db/models"
)

// Repository handles store persistence for the billing core.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Store, error)
	UpdateSubscriptionActiveWithTx(tx *gorm.DB, storeID uuid.UUID, active bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a store repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := tx.First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) UpdateSubscriptionActiveWithTx(tx *gorm.DB, storeID uuid.UUID, active bool) error {
	return tx.Model(&models.Store{}).
		Where("id = ?", storeID).
		Update("subscription_active", active).Error
}
