package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vendlyhq/vendly-backend/pkg/db"
	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
)

// Service materializes orders out of completed checkout sessions.
type Service interface {
	// CreateFromSession creates the order for a completed session, or returns
	// the existing one when a concurrent delivery got there first.
	CreateFromSession(ctx context.Context, tx *gorm.DB, session *models.CheckoutSession, total decimal.Decimal, currency string) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repo required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateFromSession(ctx context.Context, tx *gorm.DB, session *models.CheckoutSession, total decimal.Decimal, currency string) (*models.Order, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session required")
	}
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	order := &models.Order{
		StoreID:           session.StoreID,
		CheckoutSessionID: session.ID,
		Total:             total,
		Currency:          currency,
	}
	err := repo.Create(ctx, order)
	if err == nil {
		return order, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	existing, ferr := repo.FindByCheckoutSessionID(ctx, session.ID)
	if ferr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "lookup existing order")
	}
	if existing == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}
	return existing, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
