package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
)

type stubOrderRepo struct {
	bySession map[uuid.UUID]*models.Order
	createErr error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{bySession: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.bySession[order.CheckoutSessionID]; exists {
		return errors.New(`duplicate key value violates unique constraint "idx_orders_checkout_session_id"`)
	}
	order.ID = uuid.New()
	s.bySession[order.CheckoutSessionID] = order
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	for _, order := range s.bySession {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, nil
}

func (s *stubOrderRepo) FindByCheckoutSessionID(ctx context.Context, sessionID uuid.UUID) (*models.Order, error) {
	return s.bySession[sessionID], nil
}

func TestCreateFromSession(t *testing.T) {
	repo := newStubOrderRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	session := &models.CheckoutSession{ID: uuid.New(), StoreID: uuid.New()}
	total := decimal.NewFromInt(4999)

	order, err := svc.CreateFromSession(context.Background(), nil, session, total, "ARS")
	require.NoError(t, err)
	assert.Equal(t, session.ID, order.CheckoutSessionID)
	assert.Equal(t, session.StoreID, order.StoreID)
	assert.True(t, order.Total.Equal(total))
}

func TestCreateFromSessionIsIdempotent(t *testing.T) {
	repo := newStubOrderRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	session := &models.CheckoutSession{ID: uuid.New(), StoreID: uuid.New()}
	total := decimal.NewFromInt(4999)

	first, err := svc.CreateFromSession(context.Background(), nil, session, total, "ARS")
	require.NoError(t, err)

	second, err := svc.CreateFromSession(context.Background(), nil, session, total, "ARS")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateFromSessionSurfacesOtherErrors(t *testing.T) {
	repo := newStubOrderRepo()
	repo.createErr = errors.New("connection refused")
	svc, err := NewService(repo)
	require.NoError(t, err)

	session := &models.CheckoutSession{ID: uuid.New(), StoreID: uuid.New()}
	_, err = svc.CreateFromSession(context.Background(), nil, session, decimal.Zero, "ARS")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
