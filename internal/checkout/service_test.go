package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vendlyhq/vendly-backend/internal/plans"
	"github.com/vendlyhq/vendly-backend/pkg/db/models"
	"github.com/vendlyhq/vendly-backend/pkg/enums"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/mercadopago"
)

type stubSessionRepo struct {
	byID        map[uuid.UUID]*models.CheckoutSession
	byPref      map[string]*models.CheckoutSession
	byPayment   map[string]*models.CheckoutSession
	byReference map[string]*models.CheckoutSession
	resolved    []uuid.UUID
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{
		byID:        map[uuid.UUID]*models.CheckoutSession{},
		byPref:      map[string]*models.CheckoutSession{},
		byPayment:   map[string]*models.CheckoutSession{},
		byReference: map[string]*models.CheckoutSession{},
	}
}

func (s *stubSessionRepo) put(session *models.CheckoutSession) {
	s.byID[session.ID] = session
	s.byReference[session.ExternalReference] = session
	if session.PreferenceID != nil {
		s.byPref[*session.PreferenceID] = session
	}
	if session.ExternalPaymentID != nil {
		s.byPayment[*session.ExternalPaymentID] = session
	}
}

func (s *stubSessionRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubSessionRepo) Create(ctx context.Context, session *models.CheckoutSession) error {
	session.ID = uuid.New()
	if session.PaymentStatus == "" {
		session.PaymentStatus = enums.PaymentStatusPending
	}
	s.put(session)
	return nil
}

func (s *stubSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	return s.byID[id], nil
}

func (s *stubSessionRepo) FindByPreferenceID(ctx context.Context, preferenceID string) (*models.CheckoutSession, error) {
	return s.byPref[preferenceID], nil
}

func (s *stubSessionRepo) FindByExternalPaymentID(ctx context.Context, paymentID string) (*models.CheckoutSession, error) {
	return s.byPayment[paymentID], nil
}

func (s *stubSessionRepo) FindByReference(ctx context.Context, reference string) (*models.CheckoutSession, error) {
	return s.byReference[reference], nil
}

func (s *stubSessionRepo) SetPreferenceID(ctx context.Context, id uuid.UUID, preferenceID string) error {
	if session, ok := s.byID[id]; ok {
		session.PreferenceID = &preferenceID
		s.byPref[preferenceID] = session
	}
	return nil
}

func (s *stubSessionRepo) ResolveStatusIf(ctx context.Context, id uuid.UUID, expected, next enums.PaymentStatus, externalPaymentID *string) (bool, error) {
	session, ok := s.byID[id]
	if !ok || session.PaymentStatus != expected {
		return false, nil
	}
	session.PaymentStatus = next
	if externalPaymentID != nil {
		session.ExternalPaymentID = externalPaymentID
		s.byPayment[*externalPaymentID] = session
	}
	s.resolved = append(s.resolved, id)
	return true, nil
}

func (s *stubSessionRepo) SetOrderID(ctx context.Context, id uuid.UUID, orderID uuid.UUID) error {
	if session, ok := s.byID[id]; ok && session.OrderID == nil {
		session.OrderID = &orderID
	}
	return nil
}

type stubCheckoutPlanRepo struct {
	plans map[string]*models.Plan
}

func (s *stubCheckoutPlanRepo) WithTx(tx *gorm.DB) plans.Repository { return s }

func (s *stubCheckoutPlanRepo) Create(ctx context.Context, plan *models.Plan) error { return nil }

func (s *stubCheckoutPlanRepo) ListActive(ctx context.Context) ([]models.Plan, error) {
	return nil, nil
}

func (s *stubCheckoutPlanRepo) FindByID(ctx context.Context, id string) (*models.Plan, error) {
	return nil, nil
}

func (s *stubCheckoutPlanRepo) FindByName(ctx context.Context, name string) (*models.Plan, error) {
	return s.plans[name], nil
}

func (s *stubCheckoutPlanRepo) SetActive(ctx context.Context, id string, active bool) error {
	return nil
}

type stubCheckoutStoreRepo struct {
	stores map[uuid.UUID]*models.Store
}

func (s *stubCheckoutStoreRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return s.stores[id], nil
}

func (s *stubCheckoutStoreRepo) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Store, error) {
	return s.stores[id], nil
}

func (s *stubCheckoutStoreRepo) UpdateSubscriptionActiveWithTx(tx *gorm.DB, storeID uuid.UUID, active bool) error {
	return nil
}

type stubPreferenceCreator struct {
	requests []*mercadopago.PreferenceParams
	err      error
}

func (s *stubPreferenceCreator) CreatePreference(ctx context.Context, params *mercadopago.PreferenceParams) (*mercadopago.Preference, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.requests = append(s.requests, params)
	return &mercadopago.Preference{
		ID:                "pref_1",
		InitPoint:         "https://checkout.example/pref_1",
		ExternalReference: params.ExternalReference,
	}, nil
}

type checkoutFixture struct {
	svc       Service
	repo      *stubSessionRepo
	planRepo  *stubCheckoutPlanRepo
	storeRepo *stubCheckoutStoreRepo
	processor *stubPreferenceCreator
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		repo:      newStubSessionRepo(),
		planRepo:  &stubCheckoutPlanRepo{plans: map[string]*models.Plan{}},
		storeRepo: &stubCheckoutStoreRepo{stores: map[uuid.UUID]*models.Store{}},
		processor: &stubPreferenceCreator{},
	}
	svc, err := NewService(ServiceParams{
		Repo:            f.repo,
		PlanRepo:        f.planRepo,
		StoreRepo:       f.storeRepo,
		Processor:       f.processor,
		NotificationURL: "https://api.example/api/v1/webhooks/mercadopago",
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *checkoutFixture) seedStoreAndPlan() (uuid.UUID, *models.Plan) {
	storeID := uuid.New()
	f.storeRepo.stores[storeID] = &models.Store{ID: storeID}
	plan := &models.Plan{
		ID:          "plan_growth",
		Name:        "growth",
		DisplayName: "Growth",
		Price:       decimal.NewFromInt(4999),
		Currency:    "ARS",
		Active:      true,
	}
	f.planRepo.plans[plan.Name] = plan
	return storeID, plan
}

func TestCreateSession(t *testing.T) {
	f := newCheckoutFixture(t)
	storeID, plan := f.seedStoreAndPlan()

	created, err := f.svc.CreateSession(context.Background(), storeID, plan.Name)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/pref_1", created.CheckoutURL)

	session := f.repo.byID[created.SessionID]
	require.NotNil(t, session)
	assert.Equal(t, enums.PaymentStatusPending, session.PaymentStatus)
	require.NotNil(t, session.PreferenceID)
	assert.Equal(t, "pref_1", *session.PreferenceID)

	ref, err := ParseReference(session.ExternalReference)
	require.NoError(t, err)
	assert.Equal(t, storeID, ref.StoreID)
	assert.Equal(t, plan.Name, ref.PlanName)

	require.Len(t, f.processor.requests, 1)
	req := f.processor.requests[0]
	assert.Equal(t, session.ExternalReference, req.ExternalReference)
	assert.Equal(t, "https://api.example/api/v1/webhooks/mercadopago", req.NotificationURL)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "Growth", req.Items[0].Title)
	assert.True(t, req.Items[0].UnitPrice.Equal(plan.Price))
}

func TestCreateSessionUnknownPlan(t *testing.T) {
	f := newCheckoutFixture(t)
	storeID := uuid.New()
	f.storeRepo.stores[storeID] = &models.Store{ID: storeID}

	_, err := f.svc.CreateSession(context.Background(), storeID, "ghost")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateSessionInactivePlan(t *testing.T) {
	f := newCheckoutFixture(t)
	storeID, plan := f.seedStoreAndPlan()
	plan.Active = false

	_, err := f.svc.CreateSession(context.Background(), storeID, plan.Name)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateSessionProcessorFailure(t *testing.T) {
	f := newCheckoutFixture(t)
	storeID, plan := f.seedStoreAndPlan()
	f.processor.err = pkgerrors.New(pkgerrors.CodeDependency, "processor down")

	_, err := f.svc.CreateSession(context.Background(), storeID, plan.Name)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestMarkCompletedOnce(t *testing.T) {
	f := newCheckoutFixture(t)
	session := &models.CheckoutSession{StoreID: uuid.New(), ExternalReference: "ref", PaymentStatus: enums.PaymentStatusPending}
	require.NoError(t, f.repo.Create(context.Background(), session))

	applied, err := f.svc.MarkCompleted(context.Background(), session.ID, "pay_1")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, enums.PaymentStatusCompleted, session.PaymentStatus)
	require.NotNil(t, session.ExternalPaymentID)
	assert.Equal(t, "pay_1", *session.ExternalPaymentID)

	// Replay: the session is already resolved, nothing changes.
	applied, err = f.svc.MarkCompleted(context.Background(), session.ID, "pay_1")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestMarkFailedDoesNotOverrideCompleted(t *testing.T) {
	f := newCheckoutFixture(t)
	session := &models.CheckoutSession{StoreID: uuid.New(), ExternalReference: "ref", PaymentStatus: enums.PaymentStatusPending}
	require.NoError(t, f.repo.Create(context.Background(), session))

	_, err := f.svc.MarkCompleted(context.Background(), session.ID, "pay_1")
	require.NoError(t, err)

	applied, err := f.svc.MarkFailed(context.Background(), session.ID, "pay_2")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, enums.PaymentStatusCompleted, session.PaymentStatus)
}

func TestResolveSessionPrefersPaymentID(t *testing.T) {
	f := newCheckoutFixture(t)
	payID := "pay_9"
	byPayment := &models.CheckoutSession{StoreID: uuid.New(), ExternalReference: "ref_a", ExternalPaymentID: &payID}
	require.NoError(t, f.repo.Create(context.Background(), byPayment))
	f.repo.put(byPayment)

	byRef := &models.CheckoutSession{StoreID: uuid.New(), ExternalReference: "ref_b"}
	require.NoError(t, f.repo.Create(context.Background(), byRef))

	got, err := f.svc.ResolveSession(context.Background(), payID, "", "ref_b")
	require.NoError(t, err)
	assert.Equal(t, byPayment.ID, got.ID)
}

func TestResolveSessionFallsBackToReference(t *testing.T) {
	f := newCheckoutFixture(t)
	session := &models.CheckoutSession{StoreID: uuid.New(), ExternalReference: "ref_c"}
	require.NoError(t, f.repo.Create(context.Background(), session))

	got, err := f.svc.ResolveSession(context.Background(), "pay_missing", "pref_missing", "ref_c")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)
}

func TestResolveSessionUnresolved(t *testing.T) {
	f := newCheckoutFixture(t)

	got, err := f.svc.ResolveSession(context.Background(), "pay_x", "pref_x", "ref_x")
	require.NoError(t, err)
	assert.Nil(t, got)
}
