package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendlyhq/vendly-backend/pkg/enums"
)

type stubPublisher struct {
	messages   [][]byte
	attributes []map[string]string
	err        error
}

func (s *stubPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, data)
	s.attributes = append(s.attributes, attributes)
	return nil
}

func TestSubscriptionStatusChanged(t *testing.T) {
	pub := &stubPublisher{}
	d := NewDispatcher(pub, nil)
	storeID := uuid.New()

	err := d.SubscriptionStatusChanged(context.Background(), storeID, enums.SubscriptionStatusTrialing, enums.SubscriptionStatusActive)
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	var evt map[string]any
	require.NoError(t, json.Unmarshal(pub.messages[0], &evt))
	assert.Equal(t, "subscription.status_changed", evt["kind"])
	assert.Equal(t, storeID.String(), evt["store_id"])
	assert.Equal(t, "trialing", evt["from_status"])
	assert.Equal(t, "active", evt["to_status"])
	assert.Equal(t, "subscription.status_changed", pub.attributes[0]["kind"])
}

func TestCheckoutCompleted(t *testing.T) {
	pub := &stubPublisher{}
	d := NewDispatcher(pub, nil)
	storeID, sessionID, orderID := uuid.New(), uuid.New(), uuid.New()

	err := d.CheckoutCompleted(context.Background(), storeID, sessionID, orderID)
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	var evt map[string]any
	require.NoError(t, json.Unmarshal(pub.messages[0], &evt))
	assert.Equal(t, "checkout.completed", evt["kind"])
	assert.Equal(t, sessionID.String(), evt["session_id"])
	assert.Equal(t, orderID.String(), evt["order_id"])
}

func TestPublishErrorsPropagate(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker unavailable")}
	d := NewDispatcher(pub, nil)

	err := d.SubscriptionStatusChanged(context.Background(), uuid.New(), enums.SubscriptionStatusActive, enums.SubscriptionStatusPaused)
	assert.Error(t, err)
}

func TestNilPublisherIsNoOp(t *testing.T) {
	d := NewDispatcher(nil, nil)
	err := d.SubscriptionStatusChanged(context.Background(), uuid.New(), enums.SubscriptionStatusActive, enums.SubscriptionStatusPaused)
	assert.NoError(t, err)
}
