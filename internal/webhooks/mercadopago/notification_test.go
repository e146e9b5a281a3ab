package mpwebhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendlyhq/vendly-backend/pkg/enums"
)

func TestParseCurrentFormat(t *testing.T) {
	body := []byte(`{
		"id": 12345,
		"type": "payment",
		"action": "payment.updated",
		"live_mode": true,
		"date_created": "2026-08-20T10:00:00Z",
		"data": {"id": "999111"}
	}`)

	notif, err := ParseNotification(body)
	require.NoError(t, err)

	eventType, ok := notif.EventType()
	require.True(t, ok)
	assert.Equal(t, enums.WebhookEventPayment, eventType)
	assert.Equal(t, "999111", notif.ResourceID())
	assert.Equal(t, "12345", notif.DeliveryID())
	assert.Equal(t, "payment.updated", notif.Action)
	assert.True(t, notif.LiveMode)
}

func TestParseLegacyTopicFormat(t *testing.T) {
	body := []byte(`{
		"topic": "merchant_order",
		"resource": "https://api.mercadolibre.com/merchant_orders/5808"
	}`)

	notif, err := ParseNotification(body)
	require.NoError(t, err)

	eventType, ok := notif.EventType()
	require.True(t, ok)
	assert.Equal(t, enums.WebhookEventMerchantOrder, eventType)
	assert.Equal(t, "5808", notif.ResourceID())
	assert.Equal(t, "5808", notif.DeliveryID())
}

func TestParseStringIDs(t *testing.T) {
	body := []byte(`{"id": "abc-1", "type": "subscription_preapproval", "data": {"id": 42}}`)

	notif, err := ParseNotification(body)
	require.NoError(t, err)

	eventType, ok := notif.EventType()
	require.True(t, ok)
	assert.Equal(t, enums.WebhookEventPreapproval, eventType)
	assert.Equal(t, "42", notif.ResourceID())
	assert.Equal(t, "abc-1", notif.DeliveryID())
}

func TestUnknownTypeIsNotAnError(t *testing.T) {
	notif, err := ParseNotification([]byte(`{"type": "point_integration_wh", "data": {"id": "1"}}`))
	require.NoError(t, err)

	_, ok := notif.EventType()
	assert.False(t, ok)
}

func TestParseRejectsMalformedBody(t *testing.T) {
	_, err := ParseNotification([]byte(`{"type": `))
	assert.Error(t, err)
}
