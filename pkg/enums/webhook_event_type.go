package enums

import "fmt"

// WebhookEventType names the payment processor event families we reconcile.
type WebhookEventType string

const (
	WebhookEventPayment       WebhookEventType = "payment"
	WebhookEventMerchantOrder WebhookEventType = "merchant_order"
	WebhookEventPreapproval   WebhookEventType = "subscription_preapproval"
)

var validWebhookEventTypes = []WebhookEventType{
	WebhookEventPayment,
	WebhookEventMerchantOrder,
	WebhookEventPreapproval,
}

// String implements fmt.Stringer.
func (w WebhookEventType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WebhookEventType.
func (w WebhookEventType) IsValid() bool {
	for _, candidate := range validWebhookEventTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWebhookEventType converts raw input into a WebhookEventType.
func ParseWebhookEventType(value string) (WebhookEventType, error) {
	for _, candidate := range validWebhookEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook event type %q", value)
}
