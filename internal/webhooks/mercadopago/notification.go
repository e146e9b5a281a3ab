package mpwebhook

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/vendlyhq/vendly-backend/pkg/enums"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
)

// Notification is the inbound callback envelope. The processor sends two
// shapes: the current one with type/action/data.id and a notification id,
// and the legacy topic format carrying a resource URL. Both normalize here.
type Notification struct {
	ID          flexString `json:"id"`
	Type        string     `json:"type"`
	Topic       string     `json:"topic"`
	Action      string     `json:"action"`
	LiveMode    bool       `json:"live_mode"`
	DateCreated time.Time  `json:"date_created"`
	Resource    string     `json:"resource"`
	Data        struct {
		ID flexString `json:"id"`
	} `json:"data"`

	raw json.RawMessage
}

// flexString tolerates the processor flip-flopping between JSON numbers and
// strings for ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// ParseNotification decodes and normalizes a webhook body.
func ParseNotification(body []byte) (*Notification, error) {
	var notif Notification
	if err := json.Unmarshal(body, &notif); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook body")
	}
	notif.raw = append(json.RawMessage(nil), body...)
	return &notif, nil
}

// EventType maps the envelope's type or legacy topic to a known event family.
func (n *Notification) EventType() (enums.WebhookEventType, bool) {
	name := n.Type
	if name == "" {
		name = n.Topic
	}
	eventType, err := enums.ParseWebhookEventType(name)
	if err != nil {
		return "", false
	}
	return eventType, true
}

// ResourceID is the processor-side id of the resource to fetch.
func (n *Notification) ResourceID() string {
	if id := strings.TrimSpace(string(n.Data.ID)); id != "" {
		return id
	}
	// Legacy topic format carries a resource URL; the id is the last segment.
	resource := strings.TrimRight(strings.TrimSpace(n.Resource), "/")
	if resource == "" {
		return ""
	}
	if idx := strings.LastIndex(resource, "/"); idx >= 0 {
		return resource[idx+1:]
	}
	return resource
}

// DeliveryID keys the dedup ledger. The notification id is unique per
// delivery; legacy notifications without one fall back to the resource id.
func (n *Notification) DeliveryID() string {
	if id := strings.TrimSpace(string(n.ID)); id != "" {
		return id
	}
	return n.ResourceID()
}

// Raw returns the original body for the ledger payload column.
func (n *Notification) Raw() json.RawMessage {
	return n.raw
}
