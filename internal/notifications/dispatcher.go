package notifications

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/vendlyhq/vendly-backend/pkg/enums"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
)

// Publisher is the Pub/Sub surface the dispatcher needs. *pubsub.Publisher
// satisfies it through the adapter below.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// TopicPublisher adapts a Pub/Sub v2 publisher to the Publisher interface,
// blocking until the server acknowledges the message.
type TopicPublisher struct {
	publisher *pubsub.Publisher
}

func NewTopicPublisher(publisher *pubsub.Publisher) *TopicPublisher {
	return &TopicPublisher{publisher: publisher}
}

func (t *TopicPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	if t == nil || t.publisher == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "notification publisher not configured")
	}
	result := t.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	if _, err := result.Get(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish notification")
	}
	return nil
}

// event is the wire shape downstream notification consumers receive.
type event struct {
	Kind       string    `json:"kind"`
	StoreID    string    `json:"store_id"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Dispatcher publishes billing lifecycle events for downstream consumers
// (emails, WhatsApp alerts). Publishing is best effort; callers log failures
// and move on.
type Dispatcher struct {
	publisher Publisher
	logg      *logger.Logger
}

func NewDispatcher(publisher Publisher, logg *logger.Logger) *Dispatcher {
	return &Dispatcher{publisher: publisher, logg: logg}
}

// SubscriptionStatusChanged announces a subscription transition.
func (d *Dispatcher) SubscriptionStatusChanged(ctx context.Context, storeID uuid.UUID, from, to enums.SubscriptionStatus) error {
	return d.publish(ctx, event{
		Kind:       "subscription.status_changed",
		StoreID:    storeID.String(),
		FromStatus: string(from),
		ToStatus:   string(to),
		OccurredAt: time.Now().UTC(),
	})
}

// CheckoutCompleted announces a resolved checkout with its order.
func (d *Dispatcher) CheckoutCompleted(ctx context.Context, storeID, sessionID, orderID uuid.UUID) error {
	return d.publish(ctx, event{
		Kind:       "checkout.completed",
		StoreID:    storeID.String(),
		SessionID:  sessionID.String(),
		OrderID:    orderID.String(),
		OccurredAt: time.Now().UTC(),
	})
}

func (d *Dispatcher) publish(ctx context.Context, evt event) error {
	if d == nil || d.publisher == nil {
		return nil
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode notification")
	}
	attrs := map[string]string{
		"kind":     evt.Kind,
		"store_id": evt.StoreID,
	}
	if err := d.publisher.Publish(ctx, data, attrs); err != nil {
		if d.logg != nil {
			d.logg.Error(ctx, "notification publish failed", err)
		}
		return err
	}
	return nil
}
