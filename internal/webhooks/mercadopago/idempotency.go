package mpwebhook

import (
	"context"
	"time"

	"github.com/vendlyhq/vendly-backend/pkg/logger"
	"github.com/vendlyhq/vendly-backend/pkg/redis"
)

const idempotencyScope = "mp-webhook"

// IdempotencyGuard is the fast-path duplicate filter in front of the durable
// ledger. Redis outages fail open: the ledger still rejects replays, the
// guard only saves the round trip.
type IdempotencyGuard struct {
	client *redis.Client
	ttl    time.Duration
	logg   *logger.Logger
}

func NewIdempotencyGuard(client *redis.Client, ttl time.Duration, logg *logger.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{client: client, ttl: ttl, logg: logg}
}

// CheckAndMark claims the delivery key. It returns false when another
// delivery already claimed it within the TTL.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventType, providerID string) bool {
	if g == nil || g.client == nil {
		return true
	}
	key := g.client.IdempotencyKey(idempotencyScope, eventType+":"+providerID)
	ok, err := g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		if g.logg != nil {
			g.logg.Warn(ctx, "idempotency guard unavailable, deferring to ledger")
		}
		return true
	}
	return ok
}

// Release frees the key after a processing failure so the redelivery is not
// filtered out before the work actually happened.
func (g *IdempotencyGuard) Release(ctx context.Context, eventType, providerID string) {
	if g == nil || g.client == nil {
		return
	}
	key := g.client.IdempotencyKey(idempotencyScope, eventType+":"+providerID)
	if err := g.client.Del(ctx, key); err != nil && g.logg != nil {
		g.logg.Warn(ctx, "failed to release idempotency key")
	}
}
