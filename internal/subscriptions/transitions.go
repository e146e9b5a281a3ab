package subscriptions

import "github.com/vendlyhq/vendly-backend/pkg/enums"

// StatusNone is the pseudo-state for a store with no subscription row. It
// never hits the database; it only participates in the transition table.
const StatusNone enums.SubscriptionStatus = "none"

// legalTransitions is the single transition table consulted by both the
// webhook reconciliation path and the direct user-action path. Anything not
// listed here is illegal.
var legalTransitions = map[enums.SubscriptionStatus][]enums.SubscriptionStatus{
	StatusNone: {
		enums.SubscriptionStatusTrialing,
		enums.SubscriptionStatusActive,
	},
	enums.SubscriptionStatusTrialing: {
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusPastDue,
		enums.SubscriptionStatusCancelled,
	},
	enums.SubscriptionStatusActive: {
		enums.SubscriptionStatusPaused,
		enums.SubscriptionStatusPastDue,
		enums.SubscriptionStatusCancelled,
	},
	enums.SubscriptionStatusPaused: {
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusCancelled,
	},
	enums.SubscriptionStatusPastDue: {
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusCancelled,
	},
	enums.SubscriptionStatusCancelled: {},
}

// CanTransition reports whether moving from one status to another is legal.
// A self-transition is treated as a no-op and is never legal; callers decide
// whether that means "already done" or "conflict".
func CanTransition(from, to enums.SubscriptionStatus) bool {
	for _, candidate := range legalTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsActiveStatus reports whether the status grants storefront access on its
// own. Trialing access additionally depends on the trial deadline and is
// decided by the service, not here.
func IsActiveStatus(status enums.SubscriptionStatus) bool {
	return status == enums.SubscriptionStatusActive
}
