package mercadopago

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses the processor reports. Anything not listed here is treated
// as non-final and ignored by the reconciler.
const (
	PaymentStatusApproved  = "approved"
	PaymentStatusPending   = "pending"
	PaymentStatusInProcess = "in_process"
	PaymentStatusRejected  = "rejected"
	PaymentStatusCancelled = "cancelled"
	PaymentStatusExpired   = "expired"
	PaymentStatusRefunded  = "refunded"
)

// Preapproval statuses.
const (
	PreapprovalStatusPending    = "pending"
	PreapprovalStatusAuthorized = "authorized"
	PreapprovalStatusPaused     = "paused"
	PreapprovalStatusCancelled  = "cancelled"
)

// PreferenceParams is the request body for checkout preference creation.
type PreferenceParams struct {
	Items             []PreferenceItem  `json:"items"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// PreferenceItem is one line of an outbound checkout preference.
type PreferenceItem struct {
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CurrencyID string          `json:"currency_id"`
}

// Preference is the processor's response to preference creation.
type Preference struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

// Payment is the processor's payment resource.
type Payment struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	DateCreated       time.Time       `json:"date_created"`
	DateApproved      *time.Time      `json:"date_approved"`
}

// MerchantOrder groups the payments behind one checkout preference.
type MerchantOrder struct {
	ID                int64     `json:"id"`
	Status            string    `json:"status"`
	OrderStatus       string    `json:"order_status"`
	ExternalReference string    `json:"external_reference"`
	PreferenceID      string    `json:"preference_id"`
	Payments          []Payment `json:"payments"`
}

// Preapproval is the processor's recurring subscription resource.
type Preapproval struct {
	ID                string         `json:"id"`
	Status            string         `json:"status"`
	Reason            string         `json:"reason"`
	ExternalReference string         `json:"external_reference"`
	PayerID           int64          `json:"payer_id"`
	NextPaymentDate   *time.Time     `json:"next_payment_date"`
	DateCreated       time.Time      `json:"date_created"`
	AutoRecurring     *AutoRecurring `json:"auto_recurring"`
}

// AutoRecurring describes the billing cycle of a preapproval.
type AutoRecurring struct {
	Frequency         int             `json:"frequency"`
	FrequencyType     string          `json:"frequency_type"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	StartDate         *time.Time      `json:"start_date"`
	EndDate           *time.Time      `json:"end_date"`
}

// IsApproved reports whether the payment settled successfully.
func (p Payment) IsApproved() bool {
	return p.Status == PaymentStatusApproved
}

// IsFailure reports whether the payment terminally failed.
func (p Payment) IsFailure() bool {
	switch p.Status {
	case PaymentStatusRejected, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// CycleBounds derives the current billing period from the preapproval cadence.
// The period starts now and runs one cycle forward; the processor does not
// report explicit period bounds on the preapproval resource.
func (p Preapproval) CycleBounds(now time.Time) (time.Time, time.Time) {
	start := now
	if p.NextPaymentDate != nil && p.NextPaymentDate.After(now) {
		return start, *p.NextPaymentDate
	}
	if p.AutoRecurring == nil {
		return start, start.AddDate(0, 1, 0)
	}
	freq := p.AutoRecurring.Frequency
	if freq <= 0 {
		freq = 1
	}
	switch p.AutoRecurring.FrequencyType {
	case "days":
		return start, start.AddDate(0, 0, freq)
	case "years":
		return start, start.AddDate(freq, 0, 0)
	default:
		return start, start.AddDate(0, freq, 0)
	}
}
