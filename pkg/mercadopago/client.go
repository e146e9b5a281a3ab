package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vendlyhq/vendly-backend/pkg/config"
	pkgerrors "github.com/vendlyhq/vendly-backend/pkg/errors"
	"github.com/vendlyhq/vendly-backend/pkg/logger"
)

var (
	errAccessTokenRequired   = errors.New("mercadopago access token is required")
	errWebhookSecretRequired = errors.New("mercadopago webhook secret is required")
	errLoggerRequired        = errors.New("mercadopago logger is required")
)

const defaultTimeout = 10 * time.Second

// Client exposes the MercadoPago primitives the platform uses: checkout
// preference creation and pull-based lookups for payments, merchant orders and
// preapproval subscriptions.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	accessToken   string
	webhookSecret string
	logger        *logger.Logger
}

// NewClient initializes the MercadoPago wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.MercadoPagoConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		accessToken:   accessToken,
		webhookSecret: webhookSecret,
		logger:        logg,
	}

	logg.Info(ctx, "mercadopago client initialized")
	return c, nil
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// CreatePreference registers a checkout preference carrying the external
// reference the processor echoes back in callbacks.
func (c *Client) CreatePreference(ctx context.Context, params *PreferenceParams) (*Preference, error) {
	if params == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference params required")
	}
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", params, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

// GetPayment fetches a payment by its processor-assigned id.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetMerchantOrder fetches a merchant order by its processor-assigned id.
func (c *Client) GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant order id required")
	}
	var order MerchantOrder
	if err := c.do(ctx, http.MethodGet, "/merchant_orders/"+id, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPreapproval fetches a preapproval subscription by its processor id.
func (c *Client) GetPreapproval(ctx context.Context, id string) (*Preapproval, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preapproval id required")
	}
	var pre Preapproval
	if err := c.do(ctx, http.MethodGet, "/preapproval/"+id, nil, &pre); err != nil {
		return nil, err
	}
	return &pre, nil
}

// UpdatePreapprovalStatus asks the processor to move a preapproval to the
// given status (authorized, paused or cancelled).
func (c *Client) UpdatePreapprovalStatus(ctx context.Context, id, status string) (*Preapproval, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preapproval id required")
	}
	body := map[string]string{"status": status}
	var pre Preapproval
	if err := c.do(ctx, http.MethodPut, "/preapproval/"+id, body, &pre); err != nil {
		return nil, err
	}
	return &pre, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call mercadopago")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read mercadopago response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("mercadopago resource %s not found", path))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp.StatusCode, raw)
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mercadopago response")
	}
	return nil
}

func decodeAPIError(status int, raw []byte) error {
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(raw, &apiErr)
	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Error
	}
	if msg == "" {
		msg = fmt.Sprintf("mercadopago returned status %d", status)
	}
	return pkgerrors.New(pkgerrors.CodeDependency, msg).WithDetails(map[string]any{"status": status})
}
