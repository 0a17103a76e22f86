package razorpay

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

	"github.com/urbankart/storefront-backend/pkg/config"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/logger"
)

const (
	defaultBaseURL = "https://api.razorpay.com"
	ordersPath     = "/v1/orders"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired    = errors.New("razorpay logger is required")
)

// Client exposes the Razorpay Orders API with centralized auth, logging, and
// error mapping. Razorpay ships no official Go SDK, so this wraps the REST
// surface directly.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
	logger     *logger.Logger
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	if !strings.HasPrefix(keyID, "rzp_") {
		return nil, fmt.Errorf("razorpay key id must start with rzp_ (test or live)")
	}

	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		logger:     logg,
	}

	logg.Info(ctx, "razorpay client initialized")
	return c, nil
}

// KeyID returns the public key identifier handed to browser checkout.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// Order is the provider-side order created for a payment session.
type Order struct {
	ID          string `json:"id"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// CreateOrder registers a payment session for the given amount.
func (c *Client) CreateOrder(ctx context.Context, params OrderCreateParams) (*Order, error) {
	body, err := params.requestBody()
	if err != nil {
		return nil, err
	}

	c.log(ctx, "request", "create_order", map[string]any{
		"receipt":      params.Receipt,
		"amount_paise": body.Amount,
		"currency":     body.Currency,
	})

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay create order failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay read response failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := c.decodeError(resp.StatusCode, raw)
		c.log(ctx, "error", "create_order", map[string]any{"error": apiErr.Error()})
		return nil, apiErr
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "razorpay decode order failed")
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"razorpay_order_id": order.ID,
		"status":            order.Status,
	})
	return &order, nil
}

func (c *Client) decodeError(status int, raw []byte) error {
	var payload struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	description := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Description != "" {
		description = payload.Error.Description
	}
	return pkgerrors.Wrap(domainCodeForStatus(status), fmt.Errorf("razorpay: %s", description), "razorpay create order failed")
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("razorpay %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("razorpay %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "card", "email", "phone", "contact"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
