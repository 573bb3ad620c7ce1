package moyasar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sayyara-app/sayyara-backend/pkg/config"
	pkgerrors "github.com/sayyara-app/sayyara-backend/pkg/errors"
	"github.com/sayyara-app/sayyara-backend/pkg/logger"
)

// Payment statuses reported by the gateway.
const (
	StatusInitiated  = "initiated"
	StatusPaid       = "paid"
	StatusFailed     = "failed"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusRefunded   = "refunded"
	StatusVoided     = "voided"
)

var (
	errSecretKeyRequired = errors.New("moyasar secret key is required")
	errLoggerRequired    = errors.New("moyasar logger is required")
)

// Payment is the subset of the gateway payment resource the engine consumes.
// Amount is in halalas (minor units).
type Payment struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Source      json.RawMessage `json:"source"`
	CreatedAt   string          `json:"created_at"`
	raw         json.RawMessage
}

// Paid reports whether the gateway considers the payment settled.
func (p *Payment) Paid() bool {
	return p != nil && (p.Status == StatusPaid || p.Status == StatusCaptured)
}

// Raw returns the full gateway response body for audit storage.
func (p *Payment) Raw() json.RawMessage {
	if p == nil {
		return nil
	}
	return p.raw
}

// Verifier is the surface the fee subsystem depends on. Payment references
// submitted by clients are never trusted; they are re-fetched server side.
type Verifier interface {
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// Client is a thin wrapper over the Moyasar REST API with centralized auth,
// logging, and error mapping.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	currency   string
	logger     *logger.Logger
}

// NewClient validates credentials and builds the gateway wrapper.
func NewClient(ctx context.Context, cfg config.MoyasarConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.moyasar.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		secretKey:  secret,
		currency:   strings.ToUpper(strings.TrimSpace(cfg.Currency)),
		logger:     logg,
	}
	logg.Info(ctx, "moyasar client initialized")
	return c, nil
}

// Currency returns the configured settlement currency.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// FetchPayment retrieves a payment by id from the gateway.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	endpoint := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, url.PathEscape(paymentID))
	c.log(ctx, "request", "fetch_payment", map[string]any{"payment_id": paymentID})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building moyasar request")
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "fetch_payment", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "moyasar fetch payment failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading moyasar response")
	}

	if resp.StatusCode != http.StatusOK {
		c.log(ctx, "error", "fetch_payment", map[string]any{
			"error":  gatewayMessage(body),
			"status": resp.StatusCode,
		})
		return nil, c.mapGatewayError(resp.StatusCode, body)
	}

	payment := &Payment{}
	if err := json.Unmarshal(body, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding moyasar payment")
	}
	payment.raw = json.RawMessage(body)

	c.log(ctx, "response", "fetch_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
		"amount":     payment.Amount,
	})
	return payment, nil
}

func (c *Client) mapGatewayError(status int, body []byte) error {
	msg := gatewayMessage(body)
	cause := fmt.Errorf("moyasar responded %d: %s", status, msg)
	return pkgerrors.Wrap(domainCodeForStatus(status), cause, "moyasar fetch payment failed")
}

func gatewayMessage(body []byte) string {
	var payload struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
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
		c.logger.Error(ctx, fmt.Sprintf("moyasar %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("moyasar %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "card", "cvc", "number"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
