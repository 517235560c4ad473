// Package billingapi implements processor.Client against the billing
// processor's REST API, plus the payment-link surface used to collect
// one-off payments from a linked customer.
package billingapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-resty/resty/v2"

	"github.com/xraph/clientledger/processor"
)

// Config holds the connection settings for the billing API.
type Config struct {
	BaseURL string        `env:"BILLING_API_URL" envDefault:"https://api.billing.example.com/v1"`
	APIKey  string        `env:"BILLING_API_KEY"`
	Timeout time.Duration `env:"BILLING_API_TIMEOUT" envDefault:"10s"`
}

// ConfigFromEnv reads the billing API settings from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("billingapi: parse config: %w", err)
	}
	return cfg, nil
}

// apiError is the billing API's error body.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// compile-time interface check
var _ processor.Client = (*Client)(nil)

// Client talks to the billing processor over HTTP.
type Client struct {
	http *resty.Client
}

// New creates a billing API client from the given config.
func New(cfg Config) *Client {
	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Accept", "application/json")
	return &Client{http: hc}
}

type customerList struct {
	Data []*processor.Customer `json:"data"`
}

func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*processor.Customer, error) {
	var out processor.Customer
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/customers/" + url.PathEscape(customerID))
	if err != nil {
		return nil, fmt.Errorf("billingapi: retrieve customer: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, processor.ErrCustomerNotFound
	}
	if !resp.IsSuccess() {
		return nil, statusError("retrieve customer", resp.StatusCode(), apiErr)
	}
	return &out, nil
}

func (c *Client) ListCustomersByEmail(ctx context.Context, email string) ([]*processor.Customer, error) {
	var out customerList
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("email", email).
		SetResult(&out).
		SetError(&apiErr).
		Get("/customers")
	if err != nil {
		return nil, fmt.Errorf("billingapi: list customers: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, statusError("list customers", resp.StatusCode(), apiErr)
	}
	return out.Data, nil
}

func (c *Client) CreateCustomer(ctx context.Context, nc processor.NewCustomer) (*processor.Customer, error) {
	var out processor.Customer
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(nc).
		SetResult(&out).
		SetError(&apiErr).
		Post("/customers")
	if err != nil {
		return nil, fmt.Errorf("billingapi: create customer: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, statusError("create customer", resp.StatusCode(), apiErr)
	}
	return &out, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, customerID string, upd processor.CustomerUpdate) (*processor.Customer, error) {
	var out processor.Customer
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(upd).
		SetResult(&out).
		SetError(&apiErr).
		Post("/customers/" + url.PathEscape(customerID))
	if err != nil {
		return nil, fmt.Errorf("billingapi: update customer: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, processor.ErrCustomerNotFound
	}
	if !resp.IsSuccess() {
		return nil, statusError("update customer", resp.StatusCode(), apiErr)
	}
	return &out, nil
}

// PaymentLink is a hosted payment page for a one-off amount.
type PaymentLink struct {
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	CustomerID  string            `json:"customer_id"`
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type newPaymentLink struct {
	CustomerID  string            `json:"customer_id"`
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreatePaymentLink opens a hosted payment page charging the given customer
// the given amount.
func (c *Client) CreatePaymentLink(ctx context.Context, customerID string, amountCents int64, currency string, metadata map[string]string) (*PaymentLink, error) {
	var out PaymentLink
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(newPaymentLink{
			CustomerID:  customerID,
			AmountCents: amountCents,
			Currency:    currency,
			Metadata:    metadata,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/payment_links")
	if err != nil {
		return nil, fmt.Errorf("billingapi: create payment link: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, processor.ErrCustomerNotFound
	}
	if !resp.IsSuccess() {
		return nil, statusError("create payment link", resp.StatusCode(), apiErr)
	}
	return &out, nil
}

func statusError(op string, status int, apiErr apiError) error {
	if apiErr.Error.Message != "" {
		return fmt.Errorf("billingapi: %s: status %d: %s", op, status, apiErr.Error.Message)
	}
	return fmt.Errorf("billingapi: %s: status %d", op, status)
}
