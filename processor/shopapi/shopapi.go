// Package shopapi implements processor.Client against the shop processor's
// admin API. The same client also carries the shop's draft-order surface,
// which sits outside the resolver's customer contract.
package shopapi

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

// Config holds the connection settings for the shop admin API.
type Config struct {
	BaseURL string        `env:"SHOP_API_URL"`
	Token   string        `env:"SHOP_API_TOKEN"`
	Timeout time.Duration `env:"SHOP_API_TIMEOUT" envDefault:"10s"`
}

// ConfigFromEnv reads the shop API settings from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("shopapi: parse config: %w", err)
	}
	return cfg, nil
}

// compile-time interface check
var _ processor.Client = (*Client)(nil)

// Client talks to the shop processor over HTTP.
type Client struct {
	http *resty.Client
}

// New creates a shop API client from the given config.
func New(cfg Config) *Client {
	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("X-Shop-Access-Token", cfg.Token).
		SetHeader("Accept", "application/json")
	return &Client{http: hc}
}

type customerEnvelope struct {
	Customer *processor.Customer `json:"customer"`
}

type customerListEnvelope struct {
	Customers []*processor.Customer `json:"customers"`
}

func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*processor.Customer, error) {
	var out customerEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/admin/customers/" + url.PathEscape(customerID))
	if err != nil {
		return nil, fmt.Errorf("shopapi: retrieve customer: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, processor.ErrCustomerNotFound
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("shopapi: retrieve customer: status %d", resp.StatusCode())
	}
	return out.Customer, nil
}

func (c *Client) ListCustomersByEmail(ctx context.Context, email string) ([]*processor.Customer, error) {
	var out customerListEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", "email:"+email).
		SetResult(&out).
		Get("/admin/customers/search")
	if err != nil {
		return nil, fmt.Errorf("shopapi: search customers: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("shopapi: search customers: status %d", resp.StatusCode())
	}
	return out.Customers, nil
}

func (c *Client) CreateCustomer(ctx context.Context, nc processor.NewCustomer) (*processor.Customer, error) {
	var out customerEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(customerEnvelope{Customer: &processor.Customer{
			Email:    nc.Email,
			Name:     nc.Name,
			Metadata: nc.Metadata,
		}}).
		SetResult(&out).
		Post("/admin/customers")
	if err != nil {
		return nil, fmt.Errorf("shopapi: create customer: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("shopapi: create customer: status %d", resp.StatusCode())
	}
	return out.Customer, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, customerID string, upd processor.CustomerUpdate) (*processor.Customer, error) {
	var out customerEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]processor.CustomerUpdate{"customer": upd}).
		SetResult(&out).
		Put("/admin/customers/" + url.PathEscape(customerID))
	if err != nil {
		return nil, fmt.Errorf("shopapi: update customer: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, processor.ErrCustomerNotFound
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("shopapi: update customer: status %d", resp.StatusCode())
	}
	return out.Customer, nil
}

// DraftLineItem is one line of a draft order pushed to the shop.
type DraftLineItem struct {
	Title      string `json:"title"`
	Quantity   int64  `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// DraftOrder is a shop draft order created on behalf of a linked customer.
type DraftOrder struct {
	ID         string            `json:"id"`
	CustomerID string            `json:"customer_id"`
	InvoiceURL string            `json:"invoice_url"`
	LineItems  []DraftLineItem   `json:"line_items"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type draftOrderEnvelope struct {
	DraftOrder *DraftOrder `json:"draft_order"`
}

// CreateDraftOrder opens a draft order for the given shop customer. The
// returned draft carries the invoice URL the shop generated for it.
func (c *Client) CreateDraftOrder(ctx context.Context, customerID string, items []DraftLineItem, metadata map[string]string) (*DraftOrder, error) {
	var out draftOrderEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(draftOrderEnvelope{DraftOrder: &DraftOrder{
			CustomerID: customerID,
			LineItems:  items,
			Metadata:   metadata,
		}}).
		SetResult(&out).
		Post("/admin/draft_orders")
	if err != nil {
		return nil, fmt.Errorf("shopapi: create draft order: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, processor.ErrCustomerNotFound
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("shopapi: create draft order: status %d", resp.StatusCode())
	}
	return out.DraftOrder, nil
}
