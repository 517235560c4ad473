// Package account defines the client account entity.
package account

import (
	"strings"

	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/types"
)

// ClientAccount is a client of the business. The email is the identity key
// used to resolve the account against both remote payment processors.
//
// AccountBalance and TotalOrders are derived fields owned by the
// reconciliation engine. Callers must treat them as read-only: they are
// rebuilt in full from the order set after every order write, never edited.
type ClientAccount struct {
	types.Entity
	ID        id.AccountID `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name,omitempty"`
	FirstName string       `json:"first_name,omitempty"`
	LastName  string       `json:"last_name,omitempty"`
	Company   string       `json:"company,omitempty"`
	Currency  string       `json:"currency"`

	// Remote customer references, at most one account per value (store-enforced).
	ShopCustomerID    string `json:"shop_customer_id,omitempty"`
	BillingCustomerID string `json:"billing_customer_id,omitempty"`

	// Derived ledger fields.
	AccountBalance types.Money `json:"account_balance"`
	TotalOrders    int64       `json:"total_orders"`

	Projects []Project `json:"projects,omitempty"`

	// Version is the optimistic-concurrency token. Stores bump it on every
	// write and reject writes carrying a stale value with a write conflict.
	Version int64 `json:"-"`
}

// Project is a client sub-record. It is carried and round-tripped by the
// ledger but has no behavior of its own.
type Project struct {
	ID    id.ProjectID `json:"id"`
	Title string       `json:"title"`
	Notes string       `json:"notes,omitempty"`
}

// DisplayName returns the best human-readable name for the account:
// the explicit name, then "first last", then the company, then the email.
func (a *ClientAccount) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if full := strings.TrimSpace(a.FirstName + " " + a.LastName); full != "" {
		return full
	}
	if a.Company != "" {
		return a.Company
	}
	return a.Email
}

// CustomerRef returns the stored remote customer id for the named processor.
func (a *ClientAccount) CustomerRef(processor string) string {
	switch processor {
	case ProcessorShop:
		return a.ShopCustomerID
	case ProcessorBilling:
		return a.BillingCustomerID
	default:
		return ""
	}
}

// Processor names used for customer references.
const (
	ProcessorShop    = "shop"
	ProcessorBilling = "billing"
)
