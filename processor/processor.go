// Package processor defines the contract expected from a remote payment
// processor and the resolver that keeps a client account pinned to exactly
// one remote customer record per processor.
package processor

import (
	"context"
	"errors"
	"time"
)

// ErrCustomerNotFound is returned by RetrieveCustomer when the remote record
// does not exist (deleted out-of-band, or the reference is invalid). It is
// the only retrieval error the resolver treats as "needs re-resolution";
// everything else is surfaced unchanged so outages are not masked as
// missing customers.
var ErrCustomerNotFound = errors.New("processor: customer not found")

// Customer is a remote customer record as seen through a processor API.
type Customer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewCustomer carries the fields for creating a remote customer.
type NewCustomer struct {
	Email    string            `json:"email"`
	Name     string            `json:"name,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CustomerUpdate carries the fields pushed to an existing remote customer.
// Empty fields are left untouched remotely.
type CustomerUpdate struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Client is the customer surface of one payment processor. The ledger treats
// the processor as an opaque remote service; the only assumptions are the
// four calls below and the ErrCustomerNotFound classification.
type Client interface {
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error)
	ListCustomersByEmail(ctx context.Context, email string) ([]*Customer, error)
	CreateCustomer(ctx context.Context, nc NewCustomer) (*Customer, error)
	UpdateCustomer(ctx context.Context, customerID string, upd CustomerUpdate) (*Customer, error)
}

// ProvenanceMetadata tags a remote customer created by the ledger with its
// origin, so out-of-band records are distinguishable in the processor UI.
func ProvenanceMetadata(accountID string) map[string]string {
	return map[string]string{
		"origin":     "clientledger",
		"account_id": accountID,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
}
