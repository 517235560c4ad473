// Package identity defines the authentication-identity collaborator contract.
//
// The auth system owns these records; the ledger only mirrors a subset of
// client account fields onto the identity linked to an account.
package identity

import (
	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/types"
)

// Identity is a login record flagged as belonging to a client account.
type Identity struct {
	types.Entity
	ID        id.IdentityID `json:"id"`
	AccountID id.AccountID  `json:"account_id"`
	Email     string        `json:"email"`
	FirstName string        `json:"first_name,omitempty"`
	LastName  string        `json:"last_name,omitempty"`
	Company   string        `json:"company,omitempty"`
}

// Fields is the subset of identity fields the ledger may mirror.
type Fields struct {
	Email     string
	FirstName string
	LastName  string
	Company   string
}
