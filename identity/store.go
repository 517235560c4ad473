package identity

import (
	"context"
	"errors"

	"github.com/xraph/clientledger/id"
)

// ErrNotLinked is returned by FindLinkedIdentity when no identity is flagged
// as belonging to the account. The ledger treats it as "nothing to mirror".
var ErrNotLinked = errors.New("identity: no linked identity")

// Store is the surface the ledger needs from the auth system.
type Store interface {
	// FindLinkedIdentity returns the single identity flagged as belonging to
	// the account, or an identity-not-found error when none is linked.
	FindLinkedIdentity(ctx context.Context, accountID id.AccountID) (*Identity, error)

	// UpdateIdentity mirrors fields onto the identity. Implementations that
	// react to identity writes must honor the sync-write context marker so
	// the mirror terminates after one hop.
	UpdateIdentity(ctx context.Context, identityID id.IdentityID, fields Fields) error
}
