package clientledger

import (
	"context"
	"errors"

	"github.com/xraph/clientledger/account"
	"github.com/xraph/clientledger/identity"
)

// syncIdentity mirrors name, company and email onto the auth identity linked
// to the account. The mirror write carries the sync tag so a reverse hook on
// the identity record stops after one hop.
func (l *Ledger) syncIdentity(ctx context.Context, acc *account.ClientAccount) {
	if l.identities == nil {
		return
	}

	idn, err := l.identities.FindLinkedIdentity(ctx, acc.ID)
	if err != nil {
		if errors.Is(err, identity.ErrNotLinked) {
			return
		}
		l.logger.Warn("failed to look up linked identity",
			"account_id", acc.ID.String(),
			"error", err,
		)
		return
	}

	err = l.identities.UpdateIdentity(MarkSyncWrite(ctx), idn.ID, identity.Fields{
		Email:     acc.Email,
		FirstName: acc.FirstName,
		LastName:  acc.LastName,
		Company:   acc.Company,
	})
	if err != nil {
		l.logger.Warn("failed to mirror account fields onto identity",
			"account_id", acc.ID.String(),
			"identity_id", idn.ID.String(),
			"error", err,
		)
		return
	}

	l.plugins.EmitIdentitySynced(ctx, acc.ID.String(), idn.ID.String())
}
