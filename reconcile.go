package clientledger

import (
	"context"

	"github.com/xraph/clientledger/order"
	"github.com/xraph/clientledger/types"
)

// orderOp classifies the order event that triggered a reconciliation pass.
type orderOp int

const (
	orderOpCreate orderOp = iota
	orderOpUpdate
	orderOpDelete
)

// reconcile recomputes and persists the account's derived ledger fields from
// the full, current order set. It never applies a delta to the stored value:
// delta updates compound any missed or duplicated event into permanent
// drift, while full recomputation is self-correcting on every invocation.
//
// Nothing here propagates to the caller of the triggering order write. Every
// failure is logged and the ledger stays stale until the account's next
// order event.
func (l *Ledger) reconcile(ctx context.Context, op orderOp, trigger *order.Order) {
	if trigger == nil || trigger.AccountID.IsNil() {
		l.logger.Warn("order carries no client account reference, skipping reconciliation",
			"order_id", orderIDString(trigger),
		)
		return
	}

	accountID := trigger.AccountID

	acc, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		if IsNotFound(err) {
			// The order was orphaned by a prior account deletion.
			l.logger.Warn("client account not found, skipping reconciliation",
				"account_id", accountID.String(),
				"order_id", trigger.ID.String(),
			)
			return
		}
		l.logger.Error("failed to load client account for reconciliation",
			"account_id", accountID.String(),
			"error", err,
		)
		l.plugins.EmitReconcileFailed(ctx, accountID.String(), err)
		return
	}

	pending, err := l.store.ListOrdersByAccount(ctx, accountID, order.ListOpts{Status: order.StatusPending})
	if err != nil {
		l.logger.Error("failed to list pending orders for reconciliation",
			"account_id", accountID.String(),
			"error", err,
		)
		l.plugins.EmitReconcileFailed(ctx, accountID.String(), err)
		return
	}

	balance := types.Zero(acc.Currency)
	for _, o := range pending {
		if !o.Amount.SameCurrency(balance) {
			// Creation validates currency, so this is stored data gone bad.
			l.logger.Warn("order currency does not match account currency, excluded from balance",
				"account_id", accountID.String(),
				"order_id", o.ID.String(),
				"order_currency", o.Amount.Currency,
				"account_currency", acc.Currency,
			)
			continue
		}
		balance = balance.Add(o.Amount)
	}

	all, err := l.store.ListOrdersByAccount(ctx, accountID, order.ListOpts{})
	if err != nil {
		l.logger.Error("failed to count orders for reconciliation",
			"account_id", accountID.String(),
			"error", err,
		)
		l.plugins.EmitReconcileFailed(ctx, accountID.String(), err)
		return
	}
	totalOrders := int64(len(all))

	// The write is version-checked; each retry re-reads the version but keeps
	// the recomputed totals, which are still correct for any order data that
	// has not changed since this pass began.
	err = RetryOnConflict(ctx, func() error {
		fresh, gerr := l.store.GetAccount(ctx, accountID)
		if gerr != nil {
			return gerr
		}
		return l.store.UpdateAccountLedger(ctx, accountID, fresh.Version, balance, totalOrders)
	})
	if err != nil {
		if IsNotFound(err) {
			l.logger.Warn("client account deleted mid-reconciliation",
				"account_id", accountID.String(),
			)
			return
		}
		l.logger.Error("failed to persist reconciled ledger, balance stale until next order event",
			"account_id", accountID.String(),
			"balance", balance.String(),
			"total_orders", totalOrders,
			"error", err,
		)
		l.plugins.EmitReconcileFailed(ctx, accountID.String(), err)
		return
	}

	l.logger.Debug("reconciled client ledger",
		"account_id", accountID.String(),
		"balance", balance.String(),
		"total_orders", totalOrders,
	)
	l.plugins.EmitBalanceReconciled(ctx, accountID.String(), balance.Amount, totalOrders)

	// Snapshots are stamped on update events only, and only while unset, so
	// an order that is created and never touched again carries none. The
	// field is audit-only and not used to compute the live balance.
	if op == orderOpUpdate && trigger.BalanceSnapshot == nil {
		if err := l.store.StampBalanceSnapshot(ctx, trigger.ID, balance); err != nil {
			l.logger.Warn("failed to stamp balance snapshot",
				"order_id", trigger.ID.String(),
				"error", err,
			)
		} else {
			snap := balance
			trigger.BalanceSnapshot = &snap
		}
	}
}

func orderIDString(o *order.Order) string {
	if o == nil {
		return ""
	}
	return o.ID.String()
}
