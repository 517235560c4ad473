// Package plugin provides an extensible plugin system for the client ledger.
// Plugins can hook into lifecycle events to extend functionality.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Client account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated is called when a new client account is created.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, acc interface{}) error
}

// OnAccountUpdated is called when a client account is updated.
type OnAccountUpdated interface {
	Plugin
	OnAccountUpdated(ctx context.Context, oldAcc, newAcc interface{}) error
}

// OnAccountDeleted is called when a client account is deleted.
type OnAccountDeleted interface {
	Plugin
	OnAccountDeleted(ctx context.Context, accountID string) error
}

// ──────────────────────────────────────────────────
// Order lifecycle hooks
// ──────────────────────────────────────────────────

// OnOrderCreated is called when a new order is created.
type OnOrderCreated interface {
	Plugin
	OnOrderCreated(ctx context.Context, o interface{}) error
}

// OnOrderUpdated is called when an order is updated.
type OnOrderUpdated interface {
	Plugin
	OnOrderUpdated(ctx context.Context, oldOrder, newOrder interface{}) error
}

// OnOrderDeleted is called when an order is deleted.
type OnOrderDeleted interface {
	Plugin
	OnOrderDeleted(ctx context.Context, orderID string) error
}

// ──────────────────────────────────────────────────
// Ledger reconciliation hooks
// ──────────────────────────────────────────────────

// OnBalanceReconciled is called after an account's derived ledger fields
// were recomputed and persisted.
type OnBalanceReconciled interface {
	Plugin
	OnBalanceReconciled(ctx context.Context, accountID string, balanceAmount, totalOrders int64) error
}

// OnReconcileFailed is called when a reconciliation pass could not persist
// the recomputed ledger fields. The ledger stays stale until the account's
// next order event.
type OnReconcileFailed interface {
	Plugin
	OnReconcileFailed(ctx context.Context, accountID string, err error) error
}

// ──────────────────────────────────────────────────
// Identity resolution hooks
// ──────────────────────────────────────────────────

// OnCustomerLinked is called when an account's remote customer reference for
// a processor is set or replaced.
type OnCustomerLinked interface {
	Plugin
	OnCustomerLinked(ctx context.Context, processor, accountID, customerID string) error
}

// OnCustomerResolveFailed is called when identity resolution against a
// processor failed and the account was saved without a remote reference.
type OnCustomerResolveFailed interface {
	Plugin
	OnCustomerResolveFailed(ctx context.Context, processor, accountID string, err error) error
}

// OnIdentitySynced is called after account fields were mirrored onto the
// linked authentication identity.
type OnIdentitySynced interface {
	Plugin
	OnIdentitySynced(ctx context.Context, accountID, identityID string) error
}
