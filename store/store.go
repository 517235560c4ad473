// Package store defines the unified storage interface for the client ledger.
package store

import (
	"context"

	"github.com/xraph/clientledger/account"
	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/order"
	"github.com/xraph/clientledger/types"
)

// Store is the unified storage interface for all client-ledger entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Implementations keep two collections, client accounts and orders, related
// many-orders-to-one-account by foreign reference, and enforce uniqueness of
// email, order number, and both processor customer references.
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, acc *account.ClientAccount) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.ClientAccount, error)
	GetAccountByEmail(ctx context.Context, email string) (*account.ClientAccount, error)
	UpdateAccount(ctx context.Context, acc *account.ClientAccount) error
	DeleteAccount(ctx context.Context, accountID id.AccountID) error
	UpdateAccountLedger(ctx context.Context, accountID id.AccountID, version int64, balance types.Money, totalOrders int64) error
	SetCustomerRef(ctx context.Context, accountID id.AccountID, processor, customerID string) error

	// Order methods
	CreateOrder(ctx context.Context, o *order.Order) error
	GetOrder(ctx context.Context, orderID id.OrderID) (*order.Order, error)
	UpdateOrder(ctx context.Context, o *order.Order) error
	DeleteOrder(ctx context.Context, orderID id.OrderID) error
	ListOrdersByAccount(ctx context.Context, accountID id.AccountID, opts order.ListOpts) ([]*order.Order, error)
	StampBalanceSnapshot(ctx context.Context, orderID id.OrderID, balance types.Money) error
	AppendInvoiceAttempt(ctx context.Context, orderID id.OrderID, attempt order.InvoiceAttempt) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
