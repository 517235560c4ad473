// Package memory provides an in-memory store for tests and demos.
//
// It enforces the same uniqueness rules as the durable backends and the same
// optimistic-concurrency checks on account writes, so engine behavior under
// write conflicts can be exercised without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/clientledger"
	"github.com/xraph/clientledger/account"
	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/order"
	"github.com/xraph/clientledger/store"
	"github.com/xraph/clientledger/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	accounts map[string]*account.ClientAccount
	orders   map[string]*order.Order

	closed bool
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*account.ClientAccount),
		orders:   make(map[string]*order.Order),
	}
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

func (s *Store) CreateAccount(_ context.Context, acc *account.ClientAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return clientledger.ErrStoreClosed
	}
	if _, exists := s.accounts[acc.ID.String()]; exists {
		return clientledger.ErrAlreadyExists
	}
	for _, existing := range s.accounts {
		if existing.Email == acc.Email {
			return clientledger.ErrEmailTaken
		}
	}
	if err := s.checkRefUnique(acc.ID, account.ProcessorShop, acc.ShopCustomerID); err != nil {
		return err
	}
	if err := s.checkRefUnique(acc.ID, account.ProcessorBilling, acc.BillingCustomerID); err != nil {
		return err
	}

	stored := cloneAccount(acc)
	stored.Version = 1
	s.accounts[acc.ID.String()] = stored
	acc.Version = stored.Version
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.ClientAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if acc, ok := s.accounts[accountID.String()]; ok {
		return cloneAccount(acc), nil
	}
	return nil, clientledger.ErrAccountNotFound
}

func (s *Store) GetAccountByEmail(_ context.Context, email string) (*account.ClientAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acc := range s.accounts {
		if acc.Email == email {
			return cloneAccount(acc), nil
		}
	}
	return nil, clientledger.ErrAccountNotFound
}

func (s *Store) UpdateAccount(_ context.Context, acc *account.ClientAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[acc.ID.String()]
	if !ok {
		return clientledger.ErrAccountNotFound
	}
	if stored.Version != acc.Version {
		return clientledger.ErrWriteConflict
	}
	for _, existing := range s.accounts {
		if existing.ID != acc.ID && existing.Email == acc.Email {
			return clientledger.ErrEmailTaken
		}
	}
	if err := s.checkRefUnique(acc.ID, account.ProcessorShop, acc.ShopCustomerID); err != nil {
		return err
	}
	if err := s.checkRefUnique(acc.ID, account.ProcessorBilling, acc.BillingCustomerID); err != nil {
		return err
	}

	next := cloneAccount(acc)
	next.Version = stored.Version + 1
	s.accounts[acc.ID.String()] = next
	acc.Version = next.Version
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID.String()]; !ok {
		return clientledger.ErrAccountNotFound
	}
	delete(s.accounts, accountID.String())
	return nil
}

func (s *Store) UpdateAccountLedger(_ context.Context, accountID id.AccountID, version int64, balance types.Money, totalOrders int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[accountID.String()]
	if !ok {
		return clientledger.ErrAccountNotFound
	}
	if stored.Version != version {
		return clientledger.ErrWriteConflict
	}

	stored.AccountBalance = balance
	stored.TotalOrders = totalOrders
	stored.Version++
	stored.Touch()
	return nil
}

func (s *Store) SetCustomerRef(_ context.Context, accountID id.AccountID, processor, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[accountID.String()]
	if !ok {
		return clientledger.ErrAccountNotFound
	}
	if err := s.checkRefUnique(accountID, processor, customerID); err != nil {
		return err
	}

	switch processor {
	case account.ProcessorShop:
		stored.ShopCustomerID = customerID
	case account.ProcessorBilling:
		stored.BillingCustomerID = customerID
	default:
		return clientledger.ErrInvalidInput
	}
	stored.Version++
	stored.Touch()
	return nil
}

// checkRefUnique enforces that at most one account holds a given remote
// customer id per processor. Callers hold s.mu.
func (s *Store) checkRefUnique(accountID id.AccountID, processor, customerID string) error {
	if customerID == "" {
		return nil
	}
	for _, existing := range s.accounts {
		if existing.ID == accountID {
			continue
		}
		if existing.CustomerRef(processor) == customerID {
			return clientledger.ErrProcessorRefTaken
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Orders
// ──────────────────────────────────────────────────

func (s *Store) CreateOrder(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return clientledger.ErrStoreClosed
	}
	if _, exists := s.orders[o.ID.String()]; exists {
		return clientledger.ErrAlreadyExists
	}
	for _, existing := range s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return clientledger.ErrOrderNumberTaken
		}
	}

	s.orders[o.ID.String()] = cloneOrder(o)
	return nil
}

func (s *Store) GetOrder(_ context.Context, orderID id.OrderID) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if o, ok := s.orders[orderID.String()]; ok {
		return cloneOrder(o), nil
	}
	return nil, clientledger.ErrOrderNotFound
}

func (s *Store) UpdateOrder(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID.String()]; !ok {
		return clientledger.ErrOrderNotFound
	}
	for _, existing := range s.orders {
		if existing.ID != o.ID && existing.OrderNumber == o.OrderNumber {
			return clientledger.ErrOrderNumberTaken
		}
	}

	s.orders[o.ID.String()] = cloneOrder(o)
	return nil
}

func (s *Store) DeleteOrder(_ context.Context, orderID id.OrderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID.String()]; !ok {
		return clientledger.ErrOrderNotFound
	}
	delete(s.orders, orderID.String())
	return nil
}

func (s *Store) ListOrdersByAccount(_ context.Context, accountID id.AccountID, opts order.ListOpts) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*order.Order
	for _, o := range s.orders {
		if o.AccountID != accountID {
			continue
		}
		if opts.Status != "" && o.Status != opts.Status {
			continue
		}
		result = append(result, cloneOrder(o))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (s *Store) StampBalanceSnapshot(_ context.Context, orderID id.OrderID, balance types.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[orderID.String()]
	if !ok {
		return clientledger.ErrOrderNotFound
	}
	snap := balance
	stored.BalanceSnapshot = &snap
	return nil
}

func (s *Store) AppendInvoiceAttempt(_ context.Context, orderID id.OrderID, attempt order.InvoiceAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[orderID.String()]
	if !ok {
		return clientledger.ErrOrderNotFound
	}
	stored.Invoices = append(stored.Invoices, attempt)
	return nil
}

// ──────────────────────────────────────────────────
// Core
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return clientledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Cloning
// ──────────────────────────────────────────────────

// The store hands out copies so callers never alias stored state.

func cloneAccount(acc *account.ClientAccount) *account.ClientAccount {
	c := *acc
	if acc.Projects != nil {
		c.Projects = make([]account.Project, len(acc.Projects))
		copy(c.Projects, acc.Projects)
	}
	return &c
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	if o.BalanceSnapshot != nil {
		snap := *o.BalanceSnapshot
		c.BalanceSnapshot = &snap
	}
	if o.LineItems != nil {
		c.LineItems = make([]order.LineItem, len(o.LineItems))
		copy(c.LineItems, o.LineItems)
	}
	if o.Invoices != nil {
		c.Invoices = make([]order.InvoiceAttempt, len(o.Invoices))
		copy(c.Invoices, o.Invoices)
	}
	return &c
}
