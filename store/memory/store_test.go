package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientledger "github.com/xraph/clientledger"
	"github.com/xraph/clientledger/account"
	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/order"
	"github.com/xraph/clientledger/types"
)

func seedAccount(t *testing.T, s *Store, email string) *account.ClientAccount {
	t.Helper()
	acc := &account.ClientAccount{
		Entity:   types.NewEntity(),
		ID:       id.NewAccountID(),
		Email:    email,
		Currency: "usd",
	}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func seedOrder(t *testing.T, s *Store, accountID id.AccountID, number string, status order.Status) *order.Order {
	t.Helper()
	o := &order.Order{
		Entity:      types.NewEntity(),
		ID:          id.NewOrderID(),
		OrderNumber: number,
		AccountID:   accountID,
		Amount:      types.USD(1000),
		Status:      status,
		OrderType:   order.TypeShop,
	}
	require.NoError(t, s.CreateOrder(context.Background(), o))
	return o
}

func TestAccountCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "crud@example.com")
	assert.Equal(t, int64(1), acc.Version)

	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.Email, got.Email)

	got.Name = "Renamed"
	require.NoError(t, s.UpdateAccount(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	byEmail, err := s.GetAccountByEmail(ctx, "crud@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", byEmail.Name)

	require.NoError(t, s.DeleteAccount(ctx, acc.ID))
	_, err = s.GetAccount(ctx, acc.ID)
	assert.ErrorIs(t, err, clientledger.ErrAccountNotFound)
}

func TestEmailUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "one@example.com")

	dup := &account.ClientAccount{ID: id.NewAccountID(), Email: "one@example.com"}
	assert.ErrorIs(t, s.CreateAccount(ctx, dup), clientledger.ErrEmailTaken)

	other := seedAccount(t, s, "two@example.com")
	other.Email = "one@example.com"
	assert.ErrorIs(t, s.UpdateAccount(ctx, other), clientledger.ErrEmailTaken)
}

func TestCustomerRefUniquePerProcessor(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seedAccount(t, s, "a@example.com")
	b := seedAccount(t, s, "b@example.com")

	require.NoError(t, s.SetCustomerRef(ctx, a.ID, account.ProcessorShop, "cus_1"))
	assert.ErrorIs(t, s.SetCustomerRef(ctx, b.ID, account.ProcessorShop, "cus_1"),
		clientledger.ErrProcessorRefTaken)

	// Same reference value under the other processor is a different namespace.
	require.NoError(t, s.SetCustomerRef(ctx, b.ID, account.ProcessorBilling, "cus_1"))

	got, err := s.GetAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_1", got.ShopCustomerID)
	assert.Empty(t, got.BillingCustomerID)
}

func TestUpdateAccountVersionCheck(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "stale@example.com")

	stale, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)

	// A ledger write lands after the read; the profile write against the old
	// version must conflict instead of reverting the totals.
	require.NoError(t, s.UpdateAccountLedger(ctx, acc.ID, 1, types.USD(250), 1))

	stale.Name = "Stale"
	assert.ErrorIs(t, s.UpdateAccount(ctx, stale), clientledger.ErrWriteConflict)

	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.AccountBalance.Amount)
	assert.Equal(t, int64(1), got.TotalOrders)
	assert.Empty(t, got.Name)
}

func TestUpdateAccountLedgerVersionCheck(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "cas@example.com")

	require.NoError(t, s.UpdateAccountLedger(ctx, acc.ID, 1, types.USD(500), 1))

	// The stored version moved to 2; writing against 1 again must conflict.
	err := s.UpdateAccountLedger(ctx, acc.ID, 1, types.USD(900), 2)
	assert.ErrorIs(t, err, clientledger.ErrWriteConflict)

	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.AccountBalance.Amount)
	assert.Equal(t, int64(1), got.TotalOrders)
	assert.Equal(t, int64(2), got.Version)

	err = s.UpdateAccountLedger(ctx, id.NewAccountID(), 1, types.USD(0), 0)
	assert.ErrorIs(t, err, clientledger.ErrAccountNotFound)
}

func TestOrderNumberUnique(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "orders@example.com")
	seedOrder(t, s, acc.ID, "#1001", order.StatusPending)

	dup := &order.Order{
		ID:          id.NewOrderID(),
		OrderNumber: "#1001",
		AccountID:   acc.ID,
		Amount:      types.USD(1),
		Status:      order.StatusPending,
		OrderType:   order.TypeShop,
	}
	assert.ErrorIs(t, s.CreateOrder(ctx, dup), clientledger.ErrOrderNumberTaken)
}

func TestListOrdersByAccount(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "list@example.com")
	other := seedAccount(t, s, "other@example.com")

	o1 := seedOrder(t, s, acc.ID, "#1", order.StatusPending)
	o1.CreatedAt = o1.CreatedAt.Add(-2 * time.Hour)
	require.NoError(t, s.UpdateOrder(ctx, o1))
	seedOrder(t, s, acc.ID, "#2", order.StatusPaid)
	seedOrder(t, s, acc.ID, "#3", order.StatusPending)
	seedOrder(t, s, other.ID, "#4", order.StatusPending)

	all, err := s.ListOrdersByAccount(ctx, acc.ID, order.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "#1", all[0].OrderNumber) // oldest first

	pending, err := s.ListOrdersByAccount(ctx, acc.ID, order.ListOpts{Status: order.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	limited, err := s.ListOrdersByAccount(ctx, acc.ID, order.ListOpts{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "#1", limited[0].OrderNumber)
}

func TestStampBalanceSnapshot(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "snap@example.com")
	o := seedOrder(t, s, acc.ID, "#s1", order.StatusPending)

	require.NoError(t, s.StampBalanceSnapshot(ctx, o.ID, types.USD(750)))
	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BalanceSnapshot)
	assert.Equal(t, int64(750), got.BalanceSnapshot.Amount)

	assert.ErrorIs(t, s.StampBalanceSnapshot(ctx, id.NewOrderID(), types.USD(1)),
		clientledger.ErrOrderNotFound)
}

func TestAppendInvoiceAttempt(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "inv@example.com")
	o := seedOrder(t, s, acc.ID, "#i1", order.StatusPending)

	require.NoError(t, s.AppendInvoiceAttempt(ctx, o.ID, order.InvoiceAttempt{
		SentAt:    time.Now().UTC(),
		Recipient: "inv@example.com",
		Outcome:   "sent",
	}))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Invoices, 1)
	assert.Equal(t, "sent", got.Invoices[0].Outcome)
}

func TestReadsAreIsolatedCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := seedAccount(t, s, "iso@example.com")

	got, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	got.Email = "mutated@example.com"

	again, err := s.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "iso@example.com", again.Email)
}

func TestClosedStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(ctx), clientledger.ErrStoreClosed)
	err := s.CreateAccount(ctx, &account.ClientAccount{ID: id.NewAccountID(), Email: "x@example.com"})
	assert.ErrorIs(t, err, clientledger.ErrStoreClosed)
}
