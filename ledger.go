package clientledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/clientledger/account"
	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/identity"
	"github.com/xraph/clientledger/order"
	"github.com/xraph/clientledger/plugin"
	"github.com/xraph/clientledger/processor"
	"github.com/xraph/clientledger/store"
	"github.com/xraph/clientledger/types"
)

// Ledger is the client-ledger engine. It owns the derived balance fields on
// client accounts, keeps each account pinned to one remote customer per
// payment processor, and mirrors account fields onto the linked auth
// identity. All of that runs as a reaction inside the request that performed
// the triggering write; there are no background workers or queues.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	resolvers  []*processor.Resolver
	shopAPI    processor.Client
	billingAPI processor.Client
	identities identity.Store

	// Configuration
	currency string
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		currency: "usd",
	}

	for _, opt := range opts {
		opt(l)
	}

	// Resolvers are built after all options apply so they see the configured
	// logger regardless of option order.
	if l.shopAPI != nil {
		l.resolvers = append(l.resolvers, processor.NewResolver(account.ProcessorShop, l.shopAPI, l.logger))
	}
	if l.billingAPI != nil {
		l.resolvers = append(l.resolvers, processor.NewResolver(account.ProcessorBilling, l.billingAPI, l.logger))
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithShopProcessor wires the shop processor's customer API. Account writes
// will resolve a shop customer reference through it.
func WithShopProcessor(api processor.Client) Option {
	return func(l *Ledger) {
		l.shopAPI = api
	}
}

// WithBillingProcessor wires the billing processor's customer API.
func WithBillingProcessor(api processor.Client) Option {
	return func(l *Ledger) {
		l.billingAPI = api
	}
}

// WithIdentityStore wires the auth-identity collaborator. Without it,
// account↔user sync is a no-op.
func WithIdentityStore(s identity.Store) Option {
	return func(l *Ledger) {
		l.identities = s
	}
}

// WithDefaultCurrency sets the currency assigned to new accounts that do not
// specify one.
func WithDefaultCurrency(currency string) Option {
	return func(l *Ledger) {
		l.currency = strings.ToLower(currency)
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("client ledger started",
		"resolvers", len(l.resolvers),
		"currency", l.currency,
	)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// ──────────────────────────────────────────────────
// Client accounts
// ──────────────────────────────────────────────────

// CreateAccount onboards a new client. After the write commits, both
// processor resolvers and the user sync run; their failures are logged and
// never fail the create.
func (l *Ledger) CreateAccount(ctx context.Context, acc *account.ClientAccount) error {
	if err := normalizeAccount(acc); err != nil {
		return err
	}
	if acc.ID.IsNil() {
		acc.ID = id.NewAccountID()
	}
	if acc.Currency == "" {
		acc.Currency = l.currency
	}
	acc.Entity = types.NewEntity()
	acc.AccountBalance = types.Zero(acc.Currency)
	acc.TotalOrders = 0

	if err := l.store.CreateAccount(ctx, acc); err != nil {
		return err
	}

	l.plugins.EmitAccountCreated(ctx, acc)
	l.afterAccountWrite(ctx, nil, acc)
	return nil
}

// GetAccount retrieves a client account by ID.
func (l *Ledger) GetAccount(ctx context.Context, accountID id.AccountID) (*account.ClientAccount, error) {
	return l.store.GetAccount(ctx, accountID)
}

// GetAccountByEmail retrieves a client account by its email identity key.
func (l *Ledger) GetAccountByEmail(ctx context.Context, email string) (*account.ClientAccount, error) {
	return l.store.GetAccountByEmail(ctx, normalizeEmail(email))
}

// UpdateAccount saves descriptive account fields. The derived ledger fields
// and processor references on acc are ignored; only reconciliation and the
// identity resolvers write them. A context tagged with
// MarkSyncWrite skips identity resolution and user sync so that a mirror
// write from the auth system terminates after one hop.
func (l *Ledger) UpdateAccount(ctx context.Context, acc *account.ClientAccount) error {
	if err := normalizeAccount(acc); err != nil {
		return err
	}
	if acc.ID.IsNil() {
		return ErrAccountNotFound
	}

	// A profile save races reconciliation and reference writes on the same
	// document; the store's version check surfaces the race as a conflict
	// and the save re-reads and retries.
	var old *account.ClientAccount
	err := RetryOnConflict(ctx, func() error {
		var err error
		old, err = l.store.GetAccount(ctx, acc.ID)
		if err != nil {
			return err
		}

		// Derived ledger fields and processor references stay store-owned
		// regardless of what the caller passed; only reconciliation and the
		// resolvers write them.
		acc.Currency = old.Currency
		acc.AccountBalance = old.AccountBalance
		acc.TotalOrders = old.TotalOrders
		acc.ShopCustomerID = old.ShopCustomerID
		acc.BillingCustomerID = old.BillingCustomerID
		acc.CreatedAt = old.CreatedAt
		acc.Version = old.Version
		acc.Touch()

		return l.store.UpdateAccount(ctx, acc)
	})
	if err != nil {
		return err
	}

	l.plugins.EmitAccountUpdated(ctx, old, acc)

	if IsSyncWrite(ctx) {
		return nil
	}

	l.afterAccountWrite(ctx, old, acc)
	return nil
}

// DeleteAccount removes a client account. Orders referencing it become
// orphans; reconciliation treats them as a data-integrity warning.
func (l *Ledger) DeleteAccount(ctx context.Context, accountID id.AccountID) error {
	if err := l.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}

	l.plugins.EmitAccountDeleted(ctx, accountID.String())
	return nil
}

// afterAccountWrite runs the post-commit reactions for an account write:
// identity resolution against every configured processor, then user sync.
// Everything here is log-and-degrade; the primary write already succeeded.
func (l *Ledger) afterAccountWrite(ctx context.Context, old, acc *account.ClientAccount) {
	for _, r := range l.resolvers {
		l.resolveCustomer(ctx, r, old, acc)
	}
	l.syncIdentity(ctx, acc)
}

func (l *Ledger) resolveCustomer(ctx context.Context, r *processor.Resolver, old, acc *account.ClientAccount) {
	req := processor.ResolveRequest{
		AccountID:   acc.ID.String(),
		Email:       acc.Email,
		DisplayName: acc.DisplayName(),
		CustomerRef: acc.CustomerRef(r.Name()),
	}
	if old != nil {
		req.PrevEmail = old.Email
	}

	ref, err := r.Resolve(ctx, req)
	if err != nil {
		l.logger.Error("identity resolution failed, account saved without a processor customer id",
			"processor", r.Name(),
			"account_id", acc.ID.String(),
			"error", err,
		)
		l.plugins.EmitCustomerResolveFailed(ctx, r.Name(), acc.ID.String(), err)
		return
	}

	if ref == req.CustomerRef {
		return
	}

	if err := l.store.SetCustomerRef(ctx, acc.ID, r.Name(), ref); err != nil {
		l.logger.Error("failed to persist processor customer reference",
			"processor", r.Name(),
			"account_id", acc.ID.String(),
			"customer_id", ref,
			"error", err,
		)
		return
	}

	switch r.Name() {
	case account.ProcessorShop:
		acc.ShopCustomerID = ref
	case account.ProcessorBilling:
		acc.BillingCustomerID = ref
	}

	l.plugins.EmitCustomerLinked(ctx, r.Name(), acc.ID.String(), ref)
}

// ──────────────────────────────────────────────────
// Orders
// ──────────────────────────────────────────────────

// CreateOrder records a new order in state pending and reconciles the
// account's ledger fields.
func (l *Ledger) CreateOrder(ctx context.Context, o *order.Order) error {
	if o.AccountID.IsNil() {
		return ErrAccountRequired
	}
	if o.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	if !o.Status.Valid() {
		return ValidationError{Field: "status", Message: "unknown status " + string(o.Status)}
	}
	if o.OrderType != order.TypeShop && o.OrderType != order.TypeBilling {
		return ValidationError{Field: "order_type", Message: "must be shop or billing"}
	}

	acc, err := l.store.GetAccount(ctx, o.AccountID)
	if err != nil {
		return err
	}
	if o.Amount.Currency == "" {
		o.Amount.Currency = acc.Currency
	}
	if !o.Amount.SameCurrency(types.Zero(acc.Currency)) {
		return ErrCurrencyMismatch
	}

	if o.ID.IsNil() {
		o.ID = id.NewOrderID()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = localOrderNumber(o.ID)
	}
	o.Entity = types.NewEntity()

	if err := l.store.CreateOrder(ctx, o); err != nil {
		return err
	}

	l.plugins.EmitOrderCreated(ctx, o)
	l.reconcile(ctx, orderOpCreate, o)
	return nil
}

// GetOrder retrieves an order by ID.
func (l *Ledger) GetOrder(ctx context.Context, orderID id.OrderID) (*order.Order, error) {
	return l.store.GetOrder(ctx, orderID)
}

// ListOrders returns the account's orders, optionally filtered by status.
func (l *Ledger) ListOrders(ctx context.Context, accountID id.AccountID, opts order.ListOpts) ([]*order.Order, error) {
	return l.store.ListOrdersByAccount(ctx, accountID, opts)
}

// UpdateOrder saves order changes and reconciles the account's ledger
// fields. Status may move from pending to paid or cancelled; both are
// terminal. The account reference is immutable.
func (l *Ledger) UpdateOrder(ctx context.Context, o *order.Order) error {
	if o.ID.IsNil() {
		return ErrOrderNotFound
	}

	old, err := l.store.GetOrder(ctx, o.ID)
	if err != nil {
		return err
	}
	if o.AccountID != old.AccountID {
		return ValidationError{Field: "account_id", Message: "order account reference is immutable"}
	}
	if !o.Status.Valid() {
		return ValidationError{Field: "status", Message: "unknown status " + string(o.Status)}
	}
	if o.Status != old.Status && old.Status.Terminal() {
		return ErrStatusTransition
	}
	if o.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !o.Amount.SameCurrency(old.Amount) {
		return ErrCurrencyMismatch
	}

	// The invoice log is append-only and the snapshot is reconciler-owned;
	// callers that did not load them must not wipe them.
	if o.Invoices == nil {
		o.Invoices = old.Invoices
	}
	if o.BalanceSnapshot == nil {
		o.BalanceSnapshot = old.BalanceSnapshot
	}
	if o.OrderNumber == "" {
		o.OrderNumber = old.OrderNumber
	}
	o.OrderType = old.OrderType
	o.CreatedAt = old.CreatedAt
	o.Touch()

	if err := l.store.UpdateOrder(ctx, o); err != nil {
		return err
	}

	l.plugins.EmitOrderUpdated(ctx, old, o)
	l.reconcile(ctx, orderOpUpdate, o)
	return nil
}

// DeleteOrder removes an order from any state and reconciles the account's
// ledger fields.
func (l *Ledger) DeleteOrder(ctx context.Context, orderID id.OrderID) error {
	old, err := l.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if err := l.store.DeleteOrder(ctx, orderID); err != nil {
		return err
	}

	l.plugins.EmitOrderDeleted(ctx, orderID.String())
	l.reconcile(ctx, orderOpDelete, old)
	return nil
}

// RecordInvoiceAttempt appends one send attempt to the order's invoice log.
// The log is append-only audit data; recording an attempt does not count as
// an order write and triggers no reconciliation.
func (l *Ledger) RecordInvoiceAttempt(ctx context.Context, orderID id.OrderID, attempt order.InvoiceAttempt) error {
	if attempt.SentAt.IsZero() {
		attempt.SentAt = time.Now().UTC()
	}
	return l.store.AppendInvoiceAttempt(ctx, orderID, attempt)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func normalizeAccount(acc *account.ClientAccount) error {
	acc.Email = normalizeEmail(acc.Email)
	if acc.Email == "" {
		return ErrEmailRequired
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// localOrderNumber derives an order number from the order's TypeID when the
// processor did not assign one.
func localOrderNumber(orderID id.OrderID) string {
	return "ORD-" + strings.ToUpper(strings.TrimPrefix(orderID.String(), string(id.PrefixOrder)+"_"))
}
