package clientledger_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientledger "github.com/xraph/clientledger"
	"github.com/xraph/clientledger/account"
	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/identity"
	"github.com/xraph/clientledger/processor"
	"github.com/xraph/clientledger/store"
	"github.com/xraph/clientledger/store/memory"
)

// fakeProcessorAPI is an in-memory processor.Client for engine tests.
type fakeProcessorAPI struct {
	mu        sync.Mutex
	customers map[string]*processor.Customer
	nextID    int

	retrieveCalls int
	searchCalls   int
	createCalls   int
	updateCalls   int

	failAll bool
}

func newFakeProcessorAPI() *fakeProcessorAPI {
	return &fakeProcessorAPI{customers: make(map[string]*processor.Customer)}
}

func (f *fakeProcessorAPI) RetrieveCustomer(_ context.Context, customerID string) (*processor.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieveCalls++
	if f.failAll {
		return nil, errors.New("processor unavailable")
	}
	if c, ok := f.customers[customerID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, processor.ErrCustomerNotFound
}

func (f *fakeProcessorAPI) ListCustomersByEmail(_ context.Context, email string) ([]*processor.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.failAll {
		return nil, errors.New("processor unavailable")
	}
	var matches []*processor.Customer
	for _, c := range f.customers {
		if c.Email == email {
			cp := *c
			matches = append(matches, &cp)
		}
	}
	return matches, nil
}

func (f *fakeProcessorAPI) CreateCustomer(_ context.Context, nc processor.NewCustomer) (*processor.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failAll {
		return nil, errors.New("processor unavailable")
	}
	f.nextID++
	c := &processor.Customer{
		ID:       fmt.Sprintf("cus_%03d", f.nextID),
		Email:    nc.Email,
		Name:     nc.Name,
		Metadata: nc.Metadata,
	}
	f.customers[c.ID] = c
	return c, nil
}

func (f *fakeProcessorAPI) UpdateCustomer(_ context.Context, customerID string, upd processor.CustomerUpdate) (*processor.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failAll {
		return nil, errors.New("processor unavailable")
	}
	c, ok := f.customers[customerID]
	if !ok {
		return nil, processor.ErrCustomerNotFound
	}
	if upd.Email != "" {
		c.Email = upd.Email
	}
	if upd.Name != "" {
		c.Name = upd.Name
	}
	cp := *c
	return &cp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestLedger(t *testing.T, opts ...clientledger.Option) *clientledger.Ledger {
	t.Helper()
	opts = append([]clientledger.Option{
		clientledger.WithLogger(testLogger()),
	}, opts...)
	l := clientledger.New(memory.New(), opts...)
	require.NoError(t, l.Start(context.Background()))
	return l
}

func TestCreateAccountDefaults(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "  Jane@Example.COM ", Name: "Jane"}
	require.NoError(t, l.CreateAccount(ctx, acc))

	assert.False(t, acc.ID.IsNil())
	assert.Equal(t, "jane@example.com", acc.Email)
	assert.Equal(t, "usd", acc.Currency)
	assert.True(t, acc.AccountBalance.IsZero())
	assert.Equal(t, int64(0), acc.TotalOrders)
	assert.False(t, acc.CreatedAt.IsZero())

	got, err := l.GetAccountByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestCreateAccountRequiresEmail(t *testing.T) {
	l := newTestLedger(t)

	err := l.CreateAccount(context.Background(), &account.ClientAccount{Name: "No Email"})
	assert.ErrorIs(t, err, clientledger.ErrEmailRequired)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.CreateAccount(ctx, &account.ClientAccount{Email: "dup@example.com"}))
	err := l.CreateAccount(ctx, &account.ClientAccount{Email: "dup@example.com"})
	assert.ErrorIs(t, err, clientledger.ErrEmailTaken)
}

func TestCreateAccountCustomCurrency(t *testing.T) {
	l := newTestLedger(t, clientledger.WithDefaultCurrency("EUR"))
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "eu@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))
	assert.Equal(t, "eur", acc.Currency)
	assert.Equal(t, "eur", acc.AccountBalance.Currency)
}

func TestUpdateAccountPreservesDerivedFields(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "derived@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))

	// A caller passing garbage in derived fields must not corrupt the ledger.
	upd := &account.ClientAccount{
		ID:          acc.ID,
		Email:       "derived@example.com",
		Name:        "Renamed",
		TotalOrders: 999,
	}
	upd.AccountBalance.Amount = 123456
	require.NoError(t, l.UpdateAccount(ctx, upd))

	got, err := l.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.AccountBalance.IsZero())
	assert.Equal(t, int64(0), got.TotalOrders)
	assert.Equal(t, acc.CreatedAt, got.CreatedAt)
}

// interleavingStore slips a ledger write between a profile save's read and
// its write, once, so the save observes a mid-flight reconciliation.
type interleavingStore struct {
	store.Store
	balance   clientledger.Money
	total     int64
	fired     bool
	conflicts int
}

func (s *interleavingStore) UpdateAccount(ctx context.Context, acc *account.ClientAccount) error {
	if !s.fired {
		s.fired = true
		if err := s.Store.UpdateAccountLedger(ctx, acc.ID, acc.Version, s.balance, s.total); err != nil {
			return err
		}
	}
	err := s.Store.UpdateAccount(ctx, acc)
	if errors.Is(err, clientledger.ErrWriteConflict) {
		s.conflicts++
	}
	return err
}

func TestProfileSaveRetriesThroughConcurrentReconcile(t *testing.T) {
	st := &interleavingStore{Store: memory.New(), balance: clientledger.USD(300), total: 3}
	l := clientledger.New(st, clientledger.WithLogger(testLogger()))
	require.NoError(t, l.Start(context.Background()))
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "race@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))

	require.NoError(t, l.UpdateAccount(ctx, &account.ClientAccount{
		ID:    acc.ID,
		Email: "race@example.com",
		Name:  "Raced",
	}))
	assert.Equal(t, 1, st.conflicts)

	got, err := l.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Raced", got.Name)

	// The ledger write that landed mid-save survives the profile save.
	assert.Equal(t, int64(300), got.AccountBalance.Amount)
	assert.Equal(t, int64(3), got.TotalOrders)
}

func TestDeleteAccount(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "gone@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))
	require.NoError(t, l.DeleteAccount(ctx, acc.ID))

	_, err := l.GetAccount(ctx, acc.ID)
	assert.ErrorIs(t, err, clientledger.ErrAccountNotFound)
}

// ──────────────────────────────────────────────────
// Identity resolution through account writes
// ──────────────────────────────────────────────────

func TestCreateAccountLinksProcessorCustomer(t *testing.T) {
	api := newFakeProcessorAPI()
	l := newTestLedger(t, clientledger.WithShopProcessor(api))
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "link@example.com", Name: "Link Me"}
	require.NoError(t, l.CreateAccount(ctx, acc))

	require.NotEmpty(t, acc.ShopCustomerID)
	assert.Equal(t, 1, api.createCalls)

	remote := api.customers[acc.ShopCustomerID]
	require.NotNil(t, remote)
	assert.Equal(t, "link@example.com", remote.Email)
	assert.Equal(t, "Link Me", remote.Name)
	assert.Equal(t, "clientledger", remote.Metadata["origin"])
	assert.Equal(t, acc.ID.String(), remote.Metadata["account_id"])

	got, err := l.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, acc.ShopCustomerID, got.ShopCustomerID)
}

func TestRepeatedSavesNeverDuplicateCustomer(t *testing.T) {
	api := newFakeProcessorAPI()
	l := newTestLedger(t, clientledger.WithBillingProcessor(api))
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "once@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))
	ref := acc.BillingCustomerID
	require.NotEmpty(t, ref)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.UpdateAccount(ctx, &account.ClientAccount{
			ID:    acc.ID,
			Email: "once@example.com",
			Name:  "Still Once",
		}))
	}

	got, err := l.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, got.BillingCustomerID)
	assert.Equal(t, 1, api.createCalls)
	assert.Len(t, api.customers, 1)
}

func TestProfileSaveKeepsProcessorReference(t *testing.T) {
	api := newFakeProcessorAPI()
	l := newTestLedger(t, clientledger.WithShopProcessor(api))
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "pinned@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))
	ref := acc.ShopCustomerID
	require.NotEmpty(t, ref)

	// The processor goes down; a profile save whose caller struct does not
	// carry the reference must still leave the stored link intact.
	api.failAll = true
	require.NoError(t, l.UpdateAccount(ctx, &account.ClientAccount{
		ID:      acc.ID,
		Email:   "pinned@example.com",
		Company: "Pinned Co",
	}))

	got, err := l.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, got.ShopCustomerID)
	assert.Equal(t, "Pinned Co", got.Company)

	// With the processor back, resolution goes through the stored reference
	// rather than a fresh email search.
	api.failAll = false
	searches := api.searchCalls
	require.NoError(t, l.UpdateAccount(ctx, &account.ClientAccount{
		ID:    acc.ID,
		Email: "pinned@example.com",
	}))
	assert.Equal(t, searches, api.searchCalls)
	assert.Equal(t, 1, api.createCalls)
}

func TestAccountSaveSurvivesProcessorOutage(t *testing.T) {
	api := newFakeProcessorAPI()
	api.failAll = true
	l := newTestLedger(t, clientledger.WithShopProcessor(api))
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "outage@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))

	got, err := l.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ShopCustomerID)
}

func TestBothProcessorsResolveIndependently(t *testing.T) {
	shop := newFakeProcessorAPI()
	billing := newFakeProcessorAPI()
	l := newTestLedger(t,
		clientledger.WithShopProcessor(shop),
		clientledger.WithBillingProcessor(billing),
	)
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "both@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))

	got, err := l.GetAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ShopCustomerID)
	assert.NotEmpty(t, got.BillingCustomerID)
}

// recordingHandler captures log messages for assertions.
type recordingHandler struct {
	mu       sync.Mutex
	messages []string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, r.Message)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestResolverLogsThroughConfiguredLogger(t *testing.T) {
	api := newFakeProcessorAPI()
	h := &recordingHandler{}

	// The processor option is listed before the logger option; resolver
	// logging must still go to the configured logger.
	l := clientledger.New(memory.New(),
		clientledger.WithShopProcessor(api),
		clientledger.WithLogger(slog.New(h)),
	)
	require.NoError(t, l.Start(context.Background()))
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "ordering@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))

	// Delete the remote record out-of-band so the next save hits the
	// resolver's stale-reference warning.
	delete(api.customers, acc.ShopCustomerID)
	require.NoError(t, l.UpdateAccount(ctx, &account.ClientAccount{
		ID:    acc.ID,
		Email: "ordering@example.com",
	}))

	assert.Contains(t, h.messages, "stale customer reference, re-resolving")
}

// ──────────────────────────────────────────────────
// Account → identity sync
// ──────────────────────────────────────────────────

// fakeIdentityStore records identity writes for assertions.
type fakeIdentityStore struct {
	mu       sync.Mutex
	linked   map[string]*identity.Identity // account id → identity
	updates  []identity.Fields
	syncTags []bool // IsSyncWrite of the ctx on each update
}

func newFakeIdentityStore() *fakeIdentityStore {
	return &fakeIdentityStore{linked: make(map[string]*identity.Identity)}
}

func (f *fakeIdentityStore) FindLinkedIdentity(_ context.Context, accountID clientledger.ID) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idn, ok := f.linked[accountID.String()]; ok {
		cp := *idn
		return &cp, nil
	}
	return nil, identity.ErrNotLinked
}

func (f *fakeIdentityStore) UpdateIdentity(ctx context.Context, identityID clientledger.ID, fields identity.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, fields)
	f.syncTags = append(f.syncTags, clientledger.IsSyncWrite(ctx))
	for _, idn := range f.linked {
		if idn.ID == identityID {
			idn.Email = fields.Email
			idn.FirstName = fields.FirstName
			idn.LastName = fields.LastName
			idn.Company = fields.Company
		}
	}
	return nil
}

func TestAccountUpdateMirrorsLinkedIdentity(t *testing.T) {
	identities := newFakeIdentityStore()
	l := newTestLedger(t, clientledger.WithIdentityStore(identities))
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "mirror@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))

	idn := &identity.Identity{
		ID:        id.NewIdentityID(),
		AccountID: acc.ID,
		Email:     "stale@example.com",
	}
	identities.linked[acc.ID.String()] = idn

	require.NoError(t, l.UpdateAccount(ctx, &account.ClientAccount{
		ID:        acc.ID,
		Email:     "mirror@example.com",
		FirstName: "Mira",
		LastName:  "Rohr",
		Company:   "Rohr GmbH",
	}))

	require.Len(t, identities.updates, 1)
	upd := identities.updates[0]
	assert.Equal(t, "mirror@example.com", upd.Email)
	assert.Equal(t, "Mira", upd.FirstName)
	assert.Equal(t, "Rohr", upd.LastName)
	assert.Equal(t, "Rohr GmbH", upd.Company)

	// The mirror write is tagged so a reverse hook terminates after one hop.
	require.Len(t, identities.syncTags, 1)
	assert.True(t, identities.syncTags[0])
}

func TestUnlinkedAccountSkipsIdentitySync(t *testing.T) {
	identities := newFakeIdentityStore()
	l := newTestLedger(t, clientledger.WithIdentityStore(identities))
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "nolink@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))
	assert.Empty(t, identities.updates)
}

func TestSyncTaggedUpdateSkipsReactions(t *testing.T) {
	api := newFakeProcessorAPI()
	identities := newFakeIdentityStore()
	l := newTestLedger(t,
		clientledger.WithShopProcessor(api),
		clientledger.WithIdentityStore(identities),
	)
	ctx := context.Background()

	acc := &account.ClientAccount{Email: "hop@example.com"}
	require.NoError(t, l.CreateAccount(ctx, acc))
	createsAfterOnboard := api.createCalls
	searchesAfterOnboard := api.searchCalls

	// A mirror write arriving from the auth side must not re-trigger
	// resolution or bounce another sync back.
	require.NoError(t, l.UpdateAccount(clientledger.MarkSyncWrite(ctx), &account.ClientAccount{
		ID:    acc.ID,
		Email: "hop@example.com",
		Name:  "Updated From Auth",
	}))

	assert.Equal(t, createsAfterOnboard, api.createCalls)
	assert.Equal(t, searchesAfterOnboard, api.searchCalls)
	assert.Equal(t, 0, api.retrieveCalls)
	assert.Equal(t, 0, api.updateCalls)
	assert.Empty(t, identities.updates)
}
