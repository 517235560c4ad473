package processor_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/clientledger/processor"
)

// stubClient implements processor.Client with per-call function hooks.
type stubClient struct {
	retrieve func(customerID string) (*processor.Customer, error)
	list     func(email string) ([]*processor.Customer, error)
	create   func(nc processor.NewCustomer) (*processor.Customer, error)
	update   func(customerID string, upd processor.CustomerUpdate) (*processor.Customer, error)

	retrieveCalls int
	listCalls     int
	createCalls   int
	updateCalls   int
}

func (s *stubClient) RetrieveCustomer(_ context.Context, customerID string) (*processor.Customer, error) {
	s.retrieveCalls++
	if s.retrieve == nil {
		return nil, processor.ErrCustomerNotFound
	}
	return s.retrieve(customerID)
}

func (s *stubClient) ListCustomersByEmail(_ context.Context, email string) ([]*processor.Customer, error) {
	s.listCalls++
	if s.list == nil {
		return nil, nil
	}
	return s.list(email)
}

func (s *stubClient) CreateCustomer(_ context.Context, nc processor.NewCustomer) (*processor.Customer, error) {
	s.createCalls++
	if s.create == nil {
		return &processor.Customer{ID: "cus_new", Email: nc.Email, Name: nc.Name, Metadata: nc.Metadata}, nil
	}
	return s.create(nc)
}

func (s *stubClient) UpdateCustomer(_ context.Context, customerID string, upd processor.CustomerUpdate) (*processor.Customer, error) {
	s.updateCalls++
	if s.update == nil {
		return &processor.Customer{ID: customerID}, nil
	}
	return s.update(customerID, upd)
}

func newResolver(api processor.Client) *processor.Resolver {
	return processor.NewResolver("shop", api, slog.New(slog.DiscardHandler))
}

func TestResolveEmptyEmail(t *testing.T) {
	r := newResolver(&stubClient{})
	_, err := r.Resolve(context.Background(), processor.ResolveRequest{AccountID: "acct_1"})
	assert.Error(t, err)
}

func TestResolveKeepsValidReference(t *testing.T) {
	api := &stubClient{
		retrieve: func(customerID string) (*processor.Customer, error) {
			return &processor.Customer{ID: customerID, Email: "a@example.com"}, nil
		},
	}
	r := newResolver(api)

	ref, err := r.Resolve(context.Background(), processor.ResolveRequest{
		AccountID:   "acct_1",
		Email:       "a@example.com",
		PrevEmail:   "a@example.com",
		CustomerRef: "cus_123",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_123", ref)
	assert.Equal(t, 0, api.updateCalls)
	assert.Equal(t, 0, api.listCalls)
	assert.Equal(t, 0, api.createCalls)
}

func TestResolvePushesEmailChange(t *testing.T) {
	var pushed processor.CustomerUpdate
	api := &stubClient{
		retrieve: func(customerID string) (*processor.Customer, error) {
			return &processor.Customer{ID: customerID, Email: "old@example.com"}, nil
		},
		update: func(customerID string, upd processor.CustomerUpdate) (*processor.Customer, error) {
			pushed = upd
			return &processor.Customer{ID: customerID, Email: upd.Email}, nil
		},
	}
	r := newResolver(api)

	ref, err := r.Resolve(context.Background(), processor.ResolveRequest{
		AccountID:   "acct_1",
		Email:       "new@example.com",
		PrevEmail:   "old@example.com",
		DisplayName: "New Name",
		CustomerRef: "cus_123",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_123", ref)
	assert.Equal(t, 1, api.updateCalls)
	assert.Equal(t, "new@example.com", pushed.Email)
	assert.Equal(t, "New Name", pushed.Name)
}

func TestResolveStaleReferenceFallsBackToSearch(t *testing.T) {
	api := &stubClient{
		retrieve: func(string) (*processor.Customer, error) {
			return nil, processor.ErrCustomerNotFound
		},
		list: func(email string) ([]*processor.Customer, error) {
			return []*processor.Customer{{ID: "cus_found", Email: email}}, nil
		},
	}
	r := newResolver(api)

	ref, err := r.Resolve(context.Background(), processor.ResolveRequest{
		AccountID:   "acct_1",
		Email:       "a@example.com",
		CustomerRef: "cus_deleted",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_found", ref)
	assert.Equal(t, 0, api.createCalls)
}

func TestResolveRetrieveOutagePropagates(t *testing.T) {
	outage := errors.New("gateway timeout")
	api := &stubClient{
		retrieve: func(string) (*processor.Customer, error) { return nil, outage },
	}
	r := newResolver(api)

	_, err := r.Resolve(context.Background(), processor.ResolveRequest{
		AccountID:   "acct_1",
		Email:       "a@example.com",
		CustomerRef: "cus_123",
	})
	// An outage must not be mistaken for a deleted customer, which would
	// trigger a spurious re-link.
	require.ErrorIs(t, err, outage)
	assert.Equal(t, 0, api.listCalls)
	assert.Equal(t, 0, api.createCalls)
}

func TestResolveLinksFirstOfMultipleMatches(t *testing.T) {
	api := &stubClient{
		list: func(email string) ([]*processor.Customer, error) {
			return []*processor.Customer{
				{ID: "cus_a", Email: email, Name: "Match"},
				{ID: "cus_b", Email: email, Name: "Match"},
			}, nil
		},
	}
	r := newResolver(api)

	ref, err := r.Resolve(context.Background(), processor.ResolveRequest{
		AccountID:   "acct_1",
		Email:       "dup@example.com",
		DisplayName: "Match",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_a", ref)
	assert.Equal(t, 0, api.createCalls)
	assert.Equal(t, 0, api.updateCalls)
}

func TestResolveSearchMatchGetsNamePushed(t *testing.T) {
	var pushed processor.CustomerUpdate
	api := &stubClient{
		list: func(email string) ([]*processor.Customer, error) {
			return []*processor.Customer{{ID: "cus_a", Email: email, Name: "Stale Name"}}, nil
		},
		update: func(customerID string, upd processor.CustomerUpdate) (*processor.Customer, error) {
			pushed = upd
			return &processor.Customer{ID: customerID}, nil
		},
	}
	r := newResolver(api)

	ref, err := r.Resolve(context.Background(), processor.ResolveRequest{
		AccountID:   "acct_1",
		Email:       "a@example.com",
		DisplayName: "Fresh Name",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_a", ref)
	assert.Equal(t, "Fresh Name", pushed.Name)
	assert.Empty(t, pushed.Email)
}

func TestResolveCreatesWithProvenance(t *testing.T) {
	var created processor.NewCustomer
	api := &stubClient{
		create: func(nc processor.NewCustomer) (*processor.Customer, error) {
			created = nc
			return &processor.Customer{ID: "cus_new", Email: nc.Email}, nil
		},
	}
	r := newResolver(api)

	ref, err := r.Resolve(context.Background(), processor.ResolveRequest{
		AccountID:   "acct_77",
		Email:       "fresh@example.com",
		DisplayName: "Fresh Client",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", ref)
	assert.Equal(t, "fresh@example.com", created.Email)
	assert.Equal(t, "Fresh Client", created.Name)
	assert.Equal(t, "clientledger", created.Metadata["origin"])
	assert.Equal(t, "acct_77", created.Metadata["account_id"])
	assert.NotEmpty(t, created.Metadata["created_at"])
}

func TestResolveSearchErrorPropagates(t *testing.T) {
	outage := errors.New("search down")
	api := &stubClient{
		list: func(string) ([]*processor.Customer, error) { return nil, outage },
	}
	r := newResolver(api)

	_, err := r.Resolve(context.Background(), processor.ResolveRequest{
		AccountID: "acct_1",
		Email:     "a@example.com",
	})
	require.ErrorIs(t, err, outage)
	assert.Equal(t, 0, api.createCalls)
}
