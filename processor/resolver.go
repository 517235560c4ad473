package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ResolveRequest describes one account save for the resolver.
type ResolveRequest struct {
	AccountID   string
	Email       string
	PrevEmail   string // email at the previous save; empty on create
	DisplayName string
	CustomerRef string // currently stored remote customer id, if any
}

// Resolver ensures a client account ends each save holding a reference to
// exactly one remote customer record in one processor.
//
// The algorithm is search-first, create-only-if-not-found: an existing
// reference is fetched and refreshed; a stale reference falls back to an
// email search; a new remote record is created only when the search finds
// nothing. For a fixed email, repeated invocations converge to a single
// remote customer id and never create a second one.
type Resolver struct {
	name   string
	api    Client
	logger *slog.Logger
}

// NewResolver creates a resolver for the named processor.
func NewResolver(name string, api Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{name: name, api: api, logger: logger}
}

// Name returns the processor name this resolver serves.
func (r *Resolver) Name() string { return r.name }

// Resolve returns the remote customer id the account should hold after this
// save. Errors are returned for the caller to log and swallow; the account
// write itself must not fail on processor trouble.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) (string, error) {
	if req.Email == "" {
		return "", fmt.Errorf("processor %s: resolve account %s: empty email", r.name, req.AccountID)
	}

	if req.CustomerRef != "" {
		cust, err := r.api.RetrieveCustomer(ctx, req.CustomerRef)
		switch {
		case err == nil:
			if req.PrevEmail != "" && req.Email != req.PrevEmail {
				if _, uerr := r.api.UpdateCustomer(ctx, cust.ID, CustomerUpdate{
					Email: req.Email,
					Name:  req.DisplayName,
				}); uerr != nil {
					return "", fmt.Errorf("processor %s: push email change to customer %s: %w", r.name, cust.ID, uerr)
				}
			}
			return cust.ID, nil

		case errors.Is(err, ErrCustomerNotFound):
			// Stale reference: the remote record was deleted out-of-band.
			// Clear it and re-resolve by email.
			r.logger.Warn("stale customer reference, re-resolving",
				"processor", r.name,
				"account_id", req.AccountID,
				"customer_id", req.CustomerRef,
			)

		default:
			return "", fmt.Errorf("processor %s: retrieve customer %s: %w", r.name, req.CustomerRef, err)
		}
	}

	matches, err := r.api.ListCustomersByEmail(ctx, req.Email)
	if err != nil {
		return "", fmt.Errorf("processor %s: search customers by email: %w", r.name, err)
	}

	if len(matches) > 0 {
		cust := matches[0]
		if len(matches) > 1 {
			r.logger.Warn("multiple remote customers share one email, linking first",
				"processor", r.name,
				"email", req.Email,
				"matches", len(matches),
				"customer_id", cust.ID,
			)
		}
		if req.DisplayName != "" && cust.Name != req.DisplayName {
			if _, uerr := r.api.UpdateCustomer(ctx, cust.ID, CustomerUpdate{Name: req.DisplayName}); uerr != nil {
				return "", fmt.Errorf("processor %s: push name to customer %s: %w", r.name, cust.ID, uerr)
			}
		}
		return cust.ID, nil
	}

	created, err := r.api.CreateCustomer(ctx, NewCustomer{
		Email:    req.Email,
		Name:     req.DisplayName,
		Metadata: ProvenanceMetadata(req.AccountID),
	})
	if err != nil {
		return "", fmt.Errorf("processor %s: create customer: %w", r.name, err)
	}

	r.logger.Info("created remote customer",
		"processor", r.name,
		"account_id", req.AccountID,
		"customer_id", created.ID,
	)

	return created.ID, nil
}
