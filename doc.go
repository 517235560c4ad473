// Package clientledger keeps a client's ledger and remote payment-processor
// identity consistent as orders and accounts change.
//
// It is designed as a library, not a service. Import it directly into your
// Go application and wire the collaborators you have:
//
//   - Derived ledger fields (outstanding balance, lifetime order count)
//     recomputed in full from the order set after every order write
//   - Transient write conflicts retried with strict exponential backoff
//   - One remote customer record per payment processor per account,
//     resolved search-first and never duplicated
//   - Account fields mirrored onto the linked auth identity, with a
//     sync tag that stops the mirror after one hop in either direction
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/clientledger"
//	    "github.com/xraph/clientledger/store/mongo"
//	)
//
//	st := mongo.New(client.Database("clientledger"))
//
//	l := clientledger.New(st,
//	    clientledger.WithShopProcessor(shopAPI),
//	    clientledger.WithBillingProcessor(billingAPI),
//	    clientledger.WithIdentityStore(authIdentities),
//	)
//
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// Orders accrue to a client account's balance while pending:
//
//	o := &order.Order{
//	    AccountID: acc.ID,
//	    Amount:    clientledger.USD(10000),
//	    OrderType: order.TypeShop,
//	}
//	err := l.CreateOrder(ctx, o)
//
// # Consistency model
//
// Reconciliation and identity resolution run synchronously inside the
// request that performed the triggering write, after it commits. They never
// fail that write: every failure is logged, the write stands, and the next
// save of the same record repairs the damage. The balance is therefore
// allowed a bounded window of staleness that self-heals on the next order
// event for that client.
//
// The account document is the only shared mutable resource in contention.
// Writers do not lock it; they recompute from the full order set and rely on
// the store's version check to surface races as transient conflicts, which
// RetryOnConflict re-attempts with 100ms, 200ms, 400ms delays.
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit (cents for USD, pence for GBP, etc).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41  // Client account ID
//	ord_01h2xcejqtf2nbrexx3vqjhp41   // Order ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package clientledger
