// Package observability provides a metrics extension for the client ledger
// that records lifecycle event counts via an injected MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/clientledger/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated        = (*MetricsExtension)(nil)
	_ plugin.OnAccountUpdated        = (*MetricsExtension)(nil)
	_ plugin.OnAccountDeleted        = (*MetricsExtension)(nil)
	_ plugin.OnOrderCreated          = (*MetricsExtension)(nil)
	_ plugin.OnOrderUpdated          = (*MetricsExtension)(nil)
	_ plugin.OnOrderDeleted          = (*MetricsExtension)(nil)
	_ plugin.OnBalanceReconciled     = (*MetricsExtension)(nil)
	_ plugin.OnReconcileFailed       = (*MetricsExtension)(nil)
	_ plugin.OnCustomerLinked        = (*MetricsExtension)(nil)
	_ plugin.OnCustomerResolveFailed = (*MetricsExtension)(nil)
	_ plugin.OnIdentitySynced        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a ledger plugin to automatically track event counts.
type MetricsExtension struct {
	factory MetricFactory

	// Account metrics
	AccountCreated Counter
	AccountUpdated Counter
	AccountDeleted Counter

	// Order metrics
	OrderCreated Counter
	OrderUpdated Counter
	OrderDeleted Counter

	// Reconciliation metrics
	ReconcileSuccess Counter
	ReconcileFailure Counter
	AccountBalance   Histogram
	OrdersPerAccount Histogram

	// Identity resolution metrics
	CustomerLinked        Counter
	CustomerResolveFailed Counter
	IdentitySynced        Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Account metrics
		AccountCreated: factory.Counter("clientledger.account.created"),
		AccountUpdated: factory.Counter("clientledger.account.updated"),
		AccountDeleted: factory.Counter("clientledger.account.deleted"),

		// Order metrics
		OrderCreated: factory.Counter("clientledger.order.created"),
		OrderUpdated: factory.Counter("clientledger.order.updated"),
		OrderDeleted: factory.Counter("clientledger.order.deleted"),

		// Reconciliation metrics
		ReconcileSuccess: factory.Counter("clientledger.reconcile.success"),
		ReconcileFailure: factory.Counter("clientledger.reconcile.failure"),
		AccountBalance:   factory.Histogram("clientledger.account.balance_cents"),
		OrdersPerAccount: factory.Histogram("clientledger.account.total_orders"),

		// Identity resolution metrics
		CustomerLinked:        factory.Counter("clientledger.customer.linked"),
		CustomerResolveFailed: factory.Counter("clientledger.customer.resolve_failed"),
		IdentitySynced:        factory.Counter("clientledger.identity.synced"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ interface{}) error {
	m.AccountCreated.Inc()
	return nil
}

// OnAccountUpdated implements plugin.OnAccountUpdated.
func (m *MetricsExtension) OnAccountUpdated(_ context.Context, _, _ interface{}) error {
	m.AccountUpdated.Inc()
	return nil
}

// OnAccountDeleted implements plugin.OnAccountDeleted.
func (m *MetricsExtension) OnAccountDeleted(_ context.Context, _ string) error {
	m.AccountDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Order lifecycle hooks
// ──────────────────────────────────────────────────

// OnOrderCreated implements plugin.OnOrderCreated.
func (m *MetricsExtension) OnOrderCreated(_ context.Context, _ interface{}) error {
	m.OrderCreated.Inc()
	return nil
}

// OnOrderUpdated implements plugin.OnOrderUpdated.
func (m *MetricsExtension) OnOrderUpdated(_ context.Context, _, _ interface{}) error {
	m.OrderUpdated.Inc()
	return nil
}

// OnOrderDeleted implements plugin.OnOrderDeleted.
func (m *MetricsExtension) OnOrderDeleted(_ context.Context, _ string) error {
	m.OrderDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnBalanceReconciled implements plugin.OnBalanceReconciled.
func (m *MetricsExtension) OnBalanceReconciled(_ context.Context, _ string, balanceAmount, totalOrders int64) error {
	m.ReconcileSuccess.Inc()
	m.AccountBalance.Observe(float64(balanceAmount))
	m.OrdersPerAccount.Observe(float64(totalOrders))
	return nil
}

// OnReconcileFailed implements plugin.OnReconcileFailed.
func (m *MetricsExtension) OnReconcileFailed(_ context.Context, _ string, _ error) error {
	m.ReconcileFailure.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Identity resolution hooks
// ──────────────────────────────────────────────────

// OnCustomerLinked implements plugin.OnCustomerLinked.
func (m *MetricsExtension) OnCustomerLinked(_ context.Context, _, _, _ string) error {
	m.CustomerLinked.Inc()
	return nil
}

// OnCustomerResolveFailed implements plugin.OnCustomerResolveFailed.
func (m *MetricsExtension) OnCustomerResolveFailed(_ context.Context, _, _ string, _ error) error {
	m.CustomerResolveFailed.Inc()
	return nil
}

// OnIdentitySynced implements plugin.OnIdentitySynced.
func (m *MetricsExtension) OnIdentitySynced(_ context.Context, _, _ string) error {
	m.IdentitySynced.Inc()
	return nil
}
