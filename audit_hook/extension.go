// Package audithook bridges client-ledger lifecycle events to an audit
// trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/clientledger/account"
	"github.com/xraph/clientledger/order"
	"github.com/xraph/clientledger/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnAccountCreated        = (*Extension)(nil)
	_ plugin.OnAccountUpdated        = (*Extension)(nil)
	_ plugin.OnAccountDeleted        = (*Extension)(nil)
	_ plugin.OnOrderCreated          = (*Extension)(nil)
	_ plugin.OnOrderUpdated          = (*Extension)(nil)
	_ plugin.OnOrderDeleted          = (*Extension)(nil)
	_ plugin.OnBalanceReconciled     = (*Extension)(nil)
	_ plugin.OnReconcileFailed       = (*Extension)(nil)
	_ plugin.OnCustomerLinked        = (*Extension)(nil)
	_ plugin.OnCustomerResolveFailed = (*Extension)(nil)
	_ plugin.OnIdentitySynced        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges client-ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (e *Extension) OnAccountCreated(ctx context.Context, acc interface{}) error {
	return e.record(ctx, ActionAccountCreated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, accountID(acc), CategoryAccount, nil,
		"event", "account_created",
	)
}

// OnAccountUpdated implements plugin.OnAccountUpdated.
func (e *Extension) OnAccountUpdated(ctx context.Context, _, newAcc interface{}) error {
	return e.record(ctx, ActionAccountUpdated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, accountID(newAcc), CategoryAccount, nil,
		"event", "account_updated",
	)
}

// OnAccountDeleted implements plugin.OnAccountDeleted.
func (e *Extension) OnAccountDeleted(ctx context.Context, accountID string) error {
	return e.record(ctx, ActionAccountDeleted, SeverityWarning, OutcomeSuccess,
		ResourceAccount, accountID, CategoryAccount, nil,
		"account_id", accountID,
	)
}

// ──────────────────────────────────────────────────
// Order lifecycle hooks
// ──────────────────────────────────────────────────

// OnOrderCreated implements plugin.OnOrderCreated.
func (e *Extension) OnOrderCreated(ctx context.Context, o interface{}) error {
	return e.record(ctx, ActionOrderCreated, SeverityInfo, OutcomeSuccess,
		ResourceOrder, orderID(o), CategoryOrder, nil,
		"event", "order_created",
	)
}

// OnOrderUpdated implements plugin.OnOrderUpdated.
func (e *Extension) OnOrderUpdated(ctx context.Context, _, newOrder interface{}) error {
	return e.record(ctx, ActionOrderUpdated, SeverityInfo, OutcomeSuccess,
		ResourceOrder, orderID(newOrder), CategoryOrder, nil,
		"event", "order_updated",
	)
}

// OnOrderDeleted implements plugin.OnOrderDeleted.
func (e *Extension) OnOrderDeleted(ctx context.Context, orderID string) error {
	return e.record(ctx, ActionOrderDeleted, SeverityWarning, OutcomeSuccess,
		ResourceOrder, orderID, CategoryOrder, nil,
		"order_id", orderID,
	)
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnBalanceReconciled implements plugin.OnBalanceReconciled.
func (e *Extension) OnBalanceReconciled(ctx context.Context, accountID string, balanceAmount, totalOrders int64) error {
	return e.record(ctx, ActionBalanceReconciled, SeverityInfo, OutcomeSuccess,
		ResourceLedger, accountID, CategoryLedger, nil,
		"account_id", accountID,
		"balance_amount", balanceAmount,
		"total_orders", totalOrders,
	)
}

// OnReconcileFailed implements plugin.OnReconcileFailed.
func (e *Extension) OnReconcileFailed(ctx context.Context, accountID string, err error) error {
	return e.record(ctx, ActionReconcileFailed, SeverityError, OutcomeFailure,
		ResourceLedger, accountID, CategoryLedger, err,
		"account_id", accountID,
	)
}

// ──────────────────────────────────────────────────
// Identity resolution hooks
// ──────────────────────────────────────────────────

// OnCustomerLinked implements plugin.OnCustomerLinked.
func (e *Extension) OnCustomerLinked(ctx context.Context, processor, accountID, customerID string) error {
	return e.record(ctx, ActionCustomerLinked, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, customerID, CategoryIntegration, nil,
		"processor", processor,
		"account_id", accountID,
		"customer_id", customerID,
	)
}

// OnCustomerResolveFailed implements plugin.OnCustomerResolveFailed.
func (e *Extension) OnCustomerResolveFailed(ctx context.Context, processor, accountID string, err error) error {
	return e.record(ctx, ActionCustomerResolveFailed, SeverityError, OutcomeFailure,
		ResourceCustomer, accountID, CategoryIntegration, err,
		"processor", processor,
		"account_id", accountID,
	)
}

// OnIdentitySynced implements plugin.OnIdentitySynced.
func (e *Extension) OnIdentitySynced(ctx context.Context, accountID, identityID string) error {
	return e.record(ctx, ActionIdentitySynced, SeverityInfo, OutcomeSuccess,
		ResourceIdentity, identityID, CategoryIntegration, nil,
		"account_id", accountID,
		"identity_id", identityID,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func accountID(v interface{}) string {
	if acc, ok := v.(*account.ClientAccount); ok && acc != nil {
		return acc.ID.String()
	}
	return ""
}

func orderID(v interface{}) string {
	if o, ok := v.(*order.Order); ok && o != nil {
		return o.ID.String()
	}
	return ""
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
