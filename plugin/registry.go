package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onAccountCreated        []OnAccountCreated
	onAccountUpdated        []OnAccountUpdated
	onAccountDeleted        []OnAccountDeleted
	onOrderCreated          []OnOrderCreated
	onOrderUpdated          []OnOrderUpdated
	onOrderDeleted          []OnOrderDeleted
	onBalanceReconciled     []OnBalanceReconciled
	onReconcileFailed       []OnReconcileFailed
	onCustomerLinked        []OnCustomerLinked
	onCustomerResolveFailed []OnCustomerResolveFailed
	onIdentitySynced        []OnIdentitySynced
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := p.(OnAccountUpdated); ok {
		r.onAccountUpdated = append(r.onAccountUpdated, v)
	}
	if v, ok := p.(OnAccountDeleted); ok {
		r.onAccountDeleted = append(r.onAccountDeleted, v)
	}
	if v, ok := p.(OnOrderCreated); ok {
		r.onOrderCreated = append(r.onOrderCreated, v)
	}
	if v, ok := p.(OnOrderUpdated); ok {
		r.onOrderUpdated = append(r.onOrderUpdated, v)
	}
	if v, ok := p.(OnOrderDeleted); ok {
		r.onOrderDeleted = append(r.onOrderDeleted, v)
	}
	if v, ok := p.(OnBalanceReconciled); ok {
		r.onBalanceReconciled = append(r.onBalanceReconciled, v)
	}
	if v, ok := p.(OnReconcileFailed); ok {
		r.onReconcileFailed = append(r.onReconcileFailed, v)
	}
	if v, ok := p.(OnCustomerLinked); ok {
		r.onCustomerLinked = append(r.onCustomerLinked, v)
	}
	if v, ok := p.(OnCustomerResolveFailed); ok {
		r.onCustomerResolveFailed = append(r.onCustomerResolveFailed, v)
	}
	if v, ok := p.(OnIdentitySynced); ok {
		r.onIdentitySynced = append(r.onIdentitySynced, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnAccountCreated)(nil)).Elem(), "OnAccountCreated")
	checkInterface(reflect.TypeOf((*OnAccountUpdated)(nil)).Elem(), "OnAccountUpdated")
	checkInterface(reflect.TypeOf((*OnAccountDeleted)(nil)).Elem(), "OnAccountDeleted")
	checkInterface(reflect.TypeOf((*OnOrderCreated)(nil)).Elem(), "OnOrderCreated")
	checkInterface(reflect.TypeOf((*OnOrderUpdated)(nil)).Elem(), "OnOrderUpdated")
	checkInterface(reflect.TypeOf((*OnOrderDeleted)(nil)).Elem(), "OnOrderDeleted")
	checkInterface(reflect.TypeOf((*OnBalanceReconciled)(nil)).Elem(), "OnBalanceReconciled")
	checkInterface(reflect.TypeOf((*OnReconcileFailed)(nil)).Elem(), "OnReconcileFailed")
	checkInterface(reflect.TypeOf((*OnCustomerLinked)(nil)).Elem(), "OnCustomerLinked")
	checkInterface(reflect.TypeOf((*OnCustomerResolveFailed)(nil)).Elem(), "OnCustomerResolveFailed")
	checkInterface(reflect.TypeOf((*OnIdentitySynced)(nil)).Elem(), "OnIdentitySynced")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitAccountCreated emits an account created event.
func (r *Registry) EmitAccountCreated(ctx context.Context, acc interface{}) {
	r.mu.RLock()
	plugins := r.onAccountCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountCreated(ctx, acc)
		}); err != nil {
			r.logger.Warn("plugin OnAccountCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitAccountUpdated emits an account updated event.
func (r *Registry) EmitAccountUpdated(ctx context.Context, oldAcc, newAcc interface{}) {
	r.mu.RLock()
	plugins := r.onAccountUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountUpdated(ctx, oldAcc, newAcc)
		}); err != nil {
			r.logger.Warn("plugin OnAccountUpdated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitAccountDeleted emits an account deleted event.
func (r *Registry) EmitAccountDeleted(ctx context.Context, accountID string) {
	r.mu.RLock()
	plugins := r.onAccountDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountDeleted(ctx, accountID)
		}); err != nil {
			r.logger.Warn("plugin OnAccountDeleted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitOrderCreated emits an order created event.
func (r *Registry) EmitOrderCreated(ctx context.Context, o interface{}) {
	r.mu.RLock()
	plugins := r.onOrderCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOrderCreated(ctx, o)
		}); err != nil {
			r.logger.Warn("plugin OnOrderCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitOrderUpdated emits an order updated event.
func (r *Registry) EmitOrderUpdated(ctx context.Context, oldOrder, newOrder interface{}) {
	r.mu.RLock()
	plugins := r.onOrderUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOrderUpdated(ctx, oldOrder, newOrder)
		}); err != nil {
			r.logger.Warn("plugin OnOrderUpdated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitOrderDeleted emits an order deleted event.
func (r *Registry) EmitOrderDeleted(ctx context.Context, orderID string) {
	r.mu.RLock()
	plugins := r.onOrderDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOrderDeleted(ctx, orderID)
		}); err != nil {
			r.logger.Warn("plugin OnOrderDeleted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitBalanceReconciled emits a balance reconciled event.
func (r *Registry) EmitBalanceReconciled(ctx context.Context, accountID string, balanceAmount, totalOrders int64) {
	r.mu.RLock()
	plugins := r.onBalanceReconciled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBalanceReconciled(ctx, accountID, balanceAmount, totalOrders)
		}); err != nil {
			r.logger.Warn("plugin OnBalanceReconciled failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitReconcileFailed emits a reconcile failed event.
func (r *Registry) EmitReconcileFailed(ctx context.Context, accountID string, failure error) {
	r.mu.RLock()
	plugins := r.onReconcileFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnReconcileFailed(ctx, accountID, failure)
		}); err != nil {
			r.logger.Warn("plugin OnReconcileFailed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCustomerLinked emits a customer linked event.
func (r *Registry) EmitCustomerLinked(ctx context.Context, processor, accountID, customerID string) {
	r.mu.RLock()
	plugins := r.onCustomerLinked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomerLinked(ctx, processor, accountID, customerID)
		}); err != nil {
			r.logger.Warn("plugin OnCustomerLinked failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCustomerResolveFailed emits a resolve failed event.
func (r *Registry) EmitCustomerResolveFailed(ctx context.Context, processor, accountID string, failure error) {
	r.mu.RLock()
	plugins := r.onCustomerResolveFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomerResolveFailed(ctx, processor, accountID, failure)
		}); err != nil {
			r.logger.Warn("plugin OnCustomerResolveFailed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitIdentitySynced emits an identity synced event.
func (r *Registry) EmitIdentitySynced(ctx context.Context, accountID, identityID string) {
	r.mu.RLock()
	plugins := r.onIdentitySynced
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnIdentitySynced(ctx, accountID, identityID)
		}); err != nil {
			r.logger.Warn("plugin OnIdentitySynced failed", "plugin", p.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
