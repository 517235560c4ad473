package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountCreated = "account.created"
	ActionAccountUpdated = "account.updated"
	ActionAccountDeleted = "account.deleted"

	// Order actions
	ActionOrderCreated = "order.created"
	ActionOrderUpdated = "order.updated"
	ActionOrderDeleted = "order.deleted"

	// Ledger actions
	ActionBalanceReconciled = "ledger.reconciled"
	ActionReconcileFailed   = "ledger.reconcile_failed"

	// Identity actions
	ActionCustomerLinked        = "customer.linked"
	ActionCustomerResolveFailed = "customer.resolve_failed"
	ActionIdentitySynced        = "identity.synced"
)

// Resource constants for audit events.
const (
	ResourceAccount  = "account"
	ResourceOrder    = "order"
	ResourceLedger   = "ledger"
	ResourceCustomer = "customer"
	ResourceIdentity = "identity"
)

// Category constants for audit events.
const (
	CategoryAccount     = "account"
	CategoryOrder       = "order"
	CategoryLedger      = "ledger"
	CategoryIntegration = "integration"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
