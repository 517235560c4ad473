// Package order defines the order entity, its line items, and the
// append-only invoice send log.
package order

import (
	"time"

	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/types"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further status transitions.
// Pending orders may become paid or cancelled; both are terminal.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Type selects which processor's fields apply to an order.
type Type string

const (
	TypeShop    Type = "shop"
	TypeBilling Type = "billing"
)

// Order is a single client purchase, created in StatusPending at
// order/payment-link creation time.
type Order struct {
	types.Entity
	ID          id.OrderID   `json:"id"`
	OrderNumber string       `json:"order_number"`
	AccountID   id.AccountID `json:"account_id"`
	Amount      types.Money  `json:"amount"`
	Status      Status       `json:"status"`
	OrderType   Type         `json:"order_type"`

	// BalanceSnapshot records the account balance immediately after this
	// order's effect was last reconciled. Audit trail only; the live balance
	// is always recomputed from the order set.
	BalanceSnapshot *types.Money `json:"balance_snapshot,omitempty"`

	LineItems []LineItem       `json:"line_items,omitempty"`
	Invoices  []InvoiceAttempt `json:"invoices,omitempty"`
}

// LineItem is one priced position on an order.
type LineItem struct {
	Title     string      `json:"title"`
	Quantity  int64       `json:"quantity"`
	UnitPrice types.Money `json:"unit_price"`

	// Recurring marks subscription-style items; Interval is the processor's
	// recurrence interval string (e.g. "month") when Recurring is set.
	Recurring bool   `json:"recurring,omitempty"`
	Interval  string `json:"interval,omitempty"`

	// ItemRef is the processor-specific item reference (variant id,
	// price id, ...) for the order type in use.
	ItemRef string `json:"item_ref,omitempty"`
}

// InvoiceAttempt is one invoice send recorded against an order.
// The list on Order is append-only.
type InvoiceAttempt struct {
	SentAt    time.Time `json:"sent_at"`
	Recipient string    `json:"recipient"`
	Sender    string    `json:"sender"`
	Outcome   string    `json:"outcome"`
}

// Subtotal sums the line items. Orders without line items fall back to Amount.
func (o *Order) Subtotal() types.Money {
	if len(o.LineItems) == 0 {
		return o.Amount
	}
	total := types.Zero(o.Amount.Currency)
	for _, li := range o.LineItems {
		total = total.Add(li.UnitPrice.Multiply(li.Quantity))
	}
	return total
}
