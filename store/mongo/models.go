package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/clientledger/account"
	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/order"
	"github.com/xraph/clientledger/types"
)

// ==================== Account models ====================

type accountModel struct {
	ID        string `bson:"_id"`
	Email     string `bson:"email"`
	Name      string `bson:"name,omitempty"`
	FirstName string `bson:"first_name,omitempty"`
	LastName  string `bson:"last_name,omitempty"`
	Company   string `bson:"company,omitempty"`
	Currency  string `bson:"currency"`

	// omitempty keeps the unique indexes on these fields sparse: accounts
	// without a processor link store no field at all.
	ShopCustomerID    string `bson:"shop_customer_id,omitempty"`
	BillingCustomerID string `bson:"billing_customer_id,omitempty"`

	BalanceAmount   int64  `bson:"balance_amount"`
	BalanceCurrency string `bson:"balance_currency"`
	TotalOrders     int64  `bson:"total_orders"`

	Projects []projectModel `bson:"projects,omitempty"`

	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type projectModel struct {
	ID    string `bson:"id"`
	Title string `bson:"title"`
	Notes string `bson:"notes,omitempty"`
}

func toAccountModel(acc *account.ClientAccount) *accountModel {
	projects := make([]projectModel, len(acc.Projects))
	for i, p := range acc.Projects {
		projects[i] = projectModel{
			ID:    p.ID.String(),
			Title: p.Title,
			Notes: p.Notes,
		}
	}
	if len(projects) == 0 {
		projects = nil
	}

	return &accountModel{
		ID:                acc.ID.String(),
		Email:             acc.Email,
		Name:              acc.Name,
		FirstName:         acc.FirstName,
		LastName:          acc.LastName,
		Company:           acc.Company,
		Currency:          acc.Currency,
		ShopCustomerID:    acc.ShopCustomerID,
		BillingCustomerID: acc.BillingCustomerID,
		BalanceAmount:     acc.AccountBalance.Amount,
		BalanceCurrency:   acc.AccountBalance.Currency,
		TotalOrders:       acc.TotalOrders,
		Projects:          projects,
		Version:           acc.Version,
		CreatedAt:         acc.CreatedAt,
		UpdatedAt:         acc.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.ClientAccount, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("clientledger/mongo: account model: %w", err)
	}

	projects := make([]account.Project, len(m.Projects))
	for i, p := range m.Projects {
		projectID, perr := id.ParseProjectID(p.ID)
		if perr != nil {
			return nil, fmt.Errorf("clientledger/mongo: project model: %w", perr)
		}
		projects[i] = account.Project{
			ID:    projectID,
			Title: p.Title,
			Notes: p.Notes,
		}
	}
	if len(projects) == 0 {
		projects = nil
	}

	balanceCurrency := m.BalanceCurrency
	if balanceCurrency == "" {
		balanceCurrency = m.Currency
	}

	return &account.ClientAccount{
		Entity:            types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:                accountID,
		Email:             m.Email,
		Name:              m.Name,
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		Company:           m.Company,
		Currency:          m.Currency,
		ShopCustomerID:    m.ShopCustomerID,
		BillingCustomerID: m.BillingCustomerID,
		AccountBalance:    types.Money{Amount: m.BalanceAmount, Currency: balanceCurrency},
		TotalOrders:       m.TotalOrders,
		Projects:          projects,
		Version:           m.Version,
	}, nil
}

// ==================== Order models ====================

type orderModel struct {
	ID          string `bson:"_id"`
	OrderNumber string `bson:"order_number"`
	AccountID   string `bson:"account_id"`

	AmountCents    int64  `bson:"amount_cents"`
	AmountCurrency string `bson:"amount_currency"`

	Status    string `bson:"status"`
	OrderType string `bson:"order_type"`

	BalanceSnapshot *moneyModel `bson:"balance_snapshot,omitempty"`

	LineItems []lineItemModel       `bson:"line_items,omitempty"`
	Invoices  []invoiceAttemptModel `bson:"invoices,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type moneyModel struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

type lineItemModel struct {
	Title             string `bson:"title"`
	Quantity          int64  `bson:"quantity"`
	UnitPriceCents    int64  `bson:"unit_price_cents"`
	UnitPriceCurrency string `bson:"unit_price_currency"`
	Recurring         bool   `bson:"recurring,omitempty"`
	Interval          string `bson:"interval,omitempty"`
	ItemRef           string `bson:"item_ref,omitempty"`
}

type invoiceAttemptModel struct {
	SentAt    time.Time `bson:"sent_at"`
	Recipient string    `bson:"recipient"`
	Sender    string    `bson:"sender"`
	Outcome   string    `bson:"outcome"`
}

func toOrderModel(o *order.Order) *orderModel {
	m := &orderModel{
		ID:             o.ID.String(),
		OrderNumber:    o.OrderNumber,
		AccountID:      o.AccountID.String(),
		AmountCents:    o.Amount.Amount,
		AmountCurrency: o.Amount.Currency,
		Status:         string(o.Status),
		OrderType:      string(o.OrderType),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}

	if o.BalanceSnapshot != nil {
		m.BalanceSnapshot = &moneyModel{
			Amount:   o.BalanceSnapshot.Amount,
			Currency: o.BalanceSnapshot.Currency,
		}
	}

	for _, li := range o.LineItems {
		m.LineItems = append(m.LineItems, lineItemModel{
			Title:             li.Title,
			Quantity:          li.Quantity,
			UnitPriceCents:    li.UnitPrice.Amount,
			UnitPriceCurrency: li.UnitPrice.Currency,
			Recurring:         li.Recurring,
			Interval:          li.Interval,
			ItemRef:           li.ItemRef,
		})
	}

	for _, inv := range o.Invoices {
		m.Invoices = append(m.Invoices, invoiceAttemptModel(inv))
	}

	return m
}

func fromOrderModel(m *orderModel) (*order.Order, error) {
	orderID, err := id.ParseOrderID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("clientledger/mongo: order model: %w", err)
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, fmt.Errorf("clientledger/mongo: order model: %w", err)
	}

	o := &order.Order{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          orderID,
		OrderNumber: m.OrderNumber,
		AccountID:   accountID,
		Amount:      types.Money{Amount: m.AmountCents, Currency: m.AmountCurrency},
		Status:      order.Status(m.Status),
		OrderType:   order.Type(m.OrderType),
	}

	if m.BalanceSnapshot != nil {
		o.BalanceSnapshot = &types.Money{
			Amount:   m.BalanceSnapshot.Amount,
			Currency: m.BalanceSnapshot.Currency,
		}
	}

	for _, li := range m.LineItems {
		o.LineItems = append(o.LineItems, order.LineItem{
			Title:     li.Title,
			Quantity:  li.Quantity,
			UnitPrice: types.Money{Amount: li.UnitPriceCents, Currency: li.UnitPriceCurrency},
			Recurring: li.Recurring,
			Interval:  li.Interval,
			ItemRef:   li.ItemRef,
		})
	}

	for _, inv := range m.Invoices {
		o.Invoices = append(o.Invoices, order.InvoiceAttempt(inv))
	}

	return o, nil
}
