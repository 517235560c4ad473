// Package mongo provides a MongoDB-backed implementation of store.Store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	clientledger "github.com/xraph/clientledger"
	"github.com/xraph/clientledger/account"
	"github.com/xraph/clientledger/id"
	"github.com/xraph/clientledger/order"
	ledgerstore "github.com/xraph/clientledger/store"
	"github.com/xraph/clientledger/types"
)

// Collection name constants.
const (
	colAccounts = "client_accounts"
	colOrders   = "orders"
)

// mongoWriteConflict is the server error code returned when a transactional
// write races another write on the same document.
const mongoWriteConflict = 112

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store on top of a MongoDB database.
type Store struct {
	db *mongo.Database
}

// New creates a new MongoDB store using the given database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

func (s *Store) accounts() *mongo.Collection { return s.db.Collection(colAccounts) }
func (s *Store) orders() *mongo.Collection   { return s.db.Collection(colOrders) }

// Migrate creates indexes for both collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("clientledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	return s.db.Client().Disconnect(context.Background())
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, acc *account.ClientAccount) error {
	if acc.Version == 0 {
		acc.Version = 1
	}
	m := toAccountModel(acc)
	_, err := s.accounts().InsertOne(ctx, m)
	if err != nil {
		if mapped := mapAccountWriteError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("clientledger/mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.ClientAccount, error) {
	var m accountModel
	err := s.accounts().FindOne(ctx, bson.M{"_id": accountID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, clientledger.ErrAccountNotFound
		}
		return nil, fmt.Errorf("clientledger/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*account.ClientAccount, error) {
	var m accountModel
	err := s.accounts().FindOne(ctx, bson.M{"email": email}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, clientledger.ErrAccountNotFound
		}
		return nil, fmt.Errorf("clientledger/mongo: get account by email: %w", err)
	}
	return fromAccountModel(&m)
}

// UpdateAccount replaces the stored profile fields and bumps the version,
// guarded by the version the caller read. Ledger totals and processor
// references go through their dedicated methods; a write that lands between
// the caller's read and this one surfaces as ErrWriteConflict.
func (s *Store) UpdateAccount(ctx context.Context, acc *account.ClientAccount) error {
	m := toAccountModel(acc)

	set := bson.M{
		"email":            m.Email,
		"name":             m.Name,
		"first_name":       m.FirstName,
		"last_name":        m.LastName,
		"company":          m.Company,
		"currency":         m.Currency,
		"balance_amount":   m.BalanceAmount,
		"balance_currency": m.BalanceCurrency,
		"total_orders":     m.TotalOrders,
		"projects":         m.Projects,
		"updated_at":       m.UpdatedAt,
	}
	unset := bson.M{}
	setOrUnset(set, unset, "shop_customer_id", m.ShopCustomerID)
	setOrUnset(set, unset, "billing_customer_id", m.BillingCustomerID)

	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := s.accounts().UpdateOne(ctx, bson.M{"_id": m.ID, "version": m.Version}, update)
	if err != nil {
		if mapped := mapAccountWriteError(err); mapped != nil {
			return mapped
		}
		if isWriteConflict(err) {
			return clientledger.ErrWriteConflict
		}
		return fmt.Errorf("clientledger/mongo: update account: %w", err)
	}
	if res.MatchedCount == 0 {
		if ferr := s.accounts().FindOne(ctx, bson.M{"_id": m.ID}).Err(); isNoDocuments(ferr) {
			return clientledger.ErrAccountNotFound
		}
		return clientledger.ErrWriteConflict
	}
	acc.Version++
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, accountID id.AccountID) error {
	res, err := s.accounts().DeleteOne(ctx, bson.M{"_id": accountID.String()})
	if err != nil {
		return fmt.Errorf("clientledger/mongo: delete account: %w", err)
	}
	if res.DeletedCount == 0 {
		return clientledger.ErrAccountNotFound
	}
	return nil
}

// UpdateAccountLedger writes recomputed balance and order totals, guarded by
// the version the caller read. A stale version matches nothing and surfaces
// as ErrWriteConflict so the caller can re-read and retry.
func (s *Store) UpdateAccountLedger(ctx context.Context, accountID id.AccountID, version int64, balance types.Money, totalOrders int64) error {
	filter := bson.M{"_id": accountID.String(), "version": version}
	update := bson.M{
		"$set": bson.M{
			"balance_amount":   balance.Amount,
			"balance_currency": balance.Currency,
			"total_orders":     totalOrders,
			"updated_at":       time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := s.accounts().UpdateOne(ctx, filter, update)
	if err != nil {
		if isWriteConflict(err) {
			return clientledger.ErrWriteConflict
		}
		return fmt.Errorf("clientledger/mongo: update account ledger: %w", err)
	}
	if res.MatchedCount == 0 {
		if ferr := s.accounts().FindOne(ctx, bson.M{"_id": accountID.String()}).Err(); isNoDocuments(ferr) {
			return clientledger.ErrAccountNotFound
		}
		return clientledger.ErrWriteConflict
	}
	return nil
}

// SetCustomerRef records (or clears, with an empty customerID) the external
// customer reference for one processor without touching profile fields.
func (s *Store) SetCustomerRef(ctx context.Context, accountID id.AccountID, processor, customerID string) error {
	field, err := refField(processor)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{"updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	if customerID == "" {
		update["$unset"] = bson.M{field: ""}
	} else {
		update["$set"].(bson.M)[field] = customerID
	}

	res, err := s.accounts().UpdateOne(ctx, bson.M{"_id": accountID.String()}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return clientledger.ErrProcessorRefTaken
		}
		return fmt.Errorf("clientledger/mongo: set customer ref: %w", err)
	}
	if res.MatchedCount == 0 {
		return clientledger.ErrAccountNotFound
	}
	return nil
}

// ==================== Order Store ====================

func (s *Store) CreateOrder(ctx context.Context, o *order.Order) error {
	m := toOrderModel(o)
	_, err := s.orders().InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return clientledger.ErrOrderNumberTaken
		}
		return fmt.Errorf("clientledger/mongo: create order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, orderID id.OrderID) (*order.Order, error) {
	var m orderModel
	err := s.orders().FindOne(ctx, bson.M{"_id": orderID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, clientledger.ErrOrderNotFound
		}
		return nil, fmt.Errorf("clientledger/mongo: get order: %w", err)
	}
	return fromOrderModel(&m)
}

func (s *Store) UpdateOrder(ctx context.Context, o *order.Order) error {
	m := toOrderModel(o)
	res, err := s.orders().ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return clientledger.ErrOrderNumberTaken
		}
		return fmt.Errorf("clientledger/mongo: update order: %w", err)
	}
	if res.MatchedCount == 0 {
		return clientledger.ErrOrderNotFound
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, orderID id.OrderID) error {
	res, err := s.orders().DeleteOne(ctx, bson.M{"_id": orderID.String()})
	if err != nil {
		return fmt.Errorf("clientledger/mongo: delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return clientledger.ErrOrderNotFound
	}
	return nil
}

func (s *Store) ListOrdersByAccount(ctx context.Context, accountID id.AccountID, opts order.ListOpts) ([]*order.Order, error) {
	filter := bson.M{"account_id": accountID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cur, err := s.orders().Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("clientledger/mongo: list orders: %w", err)
	}
	defer cur.Close(ctx)

	var models []orderModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("clientledger/mongo: list orders: %w", err)
	}

	orders := make([]*order.Order, 0, len(models))
	for i := range models {
		o, err := fromOrderModel(&models[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// StampBalanceSnapshot sets the order's balance snapshot without rewriting
// the rest of the document. Stamping is one-shot at the engine level, so no
// guard is needed here.
func (s *Store) StampBalanceSnapshot(ctx context.Context, orderID id.OrderID, balance types.Money) error {
	update := bson.M{
		"$set": bson.M{
			"balance_snapshot": moneyModel{Amount: balance.Amount, Currency: balance.Currency},
			"updated_at":       time.Now().UTC(),
		},
	}
	res, err := s.orders().UpdateOne(ctx, bson.M{"_id": orderID.String()}, update)
	if err != nil {
		return fmt.Errorf("clientledger/mongo: stamp balance snapshot: %w", err)
	}
	if res.MatchedCount == 0 {
		return clientledger.ErrOrderNotFound
	}
	return nil
}

func (s *Store) AppendInvoiceAttempt(ctx context.Context, orderID id.OrderID, attempt order.InvoiceAttempt) error {
	update := bson.M{
		"$push": bson.M{"invoices": invoiceAttemptModel(attempt)},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.orders().UpdateOne(ctx, bson.M{"_id": orderID.String()}, update)
	if err != nil {
		return fmt.Errorf("clientledger/mongo: append invoice attempt: %w", err)
	}
	if res.MatchedCount == 0 {
		return clientledger.ErrOrderNotFound
	}
	return nil
}

// ==================== helpers ====================

func refField(processor string) (string, error) {
	switch processor {
	case account.ProcessorShop:
		return "shop_customer_id", nil
	case account.ProcessorBilling:
		return "billing_customer_id", nil
	default:
		return "", fmt.Errorf("clientledger/mongo: unknown processor %q: %w", processor, clientledger.ErrInvalidInput)
	}
}

func setOrUnset(set, unset bson.M, field, value string) {
	if value == "" {
		unset[field] = ""
	} else {
		set[field] = value
	}
}

// mapAccountWriteError translates duplicate-key errors on the account
// collection into the sentinel for the violated index, keyed off the default
// index names mongod puts in the error message.
func mapAccountWriteError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "email_1"):
		return clientledger.ErrEmailTaken
	case strings.Contains(msg, "shop_customer_id_1"), strings.Contains(msg, "billing_customer_id_1"):
		return clientledger.ErrProcessorRefTaken
	default:
		return clientledger.ErrAlreadyExists
	}
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// isWriteConflict checks for the server-side WriteConflict code.
func isWriteConflict(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(mongoWriteConflict)
}

// migrationIndexes returns the index definitions for both collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "shop_customer_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
			{
				Keys:    bson.D{{Key: "billing_customer_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		colOrders: {
			{
				Keys:    bson.D{{Key: "order_number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
}
