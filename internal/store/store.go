package store

import (
	"context"
	"errors"

	"github.com/ab-1402/Bank-Buddy/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by single-record lookups when no row matches.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned by creates that would violate a uniqueness
	// rule (username, UPI id, account number).
	ErrDuplicate = errors.New("record already exists")

	// ErrNegativeBalance is returned by balance adjustments that would drive
	// a balance below zero. Callers are expected to have checked sufficiency
	// first; this is the last line of defense against races.
	ErrNegativeBalance = errors.New("balance would become negative")
)

// Store is the persistence boundary of the service. Two implementations
// exist: an in-memory map store and a gorm/postgres store, selected at
// startup. The transfer core depends only on this interface.
type Store interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListCustomers(ctx context.Context) ([]models.User, error)

	GetAccountByUpiID(ctx context.Context, upiID string) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) error

	// AdjustUserBalance and AdjustAccountBalance apply a signed delta to a
	// balance. A delta that would produce a negative balance is rejected
	// with ErrNegativeBalance and leaves the record unchanged.
	AdjustUserBalance(ctx context.Context, id uint, delta decimal.Decimal) error
	AdjustAccountBalance(ctx context.Context, id uint, delta decimal.Decimal) error

	AppendTransaction(ctx context.Context, txn *models.Transaction) error
	ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error)

	AppendFraudAlert(ctx context.Context, alert *models.FraudAlert) error
	ListFraudAlerts(ctx context.Context, userID uint) ([]models.FraudAlert, error)

	// Atomic runs fn against a transactional view of the store. Writes made
	// through the view become visible only if fn returns nil; any error
	// rolls back every write. Balance reads inside the view are serialized
	// against concurrent Atomic sections touching the same records.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}
