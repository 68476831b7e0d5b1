// Package transfer holds the money movement core: the atomic transfer
// operation and the read accessors the presentation layer consumes.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ab-1402/Bank-Buddy/internal/models"
	"github.com/ab-1402/Bank-Buddy/internal/store"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount rejects non-positive amounts before any lookup.
	ErrInvalidAmount = errors.New("transfer amount must be greater than zero")

	ErrSenderNotFound   = errors.New("sender not found")
	ErrReceiverNotFound = errors.New("no account found for that UPI id")
)

// InsufficientBalanceError reports a transfer the sender cannot cover. It
// carries the attempted amount so callers can show the user what failed.
type InsufficientBalanceError struct {
	Attempted decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: tried to transfer %s with %s available",
		e.Attempted.StringFixed(2), e.Available.StringFixed(2))
}

// Service executes transfers against an injected Store and answers the
// read queries. It holds no state of its own between calls.
type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// TransferMoney moves amount from the sender's wallet to the account behind
// receiverUpiID and logs one transfer transaction for the sender. The
// precondition checks and the three writes run as a single atomic unit: a
// failure at any point leaves both balances and the log untouched.
func (s *Service) TransferMoney(ctx context.Context, senderUserID uint, amount decimal.Decimal, receiverUpiID string) (*models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	var logged *models.Transaction
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		sender, err := tx.GetUser(ctx, senderUserID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrSenderNotFound
		}
		if err != nil {
			return err
		}

		receiver, err := tx.GetAccountByUpiID(ctx, receiverUpiID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrReceiverNotFound
		}
		if err != nil {
			return err
		}

		if sender.Balance.LessThan(amount) {
			return &InsufficientBalanceError{Attempted: amount, Available: sender.Balance}
		}

		if err := tx.AdjustUserBalance(ctx, sender.ID, amount.Neg()); err != nil {
			if errors.Is(err, store.ErrNegativeBalance) {
				// Lost the race to another debit; report it the same way
				// as the precondition failure. The earlier read is stale
				// here, so fetch what the sender actually has left.
				available := sender.Balance
				if current, readErr := tx.GetUser(ctx, sender.ID); readErr == nil {
					available = current.Balance
				}
				return &InsufficientBalanceError{Attempted: amount, Available: available}
			}
			return err
		}
		if err := tx.AdjustAccountBalance(ctx, receiver.ID, amount); err != nil {
			return err
		}

		txn := &models.Transaction{
			UserID:      sender.ID,
			Type:        models.TxTransfer,
			Amount:      amount,
			Description: fmt.Sprintf("Transfer to %s (%s)", receiver.HolderName, receiver.UpiID),
			Timestamp:   s.now(),
		}
		if err := tx.AppendTransaction(ctx, txn); err != nil {
			return err
		}
		logged = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return logged, nil
}

// User returns the sender-side view of a user.
func (s *Service) User(ctx context.Context, userID uint) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}

// Transactions lists a user's ledger events in insertion order. A valid id
// with no history yields an empty slice, not an error.
func (s *Service) Transactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, userID)
}

// FraudAlerts lists a user's fraud alerts, empty slice when none exist.
func (s *Service) FraudAlerts(ctx context.Context, userID uint) ([]models.FraudAlert, error) {
	return s.store.ListFraudAlerts(ctx, userID)
}

// AccountByUpi resolves a receiving account by its payment identifier.
func (s *Service) AccountByUpi(ctx context.Context, upiID string) (*models.Account, error) {
	return s.store.GetAccountByUpiID(ctx, upiID)
}

// Customers lists every customer-role user. Authorization is the caller's
// concern; this is a pure query.
func (s *Service) Customers(ctx context.Context) ([]models.User, error) {
	return s.store.ListCustomers(ctx)
}
