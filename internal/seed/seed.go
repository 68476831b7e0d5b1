package seed

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ab-1402/Bank-Buddy/internal/logger"
	"github.com/ab-1402/Bank-Buddy/internal/models"
	"github.com/ab-1402/Bank-Buddy/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const seedPassword = "password123"

// Run loads the demo dataset: two customers with linked UPI accounts, a
// manager, sample transaction history and fraud alerts. Idempotent; skips
// when the demo customer already exists.
func Run(ctx context.Context, st store.Store) {
	if _, err := st.GetUserByUsername(ctx, "abhay0123"); err == nil {
		logger.Log.Info("seed already applied, skipping")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed password", zap.Error(err))
	}
	hashed := string(hash)

	err = st.Atomic(ctx, func(tx store.Store) error {
		abhay := &models.User{
			Username: "abhay0123",
			Password: hashed,
			FullName: "Abhay Borase",
			Role:     models.RoleCustomer,
			Balance:  decimal.RequireFromString("5000.00"),
		}
		priya := &models.User{
			Username: "priya2024",
			Password: hashed,
			FullName: "Priya Sharma",
			Role:     models.RoleCustomer,
			Balance:  decimal.RequireFromString("10000.00"),
		}
		manager := &models.User{
			Username: "manager01",
			Password: hashed,
			FullName: "Bank Manager",
			Role:     models.RoleManager,
			Balance:  decimal.Zero,
		}
		for _, u := range []*models.User{abhay, priya, manager} {
			if err := tx.CreateUser(ctx, u); err != nil {
				return err
			}
		}

		accounts := []*models.Account{
			{AccountNumber: "100200300101", UpiID: "abhay@upi", HolderName: "Abhay Borase", Balance: decimal.RequireFromString("5000.00")},
			{AccountNumber: "100200300102", UpiID: "priya@upi", HolderName: "Priya Sharma", Balance: decimal.RequireFromString("50000.00")},
		}
		for _, a := range accounts {
			if err := tx.CreateAccount(ctx, a); err != nil {
				return err
			}
		}

		transactions := []*models.Transaction{
			{
				UserID:      abhay.ID,
				Type:        models.TxDeposit,
				Amount:      decimal.RequireFromString("3000.00"),
				Description: "Salary Advance",
				Timestamp:   time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
			},
			{
				UserID:      abhay.ID,
				Type:        models.TxDeposit,
				Amount:      decimal.RequireFromString("2000.00"),
				Description: "Savings Transfer",
				Timestamp:   time.Date(2024, 2, 18, 0, 0, 0, 0, time.UTC),
			},
		}
		for _, txn := range transactions {
			if err := tx.AppendTransaction(ctx, txn); err != nil {
				return err
			}
		}

		alerts := []*models.FraudAlert{
			{
				UserID:      abhay.ID,
				Description: "Unusual login attempt detected from new location",
				Severity:    models.SeverityMedium,
				Timestamp:   time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
			},
			{
				UserID:      abhay.ID,
				Description: "Multiple failed transactions in quick succession",
				Severity:    models.SeverityHigh,
				Timestamp:   time.Date(2024, 2, 18, 0, 0, 0, 0, time.UTC),
			},
		}
		for _, alert := range alerts {
			if err := tx.AppendFraudAlert(ctx, alert); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Log.Fatal("seed failed", zap.Error(err))
	}
	logger.Log.Info("seeded demo users", zap.String("password", seedPassword))
}
