package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles for User.Role.
const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
)

// Transaction types. Amount is always stored positive; the type carries the sign.
const (
	TxDeposit    = "deposit"
	TxWithdrawal = "withdrawal"
	TxTransfer   = "transfer"
)

// Fraud alert severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

type User struct {
	ID       uint            `gorm:"primarykey" json:"id"`
	Username string          `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password string          `gorm:"size:255;not null" json:"-"`
	FullName string          `gorm:"size:100;not null" json:"fullName"`
	Role     string          `gorm:"size:10;not null" json:"role"`
	Balance  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"balance"`
}

// Account is a payment-receivable record, resolved by UPI id only. It is
// deliberately not foreign-keyed to User: a user's wallet balance and the
// account credited through the payment rail are separate ledgers.
type Account struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	AccountNumber string          `gorm:"uniqueIndex;size:20;not null" json:"accountNumber"`
	UpiID         string          `gorm:"uniqueIndex;size:100;not null" json:"upiId"`
	HolderName    string          `gorm:"size:100;not null" json:"holderName"`
	Balance       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"balance"`
}

type Transaction struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	UserID      uint            `gorm:"index;not null" json:"userId"`
	Type        string          `gorm:"size:10;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Timestamp   time.Time       `gorm:"not null" json:"timestamp"`
}

type FraudAlert struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"userId"`
	Description string    `gorm:"size:255;not null" json:"description"`
	Severity    string    `gorm:"size:6;not null" json:"severity"`
	Timestamp   time.Time `gorm:"not null" json:"timestamp"`
	Resolved    bool      `gorm:"not null;default:false" json:"resolved"`
}
