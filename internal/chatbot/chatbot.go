// Package chatbot implements the conversational assistant: canned answers
// for common questions plus a small per-session state machine that collects
// a receiver and an amount across messages and issues exactly one transfer
// call once the user confirms. All transfer semantics live in the transfer
// core; this package only gathers inputs.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ab-1402/Bank-Buddy/internal/models"
	"github.com/ab-1402/Bank-Buddy/internal/transfer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// sessionTTL bounds how long an idle conversation is kept before it is
// swept; stale sessions are evicted lazily whenever a new one is created.
const sessionTTL = 30 * time.Minute

// Transferer is the slice of the transfer core the bot needs.
type Transferer interface {
	TransferMoney(ctx context.Context, senderUserID uint, amount decimal.Decimal, receiverUpiID string) (*models.Transaction, error)
}

type state int

const (
	stateIdle state = iota
	stateAwaitingAmount
	stateAwaitingConfirmation
)

type session struct {
	// mu serializes messages within one conversation; two concurrent
	// requests carrying the same session id must not both pass the
	// awaiting-confirmation gate.
	mu       sync.Mutex
	state    state
	upiID    string
	amount   decimal.Decimal
	lastSeen time.Time
}

type Bot struct {
	mu        sync.Mutex
	transfers Transferer
	sessions  map[string]*session
	now       func() time.Time
}

func New(transfers Transferer) *Bot {
	return &Bot{
		transfers: transfers,
		sessions:  make(map[string]*session),
		now:       time.Now,
	}
}

// Reply advances the session identified by sessionID with one user message
// and returns the session id (freshly minted when blank or unknown) and the
// bot's answer. userID is the authenticated sender used if the conversation
// reaches a confirmed transfer.
func (b *Bot) Reply(ctx context.Context, sessionID string, userID uint, message string) (string, string) {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if !ok {
		b.sweepLocked()
		sessionID = uuid.NewString()
		s = &session{}
		b.sessions[sessionID] = s
	}
	s.lastSeen = b.now()
	b.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return sessionID, b.advance(ctx, s, userID, strings.TrimSpace(message))
}

// sweepLocked drops sessions idle past their TTL. Caller holds b.mu.
func (b *Bot) sweepLocked() {
	cutoff := b.now().Add(-sessionTTL)
	for id, s := range b.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(b.sessions, id)
		}
	}
}

func (b *Bot) advance(ctx context.Context, s *session, userID uint, msg string) string {
	lower := strings.ToLower(msg)

	switch s.state {
	case stateAwaitingAmount:
		if lower == "cancel" {
			s.state = stateIdle
			return "Transfer cancelled."
		}
		amount, err := decimal.NewFromString(msg)
		if err != nil || !amount.IsPositive() || amount.Exponent() < -2 {
			return "Please enter a valid amount, for example 2500.00 (or say cancel)."
		}
		s.amount = amount
		s.state = stateAwaitingConfirmation
		return fmt.Sprintf("Send %s to %s? (yes/no)", amount.StringFixed(2), s.upiID)

	case stateAwaitingConfirmation:
		switch lower {
		case "yes", "y":
			upiID, amount := s.upiID, s.amount
			s.state = stateIdle
			txn, err := b.transfers.TransferMoney(ctx, userID, amount, upiID)
			if err != nil {
				return transferFailureReply(err)
			}
			return fmt.Sprintf("Done! %s sent to %s. %s", txn.Amount.StringFixed(2), upiID, txn.Description)
		case "no", "n", "cancel":
			s.state = stateIdle
			return "Transfer cancelled."
		default:
			return "Please answer yes or no."
		}
	}

	// Idle: either start a transfer or answer a question.
	if strings.HasPrefix(lower, "transfer to ") {
		upiID := strings.TrimSpace(msg[len("transfer to "):])
		if upiID == "" {
			return "Who should receive the money? Say: transfer to <upi id>."
		}
		s.upiID = upiID
		s.state = stateAwaitingAmount
		return fmt.Sprintf("How much would you like to send to %s?", upiID)
	}

	switch {
	case strings.Contains(lower, "balance"):
		return "You can check your balance at the top of the dashboard."
	case strings.Contains(lower, "transaction"):
		return "Your recent transactions are shown in the transaction history section."
	case strings.Contains(lower, "fraud"):
		return "If you notice any suspicious activity, please check the fraud alerts section."
	default:
		return "I'm here to help! You can ask me about your balance, transactions, or fraud alerts, or say: transfer to <upi id>."
	}
}

func transferFailureReply(err error) string {
	var insufficient *transfer.InsufficientBalanceError
	switch {
	case errors.Is(err, transfer.ErrReceiverNotFound):
		return "I couldn't find an account for that UPI id. Transfer cancelled."
	case errors.As(err, &insufficient):
		return fmt.Sprintf("You don't have enough balance to send %s. Transfer cancelled.",
			insufficient.Attempted.StringFixed(2))
	case errors.Is(err, transfer.ErrInvalidAmount):
		return "That amount isn't valid. Transfer cancelled."
	default:
		return "Something went wrong and no money was moved. Please try again."
	}
}
