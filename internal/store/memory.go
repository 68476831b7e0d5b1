package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ab-1402/Bank-Buddy/internal/models"
	"github.com/shopspring/decimal"
)

// Memory is a map-backed Store for demo and test use. A single mutex
// serializes Atomic sections, so two concurrent transfers touching the same
// balances never interleave their check-then-commit sequences.
type Memory struct {
	mu sync.Mutex

	users         map[uint]models.User
	usersByName   map[string]uint
	accounts      map[uint]models.Account
	accountsByUpi map[string]uint
	transactions  map[uint][]models.Transaction
	alerts        map[uint][]models.FraudAlert

	nextUserID    uint
	nextAccountID uint
	nextTxnID     uint
	nextAlertID   uint
}

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[uint]models.User),
		usersByName:   make(map[string]uint),
		accounts:      make(map[uint]models.Account),
		accountsByUpi: make(map[string]uint),
		transactions:  make(map[uint][]models.Transaction),
		alerts:        make(map[uint][]models.FraudAlert),
		nextUserID:    1,
		nextAccountID: 1,
		nextTxnID:     1,
		nextAlertID:   1,
	}
}

// Atomic stages all writes in an overlay and applies them to the base maps
// only when fn succeeds, so a failure part-way through a multi-write unit
// leaves no observable change.
func (m *Memory) Atomic(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := newMemTx(m)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return atomicGet(m, ctx, func(tx Store) (*models.User, error) { return tx.GetUser(ctx, id) })
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return atomicGet(m, ctx, func(tx Store) (*models.User, error) { return tx.GetUserByUsername(ctx, username) })
}

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	return m.Atomic(ctx, func(tx Store) error { return tx.CreateUser(ctx, user) })
}

func (m *Memory) ListCustomers(ctx context.Context) ([]models.User, error) {
	return atomicGet(m, ctx, func(tx Store) ([]models.User, error) { return tx.ListCustomers(ctx) })
}

func (m *Memory) GetAccountByUpiID(ctx context.Context, upiID string) (*models.Account, error) {
	return atomicGet(m, ctx, func(tx Store) (*models.Account, error) { return tx.GetAccountByUpiID(ctx, upiID) })
}

func (m *Memory) CreateAccount(ctx context.Context, account *models.Account) error {
	return m.Atomic(ctx, func(tx Store) error { return tx.CreateAccount(ctx, account) })
}

func (m *Memory) AdjustUserBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	return m.Atomic(ctx, func(tx Store) error { return tx.AdjustUserBalance(ctx, id, delta) })
}

func (m *Memory) AdjustAccountBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	return m.Atomic(ctx, func(tx Store) error { return tx.AdjustAccountBalance(ctx, id, delta) })
}

func (m *Memory) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	return m.Atomic(ctx, func(tx Store) error { return tx.AppendTransaction(ctx, txn) })
}

func (m *Memory) ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return atomicGet(m, ctx, func(tx Store) ([]models.Transaction, error) { return tx.ListTransactions(ctx, userID) })
}

func (m *Memory) AppendFraudAlert(ctx context.Context, alert *models.FraudAlert) error {
	return m.Atomic(ctx, func(tx Store) error { return tx.AppendFraudAlert(ctx, alert) })
}

func (m *Memory) ListFraudAlerts(ctx context.Context, userID uint) ([]models.FraudAlert, error) {
	return atomicGet(m, ctx, func(tx Store) ([]models.FraudAlert, error) { return tx.ListFraudAlerts(ctx, userID) })
}

func atomicGet[T any](m *Memory, ctx context.Context, fn func(tx Store) (T, error)) (T, error) {
	var out T
	err := m.Atomic(ctx, func(tx Store) error {
		var err error
		out, err = fn(tx)
		return err
	})
	return out, err
}

// memTx is the staged view handed to Atomic callbacks. Reads consult the
// overlay first, then the base maps; writes only touch the overlay until
// commit. The base mutex is held for the lifetime of the view.
type memTx struct {
	base *Memory

	users    map[uint]models.User
	accounts map[uint]models.Account
	txns     []models.Transaction
	alerts   []models.FraudAlert

	nextUserID    uint
	nextAccountID uint
	nextTxnID     uint
	nextAlertID   uint
}

func newMemTx(m *Memory) *memTx {
	return &memTx{
		base:          m,
		users:         make(map[uint]models.User),
		accounts:      make(map[uint]models.Account),
		nextUserID:    m.nextUserID,
		nextAccountID: m.nextAccountID,
		nextTxnID:     m.nextTxnID,
		nextAlertID:   m.nextAlertID,
	}
}

func (t *memTx) commit() {
	m := t.base
	for id, u := range t.users {
		m.users[id] = u
		m.usersByName[u.Username] = id
	}
	for id, a := range t.accounts {
		m.accounts[id] = a
		m.accountsByUpi[a.UpiID] = id
	}
	for _, txn := range t.txns {
		m.transactions[txn.UserID] = append(m.transactions[txn.UserID], txn)
	}
	for _, alert := range t.alerts {
		m.alerts[alert.UserID] = append(m.alerts[alert.UserID], alert)
	}
	m.nextUserID = t.nextUserID
	m.nextAccountID = t.nextAccountID
	m.nextTxnID = t.nextTxnID
	m.nextAlertID = t.nextAlertID
}

// Nested Atomic joins the enclosing unit rather than opening its own.
func (t *memTx) Atomic(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *memTx) getUser(id uint) (models.User, bool) {
	if u, ok := t.users[id]; ok {
		return u, true
	}
	u, ok := t.base.users[id]
	return u, ok
}

func (t *memTx) getAccount(id uint) (models.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	a, ok := t.base.accounts[id]
	return a, ok
}

func (t *memTx) GetUser(ctx context.Context, id uint) (*models.User, error) {
	u, ok := t.getUser(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range t.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	if id, ok := t.base.usersByName[username]; ok {
		if _, staged := t.users[id]; !staged {
			u := t.base.users[id]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := t.GetUserByUsername(ctx, user.Username); err == nil {
		return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
	}
	user.ID = t.nextUserID
	t.nextUserID++
	t.users[user.ID] = *user
	return nil
}

func (t *memTx) ListCustomers(ctx context.Context) ([]models.User, error) {
	customers := []models.User{}
	for id := uint(1); id < t.nextUserID; id++ {
		u, ok := t.users[id]
		if !ok {
			if u, ok = t.base.users[id]; !ok {
				continue
			}
		}
		if u.Role == models.RoleCustomer {
			customers = append(customers, u)
		}
	}
	return customers, nil
}

func (t *memTx) GetAccountByUpiID(ctx context.Context, upiID string) (*models.Account, error) {
	for _, a := range t.accounts {
		if a.UpiID == upiID {
			out := a
			return &out, nil
		}
	}
	if id, ok := t.base.accountsByUpi[upiID]; ok {
		if _, staged := t.accounts[id]; !staged {
			a := t.base.accounts[id]
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateAccount(ctx context.Context, account *models.Account) error {
	if _, err := t.GetAccountByUpiID(ctx, account.UpiID); err == nil {
		return fmt.Errorf("upi id %q: %w", account.UpiID, ErrDuplicate)
	}
	account.ID = t.nextAccountID
	t.nextAccountID++
	t.accounts[account.ID] = *account
	return nil
}

func (t *memTx) AdjustUserBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	u, ok := t.getUser(id)
	if !ok {
		return ErrNotFound
	}
	next := u.Balance.Add(delta)
	if next.IsNegative() {
		return ErrNegativeBalance
	}
	u.Balance = next
	t.users[id] = u
	return nil
}

func (t *memTx) AdjustAccountBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	a, ok := t.getAccount(id)
	if !ok {
		return ErrNotFound
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return ErrNegativeBalance
	}
	a.Balance = next
	t.accounts[id] = a
	return nil
}

func (t *memTx) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	txn.ID = t.nextTxnID
	t.nextTxnID++
	t.txns = append(t.txns, *txn)
	return nil
}

func (t *memTx) ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	out := []models.Transaction{}
	out = append(out, t.base.transactions[userID]...)
	for _, txn := range t.txns {
		if txn.UserID == userID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (t *memTx) AppendFraudAlert(ctx context.Context, alert *models.FraudAlert) error {
	alert.ID = t.nextAlertID
	t.nextAlertID++
	t.alerts = append(t.alerts, *alert)
	return nil
}

func (t *memTx) ListFraudAlerts(ctx context.Context, userID uint) ([]models.FraudAlert, error) {
	out := []models.FraudAlert{}
	out = append(out, t.base.alerts[userID]...)
	for _, alert := range t.alerts {
		if alert.UserID == userID {
			out = append(out, alert)
		}
	}
	return out, nil
}
