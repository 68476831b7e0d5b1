package store

import (
	"context"
	"errors"

	"github.com/ab-1402/Bank-Buddy/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres is the gorm-backed Store. Atomic maps to a database transaction
// and record reads inside it take row locks, so concurrent transfers against
// the same balances serialize at the database.
type Postgres struct {
	db      *gorm.DB
	locking bool
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: false,
	}), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates or updates the four record collections.
func (p *Postgres) Migrate() error {
	return p.db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Transaction{},
		&models.FraudAlert{},
	)
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) Atomic(ctx context.Context, fn func(tx Store) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Postgres{db: tx, locking: true})
	})
}

func (p *Postgres) query(ctx context.Context) *gorm.DB {
	q := p.db.WithContext(ctx)
	if p.locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (p *Postgres) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := p.query(ctx).First(&user, id).Error; err != nil {
		return nil, mapGormErr(err)
	}
	return &user, nil
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := p.query(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, mapGormErr(err)
	}
	return &user, nil
}

func (p *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	if err := p.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (p *Postgres) ListCustomers(ctx context.Context) ([]models.User, error) {
	customers := []models.User{}
	err := p.db.WithContext(ctx).
		Where("role = ?", models.RoleCustomer).
		Order("id ASC").
		Find(&customers).Error
	return customers, err
}

func (p *Postgres) GetAccountByUpiID(ctx context.Context, upiID string) (*models.Account, error) {
	var account models.Account
	if err := p.query(ctx).Where("upi_id = ?", upiID).First(&account).Error; err != nil {
		return nil, mapGormErr(err)
	}
	return &account, nil
}

func (p *Postgres) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := p.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (p *Postgres) AdjustUserBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	return p.adjustBalance(ctx, &models.User{}, id, delta)
}

func (p *Postgres) AdjustAccountBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	return p.adjustBalance(ctx, &models.Account{}, id, delta)
}

// adjustBalance applies the delta in one conditional statement; zero rows
// affected means either a missing record or a rejected negative result.
func (p *Postgres) adjustBalance(ctx context.Context, model any, id uint, delta decimal.Decimal) error {
	res := p.db.WithContext(ctx).Model(model).
		Where("id = ? AND balance + ? >= 0", id, delta).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := p.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrNegativeBalance
	}
	return nil
}

func (p *Postgres) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	return p.db.WithContext(ctx).Create(txn).Error
}

func (p *Postgres) ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	txns := []models.Transaction{}
	err := p.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&txns).Error
	return txns, err
}

func (p *Postgres) AppendFraudAlert(ctx context.Context, alert *models.FraudAlert) error {
	return p.db.WithContext(ctx).Create(alert).Error
}

func (p *Postgres) ListFraudAlerts(ctx context.Context, userID uint) ([]models.FraudAlert, error) {
	alerts := []models.FraudAlert{}
	err := p.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&alerts).Error
	return alerts, err
}

func mapGormErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
