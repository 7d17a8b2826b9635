package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mohammedaassou/go-digital-banking/internal/app/core/domain"
	"github.com/mohammedaassou/go-digital-banking/internal/app/core/usecase"
	"github.com/mohammedaassou/go-digital-banking/pkg/mysql"
)

// sqlCustomer 對應 customers 表
type sqlCustomer struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"size:64"`
	Email string `gorm:"size:255"`
}

func (*sqlCustomer) TableName() string {
	return "customers"
}

// sqlAccount 對應 accounts 表
// 兩種帳戶變體共用同一張表，以 type 欄位區分 (單表繼承)
type sqlAccount struct {
	ID         string          `gorm:"primaryKey;size:36"`
	Type       string          `gorm:"size:16;index"`
	Balance    decimal.Decimal `gorm:"type:decimal(20,4)"`
	Overdraft  decimal.Decimal `gorm:"type:decimal(20,4)"`
	Rate       float64
	Status     string    `gorm:"size:16"`
	CustomerID int64     `gorm:"index"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlOperation 對應 operations 表，只插入不更新
type sqlOperation struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	AccountID     string          `gorm:"size:36;index"`
	Type          string          `gorm:"size:8"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4)"`
	Description   string          `gorm:"size:255"`
	OperationDate time.Time       `gorm:"autoCreateTime"`
}

func (*sqlOperation) TableName() string {
	return "operations"
}

// Store 是 MySQL 實作的持久化埠 (GORM)
type Store struct {
	client *mysql.Client
}

// NewStore 建立 MySQL Store 實例
func NewStore(client *mysql.Client) *Store {
	return &Store{client: client}
}

// AutoMigrate 建立或補齊資料表
func (s *Store) AutoMigrate() error {
	return s.client.DB().AutoMigrate(&sqlCustomer{}, &sqlAccount{}, &sqlOperation{})
}

func (s *Store) db(ctx context.Context) *gorm.DB {
	return s.client.DB().WithContext(ctx)
}

// --- 帳戶 ---

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(s.db(ctx), id, false)
}

func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	return saveAccount(s.db(ctx), account)
}

func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	var rows []sqlAccount
	if err := s.db(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromAccountRows(rows), nil
}

func (s *Store) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	var rows []sqlAccount
	if err := s.db(ctx).Where("customer_id = ?", customerID).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromAccountRows(rows), nil
}

// --- 操作紀錄 ---

func (s *Store) AppendOperation(ctx context.Context, op *domain.Operation) (*domain.Operation, error) {
	return appendOperation(s.db(ctx), op)
}

func (s *Store) ListOperations(ctx context.Context, accountID string) ([]*domain.Operation, error) {
	var rows []sqlOperation
	if err := s.db(ctx).Where("account_id = ?", accountID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Operation, len(rows))
	for i := range rows {
		out[i] = fromOperationRow(&rows[i])
	}
	return out, nil
}

func (s *Store) PageOperations(ctx context.Context, accountID string, page, size int) ([]*domain.Operation, int64, error) {
	var total int64
	if err := s.db(ctx).Model(&sqlOperation{}).Where("account_id = ?", accountID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	// page*size 可能溢位，先用除法判斷頁碼是否超出範圍
	if total == 0 || size < 1 || page < 0 || int64(page) > (total-1)/int64(size) {
		return nil, total, nil
	}
	var rows []sqlOperation
	err := s.db(ctx).Where("account_id = ?", accountID).
		Order("id").
		Offset(page * size).
		Limit(size).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Operation, len(rows))
	for i := range rows {
		out[i] = fromOperationRow(&rows[i])
	}
	return out, total, nil
}

// --- 客戶 ---

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var row sqlCustomer
	err := s.db(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.Customer{ID: row.ID, Name: row.Name, Email: row.Email}, nil
}

func (s *Store) SaveCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	row := sqlCustomer{ID: customer.ID, Name: customer.Name, Email: customer.Email}
	if err := s.db(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return nil, err
	}
	return &domain.Customer{ID: row.ID, Name: row.Name, Email: row.Email}, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	var rows []sqlCustomer
	if err := s.db(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Customer, len(rows))
	for i, row := range rows {
		out[i] = &domain.Customer{ID: row.ID, Name: row.Name, Email: row.Email}
	}
	return out, nil
}

// --- 交易範圍 ---

// Transact 以資料庫交易實現全有或全無
// 交易內的帳戶讀取帶悲觀鎖 (SELECT ... FOR UPDATE)
func (s *Store) Transact(ctx context.Context, fn func(tx usecase.LedgerTx) error) error {
	return s.db(ctx).Transaction(func(g *gorm.DB) error {
		return fn(&sqlTx{db: g})
	})
}

type sqlTx struct {
	db *gorm.DB
}

func (t *sqlTx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(t.db, id, true)
}

func (t *sqlTx) SaveAccount(ctx context.Context, account *domain.Account) error {
	return saveAccount(t.db, account)
}

func (t *sqlTx) AppendOperation(ctx context.Context, op *domain.Operation) (*domain.Operation, error) {
	return appendOperation(t.db, op)
}

// --- row mapping ---

func getAccount(db *gorm.DB, id string, forUpdate bool) (*domain.Account, error) {
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row sqlAccount
	err := db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromAccountRow(&row), nil
}

func saveAccount(db *gorm.DB, account *domain.Account) error {
	row := toAccountRow(account)
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func appendOperation(db *gorm.DB, op *domain.Operation) (*domain.Operation, error) {
	row := sqlOperation{
		AccountID:   op.AccountID,
		Type:        string(op.Type),
		Amount:      op.Amount,
		Description: op.Description,
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, err
	}
	return fromOperationRow(&row), nil
}

func toAccountRow(a *domain.Account) *sqlAccount {
	return &sqlAccount{
		ID:         a.ID,
		Type:       string(a.Type),
		Balance:    a.Balance,
		Overdraft:  a.Overdraft,
		Rate:       a.Rate,
		Status:     string(a.Status),
		CustomerID: a.CustomerID,
		CreatedAt:  a.CreatedAt,
	}
}

func fromAccountRow(row *sqlAccount) *domain.Account {
	return &domain.Account{
		ID:         row.ID,
		Type:       domain.AccountType(row.Type),
		Balance:    row.Balance,
		Overdraft:  row.Overdraft,
		Rate:       row.Rate,
		Status:     domain.AccountStatus(row.Status),
		CustomerID: row.CustomerID,
		CreatedAt:  row.CreatedAt,
	}
}

func fromAccountRows(rows []sqlAccount) []*domain.Account {
	out := make([]*domain.Account, len(rows))
	for i := range rows {
		out[i] = fromAccountRow(&rows[i])
	}
	return out
}

func fromOperationRow(row *sqlOperation) *domain.Operation {
	return &domain.Operation{
		ID:            row.ID,
		AccountID:     row.AccountID,
		Type:          domain.OperationType(row.Type),
		Amount:        row.Amount,
		Description:   row.Description,
		OperationDate: row.OperationDate,
	}
}

var _ usecase.BankStore = (*Store)(nil)
var _ usecase.LedgerTx = (*sqlTx)(nil)
