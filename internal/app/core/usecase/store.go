package usecase

import (
	"context"

	"github.com/mohammedaassou/go-digital-banking/internal/app/core/domain"
)

// BankStore 是持久化埠，涵蓋帳戶存取、客戶存取與操作日誌
// 帳務引擎把它當作餘額的唯一真實來源
type BankStore interface {
	// GetAccount 取得帳戶，不存在時回傳 domain.ErrAccountNotFound
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	// SaveAccount 以 ID 為準的冪等 upsert
	SaveAccount(ctx context.Context, account *domain.Account) error
	// ListAccounts 列出所有帳戶
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	// ListAccountsByCustomer 列出指定客戶持有的帳戶
	ListAccountsByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error)

	// AppendOperation 追加一筆操作紀錄，由 store 分配單調遞增 ID 與時間戳
	AppendOperation(ctx context.Context, op *domain.Operation) (*domain.Operation, error)
	// ListOperations 依寫入順序列出帳戶的所有操作
	ListOperations(ctx context.Context, accountID string) ([]*domain.Operation, error)
	// PageOperations 依寫入順序分頁，回傳該頁內容與總筆數
	PageOperations(ctx context.Context, accountID string, page, size int) ([]*domain.Operation, int64, error)

	// GetCustomer 取得客戶，不存在時回傳 domain.ErrCustomerNotFound
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	// SaveCustomer 儲存客戶，ID 為零值時由 store 分配
	SaveCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	// ListCustomers 列出所有客戶
	ListCustomers(ctx context.Context) ([]*domain.Customer, error)

	// Transact 提供交易範圍：fn 內的所有寫入要嘛全部生效，要嘛全部回滾
	// 轉帳的兩段式寫入依賴這個保證
	Transact(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx 是 Transact 範圍內可用的寫入操作集合
type LedgerTx interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	SaveAccount(ctx context.Context, account *domain.Account) error
	AppendOperation(ctx context.Context, op *domain.Operation) (*domain.Operation, error)
}
