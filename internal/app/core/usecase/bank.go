package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mohammedaassou/go-digital-banking/internal/app/core/domain"
	"github.com/mohammedaassou/go-digital-banking/pkg/lock"
)

// 分頁參數不合法時採用的預設值，與 REST 邊界的預設一致
const (
	DefaultPage     = 0
	DefaultPageSize = 5
)

// BankUseCase 是帳務引擎：對帳戶執行 credit/debit/transfer，並追加操作紀錄
//
// 結構:
//
//	store: 持久化埠，餘額的唯一真實來源
//	locks: 以帳戶 ID 為粒度的互斥鎖，保證單一帳戶同時最多一筆異動
type BankUseCase struct {
	store BankStore
	locks *lock.KeyedMutex
}

// NewBankUseCase 建立帳務引擎實例
func NewBankUseCase(store BankStore) *BankUseCase {
	return &BankUseCase{
		store: store,
		locks: lock.NewKeyedMutex(),
	}
}

// --- 客戶 ---

// SaveCustomer 建立客戶 (ID 由 store 分配)
func (uc *BankUseCase) SaveCustomer(ctx context.Context, name, email string) (*domain.Customer, error) {
	return uc.store.SaveCustomer(ctx, &domain.Customer{Name: name, Email: email})
}

// GetCustomer 取得客戶
func (uc *BankUseCase) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return uc.store.GetCustomer(ctx, id)
}

// ListCustomers 列出所有客戶
func (uc *BankUseCase) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	return uc.store.ListCustomers(ctx)
}

// --- 開戶 ---

// OpenCurrentAccount 開立活期帳戶
//
// 參數:
//
//	initialBalance: 初始餘額
//	overdraft: 透支額度 (>= 0)
//	customerID: 持有人，客戶不存在時回傳 ErrCustomerNotFound
func (uc *BankUseCase) OpenCurrentAccount(ctx context.Context, initialBalance, overdraft decimal.Decimal, customerID int64) (*domain.Account, error) {
	if _, err := uc.store.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	account := domain.NewCurrentAccount(uuid.NewString(), initialBalance, overdraft, customerID, time.Now())
	if err := uc.store.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// OpenSavingAccount 開立儲蓄帳戶
func (uc *BankUseCase) OpenSavingAccount(ctx context.Context, initialBalance decimal.Decimal, rate float64, customerID int64) (*domain.Account, error) {
	if _, err := uc.store.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	account := domain.NewSavingAccount(uuid.NewString(), initialBalance, rate, customerID, time.Now())
	if err := uc.store.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// --- 查詢 ---

// GetAccount 取得帳戶目前快照
func (uc *BankUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.store.GetAccount(ctx, id)
}

// ListAccounts 列出所有帳戶
func (uc *BankUseCase) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return uc.store.ListAccounts(ctx)
}

// ListAccountsByCustomer 列出客戶持有的帳戶
func (uc *BankUseCase) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	return uc.store.ListAccountsByCustomer(ctx, customerID)
}

// --- 帳務操作 ---

// Credit 入帳：餘額增加並追加一筆 CREDIT 紀錄
//
// 參數:
//
//	amount: 金額，必須 > 0
//	description: 寫入操作紀錄的描述
func (uc *BankUseCase) Credit(ctx context.Context, accountID string, amount decimal.Decimal, description string) error {
	if amount.Sign() <= 0 {
		return domain.ErrAmountMustBePositive
	}

	uc.locks.Lock(accountID)
	defer uc.locks.Unlock(accountID)

	return uc.store.Transact(ctx, func(tx LedgerTx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := account.Credit(amount); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		_, err = tx.AppendOperation(ctx, &domain.Operation{
			AccountID:   accountID,
			Type:        domain.OperationTypeCredit,
			Amount:      amount,
			Description: description,
		})
		return err
	})
}

// Debit 扣款：先驗證下限，餘額減少並追加一筆 DEBIT 紀錄
// 驗證失敗時不留下任何狀態變更
func (uc *BankUseCase) Debit(ctx context.Context, accountID string, amount decimal.Decimal, description string) error {
	if amount.Sign() <= 0 {
		return domain.ErrAmountMustBePositive
	}

	uc.locks.Lock(accountID)
	defer uc.locks.Unlock(accountID)

	return uc.store.Transact(ctx, func(tx LedgerTx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := account.Debit(amount); err != nil {
			return err
		}
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		_, err = tx.AppendOperation(ctx, &domain.Operation{
			AccountID:   accountID,
			Type:        domain.OperationTypeDebit,
			Amount:      amount,
			Description: description,
		})
		return err
	})
}

// Transfer 轉帳：來源扣款、目的入帳，兩段在同一個交易範圍內完成
// 任一段失敗即整筆回滾，不會出現只扣不入的中間狀態
//
// 鎖的取得順序由 KeyedMutex 統一排序，兩筆反向轉帳不會互相等待
func (uc *BankUseCase) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return domain.ErrAmountMustBePositive
	}

	uc.locks.Lock(fromID, toID)
	defer uc.locks.Unlock(fromID, toID)

	return uc.store.Transact(ctx, func(tx LedgerTx) error {
		from, err := tx.GetAccount(ctx, fromID)
		if err != nil {
			return err
		}
		// 同帳戶互轉時兩段必須作用在同一份快照上，否則後寫覆蓋前寫
		to := from
		if toID != fromID {
			to, err = tx.GetAccount(ctx, toID)
			if err != nil {
				return err
			}
		}

		if err := from.Debit(amount); err != nil {
			return err
		}
		if err := to.Credit(amount); err != nil {
			return err
		}

		if err := tx.SaveAccount(ctx, from); err != nil {
			return err
		}
		if toID != fromID {
			if err := tx.SaveAccount(ctx, to); err != nil {
				return err
			}
		}
		if _, err := tx.AppendOperation(ctx, &domain.Operation{
			AccountID:   fromID,
			Type:        domain.OperationTypeDebit,
			Amount:      amount,
			Description: fmt.Sprintf("Transfer to %s", toID),
		}); err != nil {
			return err
		}
		_, err = tx.AppendOperation(ctx, &domain.Operation{
			AccountID:   toID,
			Type:        domain.OperationTypeCredit,
			Amount:      amount,
			Description: fmt.Sprintf("Transfer from %s", fromID),
		})
		return err
	})
}

// --- 歷史 ---

// AccountHistory 帳戶歷史的分頁檢視
type AccountHistory struct {
	AccountID   string
	Type        domain.AccountType
	Balance     decimal.Decimal
	Operations  []*domain.Operation
	CurrentPage int
	TotalPages  int
	PageSize    int
}

// History 列出帳戶的完整操作紀錄 (不分頁的舊介面)
// 持有帳戶鎖讀取，存在性檢查與列表屬於同一個時間點
func (uc *BankUseCase) History(ctx context.Context, accountID string) ([]*domain.Operation, error) {
	uc.locks.Lock(accountID)
	defer uc.locks.Unlock(accountID)

	if _, err := uc.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return uc.store.ListOperations(ctx, accountID)
}

// AccountHistory 回傳帳戶操作紀錄的指定分頁
// page < 0 與 size < 1 分別落回預設值 0 與 5
// 不改動任何狀態，但持有帳戶鎖讀取：
// 餘額與分頁內容必須來自同一個時間點，不能夾進一筆中途提交的轉帳
func (uc *BankUseCase) AccountHistory(ctx context.Context, accountID string, page, size int) (*AccountHistory, error) {
	if page < 0 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}

	uc.locks.Lock(accountID)
	defer uc.locks.Unlock(accountID)

	account, err := uc.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	ops, total, err := uc.store.PageOperations(ctx, accountID, page, size)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return &AccountHistory{
		AccountID:   account.ID,
		Type:        account.Type,
		Balance:     account.Balance,
		Operations:  ops,
		CurrentPage: page,
		TotalPages:  totalPages,
		PageSize:    size,
	}, nil
}
