package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus 帳戶狀態
type AccountStatus string

const (
	// 已建立，尚未啟用
	AccountStatusCreated AccountStatus = "CREATED"
	// 已啟用
	AccountStatusActivated AccountStatus = "ACTIVATED"
	// 已停權
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// AccountType 帳戶類型標籤
// 兩種變體共用同一個 Account 結構，以 Type 區分 (取代原本的繼承寫法)
type AccountType string

const (
	// 活期帳戶，允許透支到 -Overdraft
	AccountTypeCurrent AccountType = "CurrentAccount"
	// 儲蓄帳戶，餘額不得低於 0
	AccountTypeSaving AccountType = "SavingAccount"
)

// Customer 客戶，一個客戶可持有多個帳戶
type Customer struct {
	ID    int64
	Name  string
	Email string
}

// Account 銀行帳戶
//
// 結構:
//
//	Overdraft: 僅 Current 有意義，允許的最大透支額度 (>= 0)
//	Rate: 僅 Saving 有意義，年利率 (%)，純資訊欄位，核心不自動計息
//
// 金額一律使用 decimal 避免浮點誤差
type Account struct {
	ID         string
	Type       AccountType
	Balance    decimal.Decimal
	Status     AccountStatus
	CustomerID int64
	CreatedAt  time.Time
	Overdraft  decimal.Decimal
	Rate       float64
}

// NewCurrentAccount 建立活期帳戶 (狀態固定為 CREATED)
func NewCurrentAccount(id string, balance, overdraft decimal.Decimal, customerID int64, now time.Time) *Account {
	return &Account{
		ID:         id,
		Type:       AccountTypeCurrent,
		Balance:    balance,
		Status:     AccountStatusCreated,
		CustomerID: customerID,
		CreatedAt:  now,
		Overdraft:  overdraft,
	}
}

// NewSavingAccount 建立儲蓄帳戶 (狀態固定為 CREATED)
func NewSavingAccount(id string, balance decimal.Decimal, rate float64, customerID int64, now time.Time) *Account {
	return &Account{
		ID:         id,
		Type:       AccountTypeSaving,
		Balance:    balance,
		Status:     AccountStatusCreated,
		CustomerID: customerID,
		CreatedAt:  now,
		Rate:       rate,
	}
}

// LowerBound 回傳餘額下限：Current 為 -Overdraft，Saving 為 0
func (a *Account) LowerBound() decimal.Decimal {
	if a.Type == AccountTypeCurrent {
		return a.Overdraft.Neg()
	}
	return decimal.Zero
}

// Credit 入帳
//
// 參數:
//
//	amount: 金額，必須 > 0
//
// 回傳:
//
//	error: 金額不合法時回傳 ErrAmountMustBePositive
func (a *Account) Credit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrAmountMustBePositive
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Debit 扣款
// 先驗證扣款後不會跌破下限才改動餘額，失敗時帳戶狀態不變
//
// 參數:
//
//	amount: 金額，必須 > 0
//
// 回傳:
//
//	error: ErrAmountMustBePositive 或 ErrInsufficientBalance
func (a *Account) Debit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrAmountMustBePositive
	}
	next := a.Balance.Sub(amount)
	if next.Cmp(a.LowerBound()) < 0 {
		return ErrInsufficientBalance
	}
	a.Balance = next
	return nil
}

// Clone 回傳值拷貝，避免呼叫端直接改寫 store 內部狀態
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
