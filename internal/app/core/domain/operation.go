package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType 操作類型
type OperationType string

const (
	// 入帳
	OperationTypeCredit OperationType = "CREDIT"
	// 扣款
	OperationTypeDebit OperationType = "DEBIT"
)

// Operation 帳戶操作紀錄，寫入後不可變更，是稽核軌跡的最小單位
//
// 結構:
//
//	ID: 由 store 於 append 時分配，單調遞增
//	Amount: 恆為正數，方向由 Type 表示
//	OperationDate: 由 store 於 append 時寫入
type Operation struct {
	ID            int64
	AccountID     string
	Type          OperationType
	Amount        decimal.Decimal
	Description   string
	OperationDate time.Time
}
