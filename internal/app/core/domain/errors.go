package domain

import "errors"

var (
	// ErrAmountMustBePositive 金額必須為正數
	ErrAmountMustBePositive = errors.New("amount must be positive")

	// ErrInsufficientBalance 餘額不足 (扣款會跌破帳戶下限)
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrCustomerNotFound 找不到客戶
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrJournalWriteFailed 日誌寫入失敗
	ErrJournalWriteFailed = errors.New("journal write failed")
)
