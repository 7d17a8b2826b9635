package rest

import (
	"time"

	"github.com/mohammedaassou/go-digital-banking/internal/app/core/domain"
	"github.com/mohammedaassou/go-digital-banking/internal/app/core/usecase"
)

// 對外 JSON 欄位沿用原有前端既定的格式，金額以數值傳遞

type CustomerView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type AccountView struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Balance      float64   `json:"balance"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	OverDraft    *float64  `json:"overDraft,omitempty"`
	InterestRate *float64  `json:"interestRate,omitempty"`
	CustomerID   int64     `json:"customerId"`
}

type OperationView struct {
	ID            int64     `json:"id"`
	OperationDate time.Time `json:"operationDate"`
	Amount        float64   `json:"amount"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
}

type AccountHistoryView struct {
	AccountID   string          `json:"accountId"`
	AccountType string          `json:"accountType"`
	Balance     float64         `json:"balance"`
	CurrentPage int             `json:"currentPage"`
	TotalPages  int             `json:"totalPages"`
	PageSize    int             `json:"pageSize"`
	Operations  []OperationView `json:"accountOperationDTOS"`
}

type CustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type CurrentAccountRequest struct {
	InitialBalance float64 `json:"initialBalance"`
	OverDraft      float64 `json:"overDraft"`
}

type SavingAccountRequest struct {
	InitialBalance float64 `json:"initialBalance"`
	InterestRate   float64 `json:"interestRate"`
}

func fromCustomer(c *domain.Customer) CustomerView {
	return CustomerView{ID: c.ID, Name: c.Name, Email: c.Email}
}

func fromAccount(a *domain.Account) AccountView {
	view := AccountView{
		ID:         a.ID,
		Type:       string(a.Type),
		Balance:    a.Balance.InexactFloat64(),
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
		CustomerID: a.CustomerID,
	}
	// 變體專屬欄位只在對應類型時輸出
	switch a.Type {
	case domain.AccountTypeCurrent:
		overdraft := a.Overdraft.InexactFloat64()
		view.OverDraft = &overdraft
	case domain.AccountTypeSaving:
		rate := a.Rate
		view.InterestRate = &rate
	}
	return view
}

func fromAccounts(accounts []*domain.Account) []AccountView {
	out := make([]AccountView, len(accounts))
	for i, a := range accounts {
		out[i] = fromAccount(a)
	}
	return out
}

func fromOperation(op *domain.Operation) OperationView {
	return OperationView{
		ID:            op.ID,
		OperationDate: op.OperationDate,
		Amount:        op.Amount.InexactFloat64(),
		Type:          string(op.Type),
		Description:   op.Description,
	}
}

func fromOperations(ops []*domain.Operation) []OperationView {
	out := make([]OperationView, len(ops))
	for i, op := range ops {
		out[i] = fromOperation(op)
	}
	return out
}

func fromHistory(h *usecase.AccountHistory) AccountHistoryView {
	return AccountHistoryView{
		AccountID:   h.AccountID,
		AccountType: string(h.Type),
		Balance:     h.Balance.InexactFloat64(),
		CurrentPage: h.CurrentPage,
		TotalPages:  h.TotalPages,
		PageSize:    h.PageSize,
		Operations:  fromOperations(h.Operations),
	}
}
