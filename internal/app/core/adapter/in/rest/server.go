package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mohammedaassou/go-digital-banking/internal/app/core/domain"
	"github.com/mohammedaassou/go-digital-banking/internal/app/core/usecase"
)

// Server 是 REST 入站 adapter，只做參數解析與錯誤轉換，商業邏輯都在 usecase
type Server struct {
	core *usecase.BankUseCase
}

func NewServer(core *usecase.BankUseCase) *Server {
	return &Server{core: core}
}

// Router 建立 gin 路由 (含 CORS)，路徑沿用原有的 REST 介面
func (s *Server) Router(allowOrigins []string) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	corsCfg.AllowOrigins = allowOrigins
	r.Use(cors.New(corsCfg))

	r.GET("/accounts", s.listAccounts)
	r.GET("/accounts/:id", s.getAccount)
	r.GET("/accounts/:id/operations", s.history)
	r.GET("/accounts/:id/pageOperations", s.accountHistory)
	r.POST("/accounts/credit/:id", s.credit)
	r.POST("/accounts/debit/:id", s.debit)
	r.POST("/accounts/transfer", s.transfer)

	r.GET("/customers", s.listCustomers)
	r.POST("/customers", s.createCustomer)
	r.GET("/customers/:customerId/accounts", s.listCustomerAccounts)
	r.POST("/customers/:customerId/current-accounts", s.openCurrentAccount)
	r.POST("/customers/:customerId/saving-accounts", s.openSavingAccount)

	return r
}

// respondError 把領域錯誤轉成 HTTP 狀態碼
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrCustomerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAmountMustBePositive):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientBalance):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// amountQuery 解析金額參數，解析失敗視同金額不合法
func amountQuery(c *gin.Context, name string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(c.Query(name))
	if err != nil {
		respondError(c, domain.ErrAmountMustBePositive)
		return decimal.Decimal{}, false
	}
	return amount, true
}

// intQuery 解析整數參數，缺漏或格式錯誤時回傳 fallback
func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}

func customerIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("customerId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return 0, false
	}
	return id, true
}

// --- 帳戶查詢 ---

func (s *Server) getAccount(c *gin.Context) {
	account, err := s.core.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromAccount(account))
}

func (s *Server) listAccounts(c *gin.Context) {
	accounts, err := s.core.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromAccounts(accounts))
}

func (s *Server) history(c *gin.Context) {
	ops, err := s.core.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromOperations(ops))
}

func (s *Server) accountHistory(c *gin.Context) {
	page := intQuery(c, "page", usecase.DefaultPage)
	size := intQuery(c, "size", usecase.DefaultPageSize)
	history, err := s.core.AccountHistory(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromHistory(history))
}

// --- 帳務操作 ---

func (s *Server) credit(c *gin.Context) {
	amount, ok := amountQuery(c, "amount")
	if !ok {
		return
	}
	if err := s.core.Credit(c.Request.Context(), c.Param("id"), amount, c.Query("desc")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) debit(c *gin.Context) {
	amount, ok := amountQuery(c, "amount")
	if !ok {
		return
	}
	if err := s.core.Debit(c.Request.Context(), c.Param("id"), amount, c.Query("desc")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) transfer(c *gin.Context) {
	amount, ok := amountQuery(c, "amount")
	if !ok {
		return
	}
	if err := s.core.Transfer(c.Request.Context(), c.Query("from"), c.Query("to"), amount); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// --- 客戶與開戶 ---

func (s *Server) listCustomers(c *gin.Context) {
	customers, err := s.core.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]CustomerView, len(customers))
	for i, customer := range customers {
		out[i] = fromCustomer(customer)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createCustomer(c *gin.Context) {
	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	customer, err := s.core.SaveCustomer(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromCustomer(customer))
}

func (s *Server) listCustomerAccounts(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}
	accounts, err := s.core.ListAccountsByCustomer(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromAccounts(accounts))
}

func (s *Server) openCurrentAccount(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}
	var req CurrentAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := s.core.OpenCurrentAccount(
		c.Request.Context(),
		decimal.NewFromFloat(req.InitialBalance),
		decimal.NewFromFloat(req.OverDraft),
		customerID,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromAccount(account))
}

func (s *Server) openSavingAccount(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}
	var req SavingAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	account, err := s.core.OpenSavingAccount(
		c.Request.Context(),
		decimal.NewFromFloat(req.InitialBalance),
		req.InterestRate,
		customerID,
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromAccount(account))
}
