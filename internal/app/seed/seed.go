package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/mohammedaassou/go-digital-banking/internal/app/core/domain"
	"github.com/mohammedaassou/go-digital-banking/internal/app/core/usecase"
)

// Run 灌入展示資料：五位客戶、每人一個活期與一個儲蓄帳戶，
// 再對每個帳戶跑五輪入帳/扣款
// 只透過帳務引擎的公開介面操作，不碰 store 內部狀態
func Run(ctx context.Context, core *usecase.BankUseCase) error {
	names := []string{"Fati", "Chaima", "Jalila", "Kelly", "Boutaina"}
	for _, name := range names {
		customer, err := core.SaveCustomer(ctx, name, name+"@gmail.com")
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", name, err)
		}
		if _, err := core.OpenCurrentAccount(ctx, randAmount(9000), decimal.NewFromInt(500), customer.ID); err != nil {
			return fmt.Errorf("seed current account for %s: %w", name, err)
		}
		if _, err := core.OpenSavingAccount(ctx, randAmount(9000), 5.5, customer.ID); err != nil {
			return fmt.Errorf("seed saving account for %s: %w", name, err)
		}
	}

	accounts, err := core.ListAccounts(ctx)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		for i := 0; i < 5; i++ {
			if err := core.Credit(ctx, account.ID, randAmount(6000), "Initial credit"); err != nil {
				return err
			}
			err := core.Debit(ctx, account.ID, randAmount(600), "Initial debit")
			if errors.Is(err, domain.ErrInsufficientBalance) {
				// 隨機金額可能超出下限，略過這筆
				continue
			}
			if err != nil {
				return err
			}
		}
	}
	log.Printf("Seeded %d customers and %d accounts", len(names), len(accounts))
	return nil
}

// randAmount 產生 (0, max) 之間、兩位小數的隨機金額
func randAmount(max int64) decimal.Decimal {
	cents := rand.Int63n(max*100-1) + 1
	return decimal.New(cents, -2)
}
