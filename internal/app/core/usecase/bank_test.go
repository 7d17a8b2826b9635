package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	memory_adapter "github.com/mohammedaassou/go-digital-banking/internal/app/core/adapter/out/memory"
	"github.com/mohammedaassou/go-digital-banking/internal/app/core/domain"
	"github.com/mohammedaassou/go-digital-banking/internal/app/core/usecase"
)

func dec(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// newCore 建立掛著記憶體 store 的帳務引擎 (無日誌檔)
func newCore(t *testing.T) *usecase.BankUseCase {
	t.Helper()
	store, err := memory_adapter.NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	return usecase.NewBankUseCase(store)
}

// mustCustomer 為小工具：建立測試客戶
func mustCustomer(t *testing.T, core *usecase.BankUseCase) *domain.Customer {
	t.Helper()
	customer, err := core.SaveCustomer(context.Background(), "Fati", "fati@gmail.com")
	if err != nil {
		t.Fatal(err)
	}
	return customer
}

// mustCurrent 為小工具：開立活期帳戶
func mustCurrent(t *testing.T, core *usecase.BankUseCase, customerID int64, balance, overdraft int64) *domain.Account {
	t.Helper()
	account, err := core.OpenCurrentAccount(context.Background(), dec(balance), dec(overdraft), customerID)
	if err != nil {
		t.Fatal(err)
	}
	return account
}

// mustSaving 為小工具：開立儲蓄帳戶
func mustSaving(t *testing.T, core *usecase.BankUseCase, customerID int64, balance int64) *domain.Account {
	t.Helper()
	account, err := core.OpenSavingAccount(context.Background(), dec(balance), 5.5, customerID)
	if err != nil {
		t.Fatal(err)
	}
	return account
}

// balanceOf 為小工具：取得目前餘額
func balanceOf(t *testing.T, core *usecase.BankUseCase, id string) decimal.Decimal {
	t.Helper()
	account, err := core.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return account.Balance
}

// TestCreditAppendsOperation 驗證入帳會更新餘額並留下一筆 CREDIT 紀錄
func TestCreditAppendsOperation(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	account := mustSaving(t, core, customer.ID, 0)

	if err := core.Credit(ctx, account.ID, dec(100), "salary"); err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(t, core, account.ID); !got.Equal(dec(100)) {
		t.Fatalf("balance=%s want=100", got)
	}

	ops, err := core.History(ctx, account.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 {
		t.Fatalf("ops=%d want=1", len(ops))
	}
	op := ops[0]
	if op.Type != domain.OperationTypeCredit || !op.Amount.Equal(dec(100)) || op.Description != "salary" {
		t.Fatalf("op unexpected: %+v", op)
	}
	if op.ID == 0 || op.OperationDate.IsZero() {
		t.Fatalf("op id/date should be assigned: %+v", op)
	}
}

// TestCreditErrors 驗證未知帳戶與非法金額的失敗路徑
func TestCreditErrors(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	account := mustSaving(t, core, customer.ID, 10)

	if err := core.Credit(ctx, "no-such-account", dec(5), ""); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
	for _, amt := range []decimal.Decimal{decimal.Zero, dec(-7)} {
		if err := core.Credit(ctx, account.ID, amt, ""); !errors.Is(err, domain.ErrAmountMustBePositive) {
			t.Fatalf("amt=%s want ErrAmountMustBePositive, got %v", amt, err)
		}
	}

	// 失敗的操作不得留下任何紀錄
	ops, _ := core.History(ctx, account.ID)
	if len(ops) != 0 {
		t.Fatalf("ops=%d want=0", len(ops))
	}
}

// TestDebitOverdraft 情境一：活期帳戶餘額 1000、透支 200
// 扣 1150 成功 (-150)，再扣 60 被拒且餘額不變
func TestDebitOverdraft(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	account := mustCurrent(t, core, customer.ID, 1000, 200)

	if err := core.Debit(ctx, account.ID, dec(1150), "rent"); err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(t, core, account.ID); !got.Equal(dec(-150)) {
		t.Fatalf("balance=%s want=-150", got)
	}

	if err := core.Debit(ctx, account.ID, dec(60), "rent"); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if got := balanceOf(t, core, account.ID); !got.Equal(dec(-150)) {
		t.Fatalf("balance changed after rejected debit: %s", got)
	}

	ops, _ := core.History(ctx, account.ID)
	if len(ops) != 1 {
		t.Fatalf("ops=%d want=1", len(ops))
	}
}

// TestDebitSavingFloor 情境二：儲蓄帳戶餘額 500
// 扣 500 成功 (0)，再扣 1 被拒
func TestDebitSavingFloor(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	account := mustSaving(t, core, customer.ID, 500)

	if err := core.Debit(ctx, account.ID, dec(500), ""); err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(t, core, account.ID); !got.Equal(decimal.Zero) {
		t.Fatalf("balance=%s want=0", got)
	}
	if err := core.Debit(ctx, account.ID, dec(1), ""); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
}

// TestTransferMovesFunds 情境三：A=100、B=50，轉 30 → A=70、B=80
// 兩個帳戶各留下一筆對應的操作紀錄
func TestTransferMovesFunds(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	a := mustCurrent(t, core, customer.ID, 100, 0)
	b := mustCurrent(t, core, customer.ID, 50, 0)

	if err := core.Transfer(ctx, a.ID, b.ID, dec(30)); err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(t, core, a.ID); !got.Equal(dec(70)) {
		t.Fatalf("a=%s want=70", got)
	}
	if got := balanceOf(t, core, b.ID); !got.Equal(dec(80)) {
		t.Fatalf("b=%s want=80", got)
	}

	opsA, _ := core.History(ctx, a.ID)
	opsB, _ := core.History(ctx, b.ID)
	if len(opsA) != 1 || len(opsB) != 1 {
		t.Fatalf("ops a=%d b=%d want 1/1", len(opsA), len(opsB))
	}
	if opsA[0].Type != domain.OperationTypeDebit || opsA[0].Description != fmt.Sprintf("Transfer to %s", b.ID) {
		t.Fatalf("debit leg unexpected: %+v", opsA[0])
	}
	if opsB[0].Type != domain.OperationTypeCredit || opsB[0].Description != fmt.Sprintf("Transfer from %s", a.ID) {
		t.Fatalf("credit leg unexpected: %+v", opsB[0])
	}
}

// TestTransferInsufficientNoPartialState 情境四：餘額不足的轉帳
// 兩邊餘額與操作紀錄都必須完全不變
func TestTransferInsufficientNoPartialState(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	a := mustCurrent(t, core, customer.ID, 70, 0)
	b := mustCurrent(t, core, customer.ID, 50, 0)

	err := core.Transfer(ctx, a.ID, b.ID, dec(1_000_000))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}

	if got := balanceOf(t, core, a.ID); !got.Equal(dec(70)) {
		t.Fatalf("a=%s want=70", got)
	}
	if got := balanceOf(t, core, b.ID); !got.Equal(dec(50)) {
		t.Fatalf("b=%s want=50", got)
	}
	opsA, _ := core.History(ctx, a.ID)
	opsB, _ := core.History(ctx, b.ID)
	if len(opsA) != 0 || len(opsB) != 0 {
		t.Fatalf("ops a=%d b=%d want 0/0", len(opsA), len(opsB))
	}
}

// TestTransferUnknownDestinationRollsBack 驗證目的帳戶不存在時整筆回滾：
// 來源不會被扣款，也不會留下孤兒紀錄
func TestTransferUnknownDestinationRollsBack(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	a := mustCurrent(t, core, customer.ID, 100, 0)

	err := core.Transfer(ctx, a.ID, "no-such-account", dec(10))
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("want ErrAccountNotFound, got %v", err)
	}
	if got := balanceOf(t, core, a.ID); !got.Equal(dec(100)) {
		t.Fatalf("source debited despite failed transfer: %s", got)
	}
	ops, _ := core.History(ctx, a.ID)
	if len(ops) != 0 {
		t.Fatalf("ops=%d want=0", len(ops))
	}
}

// TestTransferToSelf 驗證同帳戶互轉：餘額不變，但兩段紀錄都要留存
func TestTransferToSelf(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	a := mustCurrent(t, core, customer.ID, 100, 0)

	if err := core.Transfer(ctx, a.ID, a.ID, dec(40)); err != nil {
		t.Fatal(err)
	}
	if got := balanceOf(t, core, a.ID); !got.Equal(dec(100)) {
		t.Fatalf("balance=%s want=100", got)
	}
	ops, _ := core.History(ctx, a.ID)
	if len(ops) != 2 {
		t.Fatalf("ops=%d want=2", len(ops))
	}
	if ops[0].Type != domain.OperationTypeDebit || ops[1].Type != domain.OperationTypeCredit {
		t.Fatalf("legs unexpected: %s %s", ops[0].Type, ops[1].Type)
	}
}

// TestConcurrentOppositeTransfers 驗證資金守恆與固定取鎖順序：
// 兩批 goroutine 在同一對帳戶間反向轉帳，必須全部完成且總額不變
func TestConcurrentOppositeTransfers(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	a := mustCurrent(t, core, customer.ID, 1000, 0)
	b := mustCurrent(t, core, customer.ID, 1000, 0)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := core.Transfer(ctx, a.ID, b.ID, dec(1)); err != nil {
				t.Errorf("a->b: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := core.Transfer(ctx, b.ID, a.ID, dec(1)); err != nil {
				t.Errorf("b->a: %v", err)
			}
		}()
	}
	wg.Wait()

	total := balanceOf(t, core, a.ID).Add(balanceOf(t, core, b.ID))
	if !total.Equal(dec(2000)) {
		t.Fatalf("total=%s want=2000", total)
	}
}

// TestConcurrentCredits 驗證單一帳戶的異動序列化：
// 100 筆並發入帳後，餘額與紀錄筆數都必須精確
func TestConcurrentCredits(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	account := mustSaving(t, core, customer.ID, 0)

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := core.Credit(ctx, account.ID, dec(1), "c"); err != nil {
				t.Errorf("credit: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := balanceOf(t, core, account.ID); !got.Equal(dec(workers)) {
		t.Fatalf("balance=%s want=%d", got, workers)
	}
	ops, _ := core.History(ctx, account.ID)
	if len(ops) != workers {
		t.Fatalf("ops=%d want=%d", len(ops), workers)
	}
}

// TestAccountHistoryPagination 情境五：12 筆操作、page=2、size=5
// 回傳第 11、12 筆，totalPages=3；整個掃過去每筆恰好出現一次且順序穩定
func TestAccountHistoryPagination(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	account := mustSaving(t, core, customer.ID, 0)

	for i := 1; i <= 12; i++ {
		if err := core.Credit(ctx, account.ID, dec(int64(i)), fmt.Sprintf("op-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	history, err := core.AccountHistory(ctx, account.ID, 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if history.TotalPages != 3 || history.CurrentPage != 2 || history.PageSize != 5 {
		t.Fatalf("pages=%d current=%d size=%d want 3/2/5", history.TotalPages, history.CurrentPage, history.PageSize)
	}
	if len(history.Operations) != 2 {
		t.Fatalf("len=%d want=2", len(history.Operations))
	}
	if !history.Operations[0].Amount.Equal(dec(11)) || !history.Operations[1].Amount.Equal(dec(12)) {
		t.Fatalf("page content unexpected: %s %s", history.Operations[0].Amount, history.Operations[1].Amount)
	}

	// 逐頁掃描：每筆恰好一次、ID 嚴格遞增
	seen := make(map[int64]bool)
	lastID := int64(0)
	for page := 0; page < history.TotalPages; page++ {
		h, err := core.AccountHistory(ctx, account.ID, page, 5)
		if err != nil {
			t.Fatal(err)
		}
		for _, op := range h.Operations {
			if seen[op.ID] {
				t.Fatalf("op %d appeared twice", op.ID)
			}
			if op.ID <= lastID {
				t.Fatalf("ordering broken: %d after %d", op.ID, lastID)
			}
			seen[op.ID] = true
			lastID = op.ID
		}
	}
	if len(seen) != 12 {
		t.Fatalf("seen=%d want=12", len(seen))
	}
}

// TestAccountHistoryDefaults 驗證非法分頁參數落回預設 page=0、size=5
func TestAccountHistoryDefaults(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	account := mustSaving(t, core, customer.ID, 0)
	for i := 0; i < 7; i++ {
		if err := core.Credit(ctx, account.ID, dec(1), ""); err != nil {
			t.Fatal(err)
		}
	}

	history, err := core.AccountHistory(ctx, account.ID, -3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if history.CurrentPage != 0 || history.PageSize != 5 {
		t.Fatalf("current=%d size=%d want 0/5", history.CurrentPage, history.PageSize)
	}
	if len(history.Operations) != 5 {
		t.Fatalf("len=%d want=5", len(history.Operations))
	}
	if history.TotalPages != 2 {
		t.Fatalf("totalPages=%d want=2", history.TotalPages)
	}
}

// TestAccountHistoryHugePage 驗證極大頁碼走完整條查詢路徑也不會 panic，
// 回傳空頁且 totalPages 正確
func TestAccountHistoryHugePage(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	account := mustSaving(t, core, customer.ID, 0)
	for i := 0; i < 3; i++ {
		if err := core.Credit(ctx, account.ID, dec(1), ""); err != nil {
			t.Fatal(err)
		}
	}

	for _, page := range []int{1 << 61, math.MaxInt} {
		history, err := core.AccountHistory(ctx, account.ID, page, 5)
		if err != nil {
			t.Fatalf("page=%d: %v", page, err)
		}
		if len(history.Operations) != 0 {
			t.Fatalf("page=%d: len=%d want=0", page, len(history.Operations))
		}
		if history.TotalPages != 1 {
			t.Fatalf("page=%d: totalPages=%d want=1", page, history.TotalPages)
		}
	}
}

// TestAccountHistorySnapshotConsistent 驗證餘額與分頁內容來自同一個時間點：
// 轉帳不斷進行的同時反覆讀取，每次讀到的餘額都必須等於
// 初始餘額加減同一次讀取看到的所有操作
func TestAccountHistorySnapshotConsistent(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	a := mustCurrent(t, core, customer.ID, 1000, 0)
	b := mustCurrent(t, core, customer.ID, 1000, 0)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	transferLoop := func(fromID, toID string) {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			err := core.Transfer(ctx, fromID, toID, dec(1))
			if err != nil && !errors.Is(err, domain.ErrInsufficientBalance) {
				t.Errorf("transfer: %v", err)
				return
			}
		}
	}
	go transferLoop(a.ID, b.ID)
	go transferLoop(b.ID, a.ID)

	for i := 0; i < 200; i++ {
		history, err := core.AccountHistory(ctx, a.ID, 0, 1<<20)
		if err != nil {
			t.Fatal(err)
		}
		want := dec(1000)
		for _, op := range history.Operations {
			switch op.Type {
			case domain.OperationTypeCredit:
				want = want.Add(op.Amount)
			case domain.OperationTypeDebit:
				want = want.Sub(op.Amount)
			}
		}
		if !history.Balance.Equal(want) {
			t.Fatalf("balance=%s but %d ops imply %s", history.Balance, len(history.Operations), want)
		}
	}

	close(done)
	wg.Wait()
}

// TestAccountHistoryIdempotentRead 驗證沒有寫入介入時，兩次讀取結果完全一致
func TestAccountHistoryIdempotentRead(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	customer := mustCustomer(t, core)
	account := mustSaving(t, core, customer.ID, 100)
	for i := 0; i < 3; i++ {
		if err := core.Credit(ctx, account.ID, dec(10), ""); err != nil {
			t.Fatal(err)
		}
	}

	first, err := core.AccountHistory(ctx, account.ID, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	second, err := core.AccountHistory(ctx, account.ID, 0, 5)
	if err != nil {
		t.Fatal(err)
	}

	if !first.Balance.Equal(second.Balance) || first.TotalPages != second.TotalPages || len(first.Operations) != len(second.Operations) {
		t.Fatalf("reads differ: %+v vs %+v", first, second)
	}
	for i := range first.Operations {
		if first.Operations[i].ID != second.Operations[i].ID {
			t.Fatalf("op[%d] differs: %d vs %d", i, first.Operations[i].ID, second.Operations[i].ID)
		}
	}
}

// TestHistoryUnknownAccount 驗證歷史查詢對未知帳戶回報 ErrAccountNotFound
func TestHistoryUnknownAccount(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)

	if _, err := core.History(ctx, "nope"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("History: want ErrAccountNotFound, got %v", err)
	}
	if _, err := core.AccountHistory(ctx, "nope", 0, 5); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("AccountHistory: want ErrAccountNotFound, got %v", err)
	}
}

// TestOpenAccountUnknownCustomer 驗證開戶時客戶必須存在
func TestOpenAccountUnknownCustomer(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)

	if _, err := core.OpenCurrentAccount(ctx, dec(100), dec(50), 99); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("want ErrCustomerNotFound, got %v", err)
	}
	if _, err := core.OpenSavingAccount(ctx, dec(100), 5.5, 99); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("want ErrCustomerNotFound, got %v", err)
	}
}

// TestListAccountsByCustomer 驗證帳戶依持有人歸屬
func TestListAccountsByCustomer(t *testing.T) {
	ctx := context.Background()
	core := newCore(t)
	c1 := mustCustomer(t, core)
	c2, err := core.SaveCustomer(ctx, "Chaima", "chaima@gmail.com")
	if err != nil {
		t.Fatal(err)
	}

	mustCurrent(t, core, c1.ID, 100, 0)
	mustSaving(t, core, c1.ID, 200)
	mustSaving(t, core, c2.ID, 300)

	list1, err := core.ListAccountsByCustomer(ctx, c1.ID)
	if err != nil {
		t.Fatal(err)
	}
	list2, err := core.ListAccountsByCustomer(ctx, c2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list1) != 2 || len(list2) != 1 {
		t.Fatalf("len1=%d len2=%d want 2/1", len(list1), len(list2))
	}

	all, err := core.ListAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all=%d want=3", len(all))
	}
}
