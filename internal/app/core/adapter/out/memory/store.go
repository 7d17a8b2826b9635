package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/mohammedaassou/go-digital-banking/internal/app/core/domain"
	"github.com/mohammedaassou/go-digital-banking/internal/app/core/usecase"
	"github.com/mohammedaassou/go-digital-banking/pkg/journal"
)

// 日誌紀錄類型
const (
	recordKindAccount   = "account"
	recordKindCustomer  = "customer"
	recordKindOperation = "operation"
)

// record 是寫入日誌檔的單筆紀錄，三種 payload 擇一
type record struct {
	Kind      string            `json:"kind"`
	Account   *domain.Account   `json:"account,omitempty"`
	Customer  *domain.Customer  `json:"customer,omitempty"`
	Operation *domain.Operation `json:"operation,omitempty"`
}

// Store 是記憶體實作的持久化埠
//
// 結構:
//
//	accounts: 帳戶表 (ID → Account)
//	customers: 客戶表
//	ops: 各帳戶的操作紀錄，永遠只增不改，維持寫入順序
//	journal: 追加式日誌檔，nil 表示純記憶體運行
//
// 所有寫入先落日誌再生效；Transact 範圍內的日誌先緩衝，提交時一併落地
type Store struct {
	mu             sync.RWMutex
	accounts       map[string]*domain.Account
	customers      map[int64]*domain.Customer
	ops            map[string][]*domain.Operation
	nextOpID       int64
	nextCustomerID int64
	journal        *journal.Journal
}

// NewStore 建立記憶體 Store，若帶日誌檔則先重放舊紀錄重建狀態
func NewStore(j *journal.Journal) (*Store, error) {
	s := &Store{
		accounts:  make(map[string]*domain.Account),
		customers: make(map[int64]*domain.Customer),
		ops:       make(map[string][]*domain.Operation),
		journal:   j,
	}
	if j != nil {
		if err := s.recover(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// recover 重放日誌重建帳戶、客戶與操作紀錄
// 只在 NewStore 內呼叫，單執行緒，不需要鎖也不回寫日誌
func (s *Store) recover() error {
	return s.journal.Replay(func(raw []byte) error {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		switch rec.Kind {
		case recordKindAccount:
			s.accounts[rec.Account.ID] = rec.Account
		case recordKindCustomer:
			s.customers[rec.Customer.ID] = rec.Customer
			if rec.Customer.ID > s.nextCustomerID {
				s.nextCustomerID = rec.Customer.ID
			}
		case recordKindOperation:
			op := rec.Operation
			s.ops[op.AccountID] = append(s.ops[op.AccountID], op)
			if op.ID > s.nextOpID {
				s.nextOpID = op.ID
			}
		}
		return nil
	})
}

// append 落一筆日誌，journal 為 nil 時視為成功
func (s *Store) append(rec record) error {
	if s.journal == nil {
		return nil
	}
	if err := s.journal.Append(rec); err != nil {
		return domain.ErrJournalWriteFailed
	}
	return nil
}

// appendAll 把一個交易的所有紀錄以單一批次落日誌
// 單筆單筆寫的話，中途失敗會留下半個交易，重放時復活不完整的轉帳
func (s *Store) appendAll(recs []record) error {
	if s.journal == nil || len(recs) == 0 {
		return nil
	}
	vs := make([]any, len(recs))
	for i := range recs {
		vs[i] = recs[i]
	}
	if err := s.journal.AppendAll(vs); err != nil {
		return domain.ErrJournalWriteFailed
	}
	return nil
}

// --- 帳戶 ---

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (s *Store) SaveAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := account.Clone()
	if err := s.append(record{Kind: recordKindAccount, Account: cp}); err != nil {
		return err
	}
	s.accounts[cp.ID] = cp
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		out = append(out, account.Clone())
	}
	// map 迭代順序不固定，以 ID 排序讓列表穩定
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Account
	for _, account := range s.accounts {
		if account.CustomerID == customerID {
			out = append(out, account.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- 操作紀錄 ---

func (s *Store) AppendOperation(ctx context.Context, op *domain.Operation) (*domain.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendOperationLocked(op)
}

// appendOperationLocked 分配 ID/時間戳並追加；呼叫端必須持有寫鎖
func (s *Store) appendOperationLocked(op *domain.Operation) (*domain.Operation, error) {
	cp := *op
	cp.ID = s.nextOpID + 1
	if cp.OperationDate.IsZero() {
		cp.OperationDate = time.Now()
	}
	if err := s.append(record{Kind: recordKindOperation, Operation: &cp}); err != nil {
		return nil, err
	}
	s.nextOpID = cp.ID
	s.ops[cp.AccountID] = append(s.ops[cp.AccountID], &cp)
	out := cp
	return &out, nil
}

func (s *Store) ListOperations(ctx context.Context, accountID string) ([]*domain.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.ops[accountID]
	out := make([]*domain.Operation, len(list))
	for i, op := range list {
		cp := *op
		out[i] = &cp
	}
	return out, nil
}

func (s *Store) PageOperations(ctx context.Context, accountID string, page, size int) ([]*domain.Operation, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.ops[accountID]
	total := int64(len(list))

	// page*size 可能溢位，先用除法判斷頁碼是否超出範圍
	if len(list) == 0 || size < 1 || page < 0 || page > (len(list)-1)/size {
		return nil, total, nil
	}
	start := page * size
	end := start + size
	if end > len(list) {
		end = len(list)
	}
	out := make([]*domain.Operation, 0, end-start)
	for _, op := range list[start:end] {
		cp := *op
		out = append(out, &cp)
	}
	return out, total, nil
}

// --- 客戶 ---

func (s *Store) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	customer, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	cp := *customer
	return &cp, nil
}

func (s *Store) SaveCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *customer
	if cp.ID == 0 {
		cp.ID = s.nextCustomerID + 1
	}
	if err := s.append(record{Kind: recordKindCustomer, Customer: &cp}); err != nil {
		return nil, err
	}
	if cp.ID > s.nextCustomerID {
		s.nextCustomerID = cp.ID
	}
	s.customers[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Customer, 0, len(s.customers))
	for _, customer := range s.customers {
		cp := *customer
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- 交易範圍 ---

// Transact 在單一臨界區內執行 fn：
// 寫入直接套用到狀態上，但記住每個帳戶第一次被改動前的原值與追加筆數；
// fn 失敗 (或提交時日誌寫入失敗) 就整批還原，讀取端永遠看不到半套用的轉帳
func (s *Store) Transact(ctx context.Context, fn func(tx usecase.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &memTx{
		s:            s,
		prevAccounts: make(map[string]*domain.Account),
		appended:     make(map[string]int),
		prevNextOpID: s.nextOpID,
	}

	if err := fn(t); err != nil {
		t.rollback()
		return err
	}

	// 提交：整個交易的日誌作為單一批次落地，失敗視同交易失敗
	if err := s.appendAll(t.records); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// memTx 是交易範圍內的 store 檢視，呼叫時 Store 寫鎖已被持有
type memTx struct {
	s *Store
	// 第一次寫入前的帳戶原值，nil 代表原本不存在
	prevAccounts map[string]*domain.Account
	// 本交易為各帳戶追加的操作筆數
	appended     map[string]int
	prevNextOpID int64
	// 提交時才落地的日誌緩衝
	records []record
}

func (t *memTx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, ok := t.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (t *memTx) SaveAccount(ctx context.Context, account *domain.Account) error {
	if _, touched := t.prevAccounts[account.ID]; !touched {
		t.prevAccounts[account.ID] = t.s.accounts[account.ID] // 可能為 nil
	}
	cp := account.Clone()
	t.s.accounts[cp.ID] = cp
	t.records = append(t.records, record{Kind: recordKindAccount, Account: cp})
	return nil
}

func (t *memTx) AppendOperation(ctx context.Context, op *domain.Operation) (*domain.Operation, error) {
	cp := *op
	cp.ID = t.s.nextOpID + 1
	if cp.OperationDate.IsZero() {
		cp.OperationDate = time.Now()
	}
	t.s.nextOpID = cp.ID
	t.s.ops[cp.AccountID] = append(t.s.ops[cp.AccountID], &cp)
	t.appended[cp.AccountID]++
	t.records = append(t.records, record{Kind: recordKindOperation, Operation: &cp})
	out := cp
	return &out, nil
}

// rollback 還原本交易的所有改動
func (t *memTx) rollback() {
	for id, prev := range t.prevAccounts {
		if prev == nil {
			delete(t.s.accounts, id)
			continue
		}
		t.s.accounts[id] = prev
	}
	for id, n := range t.appended {
		list := t.s.ops[id]
		t.s.ops[id] = list[:len(list)-n]
	}
	t.s.nextOpID = t.prevNextOpID
	t.records = nil
}

var _ usecase.BankStore = (*Store)(nil)
var _ usecase.LedgerTx = (*memTx)(nil)
