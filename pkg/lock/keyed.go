package lock

import (
	"sort"
	"sync"
)

// KeyedMutex 以 key 為粒度的互斥鎖
// 不同 key 的持有者可完全並行，相同 key 在任一時刻最多一個持有者
//
// 結構:
//
//	mu: 保護 entries 表本身
//	entries: key 對應的鎖，以引用計數回收，避免表無限成長
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex 建立一個新的 KeyedMutex 實例
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*entry),
	}
}

// Lock 依序取得所有 key 的鎖
// key 會先去重並排序，固定全域取鎖順序，避免兩個反向操作互相等待造成死鎖
func (k *KeyedMutex) Lock(keys ...string) {
	for _, key := range normalize(keys) {
		k.acquire(key)
	}
}

// Unlock 釋放所有 key 的鎖 (與 Lock 相同的正規化順序，反序釋放)
func (k *KeyedMutex) Unlock(keys ...string) {
	ordered := normalize(keys)
	for i := len(ordered) - 1; i >= 0; i-- {
		k.release(ordered[i])
	}
}

func (k *KeyedMutex) acquire(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	// 實際等待在表鎖之外，避免阻塞其他 key
	e.mu.Lock()
}

func (k *KeyedMutex) release(key string) {
	k.mu.Lock()
	e := k.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// normalize 去重並排序，回傳固定順序的 key 清單
func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
