package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// rw-r--r--，一般資料檔
const fileMode fs.FileMode = 0644

// Journal 追加式日誌檔，每筆紀錄一行 JSON
// 寫入後只增不改，重啟時以 Replay 重建狀態
type Journal struct {
	file *os.File
	mu   sync.Mutex
}

// Open 開啟或建立日誌檔
// O_APPEND 確保每次寫入自動落在檔尾，O_CREATE 檔案不存在時建立
func Open(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, fileMode)
	if err != nil {
		return nil, err
	}
	return &Journal{file: file}, nil
}

// Append 寫入一筆紀錄並刷入硬碟
func (j *Journal) Append(v any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := json.NewEncoder(j.file).Encode(v); err != nil {
		return err
	}
	return j.file.Sync()
}

// AppendAll 一次寫入多筆紀錄
// 先在記憶體編碼完成，再以單次寫入落檔並刷盤；
// 編碼失敗時檔案完全不動，不會留下只寫到一半的批次
func (j *Journal) AppendAll(vs []any) error {
	if len(vs) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, v := range vs {
		if err := encoder.Encode(v); err != nil {
			return err
		}
	}
	if _, err := j.file.Write(buf.Bytes()); err != nil {
		return err
	}
	return j.file.Sync()
}

// Replay 從頭讀取所有紀錄，逐筆交給 callback
// 逐筆解碼避免一次把整個檔案載入記憶體
func (j *Journal) Replay(callback func(raw []byte) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(j.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
	return nil
}

// Close 關閉日誌檔
func (j *Journal) Close() error {
	return j.file.Close()
}
