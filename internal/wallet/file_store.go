package wallet

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	xerrors "SolSwap-Bot/internal/errors"
)

// FileStore 把映射保存在一个平面 JSON 文件里。写入在进程内互斥，
// 跨进程没有事务保证；映射只增不改，写入频率是每个新用户一次。
type FileStore struct {
	mu       sync.RWMutex
	path     string
	mappings map[int64]*Mapping
}

// fileRecord 是落盘的序列化结构，键为十进制的 userID。
type fileRecord struct {
	WalletID  string `json:"wallet_id"`
	Address   string `json:"address"`
	CreatedAt int64  `json:"created_at"`
}

// NewFileStore 创建文件存储，启动时读入整个文件。
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "映射文件路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "创建映射目录失败")
	}

	store := &FileStore{path: path, mappings: make(map[int64]*Mapping)}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *FileStore) load() error {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取映射文件失败")
	}
	if len(content) == 0 {
		return nil
	}

	records := make(map[string]fileRecord)
	if err := json.Unmarshal(content, &records); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析映射文件失败")
	}
	for key, record := range records {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		s.mappings[userID] = &Mapping{
			UserID:    userID,
			WalletID:  record.WalletID,
			Address:   record.Address,
			CreatedAt: record.CreatedAt,
		}
	}
	return nil
}

// flushLocked 将整个映射写回文件，调用方必须持有写锁。
func (s *FileStore) flushLocked() error {
	records := make(map[string]fileRecord, len(s.mappings))
	for userID, mapping := range s.mappings {
		records[strconv.FormatInt(userID, 10)] = fileRecord{
			WalletID:  mapping.WalletID,
			Address:   mapping.Address,
			CreatedAt: mapping.CreatedAt,
		}
	}
	encoded, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "序列化映射失败")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o644); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入映射文件失败")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "替换映射文件失败")
	}
	return nil
}

// Get 返回指定用户的映射。
func (s *FileStore) Get(_ context.Context, userID int64) (*Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mapping, ok := s.mappings[userID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *mapping
	return &clone, nil
}

// GetAll 返回全部映射，按 userID 升序。
func (s *FileStore) GetAll(_ context.Context) ([]*Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]*Mapping, 0, len(s.mappings))
	for _, mapping := range s.mappings {
		clone := *mapping
		results = append(results, &clone)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].UserID < results[j].UserID
	})
	return results, nil
}

// Save 写入新映射。已有映射不可覆盖。
func (s *FileStore) Save(_ context.Context, mapping Mapping) error {
	if mapping.UserID == 0 {
		return xerrors.New(xerrors.CodeInvalidArgument, "userID 不能为空")
	}
	if mapping.WalletID == "" || mapping.Address == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "映射内容不完整")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mappings[mapping.UserID]; ok {
		return ErrExists
	}
	if mapping.CreatedAt == 0 {
		mapping.CreatedAt = time.Now().Unix()
	}
	clone := mapping
	s.mappings[mapping.UserID] = &clone

	if err := s.flushLocked(); err != nil {
		// 落盘失败时回滚内存，避免出现只存在于内存的映射。
		delete(s.mappings, mapping.UserID)
		return err
	}
	return nil
}

// Close 对文件存储无需操作。
func (s *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
