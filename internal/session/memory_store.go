package session

import (
	"context"
	"sync"
	"time"

	xerrors "SolSwap-Bot/internal/errors"
)

// MemoryStore 以内存方式保存会话状态。所有读写都在同一把锁下进行，
// 同一用户的并发消息不会交叉写出半新半旧的状态，后写者整体覆盖。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

// Get 返回用户当前的会话状态。
func (m *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *session
	return &clone, nil
}

// Put 写入会话状态，覆盖同一用户的旧状态。
func (m *MemoryStore) Put(_ context.Context, session Session) error {
	if session.UserID == 0 {
		return xerrors.New(xerrors.CodeInvalidArgument, "userID 不能为空")
	}
	if !IsValidStep(session.Step) {
		return xerrors.New(xerrors.CodeInvalidArgument, "非法的会话步骤")
	}
	session.UpdatedAt = time.Now().Unix()

	m.mu.Lock()
	defer m.mu.Unlock()
	clone := session
	m.sessions[session.UserID] = &clone
	return nil
}

// Clear 移除用户的会话状态。不存在时不报错。
func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
