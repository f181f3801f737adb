package session

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "SolSwap-Bot/internal/errors"
)

// RedisStore 使用 Redis 保存会话状态，带 TTL，被放弃的流程会自动过期。
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig 描述 Redis 会话存储的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisStore 创建 Redis 会话存储。
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "Redis address 不能为空")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "solswap:session:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 Redis 失败")
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *RedisStore) key(userID int64) string {
	return fmt.Sprintf("%s%d", r.prefix, userID)
}

// Get 返回用户当前的会话状态。
func (r *RedisStore) Get(ctx context.Context, userID int64) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err != nil {
		if stdErrors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "读取会话失败")
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析会话失败")
	}
	return &session, nil
}

// Put 写入会话状态并刷新 TTL。SET 覆盖旧值，后写者生效。
func (r *RedisStore) Put(ctx context.Context, session Session) error {
	if session.UserID == 0 {
		return xerrors.New(xerrors.CodeInvalidArgument, "userID 不能为空")
	}
	if !IsValidStep(session.Step) {
		return xerrors.New(xerrors.CodeInvalidArgument, "非法的会话步骤")
	}
	session.UpdatedAt = time.Now().Unix()

	encoded, err := json.Marshal(session)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "序列化会话失败")
	}
	if err := r.client.Set(ctx, r.key(session.UserID), encoded, r.ttl).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入会话失败")
	}
	return nil
}

// Clear 删除用户的会话状态。
func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "删除会话失败")
	}
	return nil
}

// Close 关闭 Redis 连接。
func (r *RedisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
