package wallet

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	xerrors "SolSwap-Bot/internal/errors"
)

// MySQLStore 使用 MySQL 保存映射，适合多实例部署。
type MySQLStore struct {
	db *sql.DB
}

// MySQLConfig 描述连接参数。
type MySQLConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// NewMySQLStore 创建 MySQL 存储并初始化表结构。
func NewMySQLStore(ctx context.Context, cfg MySQLConfig) (*MySQLStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "连接 MySQL 失败")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "无法连接到 MySQL")
	}

	store := &MySQLStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) initSchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS wallet_mappings (
        user_id BIGINT PRIMARY KEY,
        wallet_id VARCHAR(128) NOT NULL,
        address VARCHAR(64) NOT NULL,
        created_at BIGINT NOT NULL,
        INDEX idx_wallet_address (address)
)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化 wallet_mappings 表失败")
	}
	return nil
}

// Get 返回指定用户的映射。
func (s *MySQLStore) Get(ctx context.Context, userID int64) (*Mapping, error) {
	const stmt = `SELECT user_id, wallet_id, address, created_at FROM wallet_mappings WHERE user_id = ?`

	var mapping Mapping
	err := s.db.QueryRowContext(ctx, stmt, userID).Scan(
		&mapping.UserID,
		&mapping.WalletID,
		&mapping.Address,
		&mapping.CreatedAt,
	)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询映射失败")
	}
	return &mapping, nil
}

// GetAll 返回全部映射。
func (s *MySQLStore) GetAll(ctx context.Context) ([]*Mapping, error) {
	const stmt = `SELECT user_id, wallet_id, address, created_at FROM wallet_mappings ORDER BY user_id`

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询映射列表失败")
	}
	defer rows.Close()

	var results []*Mapping
	for rows.Next() {
		var mapping Mapping
		if err := rows.Scan(&mapping.UserID, &mapping.WalletID, &mapping.Address, &mapping.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析映射记录失败")
		}
		results = append(results, &mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历映射失败")
	}
	return results, nil
}

// Save 写入新映射。主键冲突映射为 ErrExists。
func (s *MySQLStore) Save(ctx context.Context, mapping Mapping) error {
	if mapping.UserID == 0 {
		return xerrors.New(xerrors.CodeInvalidArgument, "userID 不能为空")
	}
	if mapping.WalletID == "" || mapping.Address == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "映射内容不完整")
	}
	if mapping.CreatedAt == 0 {
		mapping.CreatedAt = time.Now().Unix()
	}

	const stmt = `INSERT INTO wallet_mappings (user_id, wallet_id, address, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt, mapping.UserID, mapping.WalletID, mapping.Address, mapping.CreatedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrExists
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "插入映射失败")
	}
	return nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Store = (*MySQLStore)(nil)
