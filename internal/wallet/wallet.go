// Package wallet 维护用户与托管钱包的映射。映射在首次 /start 时写入，
// 之后既不修改也不删除。
package wallet

import (
	"context"

	xerrors "SolSwap-Bot/internal/errors"
)

// Mapping 描述一条用户到托管钱包的映射记录。
type Mapping struct {
	UserID    int64  `json:"user_id"`
	WalletID  string `json:"wallet_id"`
	Address   string `json:"address"`
	CreatedAt int64  `json:"created_at"`
}

// Store 抽象了映射的持久化接口，后端可以是平面文件或 MySQL。
type Store interface {
	Get(ctx context.Context, userID int64) (*Mapping, error)
	GetAll(ctx context.Context) ([]*Mapping, error)
	Save(ctx context.Context, mapping Mapping) error
	Close() error
}

var (
	// ErrNotFound 表示指定用户没有钱包映射。
	ErrNotFound = xerrors.New(CodeWalletNotFound, "wallet mapping not found")
	// ErrExists 表示该用户已经持有钱包映射，映射不可覆盖。
	ErrExists = xerrors.New(CodeWalletExists, "wallet mapping already exists",
		xerrors.WithSeverity(xerrors.SeverityWarning))
)

const (
	CodeWalletNotFound xerrors.Code = "WALLET_NOT_FOUND"
	CodeWalletExists   xerrors.Code = "WALLET_EXISTS"
)

func init() {
	xerrors.Register(CodeWalletNotFound, xerrors.Attributes{
		Message:    "wallet mapping not found",
		Severity:   xerrors.SeverityInfo,
		Retryable:  false,
		UserFacing: false,
	})
	xerrors.Register(CodeWalletExists, xerrors.Attributes{
		Message:    "wallet mapping already exists",
		Severity:   xerrors.SeverityWarning,
		Retryable:  false,
		UserFacing: false,
	})
}
