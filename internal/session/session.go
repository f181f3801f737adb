// Package session 保存多轮兑换指令的进行中状态。状态只在一次多轮指令的
// 生命周期内存在：完成、取消或任何终态错误都会清除它。
package session

import (
	"context"

	xerrors "SolSwap-Bot/internal/errors"
)

// Step 表示多轮流程当前等待的输入。
type Step string

const (
	StepAwaitingTokenAddress Step = "awaiting_token_address"
	StepAwaitingAmount       Step = "awaiting_amount"
)

// Session 是单个用户的会话状态。每个用户至多一条，新的兑换指令
// 覆盖尚未完成的旧状态。
type Session struct {
	UserID    int64  `json:"user_id"`
	Step      Step   `json:"step"`
	TokenMint string `json:"token_mint,omitempty"`
	UpdatedAt int64  `json:"updated_at"`
}

// Store 抽象了会话状态的存取接口。
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Put(ctx context.Context, session Session) error
	Clear(ctx context.Context, userID int64) error
	Close() error
}

// ErrNotFound 表示用户当前没有进行中的会话。
var ErrNotFound = xerrors.New(CodeSessionNotFound, "no active session")

// CodeSessionNotFound 表示会话不存在。
const CodeSessionNotFound xerrors.Code = "SESSION_NOT_FOUND"

func init() {
	xerrors.Register(CodeSessionNotFound, xerrors.Attributes{
		Message:    "no active session",
		Severity:   xerrors.SeverityInfo,
		Retryable:  false,
		UserFacing: false,
	})
}

// IsValidStep 检查给定的步骤是否为支持的枚举值。
func IsValidStep(step Step) bool {
	switch step {
	case StepAwaitingTokenAddress, StepAwaitingAmount:
		return true
	default:
		return false
	}
}
