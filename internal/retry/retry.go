// Package retry 提供固定间隔的重试执行器。是否重试完全取决于错误本身携带的
// 可重试标记，调用方不需要在业务层判断错误种类。
package retry

import (
	"context"
	"time"

	xerrors "SolSwap-Bot/internal/errors"
)

// Op 是一次可重试的操作。
type Op func(ctx context.Context) error

// Do 以固定间隔执行 op，最多尝试 attempts 次。只有被标记为可重试的错误
// 才会触发下一次尝试，上下文取消会立即终止并返回取消错误。返回值是最后
// 一次尝试的错误。
func Do(ctx context.Context, attempts int, delay time.Duration, op Op) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !xerrors.RetryableError(lastErr) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
