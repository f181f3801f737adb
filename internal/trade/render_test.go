package trade

import (
	"strings"
	"testing"

	"SolSwap-Bot/internal/aggregator"
	"SolSwap-Bot/internal/custody"
	xerrors "SolSwap-Bot/internal/errors"
	"SolSwap-Bot/internal/solana"
)

func TestRenderErrorKnownCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "无效地址",
			err:  xerrors.New(solana.CodeInvalidAddress, "地址校验失败"),
			want: msgInvalidAddress,
		},
		{
			name: "托管服务故障",
			err:  xerrors.New(custody.CodeCustodyFailure, "托管请求失败"),
			want: msgCustodyFailure,
		},
		{
			name: "滑点超限",
			err:  xerrors.New(aggregator.CodeSlippageExceeded, "滑点超限"),
			want: msgSlippage,
		},
	}
	for _, tc := range cases {
		if got := renderError(tc.err); got != tc.want {
			t.Fatalf("%s: renderError = %q, 期望 %q", tc.name, got, tc.want)
		}
	}
}

func TestRenderErrorVendorTextSurfaces(t *testing.T) {
	err := xerrors.New(aggregator.CodeVendorError, "聚合器拒绝",
		xerrors.WithMetadata("vendor_error", "insufficient liquidity"))
	msg := renderError(err)
	if !strings.Contains(msg, "insufficient liquidity") {
		t.Fatalf("应透传聚合器的错误文本: %q", msg)
	}
}

func TestRenderErrorUserFacingFallback(t *testing.T) {
	// 注册为 UserFacing 的错误码展示其描述，其余一律用通用提示。
	userFacing := xerrors.New(aggregator.CodeAggregatorFailure, "网关超时")
	msg := renderError(userFacing)
	if !strings.Contains(msg, "swap aggregator failure") {
		t.Fatalf("UserFacing 错误码应展示注册的描述: %q", msg)
	}
	if strings.Contains(msg, "网关超时") {
		t.Fatalf("内部错误文本不应外泄: %q", msg)
	}

	internal := xerrors.New(xerrors.CodeQueueFailure, "队列投递失败")
	if got := renderError(internal); got != msgGenericFailure {
		t.Fatalf("非 UserFacing 错误码应返回通用提示: %q", got)
	}
}
