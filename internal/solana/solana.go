// Package solana holds the chain primitives shared by the swap flows: address
// validation, lamport conversion and explorer links. Validation is structural
// only; whether a mint actually exists on chain is left to the aggregator.
package solana

import (
	"fmt"
	"math"
	"strings"

	solanago "github.com/gagliardetto/solana-go"

	xerrors "SolSwap-Bot/internal/errors"
)

// LamportsPerSOL 是 SOL 与最小单位 lamport 的固定换算比例。
const LamportsPerSOL uint64 = 1_000_000_000

// NativeMint 是原生资产（wrapped SOL）的 mint 地址，作为兑换的输入资产。
const NativeMint = "So11111111111111111111111111111111111111112"

// NativeSymbol 用于余额展示。
const NativeSymbol = "SOL"

const explorerBaseURL = "https://solscan.io/tx/"

// CodeInvalidAddress 表示地址未通过结构校验。
const CodeInvalidAddress xerrors.Code = "INVALID_ADDRESS"

func init() {
	xerrors.Register(CodeInvalidAddress, xerrors.Attributes{
		Message:    "invalid solana address",
		Severity:   xerrors.SeverityInfo,
		Retryable:  false,
		UserFacing: true,
	})
}

// ValidateAddress 对 base58 地址做结构校验，不访问链上状态。
func ValidateAddress(raw string) (solanago.PublicKey, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return solanago.PublicKey{}, xerrors.New(CodeInvalidAddress, "地址不能为空")
	}
	key, err := solanago.PublicKeyFromBase58(trimmed)
	if err != nil {
		return solanago.PublicKey{}, xerrors.Wrap(CodeInvalidAddress, err, "地址结构校验失败",
			xerrors.WithMetadata("address", trimmed))
	}
	return key, nil
}

// IsValidAddress 仅返回校验结果。
func IsValidAddress(raw string) bool {
	_, err := ValidateAddress(raw)
	return err == nil
}

// ToLamports converts a SOL amount into lamports, truncating toward zero.
// The scale is fixed; never round up, otherwise a swap could exceed the
// balance the caller just checked.
func ToLamports(amount float64) uint64 {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return uint64(math.Floor(amount * float64(LamportsPerSOL)))
}

// FromLamports converts lamports back into a SOL amount for display.
func FromLamports(lamports uint64) float64 {
	return float64(lamports) / float64(LamportsPerSOL)
}

// FormatAmount renders a token amount with four decimal places, the precision
// used in every user-facing balance figure.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.4f", amount)
}

// ExplorerTxURL returns the block-explorer link for a transaction signature.
func ExplorerTxURL(signature string) string {
	return explorerBaseURL + strings.TrimSpace(signature)
}
