package trade

import (
	"os"
	"path/filepath"
	"testing"

	"SolSwap-Bot/internal/solana"
)

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	content := `tokens:
  - symbol: USDC
    mint: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    decimals: 6
  - symbol: BONK
    mint: DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263
  - symbol: ""
    mint: ignored
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入注册表失败: %v", err)
	}

	registry, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("加载注册表失败: %v", err)
	}
	if got := registry.Symbol("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"); got != "USDC" {
		t.Fatalf("已知 mint 应返回符号, got %q", got)
	}
	if got := registry.Symbol(solana.NativeMint); got != solana.NativeSymbol {
		t.Fatalf("原生 mint 应返回 %q, got %q", solana.NativeSymbol, got)
	}
	if got := registry.Symbol("UnknownMint111111111111111111111111111111111"); got != "Unkn...1111" {
		t.Fatalf("未知 mint 应缩短展示, got %q", got)
	}
	if got := registry.Decimals("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"); got != 6 {
		t.Fatalf("已登记精度应生效, got %d", got)
	}
	if got := registry.Decimals("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"); got != defaultDecimals {
		t.Fatalf("未写精度的条目应回落默认值, got %d", got)
	}
	if got := registry.Decimals("UnknownMint111111111111111111111111111111111"); got != defaultDecimals {
		t.Fatalf("未知 mint 应返回默认精度, got %d", got)
	}
}

func TestLoadRegistryEmptyPath(t *testing.T) {
	registry, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("空路径应返回默认注册表: %v", err)
	}
	if got := registry.Symbol(solana.NativeMint); got != solana.NativeSymbol {
		t.Fatalf("默认注册表应识别原生 mint, got %q", got)
	}
}

func TestLoadRegistryMissingFile(t *testing.T) {
	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("缺失文件应返回错误")
	}
}
