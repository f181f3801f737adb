package trade

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"SolSwap-Bot/internal/solana"
)

// defaultDecimals 是未登记代币的精度假设。SPL 代币多为 9 位，原生 SOL 也是
// 9 位；精度不同的代币（如 USDC 的 6 位）需要在注册表中登记。
const defaultDecimals = 9

// Registry 维护已知代币 mint 到符号与精度的映射：符号用于余额与成交展示，
// 精度用于把聚合方返回的最小单位数量换算成可读数量。注册表是可选的，
// 未登记的代币展示缩短后的 mint 地址并按默认精度换算。
type Registry struct {
	tokens map[string]tokenInfo
}

type tokenInfo struct {
	symbol   string
	decimals int
}

type registryFile struct {
	Tokens []registryEntry `yaml:"tokens"`
}

type registryEntry struct {
	Symbol   string `yaml:"symbol"`
	Mint     string `yaml:"mint"`
	Decimals int    `yaml:"decimals"`
}

// NewRegistry 创建一个只包含原生代币的注册表。
func NewRegistry() *Registry {
	return &Registry{tokens: map[string]tokenInfo{
		solana.NativeMint: {symbol: solana.NativeSymbol, decimals: 9},
	}}
}

// LoadRegistry 从 YAML 文件加载代币注册表。路径为空时返回默认注册表。
func LoadRegistry(path string) (*Registry, error) {
	registry := NewRegistry()
	if strings.TrimSpace(path) == "" {
		return registry, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取代币注册表失败: %w", err)
	}
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("解析代币注册表失败: %w", err)
	}
	for _, entry := range file.Tokens {
		symbol := strings.TrimSpace(entry.Symbol)
		mint := strings.TrimSpace(entry.Mint)
		if symbol == "" || mint == "" {
			continue
		}
		decimals := entry.Decimals
		if decimals <= 0 {
			decimals = defaultDecimals
		}
		registry.tokens[mint] = tokenInfo{symbol: symbol, decimals: decimals}
	}
	return registry, nil
}

// Symbol 返回 mint 对应的符号，未知时返回缩短后的地址。
func (r *Registry) Symbol(mint string) string {
	if r != nil {
		if info, ok := r.tokens[mint]; ok {
			return info.symbol
		}
	}
	return shortenMint(mint)
}

// Decimals 返回 mint 对应的精度，未知时返回默认精度。
func (r *Registry) Decimals(mint string) int {
	if r != nil {
		if info, ok := r.tokens[mint]; ok && info.decimals > 0 {
			return info.decimals
		}
	}
	return defaultDecimals
}

func shortenMint(mint string) string {
	if len(mint) <= 12 {
		return mint
	}
	return mint[:4] + "..." + mint[len(mint)-4:]
}
