package bot

import "strings"

// Kind 表示一条入站文本对应的指令类型。
type Kind string

const (
	KindStart   Kind = "start"
	KindHelp    Kind = "help"
	KindWallet  Kind = "wallet"
	KindBalance Kind = "balance"
	KindSwap    Kind = "swap"
	// KindText 表示不是指令的自由文本，由多轮会话流程处理。
	KindText Kind = "text"
	// KindUnknown 表示无法识别的指令。
	KindUnknown Kind = "unknown"
)

// Command 是解析后的入站指令。
type Command struct {
	Kind Kind
	Args []string
	// Raw 保留原始文本，自由文本输入依赖它。
	Raw string
}

// Parse 把一条入站文本解析为指令。解析是纯函数，不依赖任何外部状态。
func Parse(text string) Command {
	raw := strings.TrimSpace(text)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return Command{Kind: KindText, Raw: raw}
	}

	fields := strings.Fields(raw)
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	// Telegram 群组里的指令可能带 @botname 后缀。
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	args := fields[1:]

	switch name {
	case "start":
		return Command{Kind: KindStart, Raw: raw}
	case "help":
		return Command{Kind: KindHelp, Raw: raw}
	case "wallet", "getwallet":
		return Command{Kind: KindWallet, Raw: raw}
	case "balance":
		return Command{Kind: KindBalance, Raw: raw}
	case "swap", "buy":
		return Command{Kind: KindSwap, Args: args, Raw: raw}
	default:
		return Command{Kind: KindUnknown, Raw: raw}
	}
}
