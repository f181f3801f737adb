// Package trade 实现会话编排核心：把用户指令翻译成托管、聚合两个外部
// 服务的调用序列，并把结果或错误渲染成回复文案。
package trade

import (
	"context"
	stdErrors "errors"
	"math"
	"strconv"
	"strings"
	"time"

	"SolSwap-Bot/internal/aggregator"
	"SolSwap-Bot/internal/custody"
	xerrors "SolSwap-Bot/internal/errors"
	"SolSwap-Bot/internal/retry"
	"SolSwap-Bot/internal/session"
	"SolSwap-Bot/internal/solana"
	"SolSwap-Bot/internal/wallet"
	"SolSwap-Bot/pkg/logger"
)

// CustodyClient 抽象钱包托管服务。
type CustodyClient interface {
	CreateWallet(ctx context.Context, chainKind string) (*custody.Wallet, error)
	SignTransaction(ctx context.Context, walletID, rawTxBase64 string) (string, error)
}

// AggregatorClient 抽象兑换聚合服务。
type AggregatorClient interface {
	GetOrder(ctx context.Context, params aggregator.OrderParams) (*aggregator.Order, error)
	SubmitOrder(ctx context.Context, signedTxBase64, requestID string) (*aggregator.Execution, error)
	GetBalances(ctx context.Context, address string) (map[string]aggregator.Balance, error)
}

var _ CustodyClient = (*custody.Client)(nil)
var _ AggregatorClient = (*aggregator.Client)(nil)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
)

// Service 协调托管与聚合服务完成用户指令，是系统的业务核心。
type Service struct {
	custody    CustodyClient
	aggregator AggregatorClient
	wallets    wallet.Store
	sessions   session.Store
	registry   *Registry
	chain      string
	attempts   int
	delay      time.Duration
}

// Option 定义可选的 Service 配置。
type Option func(*Service)

// WithRetryPolicy 设置外部调用的重试次数与固定间隔。
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if delay > 0 {
			s.delay = delay
		}
	}
}

// WithRegistry 配置代币注册表，用于余额展示时的符号标签。
func WithRegistry(registry *Registry) Option {
	return func(s *Service) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithChain 设置托管钱包的链类型。
func WithChain(chain string) Option {
	return func(s *Service) {
		if chain != "" {
			s.chain = chain
		}
	}
}

// NewService 创建会话编排服务。
func NewService(custodyClient CustodyClient, aggregatorClient AggregatorClient,
	wallets wallet.Store, sessions session.Store, opts ...Option) (*Service, error) {
	if custodyClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置托管客户端")
	}
	if aggregatorClient == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置聚合客户端")
	}
	if wallets == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置钱包映射存储")
	}
	if sessions == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置会话存储")
	}
	svc := &Service{
		custody:    custodyClient,
		aggregator: aggregatorClient,
		wallets:    wallets,
		sessions:   sessions,
		registry:   NewRegistry(),
		chain:      "solana",
		attempts:   defaultMaxAttempts,
		delay:      defaultRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Help 返回指令帮助文案。
func (s *Service) Help() string {
	return msgHelp
}

// Start 处理首次接触：为新用户创建托管钱包并持久化映射。
// 映射只在托管创建成功之后写入，创建失败不会留下半成品记录。
func (s *Service) Start(ctx context.Context, userID int64) (string, error) {
	existing, err := s.wallets.Get(ctx, userID)
	if err == nil {
		return renderWelcome(existing.Address, false), nil
	}
	if !stdErrors.Is(err, wallet.ErrNotFound) {
		return msgGenericFailure, err
	}

	created, err := s.custody.CreateWallet(ctx, s.chain)
	if err != nil {
		return msgCustodyFailure, err
	}
	mapping := wallet.Mapping{
		UserID:    userID,
		WalletID:  created.ID,
		Address:   created.Address,
		CreatedAt: time.Now().Unix(),
	}
	if err := s.wallets.Save(ctx, mapping); err != nil {
		if stdErrors.Is(err, wallet.ErrExists) {
			// 并发的 /start 先写入了映射，以已存在的记录为准。
			if existing, getErr := s.wallets.Get(ctx, userID); getErr == nil {
				return renderWelcome(existing.Address, false), nil
			}
		}
		return msgGenericFailure, err
	}
	logger.Audit().Info("wallet created",
		"user_id", userID,
		"wallet_id", created.ID,
		"address", created.Address,
	)
	return renderWelcome(created.Address, true), nil
}

// WalletAddress 处理 /wallet 与 /getwallet：返回充值地址。
func (s *Service) WalletAddress(ctx context.Context, userID int64) (string, error) {
	mapping, err := s.requireWallet(ctx, userID)
	if err != nil {
		return msgStartFirst, nil
	}
	return renderWalletAddress(mapping.Address), nil
}

// Balances 处理 /balance：查询全部代币余额并渲染非零条目。
func (s *Service) Balances(ctx context.Context, userID int64) (string, error) {
	mapping, err := s.requireWallet(ctx, userID)
	if err != nil {
		return msgStartFirst, nil
	}
	balances, err := s.aggregator.GetBalances(ctx, mapping.Address)
	if err != nil {
		return renderError(err), err
	}
	return renderBalances(balances, s.registry), nil
}

// Swap 处理单条完整的兑换指令 /swap <mint> <amount>。
// 任何终态（成功或失败）都会清理该用户的会话状态。
func (s *Service) Swap(ctx context.Context, userID int64, mintArg, amountArg string) (string, error) {
	defer s.clearSession(ctx, userID)

	mapping, err := s.requireWallet(ctx, userID)
	if err != nil {
		return msgStartFirst, nil
	}
	mint, err := solana.ValidateAddress(mintArg)
	if err != nil {
		return msgInvalidAddress, err
	}
	amount, err := parseAmount(amountArg)
	if err != nil {
		return msgInvalidAmount, err
	}
	return s.executeSwap(ctx, mapping, mint.String(), amount, amountArg)
}

// BeginSwap 处理不带参数的 /swap：提示用法并进入等待代币地址的多轮流程。
func (s *Service) BeginSwap(ctx context.Context, userID int64) (string, error) {
	if _, err := s.requireWallet(ctx, userID); err != nil {
		return msgStartFirst, nil
	}
	err := s.sessions.Put(ctx, session.Session{
		UserID: userID,
		Step:   session.StepAwaitingTokenAddress,
	})
	if err != nil {
		return msgGenericFailure, err
	}
	return msgSwapUsage, nil
}

// SwapWithToken 处理只带代币地址的兑换指令：校验地址后直接进入等待金额步骤。
func (s *Service) SwapWithToken(ctx context.Context, userID int64, mintArg string) (string, error) {
	if _, err := s.requireWallet(ctx, userID); err != nil {
		return msgStartFirst, nil
	}
	mint, err := solana.ValidateAddress(mintArg)
	if err != nil {
		return msgInvalidAddress, err
	}
	putErr := s.sessions.Put(ctx, session.Session{
		UserID:    userID,
		Step:      session.StepAwaitingAmount,
		TokenMint: mint.String(),
	})
	if putErr != nil {
		return msgGenericFailure, putErr
	}
	return renderAskAmount(s.registry.Symbol(mint.String())), nil
}

// Continue 处理存在会话时的自由文本输入，推进多轮兑换流程。
func (s *Service) Continue(ctx context.Context, userID int64, text string) (string, error) {
	current, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, session.ErrNotFound) {
			return msgNoSessionHint, nil
		}
		return msgGenericFailure, err
	}

	text = strings.TrimSpace(text)
	switch current.Step {
	case session.StepAwaitingTokenAddress:
		mint, err := solana.ValidateAddress(text)
		if err != nil {
			// 地址不合法时停留在当前步骤，等待用户重新输入。
			return msgInvalidAddress, nil
		}
		err = s.sessions.Put(ctx, session.Session{
			UserID:    userID,
			Step:      session.StepAwaitingAmount,
			TokenMint: mint.String(),
		})
		if err != nil {
			return msgGenericFailure, err
		}
		return renderAskAmount(s.registry.Symbol(mint.String())), nil

	case session.StepAwaitingAmount:
		// 金额步骤之后全部是终态：校验失败同样结束本次流程。
		defer s.clearSession(ctx, userID)
		amount, perr := parseAmount(text)
		if perr != nil {
			return msgInvalidAmount, perr
		}
		mapping, err := s.requireWallet(ctx, userID)
		if err != nil {
			return msgStartFirst, nil
		}
		return s.executeSwap(ctx, mapping, current.TokenMint, amount, text)

	default:
		s.clearSession(ctx, userID)
		return msgNoSessionHint, nil
	}
}

// executeSwap 按 余额检查 -> 报价 -> 签名 -> 提交 的顺序执行兑换。
// 报价与提交两个调用点受重试策略保护；签名对同一订单只执行一次，
// 签名失败直接终止，新的指令会重新获取全新订单。
func (s *Service) executeSwap(ctx context.Context, mapping *wallet.Mapping,
	mint string, amount float64, rawAmount string) (string, error) {
	balances, err := s.aggregator.GetBalances(ctx, mapping.Address)
	if err != nil {
		return renderError(err), err
	}
	native := nativeBalance(balances)
	if native < amount {
		return renderInsufficientBalance(native, rawAmount), nil
	}

	params := aggregator.OrderParams{
		InputMint:      solana.NativeMint,
		OutputMint:     mint,
		AmountLamports: solana.ToLamports(amount),
		Taker:          mapping.Address,
	}
	var order *aggregator.Order
	err = retry.Do(ctx, s.attempts, s.delay, func(ctx context.Context) error {
		var opErr error
		order, opErr = s.aggregator.GetOrder(ctx, params)
		return opErr
	})
	if err != nil {
		return renderError(err), err
	}

	signedTx, err := s.custody.SignTransaction(ctx, mapping.WalletID, order.UnsignedTransaction)
	if err != nil {
		return renderError(err), err
	}

	var execution *aggregator.Execution
	err = retry.Do(ctx, s.attempts, s.delay, func(ctx context.Context) error {
		var opErr error
		execution, opErr = s.aggregator.SubmitOrder(ctx, signedTx, order.RequestID)
		return opErr
	})
	if err != nil {
		return renderError(err), err
	}

	symbol := s.registry.Symbol(mint)
	// 成交数量以目标代币最小单位返回，按该代币的精度换算成展示数量。
	outAmountUI := float64(order.OutAmount) / math.Pow10(s.registry.Decimals(mint))
	logger.Audit().Info("swap executed",
		"user_id", mapping.UserID,
		"address", mapping.Address,
		"output_mint", mint,
		"amount_sol", amount,
		"out_amount", order.OutAmount,
		"signature", execution.Signature,
	)
	return renderSwapSuccess(execution.Signature, outAmountUI, symbol), nil
}

// requireWallet 获取用户的钱包映射，没有映射的用户需要先 /start。
func (s *Service) requireWallet(ctx context.Context, userID int64) (*wallet.Mapping, error) {
	mapping, err := s.wallets.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

// clearSession 清理用户会话，终态路径统一经由此处。
func (s *Service) clearSession(ctx context.Context, userID int64) {
	if err := s.sessions.Clear(ctx, userID); err != nil {
		logger.L().Warn("清理会话失败", "user_id", userID, "error", err)
	}
}

// nativeBalance 在余额表中查找原生 SOL 余额，余额表可能以符号或 mint 作键。
func nativeBalance(balances map[string]aggregator.Balance) float64 {
	if balance, ok := balances[solana.NativeSymbol]; ok {
		return balance.UIAmount
	}
	if balance, ok := balances[solana.NativeMint]; ok {
		return balance.UIAmount
	}
	return 0
}

// parseAmount 将用户输入解析为有限的正数金额。
func parseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "金额不是数字")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, xerrors.New(xerrors.CodeInvalidArgument, "金额必须为正数")
	}
	return amount, nil
}
