package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"SolSwap-Bot/internal/aggregator"
	"SolSwap-Bot/internal/custody"
	"SolSwap-Bot/internal/dispatch"
	"SolSwap-Bot/internal/session"
	"SolSwap-Bot/internal/trade"
	"SolSwap-Bot/internal/wallet"
	"SolSwap-Bot/pkg/logger"
)

const (
	testMint    = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testAddress = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

type fakeCustody struct{}

func (fakeCustody) CreateWallet(context.Context, string) (*custody.Wallet, error) {
	return &custody.Wallet{ID: "wallet-001", Address: testAddress}, nil
}

func (fakeCustody) SignTransaction(_ context.Context, _, rawTxBase64 string) (string, error) {
	return "signed:" + rawTxBase64, nil
}

type fakeAggregator struct{}

func (fakeAggregator) GetOrder(context.Context, aggregator.OrderParams) (*aggregator.Order, error) {
	return &aggregator.Order{
		RequestID:           "req-1",
		UnsignedTransaction: "unsigned-tx",
		OutAmount:           1_000_000,
		OutputMint:          testMint,
	}, nil
}

func (fakeAggregator) SubmitOrder(context.Context, string, string) (*aggregator.Execution, error) {
	return &aggregator.Execution{Signature: "sig-1", Status: "Success"}, nil
}

func (fakeAggregator) GetBalances(context.Context, string) (map[string]aggregator.Balance, error) {
	return map[string]aggregator.Balance{"SOL": {UIAmount: 1.0}}, nil
}

type recordingSender struct {
	sent []tgbotapi.MessageConfig
}

func (r *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		r.sent = append(r.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func newTestGateway(t *testing.T) (*Gateway, *recordingSender) {
	t.Helper()
	wallets, err := wallet.NewFileStore(filepath.Join(t.TempDir(), "wallets.json"))
	if err != nil {
		t.Fatalf("创建钱包存储失败: %v", err)
	}
	svc, err := trade.NewService(fakeCustody{}, fakeAggregator{}, wallets, session.NewMemoryStore(),
		trade.WithRetryPolicy(3, time.Millisecond))
	if err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}
	recorder := &recordingSender{}
	gateway := &Gateway{
		sender:  recorder,
		service: svc,
		queue:   dispatch.NewMemoryQueue(8),
		workers: 1,
		log:     logger.Named("bot-test"),
	}
	return gateway, recorder
}

func (r *recordingSender) lastText(t *testing.T) string {
	t.Helper()
	if len(r.sent) == 0 {
		t.Fatal("未发送任何回复")
	}
	return r.sent[len(r.sent)-1].Text
}

func TestHandleStartThenSwap(t *testing.T) {
	gateway, recorder := newTestGateway(t)
	ctx := context.Background()

	if err := gateway.handle(ctx, dispatch.NewEnvelope(100, 42, "/start")); err != nil {
		t.Fatalf("处理 /start 失败: %v", err)
	}
	if !strings.Contains(recorder.lastText(t), testAddress) {
		t.Fatalf("欢迎消息应包含地址: %q", recorder.lastText(t))
	}

	if err := gateway.handle(ctx, dispatch.NewEnvelope(100, 42, "/swap "+testMint+" 0.1")); err != nil {
		t.Fatalf("处理 /swap 失败: %v", err)
	}
	if !strings.Contains(recorder.lastText(t), "Swap executed") {
		t.Fatalf("应返回成功消息: %q", recorder.lastText(t))
	}
}

func TestHandleMultiTurnViaFreeText(t *testing.T) {
	gateway, recorder := newTestGateway(t)
	ctx := context.Background()

	_ = gateway.handle(ctx, dispatch.NewEnvelope(100, 42, "/start"))
	_ = gateway.handle(ctx, dispatch.NewEnvelope(100, 42, "/swap"))
	if !strings.Contains(recorder.lastText(t), "Usage:") {
		t.Fatalf("裸 /swap 应提示用法: %q", recorder.lastText(t))
	}

	_ = gateway.handle(ctx, dispatch.NewEnvelope(100, 42, testMint))
	if !strings.Contains(recorder.lastText(t), "How much SOL") {
		t.Fatalf("地址之后应询问金额: %q", recorder.lastText(t))
	}

	_ = gateway.handle(ctx, dispatch.NewEnvelope(100, 42, "0.1"))
	if !strings.Contains(recorder.lastText(t), "Swap executed") {
		t.Fatalf("金额之后应执行兑换: %q", recorder.lastText(t))
	}
}

func TestHandleSingleArgSwapAsksForAmount(t *testing.T) {
	gateway, recorder := newTestGateway(t)
	ctx := context.Background()

	_ = gateway.handle(ctx, dispatch.NewEnvelope(100, 42, "/start"))
	_ = gateway.handle(ctx, dispatch.NewEnvelope(100, 42, "/buy "+testMint))
	if !strings.Contains(recorder.lastText(t), "How much SOL") {
		t.Fatalf("单参数指令应询问金额: %q", recorder.lastText(t))
	}
}

func TestHandleWithoutWalletPrompts(t *testing.T) {
	gateway, recorder := newTestGateway(t)

	_ = gateway.handle(context.Background(), dispatch.NewEnvelope(100, 42, "/balance"))
	if !strings.Contains(recorder.lastText(t), "/start") {
		t.Fatalf("无钱包用户应被引导 /start: %q", recorder.lastText(t))
	}
}

func TestHandleUnknownCommandShowsHelp(t *testing.T) {
	gateway, recorder := newTestGateway(t)

	_ = gateway.handle(context.Background(), dispatch.NewEnvelope(100, 42, "/teleport"))
	if !strings.Contains(recorder.lastText(t), "/help") {
		t.Fatalf("未知指令应展示帮助: %q", recorder.lastText(t))
	}
}

type panickingSender struct{}

func (panickingSender) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	panic("send exploded")
}

func TestHandleRecoversFromPanic(t *testing.T) {
	gateway, _ := newTestGateway(t)
	gateway.sender = panickingSender{}

	if err := gateway.handle(context.Background(), dispatch.NewEnvelope(100, 42, "/help")); err != nil {
		t.Fatalf("panic 不应转化为错误返回: %v", err)
	}
}

func TestResolvePollTimeout(t *testing.T) {
	cases := []struct {
		seconds int
		want    int
	}{
		{seconds: 0, want: defaultUpdateTimeout},
		{seconds: -5, want: defaultUpdateTimeout},
		{seconds: 60, want: 60},
	}
	for _, tc := range cases {
		if got := resolvePollTimeout(tc.seconds); got != tc.want {
			t.Fatalf("resolvePollTimeout(%d) = %d, 期望 %d", tc.seconds, got, tc.want)
		}
	}
}
