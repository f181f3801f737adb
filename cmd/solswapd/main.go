package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"SolSwap-Bot/internal/aggregator"
	"SolSwap-Bot/internal/api"
	"SolSwap-Bot/internal/bot"
	"SolSwap-Bot/internal/config"
	"SolSwap-Bot/internal/custody"
	"SolSwap-Bot/internal/dispatch"
	"SolSwap-Bot/internal/session"
	"SolSwap-Bot/internal/trade"
	"SolSwap-Bot/internal/wallet"
	"SolSwap-Bot/pkg/logger"
)

// main 是 SolSwap 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("solswapd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("SOLSWAP_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "solswap.yaml")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Log.Audit.Enabled,
			Path:       cfg.Log.Audit.Path,
			MaxSizeMB:  cfg.Log.Audit.MaxSizeMB,
			MaxBackups: cfg.Log.Audit.MaxBackups,
			MaxAgeDays: cfg.Log.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	custodyClient, err := custody.NewClient(custody.Config{
		BaseURL:   cfg.Custody.BaseURL,
		AppID:     cfg.Custody.AppID,
		AppSecret: resolveSecret(cfg.Custody.AppSecret, cfg.Custody.AppSecretEnv),
		Timeout:   cfg.Custody.Timeout(),
	})
	if err != nil {
		return err
	}

	aggregatorClient, err := aggregator.NewClient(aggregator.Config{
		BaseURL: cfg.Aggregator.BaseURL,
		APIKey:  resolveSecret(cfg.Aggregator.APIKey, cfg.Aggregator.APIKeyEnv),
		Timeout: cfg.Aggregator.Timeout(),
	})
	if err != nil {
		return err
	}

	walletStore, err := createWalletStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := walletStore.Close(); err != nil {
			logger.L().Warn("关闭钱包存储失败", "error", err)
		}
	}()

	sessionStore, err := createSessionStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			logger.L().Warn("关闭会话存储失败", "error", err)
		}
	}()

	queue, err := createQueue(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.L().Warn("关闭消息队列失败", "error", err)
		}
	}()

	registry, err := trade.LoadRegistry(cfg.Tokens.RegistryPath)
	if err != nil {
		return err
	}

	service, err := trade.NewService(custodyClient, aggregatorClient, walletStore, sessionStore,
		trade.WithRetryPolicy(cfg.Trade.MaxAttempts, cfg.Trade.RetryDelay()),
		trade.WithRegistry(registry),
		trade.WithChain(cfg.Custody.ChainKind),
	)
	if err != nil {
		return err
	}

	gateway, err := bot.NewGateway(bot.Config{
		Token:              resolveSecret(cfg.Telegram.Token, cfg.Telegram.TokenEnv),
		WorkerCount:        cfg.Dispatch.WorkerCount,
		PollTimeoutSeconds: cfg.Telegram.PollTimeoutSeconds,
		Debug:              cfg.Telegram.Debug,
	}, service, queue)
	if err != nil {
		return err
	}

	gatewayCtx, gatewayCancel := context.WithCancel(ctx)
	defer gatewayCancel()

	go func() {
		if err := gateway.Run(gatewayCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("Telegram 网关异常退出", "error", err)
		}
	}()

	server := api.NewServer(cfg.Server.Address)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// createWalletStore 按配置选择钱包映射的持久化后端。
func createWalletStore(ctx context.Context, cfg *config.Config) (wallet.Store, error) {
	switch cfg.Wallets.Driver {
	case "", "file":
		if err := os.MkdirAll(filepath.Dir(cfg.Wallets.Path), 0o755); err != nil {
			return nil, err
		}
		return wallet.NewFileStore(cfg.Wallets.Path)
	case "mysql":
		return wallet.NewMySQLStore(ctx, wallet.MySQLConfig{
			DSN:          cfg.Wallets.DSN,
			MaxOpenConns: cfg.Wallets.MaxOpenConns,
			MaxIdleConns: cfg.Wallets.MaxIdleConns,
		})
	default:
		return nil, fmt.Errorf("未知的钱包存储驱动: %s", cfg.Wallets.Driver)
	}
}

// createSessionStore 按配置选择会话状态的存储后端。
func createSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Sessions.Driver {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Address:  cfg.Sessions.Redis.Address,
			Password: cfg.Sessions.Redis.Password,
			DB:       cfg.Sessions.Redis.DB,
			TTL:      cfg.Sessions.Redis.SessionTTL(),
		})
	default:
		return nil, fmt.Errorf("未知的会话存储驱动: %s", cfg.Sessions.Driver)
	}
}

// createQueue 按配置选择入站消息队列的驱动。
func createQueue(cfg *config.Config) (dispatch.Queue, error) {
	switch cfg.Dispatch.Driver {
	case "", "memory":
		return dispatch.NewMemoryQueue(cfg.Dispatch.BufferSize), nil
	case "redis":
		return dispatch.NewRedisQueue(dispatch.RedisQueueConfig{
			Address:   cfg.Dispatch.Redis.Address,
			Password:  cfg.Dispatch.Redis.Password,
			DB:        cfg.Dispatch.Redis.DB,
			Queue:     cfg.Dispatch.Redis.Queue,
			BlockWait: cfg.Dispatch.Redis.BlockWait(),
		})
	case "rabbitmq":
		return dispatch.NewRabbitMQQueue(dispatch.RabbitMQConfig{
			URL:        cfg.Dispatch.RabbitMQ.URL,
			Queue:      cfg.Dispatch.RabbitMQ.Queue,
			Prefetch:   cfg.Dispatch.RabbitMQ.Prefetch,
			Durable:    cfg.Dispatch.RabbitMQ.Durable,
			AutoDelete: cfg.Dispatch.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的队列驱动: %s", cfg.Dispatch.Driver)
	}
}

// resolveSecret 优先使用配置中的明文，缺省时从环境变量读取。
func resolveSecret(value, envName string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if envName != "" {
		return strings.TrimSpace(os.Getenv(envName))
	}
	return ""
}
