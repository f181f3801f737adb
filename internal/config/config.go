package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 描述了机器人在启动阶段需要加载的核心配置。
type Config struct {
	Server     ServerConfig       `yaml:"server"`
	Telegram   TelegramConfig     `yaml:"telegram"`
	Custody    CustodyConfig      `yaml:"custody"`
	Aggregator AggregatorConfig   `yaml:"aggregator"`
	Wallets    WalletStoreConfig  `yaml:"wallet_store"`
	Sessions   SessionStoreConfig `yaml:"session_store"`
	Dispatch   DispatchConfig     `yaml:"dispatch"`
	Trade      TradeConfig        `yaml:"trade"`
	Tokens     TokensConfig       `yaml:"tokens"`
	Log        LogConfig          `yaml:"log"`
}

// ServerConfig 控制存活检测 HTTP 服务的监听地址。
type ServerConfig struct {
	Address string `yaml:"address"`
}

// TelegramConfig 描述 Telegram Bot API 的接入信息。
type TelegramConfig struct {
	Token              string `yaml:"token"`
	TokenEnv           string `yaml:"token_env"`
	PollTimeoutSeconds int    `yaml:"poll_timeout_seconds"`
	Debug              bool   `yaml:"debug"`
}

// CustodyConfig 描述钱包托管服务的接入信息。
type CustodyConfig struct {
	BaseURL        string `yaml:"base_url"`
	AppID          string `yaml:"app_id"`
	AppSecret      string `yaml:"app_secret"`
	AppSecretEnv   string `yaml:"app_secret_env"`
	ChainKind      string `yaml:"chain_kind"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AggregatorConfig 描述兑换聚合服务的接入信息。
type AggregatorConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// WalletStoreConfig 描述用户与托管钱包映射的持久化后端。
type WalletStoreConfig struct {
	Driver       string `yaml:"driver"`
	Path         string `yaml:"path"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// SessionStoreConfig 描述多轮会话状态的存储后端。
type SessionStoreConfig struct {
	Driver string             `yaml:"driver"`
	Redis  RedisSessionConfig `yaml:"redis"`
}

// RedisSessionConfig 描述 Redis 会话存储的连接参数。
type RedisSessionConfig struct {
	Address    string `yaml:"address"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// DispatchConfig 描述入站消息队列的驱动与消费参数。
type DispatchConfig struct {
	Driver      string              `yaml:"driver"`
	WorkerCount int                 `yaml:"worker_count"`
	BufferSize  int                 `yaml:"buffer_size"`
	Redis       RedisQueueConfig    `yaml:"redis"`
	RabbitMQ    RabbitMQQueueConfig `yaml:"rabbitmq"`
}

// RedisQueueConfig 描述 Redis 队列的连接参数。
type RedisQueueConfig struct {
	Address          string `yaml:"address"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db"`
	Queue            string `yaml:"queue"`
	BlockWaitSeconds int    `yaml:"block_wait_seconds"`
}

// RabbitMQQueueConfig 描述 RabbitMQ 队列的连接参数。
type RabbitMQQueueConfig struct {
	URL        string `yaml:"url"`
	Queue      string `yaml:"queue"`
	Prefetch   int    `yaml:"prefetch"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// TradeConfig 控制关键外部调用的重试策略。
type TradeConfig struct {
	MaxAttempts       int `yaml:"max_attempts"`
	RetryDelaySeconds int `yaml:"retry_delay_seconds"`
}

// TokensConfig 指向可选的代币符号登记文件。
type TokensConfig struct {
	RegistryPath string `yaml:"registry_path"`
}

// LogConfig 描述结构化日志与审计日志的输出方式。
type LogConfig struct {
	Level       string         `yaml:"level"`
	Format      string         `yaml:"format"`
	OutputPaths []string       `yaml:"output_paths"`
	Audit       AuditLogConfig `yaml:"audit"`
}

// AuditLogConfig 控制审计日志的滚动策略。
type AuditLogConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load 负责解析指定路径的 YAML 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Telegram.PollTimeoutSeconds <= 0 {
		c.Telegram.PollTimeoutSeconds = 30
	}

	if c.Custody.ChainKind == "" {
		c.Custody.ChainKind = "solana"
	}
	if c.Custody.TimeoutSeconds <= 0 {
		c.Custody.TimeoutSeconds = 30
	}

	if c.Aggregator.TimeoutSeconds <= 0 {
		c.Aggregator.TimeoutSeconds = 30
	}

	if c.Wallets.Driver == "" {
		c.Wallets.Driver = "file"
	}
	if c.Wallets.Path == "" {
		c.Wallets.Path = filepath.Join(baseDir, "data", "wallets.json")
	} else if !filepath.IsAbs(c.Wallets.Path) {
		c.Wallets.Path = filepath.Join(baseDir, c.Wallets.Path)
	}

	if c.Sessions.Driver == "" {
		c.Sessions.Driver = "memory"
	}
	if c.Sessions.Redis.TTLSeconds <= 0 {
		c.Sessions.Redis.TTLSeconds = 900
	}

	if c.Dispatch.Driver == "" {
		c.Dispatch.Driver = "memory"
	}
	if c.Dispatch.WorkerCount <= 0 {
		c.Dispatch.WorkerCount = 4
	}
	if c.Dispatch.BufferSize <= 0 {
		c.Dispatch.BufferSize = 256
	}

	if c.Trade.MaxAttempts <= 0 {
		c.Trade.MaxAttempts = 3
	}
	if c.Trade.RetryDelaySeconds <= 0 {
		c.Trade.RetryDelaySeconds = 1
	}

	if c.Tokens.RegistryPath != "" && !filepath.IsAbs(c.Tokens.RegistryPath) {
		c.Tokens.RegistryPath = filepath.Join(baseDir, c.Tokens.RegistryPath)
	}
}

// Timeout 返回托管服务调用超时。
func (c CustodyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout 返回聚合服务调用超时。
func (c AggregatorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay 返回重试间隔。
func (c TradeConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// SessionTTL 返回 Redis 会话的过期时间。
func (c RedisSessionConfig) SessionTTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// BlockWait 返回 Redis 队列的阻塞等待时长。
func (c RedisQueueConfig) BlockWait() time.Duration {
	return time.Duration(c.BlockWaitSeconds) * time.Second
}
