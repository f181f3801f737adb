// Package bot 实现 Telegram 网关：长轮询拉取更新、入队、消费并回复。
// 网关只做传输与路由，业务语义全部由 trade 层承载。
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"SolSwap-Bot/internal/dispatch"
	xerrors "SolSwap-Bot/internal/errors"
	"SolSwap-Bot/internal/metrics"
	"SolSwap-Bot/internal/trade"
	"SolSwap-Bot/pkg/logger"
)

const defaultUpdateTimeout = 30

// sender 抽象了向用户发送消息的能力，便于在测试中替换真实的 Bot API。
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config 描述网关的运行参数。
type Config struct {
	Token              string
	WorkerCount        int
	PollTimeoutSeconds int
	Debug              bool
}

// Gateway 连接 Telegram 与业务层。
type Gateway struct {
	api         *tgbotapi.BotAPI
	sender      sender
	service     *trade.Service
	queue       dispatch.Queue
	workers     int
	pollTimeout int
	log         *slog.Logger
}

// NewGateway 创建 Telegram 网关。
func NewGateway(cfg Config, service *trade.Service, queue dispatch.Queue) (*Gateway, error) {
	if cfg.Token == "" {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置 Telegram token")
	}
	if service == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置业务服务")
	}
	if queue == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未配置消息队列")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接 Telegram 失败")
	}
	api.Debug = cfg.Debug
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	return &Gateway{
		api:         api,
		sender:      api,
		service:     service,
		queue:       queue,
		workers:     workers,
		pollTimeout: resolvePollTimeout(cfg.PollTimeoutSeconds),
		log:         logger.Named("bot"),
	}, nil
}

// resolvePollTimeout 归一化长轮询超时，非法值回落到默认值。
func resolvePollTimeout(seconds int) int {
	if seconds <= 0 {
		return defaultUpdateTimeout
	}
	return seconds
}

// Run 启动消费协程与长轮询，直到上下文取消。
func (g *Gateway) Run(ctx context.Context) error {
	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- g.queue.Consume(ctx, g.workers, g.handle)
	}()

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = g.pollTimeout
	updates := g.api.GetUpdatesChan(updateCfg)
	g.log.Info("Telegram 网关已启动", "bot", g.api.Self.UserName, "workers", g.workers)

	for {
		select {
		case <-ctx.Done():
			g.api.StopReceivingUpdates()
			<-consumeErr
			return ctx.Err()
		case err := <-consumeErr:
			return err
		case update, ok := <-updates:
			if !ok {
				<-consumeErr
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			env := dispatch.NewEnvelope(
				update.Message.Chat.ID,
				update.Message.From.ID,
				update.Message.Text,
			)
			if err := g.queue.Publish(ctx, env); err != nil {
				g.log.Error("消息入队失败", "envelope_id", env.ID, "error", err)
			}
		}
	}
}

// handle 处理一条入站消息。处理过程中的任何错误都只影响当前消息，
// 绝不向进程级传播。
func (g *Gateway) handle(ctx context.Context, env dispatch.Envelope) error {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("处理消息时发生 panic", "envelope_id", env.ID, "panic", fmt.Sprint(r))
		}
	}()

	cmd := Parse(env.Text)
	started := time.Now()
	reply, err := g.dispatchCommand(ctx, env.UserID, cmd)
	metrics.ObserveCommand(string(cmd.Kind), err != nil, time.Since(started))
	if err != nil {
		g.log.Warn("指令处理失败",
			"envelope_id", env.ID,
			"user_id", env.UserID,
			"command", string(cmd.Kind),
			"code", string(xerrors.CodeOf(err)),
			"error", err,
		)
	}
	if reply != "" {
		g.send(env.ChatID, reply)
	}
	return nil
}

// dispatchCommand 把解析后的指令路由到业务层。
func (g *Gateway) dispatchCommand(ctx context.Context, userID int64, cmd Command) (string, error) {
	switch cmd.Kind {
	case KindStart:
		return g.service.Start(ctx, userID)
	case KindHelp:
		return g.service.Help(), nil
	case KindWallet:
		return g.service.WalletAddress(ctx, userID)
	case KindBalance:
		return g.service.Balances(ctx, userID)
	case KindSwap:
		if len(cmd.Args) >= 2 {
			return g.service.Swap(ctx, userID, cmd.Args[0], cmd.Args[1])
		}
		if len(cmd.Args) == 1 {
			return g.service.SwapWithToken(ctx, userID, cmd.Args[0])
		}
		return g.service.BeginSwap(ctx, userID)
	case KindText:
		return g.service.Continue(ctx, userID, cmd.Raw)
	default:
		return g.service.Help(), nil
	}
}

func (g *Gateway) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := g.sender.Send(msg); err != nil {
		g.log.Error("发送回复失败", "chat_id", chatID, "error", err)
	}
}
