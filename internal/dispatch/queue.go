// Package dispatch 负责入站消息的排队与分发。网关把收到的文字指令封装成
// Envelope 投入队列，工作协程消费后交给业务层处理。内存驱动用于单实例
// 部署与测试，Redis 与 RabbitMQ 驱动用于跨实例削峰。
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	xerrors "SolSwap-Bot/internal/errors"
)

// Envelope 是一条入站文字指令的最小载荷。经由外部队列传输时使用 JSON 编码。
type Envelope struct {
	ID         string    `json:"id"`
	ChatID     int64     `json:"chat_id"`
	UserID     int64     `json:"user_id"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewEnvelope 构造带有唯一 ID 的消息载荷。
func NewEnvelope(chatID, userID int64, text string) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		UserID:     userID,
		Text:       text,
		ReceivedAt: time.Now(),
	}
}

// Handler 处理一条入站消息。
type Handler func(ctx context.Context, env Envelope) error

// Producer 负责向队列投递消息。
type Producer interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Consumer 负责从队列中消费消息。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}

func encodeEnvelope(env Envelope) ([]byte, error) {
	encoded, err := json.Marshal(env)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeQueueFailure, err, "序列化消息失败")
	}
	return encoded, nil
}

func decodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, xerrors.Wrap(xerrors.CodeQueueFailure, err, "解析消息失败")
	}
	return env, nil
}
