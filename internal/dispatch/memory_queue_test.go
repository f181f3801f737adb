package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryQueuePublishConsume(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	received := make(map[string]Envelope)
	done := make(chan struct{})

	go func() {
		_ = q.Consume(ctx, 2, func(_ context.Context, env Envelope) error {
			mu.Lock()
			received[env.ID] = env
			if len(received) == 3 {
				close(done)
			}
			mu.Unlock()
			return nil
		})
	}()

	sent := []Envelope{
		NewEnvelope(100, 42, "/start"),
		NewEnvelope(100, 42, "/balance"),
		NewEnvelope(200, 7, "/swap"),
	}
	for _, env := range sent {
		if err := q.Publish(ctx, env); err != nil {
			t.Fatalf("发布消息失败: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("等待消费超时")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, env := range sent {
		got, ok := received[env.ID]
		if !ok {
			t.Fatalf("消息 %s 未被消费", env.ID)
		}
		if got.Text != env.Text || got.UserID != env.UserID || got.ChatID != env.ChatID {
			t.Fatalf("消费到的消息不一致: got %+v want %+v", got, env)
		}
	}
}

func TestMemoryQueuePublishAfterClose(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Close(); err != nil {
		t.Fatalf("关闭队列失败: %v", err)
	}
	if err := q.Publish(context.Background(), NewEnvelope(1, 1, "/start")); err == nil {
		t.Fatal("关闭后发布应当失败")
	}
	// 重复关闭应保持幂等。
	if err := q.Close(); err != nil {
		t.Fatalf("重复关闭失败: %v", err)
	}
}

func TestEnvelopeEncodeDecode(t *testing.T) {
	env := NewEnvelope(123, 42, "/swap EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v 0.1")
	raw, err := encodeEnvelope(env)
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	decoded, err := decodeEnvelope(raw)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if decoded.ID != env.ID || decoded.Text != env.Text || decoded.UserID != env.UserID {
		t.Fatalf("编解码不一致: got %+v want %+v", decoded, env)
	}
	if _, err := decodeEnvelope([]byte("not-json")); err == nil {
		t.Fatal("非法载荷应当解析失败")
	}
}
