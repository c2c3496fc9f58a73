// transport/redis_pubsub.go
package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var DefaultChannel = "dispatchr_notifications"

// RedisTransport 把消息发布到 Redis 频道，由下游的真实发送服务消费
type RedisTransport struct {
	client  *redis.Client
	channel string
}

func NewRedisTransport(ctx context.Context, addr, password string, db int, channel string) (*RedisTransport, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 2,
		IdleTimeout:  5 * time.Minute,
	})

	// 验证连接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisTransportWithClient(client, channel), nil
}

func NewRedisTransportWithClient(client *redis.Client, channel string) *RedisTransport {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisTransport{client: client, channel: channel}
}

func stamp(env *Envelope) {
	if env.ID == "" {
		env.ID = uuid.New().String()
	}
	if env.SentAt.IsZero() {
		env.SentAt = time.Now().UTC()
	}
}

func (t *RedisTransport) Deliver(ctx context.Context, env Envelope) error {
	stamp(&env)
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, t.channel, data).Err()
}

// 批量发布
func (t *RedisTransport) DeliverBatch(ctx context.Context, envs []Envelope) error {
	pipe := t.client.Pipeline()
	for i := range envs {
		stamp(&envs[i])
		data, err := json.Marshal(envs[i])
		if err != nil {
			return err
		}
		pipe.Publish(ctx, t.channel, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Subscribe 订阅消息流，ctx 取消后关闭通道
func (t *RedisTransport) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	pubsub := t.client.Subscribe(ctx, t.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	ch := make(chan Envelope, 100)
	go func() {
		defer close(ch)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					continue // 跳过无效数据
				}
				select {
				case ch <- env:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}
