// transport/transport.go
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/chhz0/dispatchr/types"
	"go.uber.org/zap"
)

// Envelope 渠道交给底层传输的一条消息
type Envelope struct {
	ID       string        `json:"id"`
	Provider string        `json:"provider"`
	Channel  types.Channel `json:"channel"`
	Address  string        `json:"address"`
	Body     string        `json:"body"`
	SentAt   time.Time     `json:"sent_at"`
}

// Transport 接口定义，渠道只依赖它而不自己创建客户端
type Transport interface {
	Deliver(ctx context.Context, env Envelope) error
	Close() error
}

// LogTransport 只记录日志的桩实现
type LogTransport struct {
	logger   *zap.Logger
	provider string
}

func NewLogTransport(logger *zap.Logger, provider string) *LogTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTransport{logger: logger, provider: provider}
}

func (t *LogTransport) Deliver(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	provider := env.Provider
	if provider == "" {
		provider = t.provider
	}
	t.logger.Info("message delivered",
		zap.String("provider", provider),
		zap.String("channel", string(env.Channel)),
		zap.String("to", env.Address),
		zap.String("body", env.Body))
	return nil
}

func (t *LogTransport) Close() error {
	return nil
}

// NopTransport 静默假实现，测试用
type NopTransport struct{}

func (NopTransport) Deliver(context.Context, Envelope) error { return nil }
func (NopTransport) Close() error                            { return nil }

// Recorder 在内存中记录投递，测试用
type Recorder struct {
	mu   sync.Mutex
	sent []Envelope
	Err  error
}

func (r *Recorder) Deliver(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, env)
	return nil
}

func (r *Recorder) Close() error {
	return nil
}

// Sent 已投递消息的副本
func (r *Recorder) Sent() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.sent))
	copy(out, r.sent)
	return out
}
