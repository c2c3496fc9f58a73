// retry/retry.go
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Do 只用于启动时连接外部依赖；分发器本身从不重试
func Do(ctx context.Context, p Policy, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	if p == nil {
		p = Never{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		delay, ok := p.Next(attempt)
		if !ok {
			return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempt+1, err)
		}
		logger.Warn("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}
}
