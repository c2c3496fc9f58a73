// middleware/middleware.go
package middleware

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Handler[P, R any] func(ctx context.Context, payload P) (R, error)
type Middleware[P, R any] func(next Handler[P, R]) Handler[P, R]

type keyCtx struct{}

// WithKey 把当前分发的键放入上下文，供中间件打标签
func WithKey(ctx context.Context, key any) context.Context {
	return context.WithValue(ctx, keyCtx{}, key)
}

func KeyFrom(ctx context.Context) (any, bool) {
	key := ctx.Value(keyCtx{})
	return key, key != nil
}

func keyLabel(ctx context.Context) string {
	if key, ok := KeyFrom(ctx); ok {
		return fmt.Sprint(key)
	}
	return ""
}

// 中间件链，第一个为最外层
func Chain[P, R any](middlewares ...Middleware[P, R]) Middleware[P, R] {
	return func(final Handler[P, R]) Handler[P, R] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// 超时中间件，只设置截止时间，行为需自行响应 ctx
func Timeout[P, R any](d time.Duration) Middleware[P, R] {
	return func(next Handler[P, R]) Handler[P, R] {
		return func(ctx context.Context, payload P) (R, error) {
			if d <= 0 {
				return next(ctx, payload)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, payload)
		}
	}
}

// 日志中间件
func Logger[P, R any](logger *zap.Logger, registry string) Middleware[P, R] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Handler[P, R]) Handler[P, R] {
		return func(ctx context.Context, payload P) (R, error) {
			start := time.Now()
			key := keyLabel(ctx)
			logger.Debug("dispatch started", zap.String("registry", registry), zap.String("key", key))

			res, err := next(ctx, payload)

			duration := time.Since(start)
			if err != nil {
				logger.Warn("dispatch failed",
					zap.String("registry", registry),
					zap.String("key", key),
					zap.Duration("duration", duration),
					zap.Error(err))
			} else {
				logger.Debug("dispatch completed",
					zap.String("registry", registry),
					zap.String("key", key),
					zap.Duration("duration", duration))
			}
			return res, err
		}
	}
}
