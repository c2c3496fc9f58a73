// core/dispatcher.go
package core

import (
	"context"
	"fmt"

	"github.com/chhz0/dispatchr/middleware"
)

// Behavior 单一能力接口，一个键对应一个实现
type Behavior[P, R any] interface {
	Invoke(ctx context.Context, payload P) (R, error)
}

// BehaviorFunc 函数适配器
type BehaviorFunc[P, R any] func(ctx context.Context, payload P) (R, error)

func (f BehaviorFunc[P, R]) Invoke(ctx context.Context, payload P) (R, error) {
	return f(ctx, payload)
}

// Pure 把无错误的纯函数包装成行为
func Pure[P, R any](fn func(P) R) BehaviorFunc[P, R] {
	return func(_ context.Context, payload P) (R, error) {
		return fn(payload), nil
	}
}

// Dispatcher 查找并同步调用行为；不重试、不缓存
type Dispatcher[K comparable, P, R any] struct {
	registry *Registry[K, Behavior[P, R]]
	chain    middleware.Middleware[P, R]
}

func NewDispatcher[K comparable, P, R any](registry *Registry[K, Behavior[P, R]], mws ...middleware.Middleware[P, R]) *Dispatcher[K, P, R] {
	if registry == nil {
		panic("core: dispatcher registry cannot be nil")
	}
	d := &Dispatcher[K, P, R]{registry: registry}
	if len(mws) > 0 {
		d.chain = middleware.Chain(mws...)
	}
	return d
}

// Dispatch 未注册的键返回 KindUnknownKey，行为自身的失败返回 KindBehaviorFailed 并保留原因
func (d *Dispatcher[K, P, R]) Dispatch(ctx context.Context, key K, payload P) (R, error) {
	var zero R

	b, err := d.registry.Lookup(key)
	if err != nil {
		return zero, &DispatchError{Kind: KindUnknownKey, Key: key, Cause: err}
	}

	h := invoker(b)
	if d.chain != nil {
		h = d.chain(h)
	}

	res, err := h(middleware.WithKey(ctx, key), payload)
	if err != nil {
		return zero, &DispatchError{Kind: KindBehaviorFailed, Key: key, Cause: err}
	}
	return res, nil
}

// Has 键是否已注册，用于在产生副作用前预检
func (d *Dispatcher[K, P, R]) Has(key K) bool {
	_, ok := d.registry.Get(key)
	return ok
}

func (d *Dispatcher[K, P, R]) Registry() *Registry[K, Behavior[P, R]] {
	return d.registry
}

// 最内层调用，panic 转为错误
func invoker[P, R any](b Behavior[P, R]) middleware.Handler[P, R] {
	return func(ctx context.Context, payload P) (res R, err error) {
		defer func() {
			if r := recover(); r != nil {
				var zero R
				res = zero
				err = fmt.Errorf("%w: %v", ErrBehaviorPanicked, r)
			}
		}()
		return b.Invoke(ctx, payload)
	}
}
