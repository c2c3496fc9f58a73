// order/processor.go
package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chhz0/dispatchr/core"
	"github.com/chhz0/dispatchr/notify"
	"github.com/chhz0/dispatchr/storage"
	"github.com/chhz0/dispatchr/telemetry"
	"github.com/chhz0/dispatchr/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidOrder = errors.New("invalid order")

// PriceDispatcher 按客户类型计价
type PriceDispatcher interface {
	Dispatch(ctx context.Context, ct types.CustomerType, o types.Order) (float64, error)
}

// NotifyDispatcher 按渠道发送
type NotifyDispatcher interface {
	Dispatch(ctx context.Context, ch types.Channel, msg types.Message) (struct{}, error)
	Has(ch types.Channel) bool
}

// Charger 支付
type Charger interface {
	Charge(ctx context.Context, orderID string, amount float64) error
}

// Processor 只做协调：计价、扣款、通知、持久化，协作者全部注入
type Processor struct {
	pricing PriceDispatcher
	notify  NotifyDispatcher
	charger Charger
	store   storage.OrderStore
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Processor)

func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func NewProcessor(pricing PriceDispatcher, notify NotifyDispatcher, charger Charger, store storage.OrderStore, opts ...Option) (*Processor, error) {
	if pricing == nil || notify == nil || charger == nil || store == nil {
		return nil, errors.New("order: pricing, notify, charger and store are required")
	}
	p := &Processor{
		pricing: pricing,
		notify:  notify,
		charger: charger,
		store:   store,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process 计价失败（如未知客户类型）时不会产生任何副作用
func (p *Processor) Process(ctx context.Context, o types.Order) (types.OrderResult, error) {
	if err := validate(o); err != nil {
		return types.OrderResult{}, err
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}

	ctx, span := telemetry.StartOrderSpan(ctx, o.ID, string(o.CustomerType), string(o.NotifyBy))
	defer span.End()

	res, err := p.process(ctx, o)
	if err != nil {
		telemetry.RecordError(span, err)
		p.logger.Warn("order failed", zap.String("order", o.ID), zap.Error(err))
	}
	return res, err
}

func (p *Processor) process(ctx context.Context, o types.Order) (types.OrderResult, error) {
	log := p.logger.With(zap.String("order", o.ID))

	price, err := p.pricing.Dispatch(ctx, o.CustomerType, o)
	if err != nil {
		return types.OrderResult{}, fmt.Errorf("price order %s: %w", o.ID, err)
	}

	// 扣款前确认渠道已注册且接收方有地址
	if !p.notify.Has(o.NotifyBy) {
		return types.OrderResult{}, fmt.Errorf("notify order %s: %w", o.ID, &core.DispatchError{
			Kind:  core.KindUnknownKey,
			Key:   o.NotifyBy,
			Cause: &core.RegistryError{Op: "lookup", Key: o.NotifyBy, Err: core.ErrUnknownKey},
		})
	}

	if err := notify.Addressable(o.NotifyBy, o.Customer); err != nil {
		return types.OrderResult{}, fmt.Errorf("order %s: %w: %w", o.ID, ErrInvalidOrder, err)
	}

	if err := p.charger.Charge(ctx, o.ID, price); err != nil {
		return types.OrderResult{}, fmt.Errorf("charge order %s: %w", o.ID, err)
	}

	msg := types.Message{
		Channel: o.NotifyBy,
		To:      o.Customer,
		Body:    fmt.Sprintf("Order confirmed! Price: $%s", formatPrice(price)),
	}
	if _, err := p.notify.Dispatch(ctx, o.NotifyBy, msg); err != nil {
		return types.OrderResult{}, fmt.Errorf("notify order %s: %w", o.ID, err)
	}

	rec := &types.OrderRecord{
		ID:           o.ID,
		CustomerType: o.CustomerType,
		Channel:      o.NotifyBy,
		BasePrice:    o.BasePrice,
		FinalPrice:   price,
		Status:       types.StatusProcessed,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.store.SaveOrder(ctx, rec); err != nil {
		return types.OrderResult{}, fmt.Errorf("save order %s: %w", o.ID, err)
	}

	log.Info("order processed",
		zap.String("customer_type", string(o.CustomerType)),
		zap.Float64("final_price", price))

	return types.OrderResult{OrderID: rec.ID, FinalPrice: price, Status: types.StatusProcessed}, nil
}

func validate(o types.Order) error {
	if o.BasePrice < 0 || math.IsNaN(o.BasePrice) || math.IsInf(o.BasePrice, 0) {
		return fmt.Errorf("%w: base price %v", ErrInvalidOrder, o.BasePrice)
	}
	return nil
}

func formatPrice(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
