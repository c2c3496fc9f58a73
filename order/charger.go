// order/charger.go
package order

import (
	"context"

	"go.uber.org/zap"
)

// LogCharger 只记录日志的支付桩
type LogCharger struct {
	Logger   *zap.Logger
	Provider string
}

func (c LogCharger) Charge(ctx context.Context, orderID string, amount float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Logger != nil {
		c.Logger.Info("payment charged",
			zap.String("provider", c.Provider),
			zap.String("order", orderID),
			zap.Float64("amount", amount))
	}
	return nil
}

type NopCharger struct{}

func (NopCharger) Charge(context.Context, string, float64) error { return nil }
