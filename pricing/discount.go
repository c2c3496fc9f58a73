// pricing/discount.go
package pricing

import (
	"time"

	"github.com/chhz0/dispatchr/core"
)

// 按星期的折扣率
var WeekdayRates = map[time.Weekday]float64{
	time.Monday:    0.05,
	time.Tuesday:   0.10,
	time.Wednesday: 0.15,
	time.Thursday:  0.05,
	time.Friday:    0.20,
	time.Saturday:  0.25,
	time.Sunday:    0.00,
}

// 未登记的日期不打折，这是显式声明的回退策略
var noDiscount core.Behavior[float64, float64] = Discount(0)

// Discount 按比例减价
func Discount(rate float64) core.BehaviorFunc[float64, float64] {
	return core.Pure(func(price float64) float64 {
		return RoundCents(price * (1 - rate))
	})
}

// NewDiscountRegistry 星期到折扣行为的注册表，带不打折回退
func NewDiscountRegistry(opts ...core.Option) (*core.Registry[time.Weekday, core.Behavior[float64, float64]], error) {
	opts = append([]core.Option{core.WithName("discount"), core.WithFallback(noDiscount)}, opts...)
	reg := core.NewRegistry[time.Weekday, core.Behavior[float64, float64]](opts...)
	for day, rate := range WeekdayRates {
		if rate < 0 || rate > 1 {
			return nil, ErrInvalidRate
		}
		if err := reg.Register(day, Discount(rate)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// DiscountRate 星期对应的折扣率，未登记返回 0
func DiscountRate(day time.Weekday) float64 {
	return WeekdayRates[day]
}
