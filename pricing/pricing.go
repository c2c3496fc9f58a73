// pricing/pricing.go
package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/chhz0/dispatchr/core"
	"github.com/chhz0/dispatchr/types"
)

var ErrInvalidRate = errors.New("invalid rate")

// 默认客户折扣倍率，新增客户类型只需加一行
var DefaultMultipliers = map[types.CustomerType]float64{
	types.CustomerRegular:  1.0,
	types.CustomerPremium:  0.9,
	types.CustomerGold:     0.8,
	types.CustomerEmployee: 0.5,
	types.CustomerVIP:      0.7,
	types.CustomerPlatinum: 0.75,
}

// 金额保留两位小数
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Multiplier 按倍率计价的定价规则
func Multiplier(m float64) core.BehaviorFunc[types.Order, float64] {
	return core.Pure(func(o types.Order) float64 {
		return RoundCents(o.BasePrice * m)
	})
}

// Rules 把倍率表转换为定价行为；倍率必须为非负有限值
func Rules(multipliers map[types.CustomerType]float64) (map[types.CustomerType]core.Behavior[types.Order, float64], error) {
	rules := make(map[types.CustomerType]core.Behavior[types.Order, float64], len(multipliers))
	for ct, m := range multipliers {
		if m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("pricing rule %q: %w: %v", ct, ErrInvalidRate, m)
		}
		rules[ct] = Multiplier(m)
	}
	return rules, nil
}

// DefaultRules 默认定价规则
func DefaultRules() map[types.CustomerType]core.Behavior[types.Order, float64] {
	rules, _ := Rules(DefaultMultipliers)
	return rules
}
