// pricing/bonus.go
package pricing

import (
	"fmt"
	"math"

	"github.com/chhz0/dispatchr/core"
	"github.com/chhz0/dispatchr/types"
)

var DefaultBonusRates = map[types.Role]float64{
	types.RoleDeveloper: 0.10,
	types.RoleManager:   0.15,
	types.RoleDirector:  0.25,
}

// Bonus 薪资乘以比例
func Bonus(rate float64) core.BehaviorFunc[types.Employee, float64] {
	return core.Pure(func(e types.Employee) float64 {
		return RoundCents(e.Salary * rate)
	})
}

// BonusRules 角色到奖金行为；比例必须在 [0, 1]
func BonusRules(rates map[types.Role]float64) (map[types.Role]core.Behavior[types.Employee, float64], error) {
	rules := make(map[types.Role]core.Behavior[types.Employee, float64], len(rates))
	for role, rate := range rates {
		if rate < 0 || rate > 1 || math.IsNaN(rate) {
			return nil, fmt.Errorf("bonus rate %q: %w: %v", role, ErrInvalidRate, rate)
		}
		rules[role] = Bonus(rate)
	}
	return rules, nil
}
