// retry/policy.go
package retry

import "time"

// Policy 第 attempt 次失败后等待多久；false 表示放弃
type Policy interface {
	Next(attempt int) (time.Duration, bool)
}

// 指数退避
type Exponential struct {
	Initial  time.Duration
	Max      time.Duration
	Attempts int
}

func (p Exponential) Next(attempt int) (time.Duration, bool) {
	if attempt >= p.Attempts {
		return 0, false
	}
	delay := p.Initial
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.Max > 0 && delay >= p.Max {
			break
		}
	}
	if p.Max > 0 && delay > p.Max {
		delay = p.Max
	}
	return delay, true
}

// 固定间隔
type Fixed struct {
	Interval time.Duration
	Attempts int
}

func (p Fixed) Next(attempt int) (time.Duration, bool) {
	if attempt >= p.Attempts {
		return 0, false
	}
	return p.Interval, true
}

// Never 只尝试一次
type Never struct{}

func (Never) Next(int) (time.Duration, bool) { return 0, false }
