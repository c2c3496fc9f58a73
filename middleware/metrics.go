// middleware/metrics.go
package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector 分发指标
type Collector struct {
	dispatches *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dispatchr_dispatches_total",
				Help: "Total number of dispatches by registry, key and outcome.",
			},
			[]string{"registry", "key", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dispatchr_dispatch_latency_seconds",
				Help:    "Latency of behavior invocations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"registry", "key"},
		),
	}

	reg.MustRegister(c.dispatches, c.latency)
	return c
}

// Observe 记录一次分发
func (c *Collector) Observe(registry, key string, d time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.dispatches.WithLabelValues(registry, key, outcome).Inc()
	c.latency.WithLabelValues(registry, key).Observe(d.Seconds())
}

// 指标收集中间件
func Metrics[P, R any](c *Collector, registry string) Middleware[P, R] {
	return func(next Handler[P, R]) Handler[P, R] {
		return func(ctx context.Context, payload P) (R, error) {
			start := time.Now()
			res, err := next(ctx, payload)
			c.Observe(registry, keyLabel(ctx), time.Since(start), err)
			return res, err
		}
	}
}
