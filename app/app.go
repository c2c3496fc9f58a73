// app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chhz0/dispatchr/config"
	"github.com/chhz0/dispatchr/core"
	"github.com/chhz0/dispatchr/middleware"
	"github.com/chhz0/dispatchr/notify"
	"github.com/chhz0/dispatchr/order"
	"github.com/chhz0/dispatchr/pricing"
	"github.com/chhz0/dispatchr/retry"
	"github.com/chhz0/dispatchr/storage"
	"github.com/chhz0/dispatchr/telemetry"
	"github.com/chhz0/dispatchr/transport"
	"github.com/chhz0/dispatchr/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	RegistryPricing   = "pricing"
	RegistryNotify    = "notify"
	RegistryBonus     = "bonus"
	RegistryDiscounts = "discounts"
)

// 各渠道的默认服务商
var providers = map[types.Channel]string{
	types.ChannelEmail:    "smtp",
	types.ChannelSMS:      "twilio",
	types.ChannelPush:     "fcm",
	types.ChannelWhatsApp: "whatsapp",
	types.ChannelSlack:    "slack",
}

// Deps 外部协作者，全部可替换
type Deps struct {
	Logger    *zap.Logger
	Transport transport.Transport
	Store     storage.OrderStore
	Charger   order.Charger
	Users     notify.UserRepository
	Metrics   *prometheus.Registry
	Tracer    trace.Tracer
}

type (
	PricingDispatcher = core.Dispatcher[types.CustomerType, types.Order, float64]
	NotifyDispatcher  = core.Dispatcher[types.Channel, types.Message, struct{}]
	BonusDispatcher   = core.Dispatcher[types.Role, types.Employee, float64]
)

// Root 组装完成的对象图
type Root struct {
	Pricing   *PricingDispatcher
	Notify    *NotifyDispatcher
	Bonus     *BonusDispatcher
	Discounts *core.Registry[time.Weekday, core.Behavior[float64, float64]]
	Orders    *order.Processor
	Notifier  *notify.Service
	Store     storage.OrderStore
	Metrics   *prometheus.Registry
	Logger    *zap.Logger

	transport transport.Transport
}

// DefaultDeps 按配置打开存储和传输；Redis 频道为空时通知只写日志
func DefaultDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (Deps, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	policy := retry.Exponential{Initial: 200 * time.Millisecond, Max: 2 * time.Second, Attempts: cfg.ConnectRetries}
	log := logger.Named("connect")

	var store storage.OrderStore
	err := retry.Do(ctx, policy, log, "open store", func(context.Context) error {
		var err error
		store, err = storage.Open(storage.Options{
			Backend:       cfg.Storage.Backend,
			Path:          cfg.Storage.Path,
			DSN:           cfg.Storage.DSN,
			RedisAddr:     cfg.Redis.Addr,
			RedisPassword: cfg.Redis.Password,
			RedisDB:       cfg.Redis.DB,
		})
		return err
	})
	if err != nil {
		return Deps{}, err
	}

	var t transport.Transport
	if cfg.Redis.Channel != "" {
		err := retry.Do(ctx, policy, log, "open transport", func(ctx context.Context) error {
			rt, err := transport.NewRedisTransport(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel)
			if err != nil {
				return err
			}
			t = rt
			return nil
		})
		if err != nil {
			_ = store.Close()
			return Deps{}, err
		}
	} else {
		t = transport.NewLogTransport(logger.Named("transport"), "")
	}

	return Deps{
		Logger:    logger,
		Transport: t,
		Store:     store,
		Charger:   order.LogCharger{Logger: logger.Named("payment"), Provider: "stripe"},
		Users:     notify.NewMemoryUsers(),
		Metrics:   prometheus.NewRegistry(),
		Tracer:    telemetry.Tracer(),
	}, nil
}

// Open 按配置打开外部依赖并组装；组装失败时释放已打开的依赖
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Root, error) {
	deps, err := DefaultDeps(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return buildOrClose(cfg, deps)
}

func buildOrClose(cfg config.Config, deps Deps) (*Root, error) {
	root, err := Build(cfg, deps)
	if err != nil {
		return nil, errors.Join(err, deps.Close())
	}
	return root, nil
}

// Close 关闭已打开的传输和存储，组装成功后由 Root.Close 负责
func (d Deps) Close() error {
	var errs []error
	if d.Transport != nil {
		errs = append(errs, d.Transport.Close())
	}
	if d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	return errors.Join(errs...)
}

// Build 组装注册表、分发器和订单流程，不打开任何外部资源；失败时 deps 仍归调用方关闭
func Build(cfg config.Config, deps Deps) (*Root, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Transport == nil || deps.Store == nil {
		return nil, errors.New("app: transport and store are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Charger == nil {
		deps.Charger = order.NopCharger{}
	}
	if deps.Users == nil {
		deps.Users = notify.NewMemoryUsers()
	}
	if deps.Metrics == nil {
		deps.Metrics = prometheus.NewRegistry()
	}

	w := wiring{cfg: cfg, deps: deps, collector: middleware.NewCollector(deps.Metrics)}

	priceRules, err := pricing.Rules(cfg.Pricing)
	if err != nil {
		return nil, err
	}
	priceDispatcher, err := dispatcher(w, RegistryPricing, priceRules)
	if err != nil {
		return nil, err
	}

	senders, err := channelSenders(cfg.Channels, deps.Transport)
	if err != nil {
		return nil, err
	}
	notifyDispatcher, err := dispatcher(w, RegistryNotify, notify.Behaviors(senders))
	if err != nil {
		return nil, err
	}

	bonusRules, err := pricing.BonusRules(cfg.Bonus)
	if err != nil {
		return nil, err
	}
	bonusDispatcher, err := dispatcher(w, RegistryBonus, bonusRules)
	if err != nil {
		return nil, err
	}

	discounts, err := pricing.NewDiscountRegistry(w.registryOptions(RegistryDiscounts)...)
	if err != nil {
		return nil, err
	}

	processor, err := order.NewProcessor(priceDispatcher, notifyDispatcher, deps.Charger, deps.Store,
		order.WithLogger(deps.Logger.Named("order")))
	if err != nil {
		return nil, err
	}

	notifier := notify.NewService(deps.Users, notify.DateFormatter{}, notifyDispatcher,
		notify.LogTracker{Logger: deps.Logger.Named("notify")})

	return &Root{
		Pricing:   priceDispatcher,
		Notify:    notifyDispatcher,
		Bonus:     bonusDispatcher,
		Discounts: discounts,
		Orders:    processor,
		Notifier:  notifier,
		Store:     deps.Store,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
		transport: deps.Transport,
	}, nil
}

// Close 关闭存储与传输
func (r *Root) Close() error {
	return errors.Join(r.transport.Close(), r.Store.Close())
}

// Keys 各注册表当前的键，供管理端展示
func (r *Root) Keys() map[string][]string {
	return map[string][]string{
		RegistryPricing:   stringKeys(core.SortedKeys(r.Pricing.Registry())),
		RegistryNotify:    stringKeys(core.SortedKeys(r.Notify.Registry())),
		RegistryBonus:     stringKeys(core.SortedKeys(r.Bonus.Registry())),
		RegistryDiscounts: weekdayKeys(core.SortedKeys(r.Discounts)),
	}
}

type wiring struct {
	cfg       config.Config
	deps      Deps
	collector *middleware.Collector
}

func (w wiring) registryOptions(name string) []core.Option {
	return []core.Option{
		core.WithName(name),
		core.WithDuplicatePolicy(w.cfg.Policy()),
		core.WithLogger(w.deps.Logger.Named("registry")),
	}
}

// 每个分发器使用同一套中间件：日志、指标、追踪、超时
func dispatcher[K comparable, P, R any](w wiring, name string, entries map[K]core.Behavior[P, R]) (*core.Dispatcher[K, P, R], error) {
	reg, err := core.NewRegistryFrom(entries, w.registryOptions(name)...)
	if err != nil {
		return nil, fmt.Errorf("build %s registry: %w", name, err)
	}
	return core.NewDispatcher(reg,
		middleware.Logger[P, R](w.deps.Logger.Named("dispatch"), name),
		middleware.Metrics[P, R](w.collector, name),
		middleware.Tracing[P, R](w.deps.Tracer, name),
		middleware.Timeout[P, R](w.cfg.DispatchTimeout),
	), nil
}

func channelSenders(channels []types.Channel, t transport.Transport) (map[types.Channel]notify.Sender, error) {
	senders := make(map[types.Channel]notify.Sender, len(channels))
	for _, ch := range channels {
		provider, ok := providers[ch]
		if !ok {
			return nil, fmt.Errorf("app: unsupported channel %q", ch)
		}
		s, err := notify.NewChannelSender(ch, provider, t)
		if err != nil {
			return nil, err
		}
		senders[ch] = s
	}
	return senders, nil
}

func stringKeys[K ~string](keys []K) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func weekdayKeys(days []time.Weekday) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	return out
}
