// config/config.go
// 配置优先级：环境变量（含 .env）> YAML 文件 > 默认值
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chhz0/dispatchr/core"
	"github.com/chhz0/dispatchr/pricing"
	"github.com/chhz0/dispatchr/types"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DISPATCHR_"

type Config struct {
	// debug | info | warn | error
	LogLevel string `yaml:"log_level"`
	// 所有注册表的重复键策略：overwrite | reject
	DuplicatePolicy string `yaml:"duplicate_policy"`
	// 单次分发超时，0 表示不限制
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`

	// 客户类型 -> 价格系数
	Pricing map[types.CustomerType]float64 `yaml:"pricing"`
	// 职级 -> 奖金比例
	Bonus map[types.Role]float64 `yaml:"bonus"`
	// 注册到通知表的渠道
	Channels []types.Channel `yaml:"channels"`

	// 启动时连接外部存储/Redis 的重试次数
	ConnectRetries int `yaml:"connect_retries"`

	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`

	// 管理端 HTTP 地址，为空则不启动
	AdminAddr string `yaml:"admin_addr"`
	// OTLP gRPC 地址，为空则不导出链路
	TracingEndpoint string `yaml:"tracing_endpoint"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

// RedisConfig 订单存储与通知传输共用
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 非空时通知发布到该频道，否则只写日志
	Channel string `yaml:"channel"`
}

func Default() Config {
	cfg := Config{
		LogLevel:        "info",
		DuplicatePolicy: "overwrite",
		DispatchTimeout: 5 * time.Second,
		Pricing:         make(map[types.CustomerType]float64, len(pricing.DefaultMultipliers)),
		Bonus:           make(map[types.Role]float64, len(pricing.DefaultBonusRates)),
		Channels: []types.Channel{
			types.ChannelEmail,
			types.ChannelSMS,
			types.ChannelPush,
			types.ChannelWhatsApp,
		},
		ConnectRetries: 3,
		Storage:        StorageConfig{Backend: "memory"},
		Redis:          RedisConfig{Addr: "localhost:6379"},
	}
	for k, v := range pricing.DefaultMultipliers {
		cfg.Pricing[k] = v
	}
	for k, v := range pricing.DefaultBonusRates {
		cfg.Bonus[k] = v
	}
	return cfg
}

// Load path 为空时跳过 YAML
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		// 文件中出现的映射整体替换默认值，而不是与默认值合并
		defaults := cfg
		cfg.Pricing, cfg.Bonus, cfg.Channels = nil, nil, nil
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return defaults, fmt.Errorf("parse config: %w", err)
		}
		if cfg.Pricing == nil {
			cfg.Pricing = defaults.Pricing
		}
		if cfg.Bonus == nil {
			cfg.Bonus = defaults.Bonus
		}
		if cfg.Channels == nil {
			cfg.Channels = defaults.Channels
		}
	}

	// .env 可选，已存在的环境变量不会被覆盖
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "DUPLICATE_POLICY"); v != "" {
		cfg.DuplicatePolicy = v
	}
	if v := os.Getenv(envPrefix + "DISPATCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sDISPATCH_TIMEOUT: %w", envPrefix, err)
		}
		cfg.DispatchTimeout = d
	}
	if v := os.Getenv(envPrefix + "CHANNELS"); v != "" {
		cfg.Channels = cfg.Channels[:0]
		for _, ch := range strings.Split(v, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				cfg.Channels = append(cfg.Channels, types.Channel(ch))
			}
		}
	}
	if v := os.Getenv(envPrefix + "CONNECT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCONNECT_RETRIES: %w", envPrefix, err)
		}
		cfg.ConnectRetries = n
	}
	if v := os.Getenv(envPrefix + "STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv(envPrefix + "STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv(envPrefix + "STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv(envPrefix + "REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv(envPrefix + "REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv(envPrefix + "REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %w", envPrefix, err)
		}
		cfg.Redis.DB = n
	}
	if v := os.Getenv(envPrefix + "REDIS_CHANNEL"); v != "" {
		cfg.Redis.Channel = v
	}
	if v := os.Getenv(envPrefix + "ADMIN_ADDR"); v != "" {
		cfg.AdminAddr = v
	}
	if v := os.Getenv(envPrefix + "TRACING_ENDPOINT"); v != "" {
		cfg.TracingEndpoint = v
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := core.ParseDuplicatePolicy(c.DuplicatePolicy); err != nil {
		return err
	}
	if c.DispatchTimeout < 0 {
		return fmt.Errorf("dispatch_timeout must not be negative")
	}
	if c.ConnectRetries < 0 {
		return fmt.Errorf("connect_retries must not be negative")
	}
	if len(c.Pricing) == 0 {
		return fmt.Errorf("pricing: at least one customer type is required")
	}
	return nil
}

func (c Config) Policy() core.DuplicatePolicy {
	p, _ := core.ParseDuplicatePolicy(c.DuplicatePolicy)
	return p
}
