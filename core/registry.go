// core/registry.go
package core

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// 重复键策略
type DuplicatePolicy int

const (
	// 覆盖并记录告警（默认）
	OverwriteDuplicates DuplicatePolicy = iota
	// 拒绝，返回 ErrDuplicateKey
	RejectDuplicates
)

func (p DuplicatePolicy) String() string {
	if p == RejectDuplicates {
		return "reject"
	}
	return "overwrite"
}

// ParseDuplicatePolicy 解析配置中的策略名，空串视为 overwrite
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return OverwriteDuplicates, nil
	case "reject":
		return RejectDuplicates, nil
	default:
		return 0, fmt.Errorf("unknown duplicate policy %q", s)
	}
}

type settings struct {
	name     string
	policy   DuplicatePolicy
	logger   *zap.Logger
	validate func(key any) error
	fallback any
}

type Option func(*settings)

// WithName 注册表名称，用于日志
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(s *settings) { s.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKeyValidator 替换默认的键校验
func WithKeyValidator(fn func(key any) error) Option {
	return func(s *settings) {
		if fn != nil {
			s.validate = fn
		}
	}
}

// WithFallback 显式声明未命中时的默认行为，只对 LookupOrFallback 生效。
// 类型必须与注册表的行为类型一致，否则 NewRegistry 会 panic。
func WithFallback(b any) Option {
	return func(s *settings) { s.fallback = b }
}

// 默认校验：字符串类键去空白后不能为空
func validateKey(key any) error {
	v := reflect.ValueOf(key)
	if !v.IsValid() {
		return ErrInvalidKey
	}
	if v.Kind() == reflect.String && strings.TrimSpace(v.String()) == "" {
		return ErrInvalidKey
	}
	return nil
}

func isTypedNil(x any) bool {
	if x == nil {
		return true
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

// Registry 键到行为的映射。
// 查找读取不可变快照，无锁；注册持有互斥锁，复制后整体替换快照。
type Registry[K comparable, B any] struct {
	mu   sync.Mutex
	snap atomic.Pointer[map[K]B]

	name        string
	policy      DuplicatePolicy
	logger      *zap.Logger
	validate    func(key any) error
	fallback    B
	hasFallback bool
}

func NewRegistry[K comparable, B any](opts ...Option) *Registry[K, B] {
	s := settings{
		name:     "registry",
		logger:   zap.NewNop(),
		validate: validateKey,
	}
	for _, opt := range opts {
		opt(&s)
	}

	r := &Registry[K, B]{
		name:     s.name,
		policy:   s.policy,
		logger:   s.logger.With(zap.String("registry", s.name)),
		validate: s.validate,
	}
	if s.fallback != nil {
		fb, ok := s.fallback.(B)
		if !ok {
			panic(fmt.Sprintf("core: fallback of type %T does not match registry %q", s.fallback, s.name))
		}
		r.fallback = fb
		r.hasFallback = true
	}

	empty := make(map[K]B)
	r.snap.Store(&empty)
	return r
}

// NewRegistryFrom 用映射批量初始化
func NewRegistryFrom[K comparable, B any](entries map[K]B, opts ...Option) (*Registry[K, B], error) {
	r := NewRegistry[K, B](opts...)
	for key, b := range entries {
		if err := r.Register(key, b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register 关联键与行为，重复键按策略覆盖或拒绝
func (r *Registry[K, B]) Register(key K, b B) error {
	if err := r.validate(key); err != nil {
		return &RegistryError{Op: "register", Key: key, Err: err}
	}
	if isTypedNil(b) {
		return &RegistryError{Op: "register", Key: key, Err: ErrInvalidBehavior}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.snap.Load()
	if _, exists := cur[key]; exists {
		if r.policy == RejectDuplicates {
			return &RegistryError{Op: "register", Key: key, Err: ErrDuplicateKey}
		}
		r.logger.Warn("overwriting registered behavior", zap.Any("key", key))
	}

	next := make(map[K]B, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[key] = b
	r.snap.Store(&next)
	return nil
}

// MustRegister 启动期注册，失败直接 panic
func (r *Registry[K, B]) MustRegister(key K, b B) {
	if err := r.Register(key, b); err != nil {
		panic("core.Registry.MustRegister: " + err.Error())
	}
}

// Lookup 未注册的键返回 ErrUnknownKey，不返回默认值
func (r *Registry[K, B]) Lookup(key K) (B, error) {
	b, ok := (*r.snap.Load())[key]
	if !ok {
		var zero B
		return zero, &RegistryError{Op: "lookup", Key: key, Err: ErrUnknownKey}
	}
	return b, nil
}

func (r *Registry[K, B]) Get(key K) (B, bool) {
	b, ok := (*r.snap.Load())[key]
	return b, ok
}

// LookupOrFallback 未命中时返回 WithFallback 声明的行为；未声明则同 Lookup
func (r *Registry[K, B]) LookupOrFallback(key K) (B, error) {
	b, err := r.Lookup(key)
	if err != nil && r.hasFallback {
		return r.fallback, nil
	}
	return b, err
}

// Keys 当前已注册的键，顺序不保证
func (r *Registry[K, B]) Keys() []K {
	cur := *r.snap.Load()
	keys := make([]K, 0, len(cur))
	for k := range cur {
		keys = append(keys, k)
	}
	return keys
}

func (r *Registry[K, B]) Len() int {
	return len(*r.snap.Load())
}

func (r *Registry[K, B]) Name() string {
	return r.name
}

func (r *Registry[K, B]) Policy() DuplicatePolicy {
	return r.policy
}

// SortedKeys 可排序键的有序快照
func SortedKeys[K cmp.Ordered, B any](r *Registry[K, B]) []K {
	keys := r.Keys()
	slices.Sort(keys)
	return keys
}
