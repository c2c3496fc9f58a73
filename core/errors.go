// core/errors.go
package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKey       = errors.New("unknown key")
	ErrDuplicateKey     = errors.New("duplicate key registration")
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidBehavior  = errors.New("invalid behavior")
	ErrBehaviorFailed   = errors.New("behavior failed")
	ErrBehaviorPanicked = errors.New("behavior panicked")
)

// RegistryError 注册表操作失败（查找未命中、重复注册、非法键）
type RegistryError struct {
	Op  string
	Key any
	Err error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry %s %v: %v", e.Op, e.Key, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// 失败类别，调用方可据此分支
type Kind int

const (
	KindUnknownKey Kind = iota + 1
	KindBehaviorFailed
)

func (k Kind) String() string {
	switch k {
	case KindUnknownKey:
		return "unknown_key"
	case KindBehaviorFailed:
		return "behavior_failed"
	default:
		return "unknown"
	}
}

// DispatchError 分发失败，Cause 保留原始错误
type DispatchError struct {
	Kind  Kind
	Key   any
	Cause error
}

func (e *DispatchError) Error() string {
	if e.Kind == KindUnknownKey {
		return fmt.Sprintf("dispatch %v: no behavior registered", e.Key)
	}
	return fmt.Sprintf("dispatch %v: %s: %v", e.Key, e.Kind, e.Cause)
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}

func (e *DispatchError) Is(target error) bool {
	switch target {
	case ErrUnknownKey:
		return e.Kind == KindUnknownKey
	case ErrBehaviorFailed:
		return e.Kind == KindBehaviorFailed
	}
	return false
}

// IsUnknownKey 以最外层分发错误的类别为准；行为内部嵌套分发的未知键算作行为失败
func IsUnknownKey(err error) bool {
	if k := KindOf(err); k != 0 {
		return k == KindUnknownKey
	}
	return errors.Is(err, ErrUnknownKey)
}

func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

func IsBehaviorFailed(err error) bool {
	if k := KindOf(err); k != 0 {
		return k == KindBehaviorFailed
	}
	return errors.Is(err, ErrBehaviorFailed)
}

// KindOf 返回最外层分发错误的类别，非分发错误返回 0
func KindOf(err error) Kind {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
