package errs

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindInfra      Kind = "infra"
	KindDependency Kind = "dependency"
	KindBusiness   Kind = "business"
)

// Error 仓储与外部依赖错误的统一包装。
type Error struct {
	Op    string         // repo.world.Capture / authority.SubmitAttack
	Kind  Kind           // 粗分类
	Meta  map[string]any // username, coord, clan_id...
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func Wrap(op string, kind Kind, cause error, meta map[string]any) error {
	if cause == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Cause: cause, Meta: meta}
}

// KindOf 取最外层 *Error 的分类，没有时为 KindUnknown。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Temporary 基础设施或下游故障，稍后重试可能成功。
func Temporary(err error) bool {
	k := KindOf(err)
	return k == KindInfra || k == KindDependency
}
