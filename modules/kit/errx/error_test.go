package errx

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_按code判断语义(t *testing.T) {
	a := NewBiz("MISSION_X", "a").WithData("k", 1).WithCause(errors.New("c1"))
	b := NewBiz("MISSION_X", "b")
	if !errors.Is(a, b) {
		t.Fatalf("期望同 code 的错误 errors.Is 为 true, a=%v b=%v", a, b)
	}
	if errors.Is(a, NewBiz("MISSION_Y", "a")) {
		t.Fatalf("不同 code 不应相等")
	}
}

func TestError_业务错误不带栈(t *testing.T) {
	cause := errors.New("garrison short")
	err := NewBiz("NOT_ENOUGH_UNITS", "兵力不足").WithCause(cause)
	if err.Stack() != nil {
		t.Fatalf("业务错误不应捕获栈")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause 链丢失: %v", err)
	}
	if !IsBiz(fmt.Errorf("wrap: %w", err)) {
		t.Fatalf("IsBiz 应沿错误链识别")
	}
}

func TestError_系统错误只捕获一次栈(t *testing.T) {
	inner := NewSys("AUTHORITY_DOWN", "authority 不可用").WithCause(errors.New("dial tcp"))
	if len(inner.Stack()) == 0 {
		t.Fatalf("系统错误应在首次挂 cause 时捕获栈")
	}
	outer := NewSys("MISSION_RESOLVE_FAIL", "结算失败").WithCause(inner)
	if outer.Stack() != nil {
		t.Fatalf("链上已有栈时不应重复捕获")
	}
	if CodeOf(outer) != "MISSION_RESOLVE_FAIL" {
		t.Fatalf("CodeOf 应返回最外层 code, got=%s", CodeOf(outer))
	}
}

func TestError_data为副本(t *testing.T) {
	src := map[string]any{"timer_id": int64(7)}
	err := ErrInvalidParam.WithDataMap(src)
	src["timer_id"] = int64(8)
	if err.Data()["timer_id"] != int64(7) {
		t.Fatalf("外部修改不应影响错误上下文, got=%v", err.Data())
	}
	if ErrInvalidParam.Data() != nil {
		t.Fatalf("哨兵错误不应被派生修改")
	}
}
