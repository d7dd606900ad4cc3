package errx

import (
	"errors"
	"testing"
)

func TestError_Is_只按code判断(t *testing.T) {
	a := NewSys(CodeWorldLoadFailed, "a").WithData("path", "x.wld").WithCause(errors.New("eof"))
	b := NewSys(CodeWorldLoadFailed, "b")
	if !errors.Is(a, b) {
		t.Fatalf("期望同 code 的错误 errors.Is 为 true, a=%v b=%v", a, b)
	}
	if errors.Is(a, ErrInternal) {
		t.Fatalf("期望不同 code 的错误 errors.Is 为 false")
	}
}

func TestError_拒绝类错误不捕获栈(t *testing.T) {
	cause := errors.New("unknown name")
	err := ErrDimensionNotFound.WithCause(cause)
	if err.Stack() != nil {
		t.Fatalf("期望拒绝类错误不带栈, got=%v", err.Stack())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("期望 cause 链保留, err=%v", err)
	}
}

func TestError_系统错误只捕获一次栈(t *testing.T) {
	inner := NewSys(CodeStorageUnavailable, "disk").WithCause(errors.New("EIO"))
	if len(inner.Stack()) == 0 {
		t.Fatalf("期望第一次包装时捕获栈")
	}
	outer := NewSys(CodeWorldSaveFailed, "save").WithCause(inner)
	if outer.Stack() != nil {
		t.Fatalf("期望 cause 链里已有栈时不重复捕获, got=%v", outer.Stack())
	}
}

func TestError_哨兵派生不污染原对象(t *testing.T) {
	derived := ErrInternal.WithData("phase", "load")
	if ErrInternal.Data() != nil {
		t.Fatalf("期望哨兵 data 保持为空, got=%v", ErrInternal.Data())
	}
	if derived.Data()["phase"] != "load" {
		t.Fatalf("期望派生对象带上 phase, got=%v", derived.Data())
	}
	if got := derived.WithReason("retry_exhausted").Reason(); got != "retry_exhausted" {
		t.Fatalf("期望 reason=retry_exhausted, got=%q", got)
	}
}
