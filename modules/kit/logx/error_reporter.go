package logx

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RejectLog 描述一次被拒绝的切换请求（非错误，INFO 级别）。
type RejectLog struct {
	Action string
	Reason string
	Target string
}

// SysLog 描述一次技术错误。
type SysLog struct {
	Action string
	Err    error
}

func NewRejectLog(action, reason, target string) RejectLog {
	return RejectLog{Action: action, Reason: reason, Target: target}
}

func NewSysLog(action string, err error) SysLog {
	return SysLog{Action: action, Err: err}
}

// ReportRejectWithLoggerContext 记录拒绝：INFO、err_type=reject、不带堆栈。
func ReportRejectWithLoggerContext(ctx context.Context, l Logger, r RejectLog, fields ...zap.Field) {
	if l == nil {
		return
	}
	action := r.Action
	if action == "" {
		action = "reject"
	}
	base := []zap.Field{
		zap.String("err_type", "reject"),
		zap.String("action", action),
	}
	if r.Reason != "" {
		base = append(base, zap.String("reason", r.Reason))
	}
	if r.Target != "" {
		base = append(base, zap.String("target", r.Target))
	}
	msg := action
	if r.Reason != "" {
		msg = fmt.Sprintf("%s, reason:%s", action, r.Reason)
	}
	l.WithContext(ctx).Info(msg, append(base, fields...)...)
}

// ReportSysErrorWithLoggerContext 记录技术错误：ERROR、err_type=sys，带 code/cause 链/栈。
func ReportSysErrorWithLoggerContext(ctx context.Context, l Logger, sys SysLog, fields ...zap.Field) {
	if sys.Err == nil || l == nil {
		return
	}
	action := sys.Action
	if action == "" {
		action = "sys_error"
	}
	meta := BuildErrorLog(sys.Err)
	base := []zap.Field{
		zap.String("err_type", "sys"),
		zap.String("action", action),
	}
	if meta.Code != "" {
		base = append(base, zap.String("error_code", meta.Code))
	}
	if len(meta.CauseChain) != 0 {
		base = append(base, zap.Strings("cause_chain", meta.CauseChain))
	}
	if len(meta.Data) != 0 {
		base = append(base, zap.Any("error_data", meta.Data))
	}
	if meta.Origin != "" {
		base = append(base, zap.String("origin_caller", meta.Origin))
	}
	if meta.Stack != "" {
		base = append(base, zap.String("stack_origin", meta.Stack))
	}

	msg := fmt.Sprintf("%s, error:%s", action, meta.Error)
	if meta.Reason != "" {
		msg = fmt.Sprintf("%s, reason:%s, error:%s", action, meta.Reason, meta.Error)
	}
	l.WithContext(ctx).Error(msg, append(base, fields...)...)
}

// ReportPhaseWithLoggerContext 记录流水线某个阶段的耗时（DEBUG）。
func ReportPhaseWithLoggerContext(ctx context.Context, l Logger, phase string, begin time.Time, fields ...zap.Field) {
	if l == nil {
		return
	}
	base := []zap.Field{
		zap.String("log_type", "phase"),
		zap.String("phase", phase),
		zap.Duration("elapsed", time.Since(begin)),
	}
	l.WithContext(ctx).Debug("transition phase done", append(base, fields...)...)
}

// ReportAccessWithLoggerContext 记录访问日志：
// - biz_code == 0 或 1（拒绝）：INFO
// - biz_code 2~499：WARN
// - biz_code >= 500：ERROR
func ReportAccessWithLoggerContext(ctx context.Context, l Logger, action string, bizCode int, fields ...zap.Field) {
	if l == nil {
		return
	}
	base := []zap.Field{
		zap.String("log_type", "access"),
		zap.String("action", action),
		zap.Int("biz_code", bizCode),
	}
	withCtx := l.WithContext(ctx)
	switch {
	case bizCode <= 1:
		withCtx.Info("access", append(base, fields...)...)
	case bizCode >= 500:
		withCtx.Error("access", append(base, fields...)...)
	default:
		withCtx.Warn("access", append(base, fields...)...)
	}
}
