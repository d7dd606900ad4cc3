package logx

import (
	"context"

	"go.uber.org/zap"
)

// Logger 是各模块共用的最小日志接口：结构化字段 + ctx 透传（transition_id/phase）。
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	WithContext(ctx context.Context) Logger
}

// NopLogger 丢弃所有日志，测试和未注入 logger 时使用。
type NopLogger struct{}

func (NopLogger) Info(string, ...zap.Field)            {}
func (NopLogger) Error(string, ...zap.Field)           {}
func (NopLogger) Debug(string, ...zap.Field)           {}
func (NopLogger) Warn(string, ...zap.Field)            {}
func (NopLogger) WithContext(context.Context) Logger { return NopLogger{} }

// OrNop 把 nil 替换成 NopLogger。
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
