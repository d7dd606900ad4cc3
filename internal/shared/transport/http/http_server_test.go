package http

import (
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"WorldShift/modules/kit/logx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewHttpServer_Healthz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	s := NewHttpServer(":0", nil, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(nethttp.MethodGet, "/healthz", nil))
	if w.Code != nethttp.StatusOK {
		t.Fatalf("期望 /healthz 返回 200, got=%d", w.Code)
	}
}

func TestAccessLog_按业务码分级(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	s := NewHttpServer(":0", gin.New(), logx.NewZapLogger(zap.New(core)))
	s.Engine().POST("/rejected", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"code": 1})
	})
	s.Engine().GET("/broken", func(c *gin.Context) {
		c.Status(nethttp.StatusInternalServerError)
	})

	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(nethttp.MethodPost, "/rejected", nil))
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(nethttp.MethodGet, "/broken", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("期望两条访问日志, got=%d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("拒绝(code=1)期望 INFO, got=%v", entries[0].Level)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("HTTP 500 期望 ERROR, got=%v", entries[1].Level)
	}
}
