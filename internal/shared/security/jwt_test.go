package security

import (
	"errors"
	"testing"
	"time"
)

func TestAward_缺少secret应失败(t *testing.T) {
	if _, err := Award("", 1, time.Hour); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("期望 ErrSecretMissing, got=%v", err)
	}
}

func TestAwardParse_正常签发并解析(t *testing.T) {
	token, err := Award("relay-secret", 42, time.Hour)
	if err != nil {
		t.Fatalf("Award err=%v", err)
	}
	claims, err := ParseToken("relay-secret", token)
	if err != nil {
		t.Fatalf("ParseToken err=%v", err)
	}
	if claims.PeerID != 42 {
		t.Fatalf("期望 PeerID==42, got=%d", claims.PeerID)
	}
	if _, err = ParseToken("other-secret", token); err == nil {
		t.Fatalf("期望错误的 secret 校验失败")
	}
}
