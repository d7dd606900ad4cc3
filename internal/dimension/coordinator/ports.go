package coordinator

import (
	"context"
	"fmt"
	"strings"

	"WorldShift/internal/dimension/bag"
	"WorldShift/internal/dimension/entity"
	"WorldShift/internal/dimension/worldio"
)

// Host 是宿主程序提供的能力，协调器只通过它触碰宿主内部。
type Host interface {
	PrimaryWorld() entity.WorldInfo
	PrimaryCodec() worldio.Codec
	DimensionCodec(d *entity.Descriptor) worldio.Codec
	// ResetWorld 在加载/生成前按目标尺寸清空活动世界，d 为 nil 表示主世界。
	ResetWorld(d *entity.Descriptor)
	// ReleaseEphemeral 释放计时器、会话级 actor 等临时资源。
	ReleaseEphemeral()
	// Finalize 和 ReturnToMenu 都在前台线程上调用。
	Finalize(f Finalization)
	ReturnToMenu()
}

// Finalization 是交给前台收尾的信息。
type Finalization struct {
	From        *entity.Descriptor
	To          *entity.Descriptor
	ResetPlayer bool
	Fallback    bool
}

// ProgressAdapter 负责宿主内置的进度状态（成就、计数器之类）的快照与恢复。
type ProgressAdapter interface {
	SnapshotProgressState(b bag.Store)
	RestoreProgressState(b bag.Store)
}

// Forwarder 在客户端模式下把请求转给 relay 服务端。
type Forwarder interface {
	ForwardEnter(ctx context.Context, fullName string) error
	ForwardExit(ctx context.Context) error
}

type NetMode uint8

const (
	Standalone NetMode = iota
	Server
	Client
)

func (m NetMode) String() string {
	switch m {
	case Server:
		return "server"
	case Client:
		return "client"
	}
	return "standalone"
}

func ParseNetMode(s string) (NetMode, error) {
	switch strings.ToLower(s) {
	case "", "standalone":
		return Standalone, nil
	case "server":
		return Server, nil
	case "client":
		return Client, nil
	}
	return Standalone, fmt.Errorf("unknown relay mode %q", s)
}

