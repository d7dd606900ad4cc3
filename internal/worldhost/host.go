// Package worldhost 是 cmd/worldhost 用的演示宿主：一个方块网格世界、玩家和成就。
package worldhost

import (
	"context"
	"sync"

	"WorldShift/internal/dimension/coordinator"
	"WorldShift/internal/dimension/entity"
	"WorldShift/internal/dimension/worldio"
	"WorldShift/modules/kit/logx"

	"go.uber.org/zap"
)

var _ coordinator.Host = (*Host)(nil)

// Host 持有活动世界；网格在 worker 上重建，在前台被 Update 读取。
type Host struct {
	mu     sync.Mutex
	world  entity.WorldInfo
	width  int
	height int
	grid   *Grid
	active *entity.Descriptor
	inMenu bool

	ephemeral []func()
	player    *Player
	log       logx.Logger
}

func NewHost(world entity.WorldInfo, width, height int, player *Player, l logx.Logger) *Host {
	return &Host{
		world:  world,
		width:  width,
		height: height,
		grid:   NewGrid(width, height),
		player: player,
		inMenu: true,
		log:    logx.OrNop(l),
	}
}

func (h *Host) PrimaryWorld() entity.WorldInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world
}

func (h *Host) ResetWorld(d *entity.Descriptor) {
	w, ht := h.width, h.height
	if d != nil {
		w, ht = d.Width, d.Height
	}
	h.mu.Lock()
	h.grid = NewGrid(w, ht)
	h.mu.Unlock()
}

// AddEphemeral 登记切换时要释放的资源。
func (h *Host) AddEphemeral(release func()) {
	h.mu.Lock()
	h.ephemeral = append(h.ephemeral, release)
	h.mu.Unlock()
}

func (h *Host) ReleaseEphemeral() {
	h.mu.Lock()
	list := h.ephemeral
	h.ephemeral = nil
	h.mu.Unlock()
	for _, release := range list {
		release()
	}
}

func (h *Host) Finalize(f coordinator.Finalization) {
	h.mu.Lock()
	h.active = f.To
	h.inMenu = false
	g := h.grid
	h.mu.Unlock()

	if f.ResetPlayer {
		h.player.Reset()
	}
	h.player.Spawn(g)
	h.log.Info("world ready",
		zap.String("active", activeName(f.To)),
		zap.Bool("fallback", f.Fallback),
		zap.Int("width", g.Width),
		zap.Int("height", g.Height))
}

func (h *Host) ReturnToMenu() {
	h.mu.Lock()
	h.active = nil
	h.inMenu = true
	h.mu.Unlock()
	h.log.Info("returned to menu")
}

// EnterPrimary 在主世界加载或新建完成后调用。
func (h *Host) EnterPrimary() {
	h.mu.Lock()
	h.active = nil
	h.inMenu = false
	g := h.grid
	h.mu.Unlock()
	h.player.Spawn(g)
}

// NewPrimary 新建主世界：平地加一条地表。
func (h *Host) NewPrimary(uid, name string, seed int64) {
	g := NewGrid(h.width, h.height)
	surface := h.height / 3
	for y := surface; y < h.height; y++ {
		for x := 0; x < h.width; x++ {
			g.Set(x, y, TileStone)
		}
	}
	h.mu.Lock()
	h.world.UID = uid
	h.world.Name = name
	h.world.Seed = seed
	h.grid = g
	h.mu.Unlock()
}

func (h *Host) Grid() *Grid {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grid
}

func (h *Host) Active() (*entity.Descriptor, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active, h.inMenu
}

func activeName(d *entity.Descriptor) string {
	if d == nil {
		return "primary"
	}
	return d.FullName
}

// OpenPrimary 读取主世界，不存在时新建并落盘。返回是否新建。
func (h *Host) OpenPrimary(ctx context.Context, fio *worldio.FileIO, name string, seed int64) (bool, error) {
	path := h.PrimaryWorld().Path
	if fio.Exists(path) {
		h.ResetWorld(nil)
		if _, err := fio.Load(ctx, path, h.PrimaryCodec()); err != nil {
			return false, err
		}
		h.EnterPrimary()
		return false, nil
	}
	h.NewPrimary(entity.NewWorldUID(), name, seed)
	if err := fio.Save(ctx, path, h.PrimaryCodec()); err != nil {
		return true, err
	}
	h.EnterPrimary()
	h.log.Info("primary world created", zap.String("path", path), zap.Int64("seed", seed))
	return true, nil
}
