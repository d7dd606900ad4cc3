package worldhost

import (
	"slices"
	"sync"

	"WorldShift/internal/dimension/bag"
	"WorldShift/internal/dimension/entity"
)

var (
	hpKey        = bag.NewKey[int]("player", "hp")
	inventoryKey = bag.NewKey[[]string]("player", "inventory")
	unlockedKey  = bag.NewKey[[]string]("progress", "achievements")
)

const defaultMaxHP = 100

// Player 跨世界保留生命值和背包。
type Player struct {
	mu        sync.Mutex
	HP        int
	MaxHP     int
	X, Y      int
	Inventory []string
}

func NewPlayer() *Player {
	return &Player{HP: defaultMaxHP, MaxHP: defaultMaxHP}
}

func (p *Player) CopyOut(_ entity.Direction, s bag.Store) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hpKey.Put(s, p.HP)
	inventoryKey.Put(s, slices.Clone(p.Inventory))
}

func (p *Player) ReadIn(_ entity.Direction, s bag.Store) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hp, err := hpKey.Get(s); err == nil {
		p.HP = hp
	}
	if inv, err := inventoryKey.Get(s); err == nil {
		p.Inventory = inv
	}
}

func (p *Player) Give(item string) {
	p.mu.Lock()
	p.Inventory = append(p.Inventory, item)
	p.mu.Unlock()
}

func (p *Player) Damage(n int) {
	p.mu.Lock()
	p.HP = max(0, p.HP-n)
	p.mu.Unlock()
}

// Reset 在离开 ResetPlayerOnExit 的维度时调用。
func (p *Player) Reset() {
	p.mu.Lock()
	p.HP = p.MaxHP
	p.mu.Unlock()
}

// Spawn 把玩家放到中间一列最高的空格上。
func (p *Player) Spawn(g *Grid) {
	x := g.Width / 2
	y := 0
	for y+1 < g.Height && g.At(x, y+1) == TileAir {
		y++
	}
	p.mu.Lock()
	p.X, p.Y = x, y
	p.mu.Unlock()
}

func (p *Player) Snapshot() (hp int, inv []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HP, slices.Clone(p.Inventory)
}

// Achievements 是宿主内置的进度状态，走 ProgressAdapter 搬运。
type Achievements struct {
	mu       sync.Mutex
	unlocked map[string]bool
}

func NewAchievements() *Achievements {
	return &Achievements{unlocked: make(map[string]bool)}
}

func (a *Achievements) Unlock(name string) {
	a.mu.Lock()
	a.unlocked[name] = true
	a.mu.Unlock()
}

func (a *Achievements) Has(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unlocked[name]
}

func (a *Achievements) SnapshotProgressState(s bag.Store) {
	a.mu.Lock()
	names := make([]string, 0, len(a.unlocked))
	for n := range a.unlocked {
		names = append(names, n)
	}
	a.mu.Unlock()
	slices.Sort(names)
	unlockedKey.Put(s, names)
}

func (a *Achievements) RestoreProgressState(s bag.Store) {
	names, err := unlockedKey.Get(s)
	if err != nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.unlocked)
	for _, n := range names {
		a.unlocked[n] = true
	}
}
