package worldhost

import (
	"fmt"
	"sync/atomic"

	"WorldShift/internal/dimension/entity"
	"WorldShift/internal/dimension/registry"
)

const (
	TileAir byte = iota
	TileStone
	TileOre
	TileBedrock
)

type fillConfig struct {
	Tile byte `mapstructure:"tile"`
}

type noiseConfig struct {
	Tile    byte    `mapstructure:"tile"`
	Density float64 `mapstructure:"density"`
}

type carveConfig struct {
	Walkers int `mapstructure:"walkers"`
	Steps   int `mapstructure:"steps"`
}

// Catalog 把清单里的 pass 名绑定到宿主网格上的实现。
func (h *Host) Catalog(player *Player, ach *Achievements) registry.Catalog {
	return registry.Catalog{
		Passes: map[string]entity.PassFunc{
			"fill":   h.fillPass,
			"noise":  h.noisePass,
			"carve":  h.carvePass,
			"border": h.borderPass,
		},
		Sessions: map[string]func() entity.Session{
			"core/caves": func() entity.Session { return &CavesSession{host: h, player: player, ach: ach} },
			"core/arena": func() entity.Session { return &ArenaSession{player: player} },
		},
	}
}

func (h *Host) fillPass(p entity.Progress, cfg entity.PassConfig) error {
	c := fillConfig{Tile: TileStone}
	if err := cfg.Decode(&c); err != nil {
		return err
	}
	p.SetMessage("filling")
	g := h.Grid()
	for i := range g.Tiles {
		g.Tiles[i] = c.Tile
	}
	p.Set(1)
	return nil
}

func (h *Host) noisePass(p entity.Progress, cfg entity.PassConfig) error {
	c := noiseConfig{Tile: TileOre, Density: 0.05}
	if err := cfg.Decode(&c); err != nil {
		return err
	}
	if c.Density < 0 || c.Density > 1 {
		return fmt.Errorf("noise density %v out of range", c.Density)
	}
	p.SetMessage("placing ores")
	g := h.Grid()
	rng := p.Rand()
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.At(x, y) != TileAir && rng.Float64() < c.Density {
				g.Set(x, y, c.Tile)
			}
		}
		p.Set(float64(y+1) / float64(g.Height))
	}
	return nil
}

func (h *Host) carvePass(p entity.Progress, cfg entity.PassConfig) error {
	c := carveConfig{Walkers: 4, Steps: 200}
	if err := cfg.Decode(&c); err != nil {
		return err
	}
	p.SetMessage("carving caves")
	g := h.Grid()
	rng := p.Rand()
	total := max(1, c.Walkers*c.Steps)
	done := 0
	for w := 0; w < c.Walkers; w++ {
		x, y := rng.Intn(g.Width), rng.Intn(g.Height)
		for s := 0; s < c.Steps; s++ {
			g.Set(x, y, TileAir)
			switch rng.Intn(4) {
			case 0:
				x++
			case 1:
				x--
			case 2:
				y++
			default:
				y--
			}
			x = min(max(x, 1), g.Width-2)
			y = min(max(y, 1), g.Height-2)
			done++
			p.Set(float64(done) / float64(total))
		}
	}
	return nil
}

func (h *Host) borderPass(p entity.Progress, cfg entity.PassConfig) error {
	c := fillConfig{Tile: TileBedrock}
	if err := cfg.Decode(&c); err != nil {
		return err
	}
	g := h.Grid()
	for x := 0; x < g.Width; x++ {
		g.Set(x, 0, c.Tile)
		g.Set(x, g.Height-1, c.Tile)
	}
	for y := 0; y < g.Height; y++ {
		g.Set(0, y, c.Tile)
		g.Set(g.Width-1, y, c.Tile)
	}
	p.Set(1)
	return nil
}

// CavesSession 第一次进入时解锁成就并给一把镐。
type CavesSession struct {
	entity.BaseSession
	host   *Host
	player *Player
	ach    *Achievements
	ticks  atomic.Int64
}

func (s *CavesSession) OnEnter() {
	if !s.ach.Has("enter_caves") {
		s.ach.Unlock("enter_caves")
		s.player.Give("pickaxe")
	}
	s.host.AddEphemeral(func() { s.ticks.Store(0) })
}

func (s *CavesSession) Update() {
	s.ticks.Add(1)
}

func (s *CavesSession) Ticks() int64 { return s.ticks.Load() }

// ArenaSession 每 600 tick 扣一点血，离开时由 ResetPlayerOnExit 回满。
type ArenaSession struct {
	entity.BaseSession
	player *Player
	ticks  int
}

func (s *ArenaSession) OnEnter() { s.ticks = 0 }

func (s *ArenaSession) Update() {
	s.ticks++
	if s.ticks%600 == 0 {
		s.player.Damage(1)
	}
}
