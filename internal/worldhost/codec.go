package worldhost

import (
	"io"

	"WorldShift/internal/dimension/entity"
	"WorldShift/internal/dimension/worldio"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// worldMeta 存在主世界的 .twld 里。
type worldMeta struct {
	UID  string `yaml:"uid"`
	Name string `yaml:"name"`
	Seed int64  `yaml:"seed"`
}

// gridCodec 读写宿主的活动网格，读成功才替换。
type gridCodec struct {
	h    *Host
	name string
}

func (c *gridCodec) ReadFile(r io.Reader) int {
	g, status, err := readGrid(r)
	if status != statusOK {
		c.h.log.Warn("world read failed", zap.String("world", c.name), zap.Int("status", status), zap.Error(err))
		return status
	}
	c.h.mu.Lock()
	c.h.grid = g
	c.h.mu.Unlock()
	return statusOK
}

func (c *gridCodec) WriteFile(w io.Writer) error {
	c.h.mu.Lock()
	g := c.h.grid
	c.h.mu.Unlock()
	return writeGrid(w, g)
}

// primaryCodec 额外把世界身份写到伴随文件。
type primaryCodec struct {
	gridCodec
}

var (
	_ worldio.Codec          = (*gridCodec)(nil)
	_ worldio.CompanionCodec = (*primaryCodec)(nil)
)

func (c *primaryCodec) ReadCompanion(r io.Reader) error {
	var m worldMeta
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return err
	}
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	if m.UID != "" {
		c.h.world.UID = m.UID
	}
	if m.Name != "" {
		c.h.world.Name = m.Name
	}
	c.h.world.Seed = m.Seed
	return nil
}

func (c *primaryCodec) WriteCompanion(w io.Writer) error {
	c.h.mu.Lock()
	m := worldMeta{UID: c.h.world.UID, Name: c.h.world.Name, Seed: c.h.world.Seed}
	c.h.mu.Unlock()
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(&m); err != nil {
		return err
	}
	return enc.Close()
}

func (h *Host) PrimaryCodec() worldio.Codec {
	return &primaryCodec{gridCodec{h: h, name: "primary"}}
}

func (h *Host) DimensionCodec(d *entity.Descriptor) worldio.Codec {
	return &gridCodec{h: h, name: d.FullName}
}
