package hostconfig

import (
	"WorldShift/internal/shared/config"
)

// Load 读取并监听 worldhost 配置。
func Load(cfgName string) (*config.Watched[Config], error) {
	w, err := config.Load[Config](cfgName, true)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Normalize 补齐缺省值。
func (c Config) Normalize() Config {
	if c.Storage.Root == "" {
		c.Storage.Root = "data/worlds"
	}
	if c.Storage.TickMillis <= 0 {
		c.Storage.TickMillis = 16
	}
	if c.Marker.Backend == "" {
		c.Marker.Backend = "file"
	}
	if c.Worker.Scheduler == "" {
		c.Worker.Scheduler = "actor"
	}
	if c.Relay.Mode == "" {
		c.Relay.Mode = "standalone"
	}
	if c.Relay.Path == "" {
		c.Relay.Path = "/relay"
	}
	if c.Admin.Host == "" {
		c.Admin.Host = "127.0.0.1"
	}
	if c.NodeID <= 0 {
		c.NodeID = 1
	}
	return c
}
