package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watched 持有一份 viper 配置，文件变更时重新反序列化并通知订阅者。
type Watched[T any] struct {
	mu       sync.RWMutex
	v        *viper.Viper
	current  T
	onChange []func(T)
}

// Load 读取配置文件到 T；watch=true 时监听文件变更。
func Load[T any](cfgName string, watch bool) (*Watched[T], error) {
	path, err := Resolve(cfgName)
	if err != nil {
		return nil, err
	}
	if !fileExist(path) {
		return nil, fmt.Errorf("config file not exist, configPath=%v", path)
	}

	w := &Watched[T]{v: viper.New()}
	w.v.SetConfigFile(path)
	if err = w.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err = w.v.Unmarshal(&w.current); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if watch {
		w.v.OnConfigChange(w.reload)
		w.v.WatchConfig()
	}
	return w, nil
}

// MustLoad 供 main 使用：读不到配置直接 panic。
func MustLoad[T any](cfgName string, watch bool) *Watched[T] {
	w, err := Load[T](cfgName, watch)
	if err != nil {
		panic(err)
	}
	return w
}

func (w *Watched[T]) reload(e fsnotify.Event) {
	var next T
	if err := w.v.Unmarshal(&next); err != nil {
		// 变更后的文件不合法时保留旧配置
		return
	}
	w.mu.Lock()
	w.current = next
	subs := append([]func(T){}, w.onChange...)
	w.mu.Unlock()
	for _, fn := range subs {
		fn(next)
	}
}

func (w *Watched[T]) Get() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watched[T]) OnChange(fn func(T)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}
