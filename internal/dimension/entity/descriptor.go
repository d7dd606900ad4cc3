package entity

import (
	"errors"
	"math/rand"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

var (
	ErrBadFullName = errors.New("dimension full name must look like <Mod>/<Name>")
	ErrNoPasses    = errors.New("dimension has no generation pass")
	ErrBadWeight   = errors.New("generation pass weight must be positive")
)

// Progress 是生成 pass 能看到的进度与随机源。
type Progress interface {
	// Set 设置当前 pass 内的进度，0..1。
	Set(v float64)
	SetMessage(msg string)
	// Rand 每个 pass 开始前都会用同一个种子重置。
	Rand() *rand.Rand
}

type PassFunc func(p Progress, cfg PassConfig) error

// Pass 是一个不透明的、带权重的生成步骤。
type Pass struct {
	Name   string
	Weight float64
	Apply  PassFunc
}

// PassConfig 是单个 pass 的覆盖参数。
type PassConfig map[string]any

// Decode 把配置解到结构体里，字段用 mapstructure tag。
func (c PassConfig) Decode(dst any) error {
	if len(c) == 0 {
		return nil
	}
	return mapstructure.WeakDecode(map[string]any(c), dst)
}

// GenerationConfig 按 pass 名查找覆盖参数，没有则返回 nil。
type GenerationConfig map[string]PassConfig

func (g GenerationConfig) For(pass string) PassConfig {
	if g == nil {
		return nil
	}
	return g[pass]
}

// Descriptor 描述一个备用世界。ID 只在进程内有效，持久化只能用 FullName。
type Descriptor struct {
	ID                int
	FullName          string
	Width             int
	Height            int
	Passes            []Pass
	GenerationConfig  GenerationConfig
	ReturnTarget      Target
	ShouldPersist     bool
	ResetPlayerOnExit bool
	Session           Session
}

func (d *Descriptor) Mod() string {
	mod, _, _ := strings.Cut(d.FullName, "/")
	return mod
}

func (d *Descriptor) Name() string {
	_, name, _ := strings.Cut(d.FullName, "/")
	return name
}

// TotalWeight 是所有 pass 权重之和。
func (d *Descriptor) TotalWeight() float64 {
	var sum float64
	for _, p := range d.Passes {
		sum += p.Weight
	}
	return sum
}

func (d *Descriptor) Validate() error {
	if !ValidFullName(d.FullName) {
		return ErrBadFullName
	}
	if len(d.Passes) == 0 {
		return ErrNoPasses
	}
	for _, p := range d.Passes {
		if p.Weight <= 0 || p.Apply == nil {
			return ErrBadWeight
		}
	}
	return nil
}

func ValidFullName(name string) bool {
	mod, rest, ok := strings.Cut(name, "/")
	return ok && mod != "" && rest != "" && !strings.Contains(rest, "/")
}
