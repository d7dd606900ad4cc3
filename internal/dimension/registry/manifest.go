package registry

import (
	"fmt"

	"WorldShift/internal/dimension/entity"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Manifest 是 dimensions.yml 的结构。
type Manifest struct {
	Dimensions []DimensionSpec `yaml:"dimensions"`
}

type DimensionSpec struct {
	Name              string     `yaml:"name"`
	Width             int        `yaml:"width"`
	Height            int        `yaml:"height"`
	ReturnTo          string     `yaml:"return_to"`
	Persist           bool       `yaml:"persist"`
	ResetPlayerOnExit bool       `yaml:"reset_player_on_exit"`
	Passes            []PassSpec `yaml:"passes"`
}

type PassSpec struct {
	Name   string         `yaml:"name"`
	Weight float64        `yaml:"weight"`
	Config map[string]any `yaml:"config"`
}

// Catalog 把清单里的名字绑定到代码：pass 名 -> 实现，维度全名 -> 会话构造器。
type Catalog struct {
	Passes   map[string]entity.PassFunc
	Sessions map[string]func() entity.Session
}

const (
	returnPrimary = "primary"
	returnMenu    = "menu"
)

// LoadManifestFile 从 fs 读取清单并注册。
func (r *Registry) LoadManifestFile(fs afero.Fs, path string, catalog Catalog) ([]*entity.Descriptor, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return r.LoadManifest(data, catalog)
}

// LoadManifest 注册清单里的全部维度；return_to 可以引用同一份清单里后面的维度。
// 任何一项出错时整份清单都不登记。
func (r *Registry) LoadManifest(data []byte, catalog Catalog) ([]*entity.Descriptor, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	out := make([]*entity.Descriptor, 0, len(m.Dimensions))
	returnTo := make([]string, 0, len(m.Dimensions))
	for _, spec := range m.Dimensions {
		d, err := buildDescriptor(spec, catalog)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		returnTo = append(returnTo, spec.ReturnTo)
	}
	if err := r.registerBatch(out, returnTo); err != nil {
		return nil, err
	}
	return out, nil
}

func buildDescriptor(spec DimensionSpec, catalog Catalog) (*entity.Descriptor, error) {
	d := &entity.Descriptor{
		FullName:          spec.Name,
		Width:             spec.Width,
		Height:            spec.Height,
		ShouldPersist:     spec.Persist,
		ResetPlayerOnExit: spec.ResetPlayerOnExit,
		ReturnTarget:      entity.TargetPrimary,
	}
	for _, ps := range spec.Passes {
		fn, ok := catalog.Passes[ps.Name]
		if !ok {
			return nil, fmt.Errorf("dimension %s: unknown pass %q", spec.Name, ps.Name)
		}
		d.Passes = append(d.Passes, entity.Pass{Name: ps.Name, Weight: ps.Weight, Apply: fn})
		if len(ps.Config) != 0 {
			if d.GenerationConfig == nil {
				d.GenerationConfig = make(entity.GenerationConfig)
			}
			d.GenerationConfig[ps.Name] = entity.PassConfig(ps.Config)
		}
	}
	if mk, ok := catalog.Sessions[spec.Name]; ok && mk != nil {
		d.Session = mk()
	}
	return d, nil
}

// resolveReturnLocked 先查已登记的维度，再查同批待登记的，调用方持有锁。
func (r *Registry) resolveReturnLocked(to string, pending map[string]int) (entity.Target, error) {
	switch to {
	case "", returnPrimary:
		return entity.TargetPrimary, nil
	case returnMenu:
		return entity.TargetMenu, nil
	}
	if d, ok := r.byName[to]; ok {
		return entity.Target(d.ID), nil
	}
	if id, ok := pending[to]; ok {
		return entity.Target(id), nil
	}
	return 0, fmt.Errorf("return_to %q is not registered", to)
}
