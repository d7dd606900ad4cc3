package registry

import (
	"errors"
	"testing"

	"WorldShift/internal/dimension/entity"

	"github.com/spf13/afero"
)

type cavesSession struct{ entity.BaseSession }
type skySession struct{ entity.BaseSession }

func noopPass(entity.Progress, entity.PassConfig) error { return nil }

func descriptor(name string, s entity.Session) *entity.Descriptor {
	return &entity.Descriptor{
		FullName:     name,
		Passes:       []entity.Pass{{Name: "base", Weight: 1, Apply: noopPass}},
		ReturnTarget: entity.TargetPrimary,
		Session:      s,
	}
}

func TestRegister_连续分配ID(t *testing.T) {
	r := New()
	for i, name := range []string{"core/a", "core/b", "core/c"} {
		id, err := r.Register(descriptor(name, nil))
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		if id != i {
			t.Fatalf("期望 id=%d, got=%d", i, id)
		}
	}
	d, ok := r.Resolve(entity.Target(1))
	if !ok || d.FullName != "core/b" {
		t.Fatalf("期望 core/b, got=%v ok=%v", d, ok)
	}
	if _, ok := r.Resolve(entity.TargetPrimary); ok {
		t.Fatalf("哨兵值期望解析失败")
	}
	if _, ok := r.ByID(3); ok {
		t.Fatalf("越界 id 期望解析失败")
	}
	if r.Len() != 3 || len(r.All()) != 3 {
		t.Fatalf("期望 3 个维度, got=%d", r.Len())
	}
}

func TestRegister_拒绝重复与非法名字(t *testing.T) {
	r := New()
	if _, err := r.Register(descriptor("core/a", nil)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Register(descriptor("core/a", nil)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("期望 ErrDuplicate, got=%v", err)
	}
	if _, err := r.Register(descriptor("bad", nil)); !errors.Is(err, entity.ErrBadFullName) {
		t.Fatalf("期望 ErrBadFullName, got=%v", err)
	}
	r.Freeze()
	if _, err := r.Register(descriptor("core/z", nil)); !errors.Is(err, ErrFrozen) {
		t.Fatalf("期望 ErrFrozen, got=%v", err)
	}
}

func TestByType(t *testing.T) {
	r := New()
	_, _ = r.Register(descriptor("core/caves", &cavesSession{}))
	_, _ = r.Register(descriptor("core/sky1", &skySession{}))
	_, _ = r.Register(descriptor("core/sky2", &skySession{}))

	d, ok := ByType[*cavesSession](r)
	if !ok || d.FullName != "core/caves" {
		t.Fatalf("期望 core/caves, got=%v ok=%v", d, ok)
	}
	if _, ok := ByType[*skySession](r); ok {
		t.Fatalf("同类型多个维度期望查询失败")
	}
}

const manifestYAML = `
dimensions:
  - name: core/caves
    width: 400
    height: 300
    persist: true
    return_to: core/sky
    passes:
      - name: terrain
        weight: 2
        config:
          depth: 12
      - name: ores
        weight: 1
  - name: core/sky
    return_to: menu
    reset_player_on_exit: true
    passes:
      - name: terrain
        weight: 1
`

func TestLoadManifestFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "configs/dimensions.yml", []byte(manifestYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := New()
	catalog := Catalog{
		Passes:   map[string]entity.PassFunc{"terrain": noopPass, "ores": noopPass},
		Sessions: map[string]func() entity.Session{"core/caves": func() entity.Session { return &cavesSession{} }},
	}
	ds, err := r.LoadManifestFile(fs, "configs/dimensions.yml", catalog)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("期望 2 个维度, got=%d", len(ds))
	}
	caves, sky := ds[0], ds[1]
	if caves.ReturnTarget != entity.Target(sky.ID) {
		t.Fatalf("期望 caves 返回 sky(%d), got=%v", sky.ID, caves.ReturnTarget)
	}
	if sky.ReturnTarget != entity.TargetMenu || !sky.ResetPlayerOnExit {
		t.Fatalf("sky 配置不符合预期: %+v", sky)
	}
	if !caves.ShouldPersist || caves.Width != 400 || caves.TotalWeight() != 3 {
		t.Fatalf("caves 配置不符合预期: %+v", caves)
	}
	if caves.GenerationConfig.For("terrain")["depth"] != 12 {
		t.Fatalf("期望 terrain.depth=12, got=%v", caves.GenerationConfig.For("terrain"))
	}
	if _, ok := ByType[*cavesSession](r); !ok {
		t.Fatalf("期望 caves 会话按类型可查")
	}
}

func TestLoadManifest_未知pass(t *testing.T) {
	r := New()
	_, err := r.LoadManifest([]byte(manifestYAML), Catalog{Passes: map[string]entity.PassFunc{"terrain": noopPass}})
	if err == nil {
		t.Fatalf("期望未知 pass 报错")
	}
}

func TestRegister_返回目标不能指向自己(t *testing.T) {
	r := New()
	d := descriptor("core/caves", nil)
	d.ReturnTarget = 0 // 零值就是维度 0，也就是它自己
	if _, err := r.Register(d); !errors.Is(err, ErrSelfReturn) {
		t.Fatalf("期望 ErrSelfReturn, got=%v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("失败的注册不应该留下记录, got=%d", r.Len())
	}

	// 指向已存在的其他维度是允许的
	if _, err := r.Register(descriptor("core/a", nil)); err != nil {
		t.Fatalf("register core/a: %v", err)
	}
	d2 := descriptor("core/b", nil)
	d2.ReturnTarget = 0
	if id, err := r.Register(d2); err != nil || id != 1 {
		t.Fatalf("期望 core/b 可以返回 core/a, id=%d err=%v", id, err)
	}
}

const brokenManifest = `
dimensions:
  - name: core/caves
    passes:
      - name: terrain
        weight: 1
  - name: core/sky
    return_to: core/nowhere
    passes:
      - name: terrain
        weight: 1
`

const selfManifest = `
dimensions:
  - name: core/loop
    return_to: core/loop
    passes:
      - name: terrain
        weight: 1
`

func TestLoadManifest_失败时整份不登记(t *testing.T) {
	catalog := Catalog{Passes: map[string]entity.PassFunc{"terrain": noopPass}}

	r := New()
	if _, err := r.LoadManifest([]byte(brokenManifest), catalog); err == nil {
		t.Fatalf("期望未知 return_to 报错")
	}
	if r.Len() != 0 {
		t.Fatalf("期望没有部分注册, got=%d", r.Len())
	}
	if _, ok := r.ByName("core/caves"); ok {
		t.Fatalf("core/caves 不应该留在名字索引里")
	}

	if _, err := r.LoadManifest([]byte(selfManifest), catalog); !errors.Is(err, ErrSelfReturn) {
		t.Fatalf("期望 return_to 自己报 ErrSelfReturn, got=%v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("期望没有部分注册, got=%d", r.Len())
	}

	// 修好之后同一个 registry 还能正常加载
	if _, err := r.LoadManifest([]byte(manifestYAML), Catalog{
		Passes: map[string]entity.PassFunc{"terrain": noopPass, "ores": noopPass},
	}); err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("期望 2 个维度, got=%d", r.Len())
	}
}
