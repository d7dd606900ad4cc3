package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"WorldShift/internal/dimension/entity"
)

var (
	ErrFrozen    = errors.New("dimension registry is frozen")
	ErrDuplicate = errors.New("dimension already registered")

	// ErrSelfReturn 表示 ReturnTarget 指向维度自己，退出请求会被永远拒绝。
	ErrSelfReturn = errors.New("dimension return target points at itself")
)

// Registry 按名称、会话类型和进程内 ID 索引维度描述。
// ID 按注册顺序连续分配，只在本进程内有效。
type Registry struct {
	mu        sync.RWMutex
	byID      []*entity.Descriptor
	byName    map[string]*entity.Descriptor
	byType    map[reflect.Type]*entity.Descriptor
	ambiguous map[reflect.Type]struct{}
	frozen    bool
}

func New() *Registry {
	return &Registry{
		byName:    make(map[string]*entity.Descriptor),
		byType:    make(map[reflect.Type]*entity.Descriptor),
		ambiguous: make(map[reflect.Type]struct{}),
	}
}

// Register 校验并登记描述，返回分配的 ID。ReturnTarget 不能指向自己。
func (r *Registry) Register(d *entity.Descriptor) (int, error) {
	if d == nil {
		return 0, entity.ErrBadFullName
	}
	if err := d.Validate(); err != nil {
		return 0, fmt.Errorf("register %q: %w", d.FullName, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return 0, ErrFrozen
	}
	if _, ok := r.byName[d.FullName]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicate, d.FullName)
	}
	if d.ReturnTarget == entity.Target(len(r.byID)) {
		return 0, fmt.Errorf("%w: %s", ErrSelfReturn, d.FullName)
	}
	r.add(d)
	return d.ID, nil
}

// add 分配 ID 并建立索引，调用方持有写锁。
func (r *Registry) add(d *entity.Descriptor) {
	d.ID = len(r.byID)
	r.byID = append(r.byID, d)
	r.byName[d.FullName] = d
	if d.Session != nil {
		typ := reflect.TypeOf(d.Session)
		if _, ok := r.byType[typ]; ok {
			// 同一个实现类型挂了多个维度，按类型查询没有唯一答案。
			r.ambiguous[typ] = struct{}{}
		} else {
			r.byType[typ] = d
		}
	}
}

// registerBatch 一次登记一批描述，任何一个失败都不留下部分注册。
// returnTo[i] 是 ds[i] 的 return_to 名字，可以引用同批里的维度。
func (r *Registry) registerBatch(ds []*entity.Descriptor, returnTo []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}

	base := len(r.byID)
	pending := make(map[string]int, len(ds))
	for i, d := range ds {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("register %q: %w", d.FullName, err)
		}
		if _, ok := r.byName[d.FullName]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicate, d.FullName)
		}
		if _, ok := pending[d.FullName]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicate, d.FullName)
		}
		pending[d.FullName] = base + i
	}

	targets := make([]entity.Target, len(ds))
	for i, d := range ds {
		t, err := r.resolveReturnLocked(returnTo[i], pending)
		if err != nil {
			return fmt.Errorf("dimension %s: %w", d.FullName, err)
		}
		if t == entity.Target(base+i) {
			return fmt.Errorf("%w: %s", ErrSelfReturn, d.FullName)
		}
		targets[i] = t
	}

	for i, d := range ds {
		d.ReturnTarget = targets[i]
		r.add(d)
	}
	return nil
}

// Freeze 之后不再接受注册。
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

func (r *Registry) ByName(fullName string) (*entity.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[fullName]
	return d, ok
}

func (r *Registry) ByID(id int) (*entity.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.byID) {
		return nil, false
	}
	return r.byID[id], true
}

// Resolve 只解析维度下标，哨兵值返回 false。
func (r *Registry) Resolve(t entity.Target) (*entity.Descriptor, bool) {
	if !t.IsDimension() {
		return nil, false
	}
	return r.ByID(int(t))
}

func (r *Registry) All() []*entity.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*entity.Descriptor(nil), r.byID...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *Registry) byTypeOf(typ reflect.Type) (*entity.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.ambiguous[typ]; ok {
		return nil, false
	}
	d, ok := r.byType[typ]
	return d, ok
}

// ByType 按会话实现类型查找描述，T 通常是指针类型。
func ByType[T entity.Session](r *Registry) (*entity.Descriptor, bool) {
	return r.byTypeOf(reflect.TypeOf((*T)(nil)).Elem())
}
