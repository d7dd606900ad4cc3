package bag

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	ErrKeyMissing = errors.New("transfer bag: key missing")
	ErrKeyType    = errors.New("transfer bag: value type mismatch")
)

// Get 按类型读取；缺失返回 ErrKeyMissing，类型不对返回 ErrKeyType。
func Get[T any](s Store, key string) (T, error) {
	var zero T
	raw, ok := s.Lookup(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrKeyMissing, key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrKeyType, key, raw)
	}
	return v, nil
}

// MustGet 用于把缺失当成编程错误的参与方。
func MustGet[T any](s Store, key string) T {
	v, err := Get[T](s, key)
	if err != nil {
		panic(err)
	}
	return v
}

var (
	declMu   sync.Mutex
	declared = make(map[string]reflect.Type)
)

// Key 是带命名空间和值类型的 bag key。
type Key[T any] struct {
	name string
}

// NewKey 声明 "<ns>:<name>"；同一个 key 用不同类型声明会 panic。
func NewKey[T any](ns, name string) Key[T] {
	full := ns + ":" + name
	typ := reflect.TypeOf((*T)(nil)).Elem()

	declMu.Lock()
	defer declMu.Unlock()
	if prev, ok := declared[full]; ok && prev != typ {
		panic(fmt.Sprintf("transfer bag key %s already declared as %s, got %s", full, prev, typ))
	}
	declared[full] = typ
	return Key[T]{name: full}
}

func (k Key[T]) String() string { return k.name }

func (k Key[T]) Put(s Store, v T) bool { return s.Put(k.name, v) }

func (k Key[T]) Get(s Store) (T, error) { return Get[T](s, k.name) }

func (k Key[T]) MustGet(s Store) T { return MustGet[T](s, k.name) }
