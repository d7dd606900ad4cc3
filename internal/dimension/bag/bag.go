package bag

import "sort"

// Store 是参与方能看到的 bag 视图，不能 Clear。
type Store interface {
	Put(key string, value any) bool
	Lookup(key string) (any, bool)
	Len() int
}

// Bag 是一次切换期间的临时键值表，只在后台 worker 上使用。
// 批量阶段之外每个 key 只能写一次，先写者生效。
type Bag struct {
	items map[string]any
	bulk  bool
}

func New() *Bag {
	return &Bag{items: make(map[string]any)}
}

// Put 返回是否写入成功；非批量阶段重复写同一个 key 是空操作。
func (b *Bag) Put(key string, value any) bool {
	if _, ok := b.items[key]; ok && !b.bulk {
		return false
	}
	b.items[key] = value
	return true
}

func (b *Bag) Lookup(key string) (any, bool) {
	v, ok := b.items[key]
	return v, ok
}

func (b *Bag) Len() int {
	return len(b.items)
}

func (b *Bag) Keys() []string {
	keys := make([]string, 0, len(b.items))
	for k := range b.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *Bag) BeginBulk() { b.bulk = true }

func (b *Bag) EndBulk() { b.bulk = false }

func (b *Bag) InBulk() bool { return b.bulk }

// Bulk 在批量阶段内执行 fn，fn panic 也会退出批量阶段。
func (b *Bag) Bulk(fn func(s Store)) {
	b.BeginBulk()
	defer b.EndBulk()
	fn(b)
}

// Clear 只由协调器在切换结束时调用。
func (b *Bag) Clear() {
	clear(b.items)
	b.bulk = false
}
