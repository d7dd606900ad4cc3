package worldgen

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
)

// Progress 是生成过程的整体进度。pass 内调用 Set 得到的是 pass 内进度，
// 会按权重映射到整体区间里。Value/Message 可以在其他 goroutine 读取。
type Progress struct {
	bits    atomic.Uint64
	message atomic.Pointer[string]

	// 以下字段只在 worker 上读写
	rng      *rand.Rand
	base     float64
	span     float64
	listenMu sync.Mutex
	listener func(v float64, msg string)
}

func NewProgress() *Progress {
	p := &Progress{span: 1}
	empty := ""
	p.message.Store(&empty)
	return p
}

// OnChange 注册进度回调，整体进度每次变化都会调用。
func (p *Progress) OnChange(fn func(v float64, msg string)) {
	p.listenMu.Lock()
	p.listener = fn
	p.listenMu.Unlock()
}

func (p *Progress) Set(v float64) {
	p.publish(p.base + p.span*clamp01(v))
}

func (p *Progress) SetMessage(msg string) {
	p.message.Store(&msg)
}

func (p *Progress) Rand() *rand.Rand {
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(0))
	}
	return p.rng
}

func (p *Progress) Value() float64 {
	return math.Float64frombits(p.bits.Load())
}

func (p *Progress) Message() string {
	return *p.message.Load()
}

// Reset 回到 0 并清掉消息，加载路径复用同一个 Progress。
func (p *Progress) Reset() {
	p.base, p.span = 0, 1
	p.SetMessage("")
	p.publish(0)
}

func (p *Progress) window(base, span float64) {
	p.base, p.span = base, span
}

func (p *Progress) reseed(seed int64) {
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(seed))
		return
	}
	p.rng.Seed(seed)
}

func (p *Progress) publish(v float64) {
	p.bits.Store(math.Float64bits(v))
	p.listenMu.Lock()
	fn := p.listener
	p.listenMu.Unlock()
	if fn != nil {
		fn(v, p.Message())
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
