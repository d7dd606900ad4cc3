package coordinator

import "sync"

// Scheduler 执行后台切换任务，同一时刻只跑一个。返回 false 表示没有接收。
type Scheduler interface {
	Schedule(job func()) bool
}

// InlineScheduler 在调用方 goroutine 上直接执行，测试用。
type InlineScheduler struct{}

func (InlineScheduler) Schedule(job func()) bool {
	job()
	return true
}

// Foreground 是前台线程（宿主 tick）上的任务队列。
type Foreground interface {
	Post(fn func())
	// Drain 执行已投递的任务，返回执行的个数。
	Drain() int
}

// Queue 由宿主每个 tick 调用 Drain。
type Queue struct {
	mu  sync.Mutex
	fns []func()
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
}

func (q *Queue) Drain() int {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

// InlineForeground 投递即执行。
type InlineForeground struct{}

func (InlineForeground) Post(fn func()) { fn() }

func (InlineForeground) Drain() int { return 0 }
