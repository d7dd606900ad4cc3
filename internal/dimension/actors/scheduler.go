package actors

import (
	"sync/atomic"

	"WorldShift/modules/kit/logx"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// Scheduler 把切换任务交给 WorkerActor，同一时刻只接收一个任务。
type Scheduler struct {
	system *actor.ActorSystem
	root   *actor.RootContext
	worker *actor.PID
	log    logx.Logger

	busy   atomic.Bool
	closed atomic.Bool
}

func NewScheduler(l logx.Logger) *Scheduler {
	l = logx.OrNop(l)
	system := actor.NewActorSystem()
	root := system.Root
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewWorkerActor(l)
	})
	return &Scheduler{
		system: system,
		root:   root,
		worker: root.Spawn(props),
		log:    l,
	}
}

// Schedule 在 worker 空闲时投递任务，否则返回 false。
func (s *Scheduler) Schedule(job func()) bool {
	if s == nil || job == nil || s.closed.Load() {
		return false
	}
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}
	s.root.Send(s.worker, &runJob{fn: job, done: func() { s.busy.Store(false) }})
	return true
}

func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

// Shutdown 等正在执行的任务结束后停止 worker。
func (s *Scheduler) Shutdown() {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	if err := s.root.PoisonFuture(s.worker).Wait(); err != nil {
		s.log.Warn("transition worker stop timeout", zap.Error(err))
	}
	s.system.Shutdown()
}
