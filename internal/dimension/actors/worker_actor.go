package actors

import (
	"context"
	"fmt"

	"WorldShift/modules/kit/errx"
	"WorldShift/modules/kit/logx"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type State int

const (
	None State = iota
	Online
	Stopping
	Offline
)

// runJob 是投递给 worker 的一次切换任务。
type runJob struct {
	fn   func()
	done func()
}

// WorkerActor 串行执行切换任务，是唯一的后台 worker。
type WorkerActor struct {
	state State
	log   logx.Logger
	runs  int
}

func NewWorkerActor(l logx.Logger) *WorkerActor {
	return &WorkerActor{state: None, log: logx.OrNop(l)}
}

func (w *WorkerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		w.state = Online
		w.log.Debug("transition worker started", zap.String("pid", ctx.Self().String()))
	case *actor.Stopping:
		w.state = Stopping
	case *actor.Stopped:
		w.state = Offline
		w.log.Debug("transition worker stopped", zap.Int("runs", w.runs))
	case *runJob:
		if msg == nil {
			return
		}
		w.run(msg)
	}
}

func (w *WorkerActor) run(job *runJob) {
	defer func() {
		if job.done != nil {
			job.done()
		}
	}()
	defer func() {
		// 协调器自己会收口，这里只兜住直接投递进来的任务，避免 actor 被重启。
		if r := recover(); r != nil {
			err := errx.ErrInternal.WithCause(fmt.Errorf("worker job panic: %v", r))
			logx.ReportSysErrorWithLoggerContext(context.Background(), w.log, logx.NewSysLog("worker.run", err))
		}
	}()
	w.runs++
	job.fn()
}
