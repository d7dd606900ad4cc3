package coordinator

import (
	"context"
	"fmt"
	"time"

	"WorldShift/internal/dimension/bag"
	"WorldShift/internal/dimension/entity"
	"WorldShift/internal/dimension/worldgen"
	"WorldShift/internal/dimension/worldio"
	"WorldShift/modules/kit/errx"
	"WorldShift/modules/kit/logx"
	"WorldShift/modules/kit/tracex"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	PhaseSnapshot = "snapshot"
	PhaseMarker   = "marker"
	PhaseUnload   = "unload"
	PhaseLoad     = "load"
	PhaseGenerate = "generate"
	PhaseResume   = "resume"
	PhaseFinalize = "finalize"
	PhaseFallback = "fallback"
)

type transitionJob struct {
	id     string
	from   *entity.Descriptor
	to     *entity.Descriptor
	target entity.Target
}

func (j transitionJob) toMenu() bool { return j.target == entity.TargetMenu }

func (j transitionJob) direction() entity.Direction {
	if j.from == nil {
		return entity.LeavingPrimary
	}
	return entity.LeavingDimension
}

// run 在 worker 上执行一次切换，任何错误或 panic 都在这里收口。
func (c *Coordinator) run(job transitionJob) {
	ctx := tracex.WithTransitionID(context.Background(), job.id)
	ctx, span := c.deps.Tracer.Start(ctx, "transition")
	span.SetAttributes(
		attribute.String("transition.id", job.id),
		attribute.String("transition.from", nameOf(job.from)),
		attribute.String("transition.target", targetName(job.target, job.to)),
	)
	defer span.End()

	err := c.pipelineSafe(ctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.fail(ctx, job, err)
	}
}

func (c *Coordinator) pipelineSafe(ctx context.Context, job transitionJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errx.ErrInternal.WithCause(fmt.Errorf("pipeline panic: %v", r)).WithData("phase", *c.phase.Load())
		}
	}()
	return c.pipeline(ctx, job)
}

func (c *Coordinator) pipeline(ctx context.Context, job transitionJob) error {
	dir := job.direction()
	outgoing := c.sessionOf(job.from)
	progress := c.progress.Load()
	world := c.deps.Host.PrimaryWorld()

	// 1. 快照
	end := c.enterPhase(ctx, PhaseSnapshot)
	c.bag.Bulk(func(s bag.Store) {
		if c.deps.Progress != nil {
			c.guard(ctx, "progress.snapshot", func() { c.deps.Progress.SnapshotProgressState(s) })
		}
	})
	c.copyOut(ctx, outgoing, dir)
	if outgoing != nil {
		c.guard(ctx, "session.on_exit", outgoing.OnExit)
	}
	end()

	// 2. 标记
	end = c.enterPhase(ctx, PhaseMarker)
	switch {
	case job.to != nil:
		c.deps.Markers.Write(ctx, world.UID, job.to)
	case job.target == entity.TargetPrimary:
		c.deps.Markers.Clear(ctx, world.UID)
	}
	end()

	// 3. 卸载
	end = c.enterPhase(ctx, PhaseUnload)
	c.guard(ctx, "host.release_ephemeral", c.deps.Host.ReleaseEphemeral)
	if outgoing != nil {
		c.guard(ctx, "session.on_unload", outgoing.OnUnload)
	}
	if err := c.saveOutgoing(ctx, job.from); err != nil {
		end()
		return err
	}
	end()

	if job.toMenu() {
		c.bag.Clear()
		c.deps.Foreground.Post(func() {
			end := c.enterPhase(ctx, PhaseFinalize)
			defer end()
			c.guard(ctx, "host.return_to_menu", c.deps.Host.ReturnToMenu)
			c.settle(SessionState{InMenu: true}, "menu")
		})
		return nil
	}

	// 4. 加载或生成
	if err := c.loadOrGenerate(ctx, job.to, progress); err != nil {
		return err
	}

	// 5. 恢复
	end = c.enterPhase(ctx, PhaseResume)
	incoming := c.sessionOf(job.to)
	if c.deps.Progress != nil {
		c.guard(ctx, "progress.restore", func() { c.deps.Progress.RestoreProgressState(c.bag) })
	}
	c.readIn(ctx, incoming, dir)
	c.bag.Clear()
	if incoming != nil {
		c.guard(ctx, "session.on_load", incoming.OnLoad)
		c.guard(ctx, "session.on_enter", incoming.OnEnter)
	}
	end()

	fin := Finalization{
		From:        job.from,
		To:          job.to,
		ResetPlayer: job.from != nil && job.from.ResetPlayerOnExit,
	}
	c.deps.Foreground.Post(func() {
		end := c.enterPhase(ctx, PhaseFinalize)
		defer end()
		c.guard(ctx, "host.finalize", func() { c.deps.Host.Finalize(fin) })
		c.settle(SessionState{Current: job.to, Cached: job.to}, "ok")
	})
	return nil
}

func (c *Coordinator) copyOut(ctx context.Context, outgoing entity.Session, dir entity.Direction) {
	if cp, ok := outgoing.(entity.Copier); ok {
		c.guard(ctx, "session.copy_out", func() { cp.CopyOut(dir, c.bag) })
	}
	for _, p := range c.deps.Participants {
		c.guard(ctx, "participant.copy_out", func() { p.CopyOut(dir, c.bag) })
	}
}

func (c *Coordinator) readIn(ctx context.Context, incoming entity.Session, dir entity.Direction) {
	if cp, ok := incoming.(entity.Copier); ok {
		c.guard(ctx, "session.read_in", func() { cp.ReadIn(dir, c.bag) })
	}
	for _, p := range c.deps.Participants {
		c.guard(ctx, "participant.read_in", func() { p.ReadIn(dir, c.bag) })
	}
}

// saveOutgoing 保存离开的世界：主世界总是保存，维度只有 ShouldPersist 才保存。
func (c *Coordinator) saveOutgoing(ctx context.Context, from *entity.Descriptor) error {
	if from == nil {
		return c.deps.IO.Save(ctx, c.deps.Host.PrimaryWorld().Path, c.deps.Host.PrimaryCodec())
	}
	if !from.ShouldPersist {
		return nil
	}
	return c.deps.IO.Save(ctx, c.DimensionPath(from), c.deps.Host.DimensionCodec(from))
}

func (c *Coordinator) loadOrGenerate(ctx context.Context, to *entity.Descriptor, progress *worldgen.Progress) error {
	c.deps.Host.ResetWorld(to)
	if to == nil {
		return c.load(ctx, c.deps.Host.PrimaryWorld().Path, c.deps.Host.PrimaryCodec(), progress)
	}

	path := c.DimensionPath(to)
	if to.ShouldPersist && c.deps.IO.Exists(path) {
		return c.load(ctx, path, c.deps.Host.DimensionCodec(to), progress)
	}

	end := c.enterPhase(ctx, PhaseGenerate)
	seed := worldgen.DeriveSeed(c.deps.Host.PrimaryWorld().Seed, to.FullName)
	err := c.deps.Runner.Run(ctx, to, seed, progress)
	end()
	if err != nil {
		return err
	}
	if to.ShouldPersist {
		return c.deps.IO.Save(ctx, path, c.deps.Host.DimensionCodec(to))
	}
	return nil
}

func (c *Coordinator) load(ctx context.Context, path string, codec worldio.Codec, progress *worldgen.Progress) error {
	end := c.enterPhase(ctx, PhaseLoad)
	defer end()
	progress.Reset()
	res, err := c.deps.IO.Load(ctx, path, codec)
	for i := 0; i < res.Attempts; i++ {
		result := "failed"
		if err == nil && i == res.Attempts-1 {
			result = "ok"
		}
		c.count(c.metricLoadAttempts(), result)
	}
	if err != nil {
		return err
	}
	progress.Set(1)
	if res.Rotated {
		c.log.WithContext(ctx).Warn("world loaded from backup", zap.String("path", path), zap.Int("attempts", res.Attempts))
	}
	return nil
}

// fail 把会话强制带到安全状态：目标是维度时先尝试回主世界，再不行就回菜单。
func (c *Coordinator) fail(ctx context.Context, job transitionJob, cause error) {
	logx.ReportSysErrorWithLoggerContext(ctx, c.log, logx.NewSysLog("transition.pipeline", cause),
		zap.String("from", nameOf(job.from)),
		zap.String("target", targetName(job.target, job.to)))
	c.bag.Clear()

	end := c.enterPhase(ctx, PhaseFallback)
	defer end()

	if job.to != nil {
		err := c.reloadPrimary(ctx)
		if err == nil {
			c.deps.Markers.Clear(ctx, c.deps.Host.PrimaryWorld().UID)
			fin := Finalization{From: job.from, Fallback: true}
			c.deps.Foreground.Post(func() {
				c.guard(ctx, "host.finalize", func() { c.deps.Host.Finalize(fin) })
				c.settle(SessionState{}, "fallback_primary")
			})
			return
		}
		logx.ReportSysErrorWithLoggerContext(ctx, c.log, logx.NewSysLog("transition.fallback_primary", err))
	}

	c.deps.Foreground.Post(func() {
		c.guard(ctx, "host.return_to_menu", c.deps.Host.ReturnToMenu)
		c.settle(SessionState{InMenu: true}, "fallback_menu")
	})
}

func (c *Coordinator) reloadPrimary(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errx.ErrInternal.WithCause(fmt.Errorf("primary reload panic: %v", r))
		}
	}()
	c.deps.Host.ResetWorld(nil)
	if err := c.load(ctx, c.deps.Host.PrimaryWorld().Path, c.deps.Host.PrimaryCodec(), c.progress.Load()); err != nil {
		return err
	}
	if s := c.deps.Primary; s != nil {
		c.guard(ctx, "session.on_load", s.OnLoad)
		c.guard(ctx, "session.on_enter", s.OnEnter)
	}
	return nil
}

// enterPhase 记录阶段名、span、耗时指标和阶段日志，返回结束函数。
func (c *Coordinator) enterPhase(ctx context.Context, phase string) func() {
	p := phase
	c.phase.Store(&p)
	begin := time.Now()
	ctx = tracex.WithPhase(ctx, phase)
	_, span := c.deps.Tracer.Start(ctx, "transition."+phase)
	return func() {
		span.End()
		if c.deps.Metrics != nil {
			c.deps.Metrics.PhaseSeconds.WithLabelValues(phase).Observe(time.Since(begin).Seconds())
		}
		logx.ReportPhaseWithLoggerContext(ctx, c.log, phase, begin)
	}
}

func (c *Coordinator) metricRequests() *prometheus.CounterVec {
	if c.deps.Metrics == nil {
		return nil
	}
	return c.deps.Metrics.Requests
}

func (c *Coordinator) metricCompleted() *prometheus.CounterVec {
	if c.deps.Metrics == nil {
		return nil
	}
	return c.deps.Metrics.Completed
}

func (c *Coordinator) metricLoadAttempts() *prometheus.CounterVec {
	if c.deps.Metrics == nil {
		return nil
	}
	return c.deps.Metrics.LoadAttempts
}

func (c *Coordinator) count(vec *prometheus.CounterVec, result string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(result).Inc()
}
