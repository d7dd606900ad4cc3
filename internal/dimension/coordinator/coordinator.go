package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"WorldShift/internal/dimension/bag"
	"WorldShift/internal/dimension/entity"
	"WorldShift/internal/dimension/marker"
	"WorldShift/internal/dimension/registry"
	"WorldShift/internal/dimension/worldgen"
	"WorldShift/internal/dimension/worldio"
	"WorldShift/internal/shared/metrics"
	"WorldShift/internal/shared/telemetry"
	"WorldShift/modules/kit/logx"
	"WorldShift/modules/kit/tracex"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SessionState 由协调器独占。Current 是正在运行的世界，Cached 是已提交的目标，
// nil 表示主世界；两者相等且没有待收尾的切换时为稳定状态，只有稳定状态才接受新的切换。
// Pending 覆盖 Current 和 Cached 相同的切换，例如从主世界回菜单。
type SessionState struct {
	Current *entity.Descriptor
	Cached  *entity.Descriptor
	InMenu  bool
	Pending bool
}

func (s SessionState) Settled() bool { return !s.Pending && s.Current == s.Cached }

// Deps 是协调器的依赖，Logger/Tracer/Metrics/Participants 等可以为空。
type Deps struct {
	Registry   *registry.Registry
	IO         *worldio.FileIO
	Runner     *worldgen.Runner
	Markers    *marker.Service
	Host       Host
	Progress   ProgressAdapter
	Scheduler  Scheduler
	Foreground Foreground

	// Root 是存档根目录，维度文件在 <Root>/<主世界UID>/<Mod>/<Name>.wld。
	Root         string
	Participants []entity.Copier
	// Primary 是主世界的会话钩子。
	Primary entity.Session

	Logger  logx.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Transition
	// IDs 生成切换编号，用于日志串联。
	IDs func() string

	Mode      NetMode
	Forwarder Forwarder
	// OnSettled 在每次回到稳定状态时于前台调用，服务端用它广播。
	OnSettled func(st SessionState)
}

// Coordinator 是世界切换状态机。
type Coordinator struct {
	deps Deps
	log  logx.Logger

	state      atomic.Pointer[SessionState]
	inFlight   atomic.Bool
	phase      atomic.Pointer[string]
	transition atomic.Pointer[string]
	progress   atomic.Pointer[worldgen.Progress]

	// 只在 worker 上使用
	bag *bag.Bag
}

func New(d Deps) (*Coordinator, error) {
	switch {
	case d.Registry == nil:
		return nil, errors.New("coordinator: registry is required")
	case d.IO == nil:
		return nil, errors.New("coordinator: world io is required")
	case d.Runner == nil:
		return nil, errors.New("coordinator: generation runner is required")
	case d.Markers == nil:
		return nil, errors.New("coordinator: marker service is required")
	case d.Host == nil:
		return nil, errors.New("coordinator: host is required")
	case d.Scheduler == nil:
		return nil, errors.New("coordinator: scheduler is required")
	case d.Foreground == nil:
		return nil, errors.New("coordinator: foreground queue is required")
	case d.Mode == Client && d.Forwarder == nil:
		return nil, errors.New("coordinator: client mode requires a forwarder")
	}
	if d.Tracer == nil {
		d.Tracer = telemetry.NoopTracer()
	}
	if d.IDs == nil {
		d.IDs = tracex.NewTraceID
	}

	c := &Coordinator{deps: d, log: logx.OrNop(d.Logger), bag: bag.New()}
	// 宿主加载主世界之前停在菜单。
	c.state.Store(&SessionState{InMenu: true})
	empty := ""
	c.phase.Store(&empty)
	c.transition.Store(&empty)
	c.progress.Store(worldgen.NewProgress())
	return c, nil
}

func (c *Coordinator) State() SessionState {
	return *c.state.Load()
}

func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

func (c *Coordinator) Mode() NetMode {
	return c.deps.Mode
}

// DimensionPath 是维度存档的路径。
func (c *Coordinator) DimensionPath(d *entity.Descriptor) string {
	return worldio.DimensionPath(c.deps.Root, c.deps.Host.PrimaryWorld().UID, d.FullName)
}

// RequestEnter 尝试切换到 target，被接受时立即返回 true，切换在后台进行。
// 客户端模式下请求会转给 relay，本地总是返回 false。
func (c *Coordinator) RequestEnter(target entity.Target) bool {
	ctx := context.Background()
	if c.deps.Mode == Client {
		return c.forward(ctx, target)
	}

	st := c.State()
	if st.InMenu {
		return c.reject(ctx, target, "in_menu")
	}
	if !st.Settled() {
		return c.reject(ctx, target, "not_settled")
	}

	var to *entity.Descriptor
	switch {
	case target == entity.TargetPrimary, target == entity.TargetMenu:
	case target.IsDimension():
		d, ok := c.deps.Registry.Resolve(target)
		if !ok {
			return c.reject(ctx, target, "unknown_target")
		}
		to = d
	default:
		return c.reject(ctx, target, "invalid_target")
	}
	if target != entity.TargetMenu && to == st.Current {
		return c.reject(ctx, target, "already_active")
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return c.reject(ctx, target, "in_flight")
	}

	job := transitionJob{id: c.deps.IDs(), from: st.Current, to: to, target: target}
	c.transition.Store(&job.id)
	c.progress.Store(worldgen.NewProgress())
	c.state.Store(&SessionState{Current: st.Current, Cached: to, Pending: true})

	if !c.deps.Scheduler.Schedule(func() { c.run(job) }) {
		c.state.Store(&st)
		c.inFlight.Store(false)
		return c.reject(ctx, target, "scheduler_closed")
	}
	c.count(c.metricRequests(), "accepted")
	c.log.Info("transition accepted",
		zap.String("transition_id", job.id),
		zap.String("from", nameOf(st.Current)),
		zap.String("target", targetName(target, to)))
	return true
}

// RequestEnterByName 按全名解析后进入。
func (c *Coordinator) RequestEnterByName(fullName string) bool {
	ctx := context.Background()
	if c.deps.Mode == Client {
		return c.forwardEnter(ctx, fullName)
	}
	d, ok := c.deps.Registry.ByName(fullName)
	if !ok {
		logx.ReportRejectWithLoggerContext(ctx, c.log, logx.NewRejectLog("transition.enter", "unknown_name", fullName))
		c.count(c.metricRequests(), "rejected")
		return false
	}
	return c.RequestEnter(entity.Target(d.ID))
}

// RequestExit 回到当前维度的 ReturnTarget，在主世界里返回 false。
func (c *Coordinator) RequestExit() bool {
	ctx := context.Background()
	if c.deps.Mode == Client {
		if err := c.deps.Forwarder.ForwardExit(ctx); err != nil {
			logx.ReportSysErrorWithLoggerContext(ctx, c.log, logx.NewSysLog("transition.forward_exit", err))
		}
		c.count(c.metricRequests(), "forwarded")
		return false
	}
	st := c.State()
	if !st.Settled() {
		return c.reject(ctx, entity.TargetPrimary, "not_settled")
	}
	if st.Current == nil {
		return c.reject(ctx, entity.TargetPrimary, "in_primary")
	}
	return c.RequestEnter(st.Current.ReturnTarget)
}

// PrimaryLoaded 由宿主在菜单里加载完主世界后调用，标记里有上次所在的维度时自动切回去。
// 不在菜单时忽略。返回是否安排了恢复切换。
func (c *Coordinator) PrimaryLoaded() bool {
	ctx := context.Background()
	if c.inFlight.Load() {
		c.log.Warn("primary loaded while a transition is in flight, ignored")
		return false
	}
	if st := c.State(); !st.InMenu {
		c.log.Warn("primary loaded outside the menu, ignored", zap.String("current", nameOf(st.Current)))
		return false
	}
	c.state.Store(&SessionState{})

	world := c.deps.Host.PrimaryWorld()
	d, ok := c.deps.Markers.Read(ctx, world.UID)
	if !ok {
		return false
	}
	c.log.Info("resuming interrupted session",
		zap.String("world_uid", world.UID), zap.String("dimension", d.FullName))
	return c.RequestEnter(entity.Target(d.ID))
}

// Update 每个 tick 调用一次：先执行前台任务，再驱动当前会话。
func (c *Coordinator) Update() {
	c.deps.Foreground.Drain()
	st := c.State()
	if st.InMenu || !st.Settled() || c.inFlight.Load() {
		return
	}
	if s := c.sessionOf(st.Current); s != nil {
		c.guard(context.Background(), "session.update", s.Update)
	}
}

// Status 返回给 UI 和管理接口的快照。
func (c *Coordinator) Status() entity.Status {
	st := c.State()
	p := c.progress.Load()
	return entity.Status{
		Current:    nameOf(st.Current),
		Cached:     nameOf(st.Cached),
		InMenu:     st.InMenu,
		Settled:    st.Settled() && !c.inFlight.Load(),
		InFlight:   c.inFlight.Load(),
		Phase:      *c.phase.Load(),
		Progress:   p.Value(),
		Message:    p.Message(),
		Transition: *c.transition.Load(),
	}
}

func (c *Coordinator) forward(ctx context.Context, target entity.Target) bool {
	switch {
	case target == entity.TargetPrimary:
		if err := c.deps.Forwarder.ForwardExit(ctx); err != nil {
			logx.ReportSysErrorWithLoggerContext(ctx, c.log, logx.NewSysLog("transition.forward_exit", err))
		}
		c.count(c.metricRequests(), "forwarded")
		return false
	case target.IsDimension():
		d, ok := c.deps.Registry.Resolve(target)
		if !ok {
			return c.reject(ctx, target, "unknown_target")
		}
		return c.forwardEnter(ctx, d.FullName)
	}
	return c.reject(ctx, target, "not_forwardable")
}

func (c *Coordinator) forwardEnter(ctx context.Context, fullName string) bool {
	if err := c.deps.Forwarder.ForwardEnter(ctx, fullName); err != nil {
		logx.ReportSysErrorWithLoggerContext(ctx, c.log, logx.NewSysLog("transition.forward_enter", err),
			zap.String("dimension", fullName))
	}
	c.count(c.metricRequests(), "forwarded")
	return false
}

func (c *Coordinator) reject(ctx context.Context, target entity.Target, reason string) bool {
	logx.ReportRejectWithLoggerContext(ctx, c.log, logx.NewRejectLog("transition.enter", reason, target.String()))
	c.count(c.metricRequests(), "rejected")
	return false
}

// settle 在前台调用，回到稳定状态。
func (c *Coordinator) settle(st SessionState, result string) {
	c.state.Store(&st)
	empty := ""
	c.phase.Store(&empty)
	c.inFlight.Store(false)
	c.count(c.metricCompleted(), result)
	if c.deps.OnSettled != nil {
		c.guard(context.Background(), "on_settled", func() { c.deps.OnSettled(st) })
	}
}

func (c *Coordinator) sessionOf(d *entity.Descriptor) entity.Session {
	if d == nil {
		return c.deps.Primary
	}
	return d.Session
}

// guard 执行外部钩子，panic 记日志后继续。
func (c *Coordinator) guard(ctx context.Context, action string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logx.ReportSysErrorWithLoggerContext(ctx, c.log,
				logx.NewSysLog(action, fmt.Errorf("hook panic: %v", r)))
		}
	}()
	fn()
}

func nameOf(d *entity.Descriptor) string {
	if d == nil {
		return ""
	}
	return d.FullName
}

func targetName(t entity.Target, d *entity.Descriptor) string {
	if d != nil {
		return d.FullName
	}
	return t.String()
}
