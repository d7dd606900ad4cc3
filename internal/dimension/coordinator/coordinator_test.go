package coordinator

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"WorldShift/internal/dimension/bag"
	"WorldShift/internal/dimension/entity"
	"WorldShift/internal/dimension/infra/persistence/memory"
	"WorldShift/internal/dimension/marker"
	"WorldShift/internal/dimension/registry"
	"WorldShift/internal/dimension/worldgen"
	"WorldShift/internal/dimension/worldio"

	"github.com/spf13/afero"
)

const (
	testRoot    = "data/worlds"
	testPrimary = "data/worlds/w1.wld"
	testSeed    = int64(42)
)

// fakeCodec 把内容以 "bad" 开头的文件当作损坏。
type fakeCodec struct {
	name string
	host *fakeHost
}

func (c *fakeCodec) ReadFile(r io.Reader) int {
	raw, err := io.ReadAll(r)
	if err != nil || strings.HasPrefix(string(raw), "bad") {
		return 1
	}
	if c.name == "primary" && c.host.failPrimary {
		return 1
	}
	c.host.mu.Lock()
	c.host.loaded = append(c.host.loaded, c.name)
	c.host.mu.Unlock()
	return 0
}

func (c *fakeCodec) WriteFile(w io.Writer) error {
	_, err := io.WriteString(w, "world:"+c.name)
	return err
}

type fakeHost struct {
	mu          sync.Mutex
	failPrimary bool
	loaded      []string
	resets      []string
	finalized   []Finalization
	menus       int
	released    int
}

func (h *fakeHost) PrimaryWorld() entity.WorldInfo {
	return entity.WorldInfo{UID: "w1", Name: "test", Seed: testSeed, Path: testPrimary}
}

func (h *fakeHost) PrimaryCodec() worldio.Codec { return &fakeCodec{name: "primary", host: h} }

func (h *fakeHost) DimensionCodec(d *entity.Descriptor) worldio.Codec {
	return &fakeCodec{name: d.FullName, host: h}
}

func (h *fakeHost) ResetWorld(d *entity.Descriptor) {
	name := "primary"
	if d != nil {
		name = d.FullName
	}
	h.resets = append(h.resets, name)
}

func (h *fakeHost) ReleaseEphemeral()       { h.released++ }
func (h *fakeHost) Finalize(f Finalization) { h.finalized = append(h.finalized, f) }
func (h *fakeHost) ReturnToMenu()           { h.menus++ }

type recSession struct {
	entity.BaseSession
	events  []string
	panicOn string
}

func (s *recSession) hit(ev string) {
	s.events = append(s.events, ev)
	if ev == s.panicOn {
		panic("hook " + ev)
	}
}

func (s *recSession) OnEnter()  { s.hit("enter") }
func (s *recSession) OnExit()   { s.hit("exit") }
func (s *recSession) OnLoad()   { s.hit("load") }
func (s *recSession) OnUnload() { s.hit("unload") }
func (s *recSession) Update()   { s.hit("update") }

var (
	hpKey    = bag.NewKey[int]("test", "hp")
	killsKey = bag.NewKey[int]("test", "kills")
)

type hpParticipant struct {
	hp       int
	got      int
	dirs     []entity.Direction
	killsPut bool
}

func (p *hpParticipant) CopyOut(dir entity.Direction, s bag.Store) {
	p.dirs = append(p.dirs, dir)
	hpKey.Put(s, p.hp)
	p.killsPut = killsKey.Put(s, 99)
}

func (p *hpParticipant) ReadIn(_ entity.Direction, s bag.Store) {
	if v, err := hpKey.Get(s); err == nil {
		p.got = v
	}
}

type killsAdapter struct{ restored int }

func (a *killsAdapter) SnapshotProgressState(s bag.Store) { killsKey.Put(s, 3) }
func (a *killsAdapter) RestoreProgressState(s bag.Store) {
	a.restored, _ = killsKey.Get(s)
}

type fakeForwarder struct {
	enters []string
	exits  int
}

func (f *fakeForwarder) ForwardEnter(_ context.Context, name string) error {
	f.enters = append(f.enters, name)
	return nil
}

func (f *fakeForwarder) ForwardExit(context.Context) error {
	f.exits++
	return nil
}

type env struct {
	fs      afero.Fs
	reg     *registry.Registry
	host    *fakeHost
	fg      *Queue
	store   *memory.MarkerStore
	markers *marker.Service
	coord   *Coordinator
	caves   *entity.Descriptor
	vault   *entity.Descriptor
	sky     *entity.Descriptor
	primary *recSession
	seeds   []int64
	genErr  error
}

func newEnv(t *testing.T, tweak func(d *Deps)) *env {
	t.Helper()
	e := &env{
		fs:      afero.NewMemMapFs(),
		reg:     registry.New(),
		host:    &fakeHost{},
		fg:      NewQueue(),
		store:   memory.NewMarkerStore(),
		primary: &recSession{},
	}
	if err := afero.WriteFile(e.fs, testPrimary, []byte("world:primary"), 0o644); err != nil {
		t.Fatalf("write primary: %v", err)
	}

	record := func(p entity.Progress, _ entity.PassConfig) error {
		e.seeds = append(e.seeds, p.Rand().Int63())
		return e.genErr
	}
	noop := func(entity.Progress, entity.PassConfig) error { return nil }
	e.caves = &entity.Descriptor{
		FullName:     "core/caves",
		Passes:       []entity.Pass{{Name: "terrain", Weight: 1, Apply: record}, {Name: "ores", Weight: 2, Apply: noop}},
		ReturnTarget: entity.TargetPrimary,
		Session:      &recSession{},
	}
	e.vault = &entity.Descriptor{
		FullName:          "core/vault",
		Passes:            []entity.Pass{{Name: "rooms", Weight: 1, Apply: noop}},
		ShouldPersist:     true,
		ResetPlayerOnExit: true,
		ReturnTarget:      entity.TargetMenu,
		Session:           &recSession{},
	}
	e.sky = &entity.Descriptor{
		FullName: "core/sky",
		Passes:   []entity.Pass{{Name: "clouds", Weight: 1, Apply: noop}},
	}
	for _, d := range []*entity.Descriptor{e.caves, e.vault, e.sky} {
		if _, err := e.reg.Register(d); err != nil {
			t.Fatalf("register %s: %v", d.FullName, err)
		}
	}
	e.reg.Freeze()

	e.markers = marker.NewService(e.store, e.reg, nil)
	deps := Deps{
		Registry:   e.reg,
		IO:         worldio.New(e.fs, nil),
		Runner:     worldgen.NewRunner(nil, nil),
		Markers:    e.markers,
		Host:       e.host,
		Scheduler:  InlineScheduler{},
		Foreground: e.fg,
		Root:       testRoot,
		Primary:    e.primary,
	}
	if tweak != nil {
		tweak(&deps)
	}
	c, err := New(deps)
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	e.coord = c
	return e
}

// enter 请求并跑完前台收尾。
func (e *env) enter(t *testing.T, target entity.Target) {
	t.Helper()
	if !e.coord.RequestEnter(target) {
		t.Fatalf("期望 RequestEnter(%v) 被接受", target)
	}
	e.fg.Drain()
}

func TestNew_缺少依赖(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatalf("期望缺少依赖时报错")
	}
}

func TestRequestEnter_菜单中拒绝(t *testing.T) {
	e := newEnv(t, nil)
	if !e.coord.State().InMenu {
		t.Fatalf("初始状态期望在菜单")
	}
	if e.coord.RequestEnter(entity.Target(e.caves.ID)) {
		t.Fatalf("菜单中期望拒绝")
	}
}

func TestRequestEnter_未稳定时拒绝且无副作用(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()

	if !e.coord.RequestEnter(entity.Target(e.caves.ID)) {
		t.Fatalf("期望第一次请求被接受")
	}
	// 收尾还在前台队列里
	if e.fg.Len() != 1 {
		t.Fatalf("期望 1 个待执行的前台任务, got=%d", e.fg.Len())
	}
	before := e.coord.State()
	if before.Settled() {
		t.Fatalf("收尾前期望未稳定, got=%+v", before)
	}
	st := e.coord.Status()
	if !st.InFlight || st.Cached != "core/caves" || st.Settled {
		t.Fatalf("状态快照不符合预期: %+v", st)
	}

	if e.coord.RequestEnter(entity.Target(e.sky.ID)) {
		t.Fatalf("未稳定时 RequestEnter 期望返回 false")
	}
	if e.coord.RequestExit() {
		t.Fatalf("未稳定时 RequestExit 期望返回 false")
	}
	if e.coord.State() != before || e.fg.Len() != 1 {
		t.Fatalf("被拒绝的请求不应改变状态")
	}

	e.fg.Drain()
	after := e.coord.State()
	if !after.Settled() || after.Current != e.caves || e.coord.InFlight() {
		t.Fatalf("期望稳定在 caves, got=%+v inflight=%v", after, e.coord.InFlight())
	}

	if !e.coord.RequestExit() {
		t.Fatalf("稳定后 RequestExit 期望被接受")
	}
	e.fg.Drain()
	if e.coord.State().Current != nil {
		t.Fatalf("期望回到主世界, got=%+v", e.coord.State())
	}
	if e.coord.RequestExit() {
		t.Fatalf("主世界里 RequestExit 期望返回 false")
	}
}

func TestRequestEnter_未知目标与重复目标(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()
	if e.coord.RequestEnter(entity.Target(99)) {
		t.Fatalf("未知下标期望拒绝")
	}
	if e.coord.RequestEnter(entity.Target(-5)) {
		t.Fatalf("非法哨兵期望拒绝")
	}
	if e.coord.RequestEnter(entity.TargetPrimary) {
		t.Fatalf("已经在主世界期望拒绝")
	}
	if e.coord.RequestEnterByName("nope/none") {
		t.Fatalf("未知名字期望拒绝")
	}
	if !e.coord.RequestEnterByName("core/caves") {
		t.Fatalf("按名字进入期望被接受")
	}
	e.fg.Drain()
	if e.coord.RequestEnter(entity.Target(e.caves.ID)) {
		t.Fatalf("已经在 caves 期望拒绝")
	}
}

func TestTransfer_状态跨切换搬运(t *testing.T) {
	p := &hpParticipant{hp: 7}
	a := &killsAdapter{}
	e := newEnv(t, func(d *Deps) {
		d.Participants = []entity.Copier{p}
		d.Progress = a
	})
	e.coord.PrimaryLoaded()
	e.enter(t, entity.Target(e.caves.ID))

	if p.got != 7 {
		t.Fatalf("期望 ReadIn 读到 7, got=%d", p.got)
	}
	if len(p.dirs) != 1 || p.dirs[0] != entity.LeavingPrimary {
		t.Fatalf("期望方向 LeavingPrimary, got=%v", p.dirs)
	}
	// 内置快照先写，参与方之后的同名写入被忽略
	if p.killsPut || a.restored != 3 {
		t.Fatalf("期望内置进度先写生效, killsPut=%v restored=%d", p.killsPut, a.restored)
	}
	if e.coord.bag.Len() != 0 {
		t.Fatalf("切换结束后 bag 期望为空, got=%d", e.coord.bag.Len())
	}
	if _, err := hpKey.Get(e.coord.bag); !errors.Is(err, bag.ErrKeyMissing) {
		t.Fatalf("Clear 后期望 ErrKeyMissing, got=%v", err)
	}

	e.enter(t, entity.TargetPrimary)
	if p.dirs[1] != entity.LeavingDimension {
		t.Fatalf("期望方向 LeavingDimension, got=%v", p.dirs)
	}
}

func TestSessionHooks_顺序与panic隔离(t *testing.T) {
	e := newEnv(t, nil)
	caves := e.caves.Session.(*recSession)
	caves.panicOn = "enter"
	e.coord.PrimaryLoaded()
	e.enter(t, entity.Target(e.caves.ID))

	if e.coord.State().Current != e.caves {
		t.Fatalf("钩子 panic 不应影响切换结果, got=%+v", e.coord.State())
	}
	if strings.Join(caves.events, ",") != "load,enter" {
		t.Fatalf("期望 load,enter, got=%v", caves.events)
	}
	if strings.Join(e.primary.events, ",") != "exit,unload" {
		t.Fatalf("期望主世界 exit,unload, got=%v", e.primary.events)
	}

	e.coord.Update()
	if caves.events[len(caves.events)-1] != "update" {
		t.Fatalf("Update 期望驱动当前会话, got=%v", caves.events)
	}
}

func TestPrimaryLoaded_按标记恢复(t *testing.T) {
	e := newEnv(t, nil)
	e.markers.Write(context.Background(), "w1", e.sky)

	if !e.coord.PrimaryLoaded() {
		t.Fatalf("期望安排恢复切换")
	}
	e.fg.Drain()
	if e.coord.State().Current != e.sky {
		t.Fatalf("期望恢复到 core/sky, got=%+v", e.coord.State())
	}
}

func TestPrimaryLoaded_没有标记(t *testing.T) {
	e := newEnv(t, nil)
	if e.coord.PrimaryLoaded() {
		t.Fatalf("没有标记期望不恢复")
	}
	st := e.coord.State()
	if st.InMenu || !st.Settled() || st.Current != nil {
		t.Fatalf("期望停在主世界, got=%+v", st)
	}
}

func TestPrimaryLoaded_只在菜单中生效(t *testing.T) {
	e := newEnv(t, nil)
	if e.coord.PrimaryLoaded() {
		t.Fatalf("没有标记期望不恢复")
	}
	e.enter(t, entity.Target(e.caves.ID))
	resets, primaryEvents := len(e.host.resets), len(e.primary.events)

	// caves 还在运行时再次调用：标记指向 caves，但不能把主世界当成离开的会话
	if e.coord.PrimaryLoaded() {
		t.Fatalf("不在菜单时期望忽略 PrimaryLoaded")
	}
	st := e.coord.State()
	if st.Current != e.caves || st.Cached != e.caves || !st.Settled() || e.coord.InFlight() {
		t.Fatalf("期望仍稳定在 caves, got=%+v inflight=%v", st, e.coord.InFlight())
	}
	if len(e.host.resets) != resets || e.fg.Len() != 0 {
		t.Fatalf("被忽略的调用不应触发切换, resets=%v queued=%d", e.host.resets, e.fg.Len())
	}
	if len(e.primary.events) != primaryEvents {
		t.Fatalf("主世界钩子不应在 caves 运行时被调用, got=%v", e.primary.events)
	}
	if d, ok := e.markers.Read(context.Background(), "w1"); !ok || d != e.caves {
		t.Fatalf("期望标记仍指向 caves, got=%v ok=%v", d, ok)
	}
}

func TestMarker_进入写入返回清除(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()
	e.enter(t, entity.Target(e.caves.ID))

	d, ok := e.markers.Read(context.Background(), "w1")
	if !ok || d != e.caves {
		t.Fatalf("进入维度后期望标记指向 caves, got=%v ok=%v", d, ok)
	}
	e.enter(t, entity.TargetPrimary)
	if _, ok := e.markers.Read(context.Background(), "w1"); ok {
		t.Fatalf("回到主世界后期望标记被清除")
	}
}

func TestGenerate_种子由主世界派生(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()
	e.enter(t, entity.Target(e.caves.ID))

	want := rand.New(rand.NewSource(worldgen.DeriveSeed(testSeed, "core/caves"))).Int63()
	if len(e.seeds) != 1 || e.seeds[0] != want {
		t.Fatalf("期望第一个随机数 %d, got=%v", want, e.seeds)
	}
	if got := e.coord.Status().Progress; got != 1 {
		t.Fatalf("生成结束期望进度为 1, got=%v", got)
	}
}

func TestPersist_生成后保存再次进入时加载(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()
	path := e.coord.DimensionPath(e.vault)
	if path != "data/worlds/w1/core/vault.wld" {
		t.Fatalf("维度路径不符合预期: %s", path)
	}

	e.enter(t, entity.Target(e.vault.ID))
	if ok, _ := afero.Exists(e.fs, path); !ok {
		t.Fatalf("持久化维度生成后期望保存到 %s", path)
	}

	e.enter(t, entity.TargetPrimary)
	last := e.host.finalized[len(e.host.finalized)-1]
	if !last.ResetPlayer || last.From != e.vault {
		t.Fatalf("离开 vault 期望重置玩家, got=%+v", last)
	}

	e.host.loaded = nil
	e.enter(t, entity.Target(e.vault.ID))
	if len(e.host.loaded) != 1 || e.host.loaded[0] != "core/vault" {
		t.Fatalf("第二次进入期望从文件加载, got=%v", e.host.loaded)
	}
}

func TestFallback_维度加载失败回主世界(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()
	path := e.coord.DimensionPath(e.vault)
	if err := afero.WriteFile(e.fs, path, []byte("bad-vault"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !e.coord.RequestEnter(entity.Target(e.vault.ID)) {
		t.Fatalf("期望请求被接受")
	}
	e.fg.Drain()

	st := e.coord.State()
	if st.InMenu || st.Current != nil || !st.Settled() || e.coord.InFlight() {
		t.Fatalf("期望回退到主世界, got=%+v", st)
	}
	last := e.host.finalized[len(e.host.finalized)-1]
	if !last.Fallback {
		t.Fatalf("期望以回退方式收尾, got=%+v", last)
	}
	if _, ok := e.markers.Read(context.Background(), "w1"); ok {
		t.Fatalf("回退后期望标记被清除")
	}
	if e.coord.bag.Len() != 0 {
		t.Fatalf("回退后 bag 期望为空")
	}
}

func TestFallback_主世界也失败回菜单(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()
	e.genErr = errors.New("terrain exploded")
	e.host.failPrimary = true

	if !e.coord.RequestEnter(entity.Target(e.caves.ID)) {
		t.Fatalf("期望请求被接受")
	}
	e.fg.Drain()

	st := e.coord.State()
	if !st.InMenu || st.Current != nil || e.coord.InFlight() {
		t.Fatalf("期望回到菜单, got=%+v", st)
	}
	if e.host.menus != 1 {
		t.Fatalf("期望调用一次 ReturnToMenu, got=%d", e.host.menus)
	}
	if e.coord.RequestEnter(entity.Target(e.sky.ID)) {
		t.Fatalf("菜单中期望拒绝")
	}
}

func TestFallback_pipeline_panic(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()
	e.caves.Passes[1].Apply = func(entity.Progress, entity.PassConfig) error { panic("boom") }

	e.enter(t, entity.Target(e.caves.ID))
	if st := e.coord.State(); st.Current != nil || st.InMenu {
		t.Fatalf("期望回退到主世界, got=%+v", st)
	}
}

func TestRequestEnter_回菜单(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()
	e.enter(t, entity.Target(e.vault.ID))

	// vault 的 ReturnTarget 是菜单
	if !e.coord.RequestExit() {
		t.Fatalf("期望 RequestExit 被接受")
	}
	e.fg.Drain()
	st := e.coord.State()
	if !st.InMenu || e.host.menus != 1 {
		t.Fatalf("期望回到菜单, got=%+v menus=%d", st, e.host.menus)
	}
	// 回菜单不动标记，下次加载主世界时恢复
	if d, ok := e.markers.Read(context.Background(), "w1"); !ok || d != e.vault {
		t.Fatalf("回菜单后期望标记仍指向 vault, got=%v ok=%v", d, ok)
	}
	if !e.coord.PrimaryLoaded() {
		t.Fatalf("期望再次加载主世界时恢复")
	}
	e.fg.Drain()
	if e.coord.State().Current != e.vault {
		t.Fatalf("期望恢复到 vault, got=%+v", e.coord.State())
	}
}

func TestRequestEnter_主世界回菜单期间未稳定(t *testing.T) {
	e := newEnv(t, nil)
	e.coord.PrimaryLoaded()

	if !e.coord.RequestEnter(entity.TargetMenu) {
		t.Fatalf("期望回菜单请求被接受")
	}
	// Current 和 Cached 都是主世界，但收尾还没执行
	st := e.coord.State()
	if st.Settled() || !st.Pending || st.Current != nil || st.Cached != nil {
		t.Fatalf("收尾前期望未稳定, got=%+v", st)
	}
	if e.coord.Status().Settled {
		t.Fatalf("状态快照期望未稳定")
	}
	if e.coord.RequestEnter(entity.Target(e.caves.ID)) {
		t.Fatalf("未稳定时期望拒绝")
	}

	e.fg.Drain()
	st = e.coord.State()
	if !st.InMenu || !st.Settled() || st.Pending || e.coord.InFlight() {
		t.Fatalf("期望稳定在菜单, got=%+v", st)
	}
}

func TestClientMode_转发(t *testing.T) {
	fw := &fakeForwarder{}
	e := newEnv(t, func(d *Deps) {
		d.Mode = Client
		d.Forwarder = fw
	})
	e.coord.PrimaryLoaded()

	if e.coord.RequestEnterByName("core/caves") {
		t.Fatalf("客户端模式期望返回 false")
	}
	if e.coord.RequestEnter(entity.Target(e.sky.ID)) {
		t.Fatalf("客户端模式期望返回 false")
	}
	if e.coord.RequestExit() {
		t.Fatalf("客户端模式期望返回 false")
	}
	if strings.Join(fw.enters, ",") != "core/caves,core/sky" || fw.exits != 1 {
		t.Fatalf("转发记录不符合预期: %+v", fw)
	}
	if e.coord.InFlight() || e.fg.Len() != 0 {
		t.Fatalf("客户端模式不应在本地切换")
	}
}

func TestOnSettled_回调(t *testing.T) {
	var got []SessionState
	e := newEnv(t, func(d *Deps) {
		d.OnSettled = func(st SessionState) { got = append(got, st) }
	})
	e.coord.PrimaryLoaded()
	e.enter(t, entity.Target(e.sky.ID))
	if len(got) != 1 || got[0].Current != e.sky {
		t.Fatalf("期望一次稳定回调指向 sky, got=%+v", got)
	}
}

func TestParseNetMode(t *testing.T) {
	for in, want := range map[string]NetMode{"": Standalone, "server": Server, "CLIENT": Client} {
		got, err := ParseNetMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseNetMode(%q) 期望 %v, got=%v err=%v", in, want, got, err)
		}
	}
	if _, err := ParseNetMode("p2p"); err == nil {
		t.Fatalf("未知模式期望报错")
	}
}
