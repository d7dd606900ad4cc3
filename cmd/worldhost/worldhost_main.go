package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	nethttp "net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"WorldShift/internal/dimension/actors"
	"WorldShift/internal/dimension/coordinator"
	"WorldShift/internal/dimension/entity"
	adminhttp "WorldShift/internal/dimension/interfaces/handler/http"
	"WorldShift/internal/dimension/marker"
	"WorldShift/internal/dimension/registry"
	"WorldShift/internal/dimension/relay"
	"WorldShift/internal/dimension/worldgen"
	"WorldShift/internal/dimension/worldio"
	"WorldShift/internal/shared/hostconfig"
	"WorldShift/internal/shared/logs"
	"WorldShift/internal/shared/metrics"
	"WorldShift/internal/shared/security"
	"WorldShift/internal/shared/telemetry"
	transporthttp "WorldShift/internal/shared/transport/http"
	"WorldShift/internal/shared/utils"
	"WorldShift/internal/worldhost"
	"WorldShift/modules/kit/logx"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	appName       = "worldhost"
	appVersion    = "0.1.0"
	primaryWidth  = 256
	primaryHeight = 128
)

func main() {
	cfgPath := flag.String("config", "", "path to conf.yml (default: search configs/conf.yml upward)")
	flag.Parse()

	watched, err := hostconfig.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	conf := watched.Get().Normalize()
	if err := logs.Init(appName, conf.Log); err != nil {
		panic(err)
	}
	defer logs.Sync()
	logs.Info("conf", zap.Any("conf", conf))

	baseLogger := logx.NewZapLogger(logs.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer := telemetry.NoopTracer()
	if conf.Telemetry.Enabled {
		service := conf.Telemetry.Service
		if service == "" {
			service = appName
		}
		shutdown, err := telemetry.Setup(ctx, service, appVersion)
		if err != nil {
			logs.Fatal("telemetry setup failed", zap.Error(err))
		}
		defer func() { _ = shutdown(context.Background()) }()
		tracer = telemetry.Tracer("coordinator")
	}

	mode, err := coordinator.ParseNetMode(conf.Relay.Mode)
	if err != nil {
		logs.Fatal("bad relay mode", zap.Error(err))
	}

	fsys := afero.NewOsFs()
	fio := worldio.New(fsys, baseLogger)

	player := worldhost.NewPlayer()
	achievements := worldhost.NewAchievements()
	primaryPath := conf.Storage.PrimaryWorld
	if primaryPath == "" {
		primaryPath = conf.Storage.Root + "/primary" + worldio.WorldExt
	}
	host := worldhost.NewHost(entity.WorldInfo{Path: primaryPath}, primaryWidth, primaryHeight, player, baseLogger)

	reg := registry.New()
	if conf.Storage.Manifest != "" {
		ds, err := reg.LoadManifestFile(fsys, conf.Storage.Manifest, host.Catalog(player, achievements))
		if err != nil {
			logs.Fatal("load dimension manifest failed", zap.Error(err))
		}
		logs.Info("dimensions registered", zap.Int("count", len(ds)))
	}
	reg.Freeze()

	markerStore, closeStore, err := openMarkerStore(ctx, conf, fsys)
	if err != nil {
		logs.Fatal("open marker store failed", zap.String("backend", conf.Marker.Backend), zap.Error(err))
	}
	defer closeStore()

	ids, err := utils.NewSnowflake(conf.NodeID)
	if err != nil {
		logs.Fatal("snowflake init failed", zap.Error(err))
	}

	var scheduler coordinator.Scheduler = coordinator.InlineScheduler{}
	if conf.Worker.Scheduler == "actor" {
		s := actors.NewScheduler(baseLogger)
		defer s.Shutdown()
		scheduler = s
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if !conf.Log.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	var relayServer *relay.Server
	var relayClient *relay.Client
	var coord *coordinator.Coordinator

	deps := coordinator.Deps{
		Registry:     reg,
		IO:           fio,
		Runner:       worldgen.NewRunner(baseLogger, nil),
		Markers:      marker.NewService(markerStore, reg, baseLogger),
		Host:         host,
		Progress:     achievements,
		Scheduler:    scheduler,
		Foreground:   coordinator.NewQueue(),
		Root:         conf.Storage.Root,
		Participants: []entity.Copier{player},
		Logger:       baseLogger,
		Tracer:       tracer,
		Metrics:      metrics.NewTransition(promReg),
		IDs:          ids.NextString,
		Mode:         mode,
	}

	switch mode {
	case coordinator.Server:
		deps.OnSettled = func(st coordinator.SessionState) {
			relayServer.BroadcastSettled(relay.Settled(st))
		}
	case coordinator.Client:
		token, err := security.Award(conf.Relay.JWTSecret, conf.Relay.PeerID, 24*time.Hour)
		if err != nil {
			logs.Fatal("relay token failed", zap.Error(err))
		}
		url := fmt.Sprintf("ws://%s%s", conf.Relay.Addr, conf.Relay.Path)
		relayClient, err = relay.Dial(ctx, url, token, func(msg relay.SettledMsg) {
			logs.Info("relay settled", zap.String("current", msg.Current), zap.Bool("in_menu", msg.InMenu))
		}, baseLogger)
		if err != nil {
			logs.Fatal("relay dial failed", zap.String("url", url), zap.Error(err))
		}
		defer relayClient.Close()
		deps.Forwarder = relayClient
	}

	coord, err = coordinator.New(deps)
	if err != nil {
		logs.Fatal("coordinator init failed", zap.Error(err))
	}
	if mode == coordinator.Server {
		relayServer = relay.NewServer(coord, conf.Relay.JWTSecret, baseLogger)
		engine.GET(conf.Relay.Path, gin.WrapH(relayServer.Handler()))
	}

	adminAddr := fmt.Sprintf("%s:%d", conf.Admin.Host, conf.Admin.Port)
	httpServer := transporthttp.NewHttpServer(adminAddr, engine, baseLogger)
	adminhttp.NewHttpHandler(coord, reg).RegisterRoutes(engine.Group("/admin"))
	adminhttp.RegisterMetrics(engine, promReg)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("admin server start failed: %w", err)
			return
		}
		errCh <- nil
	}()

	created, err := host.OpenPrimary(ctx, fio, "primary", time.Now().UnixNano())
	if err != nil {
		logs.Fatal("open primary world failed", zap.String("path", primaryPath), zap.Error(err))
	}
	world := host.PrimaryWorld()
	logs.Info("primary world ready", zap.String("uid", world.UID), zap.Bool("created", created))
	if coord.PrimaryLoaded() {
		logs.Info("resuming last dimension")
	}

	var tick atomic.Int64
	tick.Store(int64(conf.Storage.TickMillis))
	watched.OnChange(func(c hostconfig.Config) {
		c = c.Normalize()
		logs.SetLevel(c.Log.Level)
		tick.Store(int64(c.Storage.TickMillis))
		logs.Info("config reloaded", zap.String("level", c.Log.Level), zap.Int("tick_millis", c.Storage.TickMillis))
	})

	runTicks(ctx, coord, &tick, errCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

// runTicks 是前台循环：每个 tick 调一次 coord.Update，直到收到退出信号。
func runTicks(ctx context.Context, coord *coordinator.Coordinator, tick *atomic.Int64, errCh <-chan error) {
	current := time.Duration(tick.Load()) * time.Millisecond
	ticker := time.NewTicker(current)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logs.Info("收到退出信号，准备优雅退出")
			return
		case err := <-errCh:
			if err != nil {
				logs.Error("服务异常退出", zap.Error(err))
			}
			return
		case <-ticker.C:
			coord.Update()
			if d := time.Duration(tick.Load()) * time.Millisecond; d != current {
				current = d
				ticker.Reset(d)
			}
		}
	}
}
