package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dash-service/canbus"
	"dash-service/catalog"
	"dash-service/obd"
	"dash-service/vehicle"

	"github.com/go-redis/redis/v8"
)

const mirrorInterval = 33 * time.Millisecond

type DashboardApp struct {
	log       *LeveledLogger
	cfg       *Config
	redis     *redis.Client
	catalog   *catalog.Catalog
	link      canbus.ReceiveLink
	bus       *vehicle.EventBus
	engine    *vehicle.StateEngine
	smoother  *vehicle.Smoother
	pipeline  *vehicle.Pipeline
	scheduler *obd.Scheduler
	ipcTx     *IPCTx
	diag      *Diag
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewDashboardApp(opts *Options) (*DashboardApp, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &DashboardApp{
		log: NewLeveledLogger(
			log.New(log.Writer(), fmt.Sprintf("%s: ", ProjectName), log.LstdFlags),
			opts.LogLevel),
		ctx:    ctx,
		cancel: cancel,
	}

	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		cancel()
		return nil, err
	}
	if opts.Device != "" {
		cfg.Device = opts.Device
	}
	if opts.RedisServerAddr != "" {
		cfg.Redis.Addr = opts.RedisServerAddr
	}
	if opts.RedisServerPort != 0 {
		cfg.Redis.Port = opts.RedisServerPort
	}
	app.cfg = cfg

	// Initialize Redis client with timeouts
	app.redis = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Addr, cfg.Redis.Port),
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	defer connectCancel()

	app.log.Info("Connecting to Redis at %s:%d...", cfg.Redis.Addr, cfg.Redis.Port)

	if err := app.redis.Ping(connectCtx).Err(); err != nil {
		app.Destroy()
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}
	app.log.Info("Successfully connected to Redis")

	app.catalog, err = catalog.Load(cfg.Catalog, app.log)
	if err != nil {
		app.Destroy()
		return nil, fmt.Errorf("failed to load signal catalog: %v", err)
	}
	app.log.Info("Signal catalog loaded: %d messages from %s", app.catalog.Messages(), cfg.Catalog)

	app.ipcTx = NewIPCTx(app.log, app.redis)
	app.diag = NewDiag(app.log, app.redis)

	app.bus = vehicle.NewEventBus()
	app.engine = vehicle.NewStateEngine(app.bus)
	app.smoother = vehicle.NewSmoother(cfg.AlphaMap())
	app.pipeline = vehicle.NewPipeline(app.log, app.catalog, app.bus, app.engine, app.smoother, cfg.ChannelMap())

	app.link, err = openLink(cfg, app.log)
	if err != nil {
		app.Destroy()
		return nil, err
	}
	app.log.Info("Bus link open on %s", cfg.Device)

	app.scheduler = obd.NewScheduler(app.log, app.link, app.bus, app.smoother, obd.Config{
		Interval:   time.Duration(cfg.Poll.IntervalMs) * time.Millisecond,
		Timeout:    time.Duration(cfg.Poll.TimeoutMs) * time.Millisecond,
		StaleAfter: cfg.Poll.StaleAfter,
		Parameters: cfg.PollParameters(),
		OnStale:    app.diag.SetParameterStale,
	})
	for _, id := range app.scheduler.ResponseIDs() {
		app.pipeline.Route(id, app.scheduler.HandleResponse)
	}

	go app.receiveLoop()
	go app.scheduler.Run(ctx)
	go app.mirrorLoop()
	go app.redisHealthCheck()

	return app, nil
}

// openLink picks the transport: a device path means a serial slcan
// adapter, anything else is treated as a SocketCAN interface name.
func openLink(cfg *Config, logger canbus.Logger) (canbus.ReceiveLink, error) {
	if strings.HasPrefix(cfg.Device, "/dev/") {
		return canbus.OpenSerial(canbus.SerialConfig{
			Device:  cfg.Device,
			Baud:    cfg.SerialBaud,
			Bitrate: cfg.Bitrate,
		}, logger)
	}
	return canbus.OpenSocket(cfg.Device, logger)
}

func (app *DashboardApp) receiveLoop() {
	err := app.link.ReceiveLoop(app.ctx, app.pipeline.HandleFrame)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	app.log.Error("Bus link failed: %v", err)
	app.diag.ReportLinkDown(app.cfg.Device, err)
}

// mirrorLoop pushes event bus snapshots to Redis at roughly 30 Hz,
// decoupling IPC latency from the frame hot path.
func (app *DashboardApp) mirrorLoop() {
	ticker := time.NewTicker(mirrorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			if err := app.ipcTx.SendSnapshot(app.bus.Snapshot()); err != nil {
				app.log.Warn("Failed to mirror snapshot: %v", err)
			}
		}
	}
}

func (app *DashboardApp) redisHealthCheck() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(app.ctx, 2*time.Second)
			if err := app.redis.Ping(ctx).Err(); err != nil {
				app.log.Warn("Redis health check failed: %v", err)
			}
			cancel()
		}
	}
}

func (app *DashboardApp) Destroy() {
	app.log.Info("Shutting down dashboard application...")

	if app.cancel != nil {
		app.cancel()
	}

	if app.link != nil {
		if err := app.link.Close(); err != nil {
			app.log.Warn("Error closing bus link: %v", err)
		} else {
			app.log.Info("Bus link closed")
		}
	}

	if app.diag != nil {
		app.diag.Destroy()
	}

	if app.ipcTx != nil {
		app.ipcTx.Destroy()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.log.Warn("Error closing Redis connection: %v", err)
		} else {
			app.log.Info("Redis connection closed")
		}
	}

	app.log.Info("Dashboard application shutdown complete")
}
