// cfclient - Crossfire client core
//
// cfclient connects to a Crossfire server, runs the protocol handshake and
// keeps a model of the played character up to date. A debug REST API, an
// interactive CLI, a SQLite packet journal and MQTT telemetry expose the
// session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cfclient-project/cfclient/internal/api"
	"github.com/cfclient-project/cfclient/internal/cli"
	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/connector"
	"github.com/cfclient-project/cfclient/internal/db"
	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/health"
	"github.com/cfclient-project/cfclient/internal/model"
	"github.com/cfclient-project/cfclient/internal/protocol"
	"github.com/cfclient-project/cfclient/internal/scheduler"
	"github.com/cfclient-project/cfclient/internal/telemetry"
	"github.com/cfclient-project/cfclient/internal/util"
)

const (
	AppName    = "cfclient"
	AppVersion = "1.0.0"
	Banner     = `
        __      _ _            _
   ___ / _| ___| (_) ___ _ __ | |_
  / __| |_ / __| | |/ _ \ '_ \| __|
 | (__|  _| (__| | |  __/ | | | |_
  \___|_|  \___|_|_|\___|_| |_|\__|
                             v%s
 Crossfire client core
`
)

func main() {
	fmt.Printf(Banner, AppVersion)
	fmt.Println()

	// Initialize logger with defaults first (reconfigured after config load)
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cs_protocol", protocol.ClientProtocolVersion).
		Int("sc_protocol", protocol.ServerProtocolVersion).
		Msg("starting cfclient")

	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging := cfg.GetApplicationData().Logging
	logCfg := util.LogConfig{
		Level:      logging.Level,
		Directory:  logging.Directory,
		MaxSizeMB:  logging.MaxSizeMB,
		MaxBackups: logging.MaxBackups,
		Console:    true,
	}
	if err := util.InitLogger(logCfg); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}

		if cfg.IsFirstRun() {
			log.Info().Msg("first run detected, launching setup wizard")
			if err := config.RunSetupWizard(cfg); err != nil {
				log.Fatal().Err(err).Msg("setup wizard failed")
			}
		} else {
			log.Fatal().Msg("configuration validation failed, please fix the errors above")
		}
	}

	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("cpu", sysInfo.CPUModel).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("system information")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core components
	eventBus := events.NewEventBus()

	characterModel, err := model.New(cfg.GetClient().FaceCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create client model")
	}

	conn := connector.NewServerConnector(cfg, characterModel, eventBus)
	connector.NewAutoLogin(conn, cfg.GetServer()).Register(eventBus)

	// Packet journal and character rosters
	appData := cfg.GetApplicationData()
	var (
		database *db.Database
		capture  *db.CaptureStore
		roster   *db.RosterStore
		pruner   scheduler.Pruner
	)
	if appData.Capture.Enabled {
		database, err = db.NewDatabase(appData.Capture.DatabasePath)
		if err != nil {
			log.Warn().Err(err).Msg("failed to open capture database, capture disabled")
		} else {
			capture = db.NewCaptureStore(database, appData.Capture.MaxArgBytes)
			roster = db.NewRosterStore(database)
			pruner = capture
			eventBus.Subscribe(events.EventRawPacket, "capture", capture.OnRawPacket)
			eventBus.Subscribe(events.EventAccount, "roster", roster.OnAccount)
		}
	}

	var mqttHandler *telemetry.MQTTHandler
	if appData.MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg, eventBus)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
			mqttHandler = nil
		}
	}

	healthMgr := health.NewManager(cfg, conn)

	sched := scheduler.NewScheduler(cfg, conn, pruner)
	if mqttHandler != nil {
		sched.OnSnapshot(func(s scheduler.StatsSnapshot) { mqttHandler.PublishStats(s) })
	}

	var apiServer *api.Server
	if appData.API.Enabled {
		apiServer = api.NewServer(cfg, conn)
		apiServer.SetDependencies(capture, roster, healthMgr, sched)
	}

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	cliHandler := cli.NewCLI(cfg, conn, func() { quitOnce.Do(func() { close(quitCh) }) })
	cliHandler.SetDependencies(capture, roster)

	// ---------------------------------------------------------------
	// Launch concurrent tasks
	// ---------------------------------------------------------------
	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	closedCh := make(chan struct{})

	// Task 1: server connection. The handshake runs on the transport's
	// read goroutine; this task only waits for the socket to close.
	wg.Add(1)
	go func() {
		defer wg.Done()
		srv := cfg.GetServer()
		log.Info().Str("host", srv.Host).Int("port", srv.Port).Msg("connecting to server")
		if err := conn.Connect(ctx, srv.Host, srv.Port); err != nil {
			errCh <- fmt.Errorf("server connection: %w", err)
			return
		}
		stopped := conn.Transport().Stopped()
		if stopped == nil {
			close(closedCh)
			return
		}
		select {
		case <-stopped:
			close(closedCh)
		case <-ctx.Done():
			conn.Disconnect("shutdown")
		}
	}()

	// Task 2: debug REST API
	if apiServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Int("port", appData.API.Port).Msg("starting debug API server")
			if err := apiServer.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("debug API server failed (non-fatal)")
			}
		}()
	}

	// Task 3: health check manager
	wg.Add(1)
	go func() {
		defer wg.Done()
		healthMgr.Start(ctx)
	}()

	// Task 4: MQTT telemetry
	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed")
			}
		}()
	}

	// Task 5: scheduler (capture pruning, stats snapshots)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Start(ctx)
	}()

	// Task 6: interactive CLI. It blocks on stdin, so shutdown does not
	// wait for it.
	go cliHandler.Start(ctx)

	// ---------------------------------------------------------------
	// Graceful shutdown handling
	// ---------------------------------------------------------------
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errCh:
		log.Error().Err(err).Msg("critical error, initiating shutdown")
	case <-closedCh:
		log.Info().Stringer("state", conn.State()).Msg("server connection closed")
	case <-quitCh:
		log.Info().Msg("quit requested from CLI")
	}

	log.Info().Msg("initiating graceful shutdown...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out after 30 seconds, forcing exit")
	}

	eventBus.Stop()

	if database != nil {
		if err := database.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close capture database")
		}
	}

	log.Info().Msg("cfclient stopped")
}
