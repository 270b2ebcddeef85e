package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"thermostab/internal/config"
	"thermostab/internal/control"
	"thermostab/internal/device"
	"thermostab/internal/handlers"
	"thermostab/internal/logger"
	"thermostab/internal/metrics"
	"thermostab/internal/notify"
	"thermostab/internal/protocol/relay"
	"thermostab/internal/protocol/tempt"
	"thermostab/internal/repository"
	"thermostab/internal/repository/db"
	"thermostab/internal/serialport"
	"thermostab/internal/server"
	"thermostab/internal/service"
	"thermostab/internal/simulator"
	"thermostab/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
)

const subscriberQueue = 256

// boards are the two device managers and how their ports are opened.
type boards struct {
	relays *device.RelayManager
	tempt  *device.TemptManager
	ports  func() ([]string, error)
}

// newBoards builds both managers on real serial ports, or on the simulated
// bath in demo mode.
func newBoards(cfg *config.Config) boards {
	open, list := serialport.Opener(serialport.OpenSerial), serialport.Ports
	if cfg.Demo {
		bath := simulator.NewBath()
		open = bath.Opener()
		list = func() ([]string, error) { return simulator.Ports(), nil }
	}

	rl := serialport.NewLink(cfg.Relay, open)
	tl := serialport.NewLink(cfg.Tempt, open)
	tm := device.NewTemptManager(tempt.NewClient(tl), tl)
	tm.SetCheckPause(cfg.SelfCheck)
	return boards{
		relays: device.NewRelayManager(relay.NewClient(rl), rl),
		tempt:  tm,
		ports:  list,
	}
}

// connect opens both configured ports. A port that fails stays unavailable
// and can be set later through the API.
func (b boards) connect(cfg *config.Config, log *logger.Logger) {
	relayName, temptName := cfg.Relay.Name, cfg.Tempt.Name
	if cfg.Demo {
		relayName, temptName = simulator.RelayPort, simulator.TemptPort
	}
	if err := b.relays.SetPort(relayName, cfg.Relay.Baud); err != nil {
		log.Warnw("relay_port_unavailable", "port", relayName, "err", err)
	}
	if err := b.tempt.SetPort(temptName, cfg.Tempt.Baud); err != nil {
		log.Warnw("tempt_port_unavailable", "port", temptName, "err", err)
	}
}

func run(parent context.Context, v *viper.Viper, cfgFile string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	log := logger.Get(cfg.Log.Level)
	defer func() { _ = log.Sync() }()
	if cfg.Log.Level != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("sqlite_close_failed", "err", cerr)
		}
	}()
	repos := repository.NewRepository(sqlDB)

	b := newBoards(cfg)
	b.connect(cfg, log)

	m := metrics.New()
	m.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	b.relays.SetErrorRecorder(m)
	b.tempt.SetErrorRecorder(m)

	bus := notify.NewBus()
	machine := control.NewMachine(b.relays, b.tempt, bus, log, cfg.Thresholds)
	points, err := config.LoadPoints(cfg.PointsFile)
	if err != nil {
		return err
	}
	if len(points) > 0 {
		if err := machine.SetPoints(points); err != nil {
			return fmt.Errorf("points file %s: %w", cfg.PointsFile, err)
		}
	}

	pool := worker.NewPool(cfg.Worker.QueueSize, log, func(j worker.Job, err error) {
		bus.Publish(notify.Event{Type: notify.JobFailed, Data: notify.JobFailure{
			JobID: j.ID, Lane: j.Lane, Name: j.Name, Error: err.Error(),
		}})
	}, device.RelayDevice, device.TemptDevice)

	services := service.NewService(repos, service.Deps{
		Machine:    machine,
		Relays:     b.relays,
		Tempt:      b.tempt,
		Jobs:       pool,
		Bus:        bus,
		Ports:      b.ports,
		PointsFile: cfg.PointsFile,
		Auth:       service.AuthConfig{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL, AllowSignUp: cfg.Auth.AllowSignUp},
		Log:        log,
	})
	api := handlers.NewHandler(services, log, bus, m.Handler())

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool.Start(ctx)
	go services.Recorder.Run(ctx, bus.Subscribe(subscriberQueue, service.RecordedTypes...))
	go m.Run(ctx, bus.Subscribe(subscriberQueue))
	go control.NewScheduler(machine, machine.Interval, log).Run(ctx)

	srv := server.New(cfg.Port, api.InitRoutes())
	errc := make(chan error, 1)
	go func() { errc <- srv.Run() }()
	log.Infow("thermostab_started", "addr", srv.Addr(), "demo", cfg.Demo, "points", len(points))

	select {
	case <-ctx.Done():
	case err = <-errc:
		stop()
		if err != nil {
			log.Errorw("http_server_failed", "err", err)
		}
	}

	log.Infow("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Errorw("http_shutdown_failed", "err", serr)
	}
	pool.Wait()
	return err
}
