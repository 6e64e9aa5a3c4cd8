package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"cronmachine/internal/actions"
	"cronmachine/internal/api"
	"cronmachine/internal/clock"
	"cronmachine/internal/config"
	"cronmachine/internal/journal"
	"cronmachine/internal/logging"
	"cronmachine/internal/schedule"
	"cronmachine/internal/scheduler"
)

func main() {
	var (
		cfgPath  = flag.String("config", "cronmachine.yaml", "path to YAML config")
		tz       = flag.String("tz", "", "timezone override, e.g. Europe/Berlin")
		addr     = flag.String("addr", "", "status API bind address override")
		logLevel = flag.String("log-level", "", "log level override")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *cfgPath).Msg("load config")
	}
	if *tz != "" {
		cfg.Timezone = *tz
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Console, os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	zc, err := clock.New(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	// Tasks are registered before the loop starts; the registry is frozen afterwards.
	handlers := actions.Default()
	reg := scheduler.NewRegistry()
	for _, t := range cfg.Tasks {
		payload, err := t.PayloadJSON()
		if err != nil {
			log.Fatal().Err(err).Str("task_id", t.ID).Msg("task payload")
		}
		act, err := handlers.Build(ctx, t.Kind, payload)
		if err != nil {
			log.Fatal().Err(err).Str("task_id", t.ID).Msg("build task action")
		}
		if err := schedule.Validate(t.Schedule); err != nil {
			if cfg.StrictSchedules {
				log.Fatal().Err(err).Str("task_id", t.ID).Msg("invalid schedule")
			}
			log.Warn().Err(err).Str("task_id", t.ID).Msg("invalid schedule, task will be disabled")
		}
		if err := reg.Add(t.ID, t.Schedule, act); err != nil {
			log.Fatal().Err(err).Str("task_id", t.ID).Msg("register task")
		}
	}
	log.Info().Int("tasks", reg.Len()).Str("tz", zc.Location().String()).Msg("tasks registered")

	idle, err := cfg.Idle()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid idle interval")
	}
	opts := []scheduler.Option{scheduler.WithClock(zc), scheduler.WithIdleInterval(idle)}
	if cfg.StrictSchedules {
		opts = append(opts, scheduler.WithStrictSchedules())
	}

	var attempts api.Attempts
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open journal")
		}
		defer j.Close()
		j.In(zc.Location())
		attempts = j
		opts = append(opts, scheduler.WithRecorder(j))
	}

	svc, err := scheduler.NewService(scheduler.Config{Timezone: cfg.Timezone}, reg, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("create scheduler")
	}
	handle := svc.Spawn(context.Background())

	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		srv = &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: api.NewServer(svc, attempts, zc, api.Config{
				RatePerSec: cfg.HTTP.RatePerSec,
				Burst:      cfg.HTTP.Burst,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("http server")
			}
		}()
	}

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case <-handle.Done():
	}
	svc.Stop()
	runErr := handle.Wait()

	if srv != nil {
		ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelTimeout()
		_ = srv.Shutdown(ctxTimeout)
	}
	if runErr != nil {
		log.Error().Err(runErr).Msg("scheduler exited with error")
		os.Exit(1)
	}
}
