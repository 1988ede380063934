package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"meetgrid/internal/config"
	"meetgrid/internal/event"
	"meetgrid/internal/grid"
	appLog "meetgrid/internal/log"
	"meetgrid/internal/store"
	"meetgrid/internal/store/postgres"
	"meetgrid/internal/web"
)

const shutdownGrace = 10 * time.Second

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file and environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.SetLevel(appLog.ParseLevel(conf.Log.Level))
	appLog.SetFormat(conf.Log.Format)

	appLog.Info("meetgrid starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"base_url", conf.BaseURL,
		"storage", conf.Storage.Driver,
		"ttl_days", conf.TTLDays,
		"purge", conf.PurgeCron,
		"cors_origins", len(conf.CORSOrigins),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf); err != nil {
		appLog.Error("meetgrid exited with error", err)
		os.Exit(1)
	}
	appLog.Info("meetgrid exiting")
}

func run(ctx context.Context, conf *config.Config) error {
	st, err := openStore(ctx, conf.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			appLog.Error("failed to close store", err)
		}
	}()

	svc := event.NewService(st,
		event.WithTTL(time.Duration(conf.TTLDays)*24*time.Hour),
		event.WithGuestSoftLimit(conf.MaxGuestsSoftLimit),
	)

	scheduler, err := startPurge(ctx, conf, svc)
	if err != nil {
		return err
	}
	defer func() {
		<-scheduler.Stop().Done()
	}()

	return web.NewServer(conf, svc).ListenAndServe(ctx, conf.Listen, shutdownGrace)
}

// openStore returns the configured backend. The postgres backend is
// pinged and migrated before use.
func openStore(ctx context.Context, sc config.StorageConfig) (store.Store, error) {
	switch sc.Driver {
	case "postgres":
		db, err := sql.Open("postgres", sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		pg := postgres.New(db)
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		appLog.Info("using postgres store")
		return pg, nil
	default:
		appLog.Warn("using in-memory store; events are lost on restart")
		return store.NewMemory(), nil
	}
}

// startPurge schedules PurgeExpired on conf.PurgeCron, evaluated in the
// configured timezone, and runs it once immediately.
func startPurge(ctx context.Context, conf *config.Config, svc *event.Service) (*cron.Cron, error) {
	loc, err := grid.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Warn("purge schedule falls back to UTC", "timezone", conf.Timezone)
		loc = time.UTC
	}

	purge := func() {
		if _, err := svc.PurgeExpired(ctx); err != nil {
			appLog.Error("purge failed", err)
		}
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(conf.PurgeCron, purge); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", conf.PurgeCron, err)
	}
	c.Start()
	appLog.Info("purge scheduled", "spec", conf.PurgeCron, "timezone", loc.String())

	purge()
	return c, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/meetgrid/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")

	flag.Parse()

	return cfg
}
