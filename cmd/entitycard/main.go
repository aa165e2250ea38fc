package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timzifer/entitycard/config"
	"github.com/timzifer/entitycard/internal/logging"
	"github.com/timzifer/entitycard/internal/reload"
	"github.com/timzifer/entitycard/remote"
	"github.com/timzifer/entitycard/service"
	"github.com/timzifer/entitycard/telemetry"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	configCheck := flag.Bool("config-check", false, "Validate configuration and exit")
	view := flag.Bool("view", false, "Enable JSON view server")
	viewListen := flag.String("view-listen", "", "View listen address (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *configCheck {
		if err := service.Validate(cfg, zerolog.Nop()); err != nil {
			fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration check completed successfully.")
		os.Exit(0)
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	defer cleanup()
	log.Logger = logger

	srv, err := service.New(cfg, logger, remote.NewRESTClientFactory())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create service")
	}
	defer srv.Close()

	if cfg.Telemetry.Enabled {
		collector, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry disabled")
		} else {
			srv.SetTelemetry(collector)
		}
	}

	if *view || cfg.View.Enabled {
		if err := srv.EnableView(*viewListen); err != nil {
			logger.Fatal().Err(err).Msg("failed to start view")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.HotReload {
		watcher, err := reload.NewWatcher(*cfgPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to watch configuration")
		}
		go watchCard(ctx, watcher, srv, logger)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("service stopped with error")
	}
}

// watchCard polls the configuration file and swaps the card wholesale when it
// changes. Only the card section participates; host or logging changes still
// require a restart.
func watchCard(ctx context.Context, watcher *reload.Watcher, srv *service.Service, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !watcher.Changed() {
				continue
			}
			cfg, err := config.Load(watcher.Path())
			if err != nil {
				logger.Error().Err(err).Msg("failed to reload configuration")
				watcher.Reset()
				continue
			}
			if err := srv.SetCard(cfg.Card); err != nil {
				logger.Error().Err(err).Msg("reloaded card invalid, keeping previous")
				watcher.Reset()
				continue
			}
			watcher.Reset()
			if err := srv.Refresh(ctx); err != nil {
				logger.Error().Err(err).Msg("refresh after reload failed")
			}
			logger.Info().Str("file", watcher.Path()).Msg("card configuration reloaded")
		}
	}
}
