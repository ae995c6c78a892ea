package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/studybuddy/presence/internal/config"
	"github.com/studybuddy/presence/internal/log"
	"github.com/studybuddy/presence/pkg/stage"
	"github.com/studybuddy/presence/pkg/web"
)

func newServeCmd() *cobra.Command {
	var port, staticDir, tuningFile, logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the presence engine and its web presenter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			// Flags win over the environment.
			if port != "" {
				cfg.Port = port
			}
			if staticDir != "" {
				cfg.StaticDir = staticDir
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if tuningFile != "" {
				t, err := config.LoadTuning(tuningFile, cfg.Tuning)
				if err != nil {
					return err
				}
				cfg.Tuning = t
				cfg.TuningFile = tuningFile
			}

			log.Init(log.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PRESENCE_PORT)")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory with the browser presenter")
	cmd.Flags().StringVar(&tuningFile, "tuning", "", "YAML tuning file (overrides PRESENCE_TUNING_FILE)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	return cmd
}

func stageConfig(cfg config.Config) stage.Config {
	sc := stage.DefaultConfig()
	sc.FrameRate = cfg.FrameRate
	sc.BlinkPeriod = cfg.BlinkPeriod
	sc.Cursor = cfg.Tuning.Cursor.Normalize()
	sc.Character = cfg.Tuning.Character.Normalize()
	sc.Speech = cfg.Tuning.Speech.Normalize()
	return sc
}

func serve(ctx context.Context, cfg config.Config) error {
	app := stage.New(stageConfig(cfg), nil, log.Component("stage"))
	server := web.NewServer(cfg.Port, cfg.StaticDir, app, log.Component("web"))

	log.Info("presence starting", "port", cfg.Port, "frame_rate", cfg.FrameRate, "static", cfg.StaticDir)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })
	if cfg.TuningFile != "" {
		g.Go(func() error {
			err := config.WatchTuning(ctx, cfg.TuningFile, cfg.Tuning, func(t config.Tuning) {
				cfg.Tuning = t
				app.Retune(stageConfig(cfg))
			}, log.Component("config"))
			if err != nil {
				// Live reload is optional; keep serving without it.
				log.Warn("tuning reload disabled", "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("presence stopped")
	return nil
}
