package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/cookparty-backend/internal/config"
	"github.com/DoyleJ11/cookparty-backend/internal/engine"
	"github.com/DoyleJ11/cookparty-backend/internal/httpapi"
	"github.com/DoyleJ11/cookparty-backend/internal/hub"
	"github.com/DoyleJ11/cookparty-backend/internal/room"
	"github.com/DoyleJ11/cookparty-backend/internal/store"
	"github.com/DoyleJ11/cookparty-backend/internal/ws"
)

const releaseVersion = "0.1.0"

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}

	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cookparty",
		Short:   "Game server for a cooperative party cooking game.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ApplyEnv(cmd.Flags(), viper.New()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cfg.RegisterFlags(cmd.Flags())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func run(parent context.Context, cfg *config.Config) (err error) {
	if parent == nil {
		parent = context.Background()
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	roomOpts := room.Options{
		Catalog:      engine.DefaultCatalog(),
		Engine:       engine.Options{AbilityDuration: cfg.AbilityDuration, Retries: cfg.Retries, Seed: cfg.Seed},
		MaxPlayers:   cfg.MaxPlayers,
		Tick:         cfg.Tick,
		Intermission: cfg.Intermission,
	}
	deps := httpapi.Deps{
		PublicURL: cfg.PublicURL,
		WS: ws.Options{
			OutboxSize:     cfg.OutboxSize,
			RateLimit:      rate.Limit(cfg.RateLimit),
			RateBurst:      cfg.RateBurst,
			OriginPatterns: cfg.Origins,
			Logger:         log.Named("ws"),
		},
		Logger: log.Named("http"),
	}

	if cfg.DBDriver != "none" {
		st, openErr := store.Open(cfg.DBDriver, cfg.DBDSN, log.Named("store"))
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, st.Close()) }()
		roomOpts.Recorder = st
		deps.Scores = st
		log.Info("results store ready", zap.String("driver", cfg.DBDriver))
	}

	h := hub.NewHub(ctx, hub.Options{
		CodeLength: cfg.CodeLength,
		Room:       roomOpts,
		Logger:     log.Named("hub"),
	})
	deps.Hub = h

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.SetupRoutes(deps),
		ReadHeaderTimeout: 10 * time.Second,
		// Websocket reads end when the server context does.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("public_url", cfg.PublicURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
