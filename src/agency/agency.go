package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stake-plus/cat-agency/src/agency/breeds"
	"github.com/stake-plus/cat-agency/src/agency/config"
	"github.com/stake-plus/cat-agency/src/agency/data"
	"github.com/stake-plus/cat-agency/src/agency/missions"
	"github.com/stake-plus/cat-agency/src/agency/registry"
	"github.com/stake-plus/cat-agency/src/agency/webserver"
	"github.com/stake-plus/cat-agency/src/logging"
)

var rootCmd = &cobra.Command{
	Use:           "catagency",
	Short:         "Spy cat agency API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "catagency: %v\n", err)
		os.Exit(1)
	}
}

func bootstrap() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	return cfg, logging.InitLogger("catagency", cfg.LogLevel, cfg.LogFormat), nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, l, err := bootstrap()
	if err != nil {
		return err
	}
	db, err := data.Open(cfg.MySQLDSN, l)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := data.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	l.Info().Msg("schema up to date")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, l, err := bootstrap()
	if err != nil {
		return err
	}

	db, err := data.Open(cfg.MySQLDSN, l)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if err := data.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rdb, err := data.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	var events missions.Publisher
	if rdb != nil {
		defer rdb.Close()
		events = data.NewEventStream(rdb, cfg.EventStream)
	} else {
		l.Warn().Msg("REDIS_URL not set; breed cache and mission events disabled")
	}

	catAPI := breeds.NewCatAPI(breeds.Options{
		BaseURL:  cfg.CatAPIURL,
		APIKey:   cfg.CatAPIKey,
		Timeout:  cfg.BreedTimeoutDuration(),
		Attempts: cfg.BreedAttempts,
		CacheTTL: cfg.BreedCacheDuration(),
		Redis:    rdb,
		Logger:   l,
	})
	reg := registry.New(db, catAPI, l)
	coord := missions.New(db, events, l)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           webserver.New(cfg, reg, coord, l),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	l.Info().Str("port", cfg.Port).Msg("cat agency API listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		l.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	}
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	return httpSrv.Shutdown(shutCtx)
}
