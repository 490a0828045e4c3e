package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wellness/pkg/config"
	"wellness/pkg/reminders"
	"wellness/pkg/storage/jsonfile"
	"wellness/pkg/storage/mongodb"
	"wellness/pkg/storage/sqlite"
)

// Set during build
var version = "dev"

const shutdownTimeout = 10 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wellness",
	Short: "Reminder scheduler for the student wellness app",
	Long: `Serves the reminders REST API backed by MongoDB, with a local JSON
file or SQLite database used whenever MongoDB is unreachable, and offers
client commands to manage and watch reminders from the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reminders HTTP server and due-reminder dispatcher",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	// Open the fallback store
	fallback, closeFallback, err := openFallback(cfg, clk)
	if err != nil {
		return err
	}
	defer closeFallback()

	opts := []reminders.Option{
		reminders.WithClock(clk),
		reminders.WithLocation(loc),
		reminders.WithLogger(log),
	}

	// Connect to the document store, if configured
	if cfg.Mongo.URI != "" {
		mongo, err := mongodb.Connect(ctx, mongodb.Options{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			Collection:     cfg.Mongo.Collection,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
			Clock:          clk,
			Logger:         log,
		})
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := mongo.Close(closeCtx); err != nil {
				log.Warn("Error disconnecting from MongoDB", "error", err)
			}
		}()
		opts = append(opts, reminders.WithPrimary(mongo))
	} else {
		log.Info("No MongoDB URI configured, reminders are stored in the fallback only", "fallback", fallback.Name())
	}

	var dispatcher *Dispatcher
	if cfg.Scheduler.Enabled {
		dispatcher = NewDispatcher(cfg.Scheduler.PollInterval, cfg.Scheduler.Lookahead, clk, log)
		opts = append(opts, reminders.WithScheduler(dispatcher))
	}

	svc := reminders.NewService(fallback, opts...)

	// Poll for due reminders
	if dispatcher != nil {
		go dispatcher.Run(ctx, svc)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(svc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", cfg.Server.Addr, "backend", svc.Backend())
		errCh <- srv.ListenAndServe()
	}()

	// Wait until the context is canceled or the server fails
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openFallback(cfg *config.Config, clk clock.Clock) (reminders.Store, func(), error) {
	switch cfg.Storage.Fallback {
	case config.FallbackSQLite:
		st, err := sqlite.Open(cfg.Storage.SQLitePath, sqlite.WithClock(clk))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite fallback: %w", err)
		}
		return st, func() { st.Close() }, nil
	default:
		st, err := jsonfile.New(cfg.Storage.FilePath, jsonfile.WithClock(clk))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file fallback: %w", err)
		}
		return st, func() {}, nil
	}
}
