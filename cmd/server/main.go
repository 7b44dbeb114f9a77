/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the kindergarten finance engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags, FINANCE_* env vars)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Construct the finance engine and API handler
  5. Start server with graceful shutdown

CONFIGURATION:
  port       HTTP server port (default: 8080)       FINANCE_PORT
  db         SQLite database path (default: finance.db)  FINANCE_DB
             Use ":memory:" for an in-memory database
  log-level  zap level: debug|info|warn|error       FINANCE_LOG_LEVEL

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server --db="./data/finance.db"

  # Run with in-memory database
  ./server --db=":memory:"

  # Run on different port
  FINANCE_PORT=3000 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jinxing-edu/finance-engine/api"
	"github.com/jinxing-edu/finance-engine/finance"
	"github.com/jinxing-edu/finance-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := buildLogger(cfg.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	store, err := sqlite.New(cfg.GetString("db"))
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()

	svc := finance.NewService(store, finance.WithLogger(log))
	handler := api.NewHandler(svc, log)
	router := api.NewRouter(handler)

	port := cfg.GetInt("port")
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", port),
			zap.String("db", cfg.GetString("db")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// loadConfig merges flags and FINANCE_* environment variables, flags
// winning.
func loadConfig() (*viper.Viper, error) {
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.Int("port", 8080, "HTTP server port")
	flags.String("db", "finance.db", "SQLite database path (\":memory:\" for in-memory)")
	flags.String("log-level", "info", "log level: debug|info|warn|error")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("FINANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	return v, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
