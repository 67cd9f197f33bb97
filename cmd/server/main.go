/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the farm back-office server: badge scans,
  overtime and payroll behind one HTTP API.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse configuration
  2. Load the pay policy (YAML file or built-in defaults)
  3. Initialize SQLite store and, if configured, the Redis counter
  4. Wire attendance -> overtime -> payroll and the API handler
  5. Start server with graceful shutdown

CONFIGURATION:
  Every field can be set by flag or by environment variable with the
  FARMOPS_ prefix, e.g.

    --web-addr=:3000           FARMOPS_WEB_ADDR=:3000
    --db-path=:memory:         FARMOPS_DB_PATH=:memory:
    --policy-path=pay.yaml     FARMOPS_POLICY_PATH=pay.yaml
    --redis-addr=redis:6379    FARMOPS_REDIS_ADDR=redis:6379
    --payroll-workers=4        FARMOPS_PAYROLL_WORKERS=4

  Run with --help for the full list.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (Web.ShutdownTimeout)
  3. Close Redis and database connections
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/wire.go: Service wiring
  - factory/policy.go: Pay policy file format
*/
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/warp/farmops/api"
	"github.com/warp/farmops/core"
	"github.com/warp/farmops/factory"
	"github.com/warp/farmops/store/redis"
	"github.com/warp/farmops/store/sqlite"
)

const namespace = "FARMOPS"

type config struct {
	Web struct {
		Addr            string        `conf:"default:0.0.0.0:8080"`
		ReadTimeout     time.Duration `conf:"default:15s"`
		WriteTimeout    time.Duration `conf:"default:15s"`
		IdleTimeout     time.Duration `conf:"default:60s"`
		ShutdownTimeout time.Duration `conf:"default:30s"`
		AllowedOrigins  []string      `conf:"default:http://localhost:5173;http://localhost:8080"`
	}
	DB struct {
		Path string `conf:"default:farmops.db"`
	}
	Policy struct {
		Path string
	}
	Redis struct {
		Addr     string
		Password string `conf:"noprint"`
		DB       int    `conf:"default:0"`
	}
	Payroll struct {
		Workers int `conf:"default:1"`
	}
	Log struct {
		Level string `conf:"default:info"`
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	var cfg config
	if err := conf.Parse(os.Args[1:], namespace, &cfg); err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			usage, err := conf.Usage(namespace, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating usage")
			}
			fmt.Println(usage)
			return nil
		}
		return errors.Wrap(err, "parsing config")
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if out, err := conf.String(&cfg); err == nil {
		logger.Info("config", "values", out)
	}

	// Pay policy
	policy, err := factory.NewPolicyFactory().LoadFile(cfg.Policy.Path)
	if err != nil {
		return errors.Wrapf(err, "loading policy %q", cfg.Policy.Path)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return errors.Wrap(err, "initializing database")
	}
	defer store.Close()

	// Reference numbers come from Redis when several servers share it.
	var counter core.Counter = store
	var redisCounter *redis.Counter
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCounter, err = redis.New(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cancel()
		if err != nil {
			return err
		}
		defer redisCounter.Close()
		counter = redisCounter
		logger.Info("using redis counter", "addr", cfg.Redis.Addr)
	}

	services := api.Wire(store, counter, policy, cfg.Payroll.Workers, logger)
	handler := api.NewHandler(store, services, policy, logger)
	if redisCounter != nil {
		handler.Counter = redisCounter
	}

	router := api.NewRouter(handler, cfg.Web.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Web.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Web.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		server.Close()
		return errors.Wrap(err, "graceful shutdown")
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
