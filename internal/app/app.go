package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/letterbox/letterbox/internal/config"
	"github.com/letterbox/letterbox/internal/database"
	"github.com/letterbox/letterbox/internal/dedup"
	"github.com/letterbox/letterbox/internal/event_bus"
	"github.com/letterbox/letterbox/internal/metrics"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Application wires configuration, database, router, scheduler and server lifecycle.
type Application struct {
	cfg    config.Application
	db     *pgxpool.Pool
	rdb    *redis.Client
	deps   *Dependencies
	router *mux.Router
	srv    *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}

	// DB + migrations
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cfg.Database); err != nil {
		db.Close()
		return nil, err
	}

	var guard dedup.Guard = dedup.AllowAll{}
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = dedup.NewClient(ctx, cfg.Redis)
		if err != nil {
			// reminders may repeat, but the service stays up
			log.Warnf("redis unavailable, notification dedup disabled: %v", err)
		} else {
			guard = dedup.NewRedisGuard(rdb, cfg.Redis.DedupTTL)
		}
	}

	bus := event_bus.NewEventBus()
	if cfg.Metrics.Enabled {
		metrics.Subscribe(bus)
	}

	r := mux.NewRouter()

	// Build dependencies (services, handlers, jobs)
	deps := BuildDependencies(db, guard, bus, cfg)

	// Middleware chain
	SetupMiddleware(r, cfg)

	// Routes
	RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, db: db, rdb: rdb, deps: deps, router: r, srv: srv}, nil
}

// Run starts the scheduler and the HTTP server and blocks until SIGINT/SIGTERM.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Scheduler.Enabled {
		a.deps.Scheduler.Start()
	} else {
		log.Info("Scheduler disabled")
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-serverErr:
		log.Errorf("server stopped: %v", runErr)
	}

	a.shutdown()
	return runErr
}

func (a *Application) shutdown() {
	timeout := a.cfg.Scheduler.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.deps.Scheduler.Stop(ctx); err != nil {
		log.Warnf("scheduler did not stop cleanly: %v", err)
	}
	if err := a.srv.Shutdown(ctx); err != nil {
		log.Warnf("http server shutdown: %v", err)
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			log.Warnf("redis close: %v", err)
		}
	}
	a.db.Close()
	log.Info("Shutdown complete")
}
