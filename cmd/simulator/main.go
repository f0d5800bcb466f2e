// The simulator binary runs the real-time dispatch loop: scheduled plus
// instant bookings, tick-driven admission, locking and re-planning, with
// an optional live monitor API, Redis fleet cache, and Postgres archive.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"homebound/config"
	"homebound/internal/handler"
	"homebound/internal/middleware"
	"homebound/internal/model"
	"homebound/internal/report"
	"homebound/internal/repository"
	"homebound/internal/service"
	"homebound/pkg/cache"
	"homebound/pkg/db"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// ── Tee output to stdout and the log file ───────────
	out, closeLog, err := teeOutput(cfg.Files.LogFile)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer closeLog()
	log.SetOutput(out)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Optional backends ───────────────────────────────
	var pgPool *pgxpool.Pool
	if cfg.Postgres.Enabled {
		pgPool, err = db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			log.Fatalf("failed to connect to PostgreSQL: %v", err)
		}
		defer pgPool.Close()
		log.Println("✓ PostgreSQL connected")
	}

	var redisClient *redis.Client
	var fleetCache *repository.FleetCache
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		fleetCache = repository.NewFleetCache(redisClient, cfg.Redis.SnapshotTTL)
		log.Println("✓ Redis connected")
	}

	// ── Load inputs ─────────────────────────────────────
	vehicles, err := repository.LoadVehicles(cfg.Files.Vehicles)
	if err != nil {
		log.Fatalf("failed to load vehicles: %v", err)
	}
	scheduled, err := repository.LoadBookings(cfg.Files.Bookings, model.OriginScheduled)
	if err != nil {
		log.Fatalf("failed to load bookings: %v", err)
	}
	instants, err := repository.LoadBookings(cfg.Files.InstantBookings, model.OriginInstant)
	if err != nil {
		log.Fatalf("failed to load instant bookings: %v", err)
	}

	// ── Build the simulator ─────────────────────────────
	sim := service.NewSimulator(service.SimConfig{
		StartMinute: cfg.Simulator.StartMinute,
		EndMinute:   cfg.Simulator.EndMinute,
		StepMinutes: cfg.Simulator.StepMinutes,
		RealStep:    time.Duration(cfg.Simulator.RealStepSeconds) * time.Second,
		ReportEvery: cfg.Simulator.ReportEvery,
		Seed:        cfg.Simulator.Seed,
	}, vehicles, scheduled, instants, service.DefaultRateTable())

	sim.OnReport(func(res *service.PlanResult, snap model.FleetSnapshot, final bool) {
		if final {
			report.WriteFull(out, res, snap)
		} else {
			report.WriteStepSummary(out, snap)
		}
		if fleetCache != nil {
			if err := fleetCache.Publish(ctx, snap); err != nil {
				log.Printf("[cache] WARNING: publish failed: %v", err)
			}
		}
	})

	// ── Optional monitor API ────────────────────────────
	var srv *http.Server
	if cfg.Monitor.Enabled {
		srv = startMonitor(cfg.Monitor, sim, pgPool, redisClient)
	}

	// ── Run ─────────────────────────────────────────────
	sim.Run(ctx)

	if pgPool != nil {
		archiveRun(sim, pgPool)
	}

	// ── Shut the monitor down ───────────────────────────
	if srv != nil {
		log.Println("⏳ Shutting down monitor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("monitor forced to shutdown: %v", err)
		}
		log.Println("✅ Monitor gracefully stopped")
	}
}

// startMonitor wires the read-only monitor API and serves it in the
// background for the lifetime of the run.
func startMonitor(cfg config.MonitorConfig, sim *service.Simulator, pgPool *pgxpool.Pool, redisClient *redis.Client) *http.Server {
	monitor := handler.NewMonitorHandler(sim)
	if pgPool != nil {
		monitor.AddHealthCheck("postgres", func(ctx context.Context) error {
			return db.HealthCheck(ctx, pgPool)
		})
	}
	if redisClient != nil {
		monitor.AddHealthCheck("redis", func(ctx context.Context) error {
			return cache.HealthCheck(ctx, redisClient)
		})
	}

	router := mux.NewRouter()
	monitor.Register(router)

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      middleware.RequestLogger(middleware.Recoverer(middleware.CORS(router))),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Printf("🚀 Monitor listening on %s", cfg.ListenAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("monitor error: %v", err)
		}
	}()
	return srv
}

// archiveRun persists the final fleet snapshot. The run is already done,
// so archive failures are fatal only to the exit code, not to planning.
func archiveRun(sim *service.Simulator, pgPool *pgxpool.Pool) {
	snap, ok := sim.Snapshot()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	archive := repository.NewPlanRepository(pgPool)
	if err := archive.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to prepare archive schema: %v", err)
	}
	if err := archive.SaveSnapshot(ctx, snap); err != nil {
		log.Fatalf("failed to archive run: %v", err)
	}
	log.Printf("[archive] ✓ run %s archived", snap.RunID)
}

// teeOutput truncates the log file and returns a writer that duplicates
// everything to stdout and the file.
func teeOutput(path string) (io.Writer, func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(os.Stdout, f), func() { _ = f.Close() }, nil
}
