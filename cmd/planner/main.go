// The planner binary runs one batch planning pass: it loads the fleet and
// the scheduled bookings, assigns the whole day, prints the full report,
// and optionally archives the run to Postgres.
package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"homebound/config"
	"homebound/internal/model"
	"homebound/internal/report"
	"homebound/internal/repository"
	"homebound/internal/service"
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

	ctx := context.Background()

	// ── Load inputs ─────────────────────────────────────
	vehicles, err := repository.LoadVehicles(cfg.Files.Vehicles)
	if err != nil {
		log.Fatalf("failed to load vehicles: %v", err)
	}
	bookings, err := repository.LoadBookings(cfg.Files.Bookings, model.OriginScheduled)
	if err != nil {
		log.Fatalf("failed to load bookings: %v", err)
	}

	// ── Plan ────────────────────────────────────────────
	assigner := service.NewAssigner(vehicles, bookings, service.DefaultRateTable())
	res := assigner.Plan()

	runID := uuid.NewString()
	snap := service.BuildSnapshot(res, runID, "batch", 0, service.DayStartMinute, nil)

	// ── Report ──────────────────────────────────────────
	report.WriteFull(out, res, snap)

	// ── Optional archive ────────────────────────────────
	if cfg.Postgres.Enabled {
		pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			log.Fatalf("failed to connect to PostgreSQL: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		archive := repository.NewPlanRepository(pool)
		if err := archive.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to prepare archive schema: %v", err)
		}
		if err := archive.SaveSnapshot(ctx, snap); err != nil {
			log.Fatalf("failed to archive run: %v", err)
		}
		log.Printf("[archive] ✓ run %s archived", runID)
	}

	log.Printf("✅ batch run %s complete", runID)
}

// teeOutput truncates the log file and returns a writer that duplicates
// everything to stdout and the file, so the printed report and the log
// land in both places.
func teeOutput(path string) (io.Writer, func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(os.Stdout, f), func() { _ = f.Close() }, nil
}
