package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"homebound/internal/model"
)

// PlanRepository archives finished planning runs to Postgres. The archive
// is write-only from the engine's point of view: planning always starts
// from the JSON inputs, never from archived state.
type PlanRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository creates a plan archive over the given pool.
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// EnsureSchema creates the archive tables when they do not exist yet.
func (r *PlanRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS plan_runs (
			id                  UUID PRIMARY KEY,
			mode                TEXT NOT NULL,
			tick                INT NOT NULL,
			sim_minute          DOUBLE PRECISION NOT NULL,
			generated_at        TIMESTAMPTZ NOT NULL,
			vehicles_used       INT NOT NULL,
			bookings_assigned   INT NOT NULL,
			bookings_unassigned INT NOT NULL,
			active_km           DOUBLE PRECISION NOT NULL,
			dead_km             DOUBLE PRECISION NOT NULL,
			fare                DOUBLE PRECISION NOT NULL,
			driver_pay          DOUBLE PRECISION NOT NULL,
			profit              DOUBLE PRECISION NOT NULL,
			efficiency          DOUBLE PRECISION NOT NULL
		);

		CREATE TABLE IF NOT EXISTS plan_vehicles (
			run_id       UUID NOT NULL REFERENCES plan_runs(id) ON DELETE CASCADE,
			vehicle_id   INT NOT NULL,
			vehicle_type TEXT NOT NULL,
			bookings     INT NOT NULL,
			active_km    DOUBLE PRECISION NOT NULL,
			dead_km      DOUBLE PRECISION NOT NULL,
			fare         DOUBLE PRECISION NOT NULL,
			driver_pay   DOUBLE PRECISION NOT NULL,
			profit       DOUBLE PRECISION NOT NULL,
			efficiency   DOUBLE PRECISION NOT NULL,
			is_routed    BOOLEAN NOT NULL,
			PRIMARY KEY (run_id, vehicle_id)
		);

		CREATE TABLE IF NOT EXISTS plan_bookings (
			run_id       UUID NOT NULL REFERENCES plan_runs(id) ON DELETE CASCADE,
			booking_id   INT NOT NULL,
			vehicle_type TEXT NOT NULL,
			distance_km  DOUBLE PRECISION NOT NULL,
			pickup_time  TEXT NOT NULL,
			vehicle_id   INT,
			position     TEXT,
			locked       BOOLEAN NOT NULL,
			origin       TEXT NOT NULL,
			PRIMARY KEY (run_id, booking_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("archive: ensure schema: %w", err)
	}
	return nil
}

// SaveSnapshot persists one fleet snapshot in a single transaction: the
// run row, one row per vehicle, one row per booking. A failure anywhere
// rolls the whole snapshot back — the archive never holds a partial run.
func (r *PlanRepository) SaveSnapshot(ctx context.Context, snap model.FleetSnapshot) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("archive: begin tx: %w", err)
	}
	// Defer rollback — no-op if tx was already committed.
	defer tx.Rollback(ctx)

	t := snap.Totals
	_, err = tx.Exec(ctx, `
		INSERT INTO plan_runs (
			id, mode, tick, sim_minute, generated_at,
			vehicles_used, bookings_assigned, bookings_unassigned,
			active_km, dead_km, fare, driver_pay, profit, efficiency
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, snap.RunID, snap.Mode, snap.Tick, snap.SimMinute, snap.GeneratedAt,
		t.VehiclesUsed, t.BookingsAssigned, t.BookingsUnassigned,
		t.ActiveKm, t.DeadKm, t.Fare, t.DriverPay, t.Profit, t.Efficiency)
	if err != nil {
		return fmt.Errorf("archive: insert run %s: %w", snap.RunID, err)
	}

	for _, v := range snap.Vehicles {
		_, err = tx.Exec(ctx, `
			INSERT INTO plan_vehicles (
				run_id, vehicle_id, vehicle_type, bookings,
				active_km, dead_km, fare, driver_pay, profit, efficiency, is_routed
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`, snap.RunID, v.ID, v.Class, v.Bookings,
			v.ActiveKm, v.DeadKm, v.Fare, v.DriverPay, v.Profit, v.Efficiency, v.IsRouted)
		if err != nil {
			return fmt.Errorf("archive: insert vehicle %d: %w", v.ID, err)
		}
	}

	for _, b := range snap.Bookings {
		_, err = tx.Exec(ctx, `
			INSERT INTO plan_bookings (
				run_id, booking_id, vehicle_type, distance_km, pickup_time,
				vehicle_id, position, locked, origin
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, snap.RunID, b.ID, b.Class, b.DistanceKm, b.PickupTime,
			b.VehicleID, nullableString(string(b.Position)), b.Locked, b.Origin)
		if err != nil {
			return fmt.Errorf("archive: insert booking %d: %w", b.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("archive: commit run %s: %w", snap.RunID, err)
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
