package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"homebound/internal/model"
)

// ─── Key layout ─────────────────────────────────────────────

const (
	fleetSnapshotKeyPrefix = "fleet:snapshot:"
	fleetLatestKey         = "fleet:snapshot:latest"
	fleetVehicleKeyPrefix  = "fleet:vehicle:"

	// DefaultSnapshotTTL bounds how long a stale snapshot survives after
	// the simulator stops publishing.
	DefaultSnapshotTTL = 10 * time.Minute
)

// FleetCache publishes the latest fleet snapshot to Redis so dashboards
// and other consumers can watch a run without touching the engine.
type FleetCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewFleetCache creates a fleet cache. ttl ≤ 0 takes the default.
func NewFleetCache(client *redis.Client, ttl time.Duration) *FleetCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &FleetCache{redis: client, ttl: ttl}
}

// Publish stores the snapshot under its run key and the latest key, plus a
// small per-vehicle hash for cheap single-vehicle lookups. Callers treat a
// returned error as a warning: a cache miss never stops the run.
func (c *FleetCache) Publish(ctx context.Context, snap model.FleetSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot %s: %w", snap.RunID, err)
	}

	runKey := fleetSnapshotKeyPrefix + snap.RunID
	if err := c.redis.Set(ctx, runKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", runKey, err)
	}
	if err := c.redis.Set(ctx, fleetLatestKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", fleetLatestKey, err)
	}

	for _, v := range snap.Vehicles {
		key := fmt.Sprintf("%s%d", fleetVehicleKeyPrefix, v.ID)
		// Fire-and-forget per-vehicle hashes; the snapshot keys above are
		// the authoritative copy.
		_ = c.redis.HSet(ctx, key, map[string]interface{}{
			"vehicle_type": string(v.Class),
			"bookings":     v.Bookings,
			"active_km":    v.ActiveKm,
			"dead_km":      v.DeadKm,
			"driver_pay":   v.DriverPay,
			"efficiency":   v.Efficiency,
			"is_routed":    v.IsRouted,
			"lat":          v.Current.Lat,
			"lon":          v.Current.Lon,
			"hex_id":       v.HexID,
		}).Err()
		_ = c.redis.Expire(ctx, key, c.ttl).Err()
	}
	return nil
}

// GetLatest returns the most recently published snapshot, or ErrNoSnapshot
// when none is cached (never published, or the TTL expired).
func (c *FleetCache) GetLatest(ctx context.Context) (*model.FleetSnapshot, error) {
	payload, err := c.redis.Get(ctx, fleetLatestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", fleetLatestKey, err)
	}

	var snap model.FleetSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("cache: unmarshal latest snapshot: %w", err)
	}
	return &snap, nil
}
