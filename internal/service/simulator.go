package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"homebound/internal/model"
)

// ─── Constants ──────────────────────────────────────────────

const (
	// LockWindowMinutes is how far ahead of the simulated clock a scheduled
	// booking's pickup must be before its assignment is frozen.
	LockWindowMinutes = 120.0

	// InstantLeadMaxMinutes and InstantLeadMinMinutes bound how long before
	// its pickup an instant booking surfaces: the load time is drawn
	// uniformly from [pickup−120, pickup−60], clamped to the day start.
	InstantLeadMaxMinutes = 120.0
	InstantLeadMinMinutes = 60.0
)

// ─── Simulator ──────────────────────────────────────────────

// SimConfig drives the real-time loop. Zero values take the defaults noted
// on each field.
type SimConfig struct {
	StartMinute float64       // first tick's simulated minute (default 360, 06:00)
	EndMinute   float64       // last tick's simulated minute, inclusive (default 1140, 19:00)
	StepMinutes float64       // simulated minutes per tick (default 30)
	RealStep    time.Duration // wall-clock pause per tick; 0 runs flat out
	ReportEvery int           // emit a snapshot every N ticks even without a replan (default 4)
	Seed        int64         // load-time RNG seed; 0 = time-based
}

func (c SimConfig) withDefaults() SimConfig {
	if c.StartMinute == 0 {
		c.StartMinute = DayStartMinute
	}
	if c.EndMinute == 0 {
		c.EndMinute = 1140
	}
	if c.StepMinutes == 0 {
		c.StepMinutes = 30
	}
	if c.ReportEvery == 0 {
		c.ReportEvery = 4
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// ReportFunc receives every emitted fleet snapshot together with the plan
// it was built from. final is true exactly once, after the closing replan.
type ReportFunc func(res *PlanResult, snap model.FleetSnapshot, final bool)

// Simulator advances simulated time in discrete ticks, surfaces instant
// bookings as their load times pass, freezes bookings whose pickups are
// imminent, and re-plans the rest of the day around the frozen commitments.
//
// Each replan starts from a fresh assigner over the full active table:
// frozen assignments are replayed onto their pinned vehicles first, then
// the batch planner places the residue. A frozen booking therefore keeps
// its vehicle verbatim from the tick it was frozen until it executes, while
// everything after it on the vehicle's day may be rebuilt every tick.
//
// The loop itself is single-threaded; only Snapshot is safe to call
// concurrently (the monitor API reads it from another goroutine).
type Simulator struct {
	cfg   SimConfig
	runID string
	rates RateTable

	vehicles  []*model.Vehicle
	vehicleBy map[int]*model.Vehicle

	active  []*model.Booking // admitted bookings, append-only
	pending []*model.Booking // instants waiting on their load time

	locked       map[int]bool                // booking id → frozen
	lockedAssign map[int]int                 // frozen booking id → pinned vehicle id
	positions    map[int]model.RoutePosition // last plan's route roles, reused on replay

	last     *PlanResult
	onReport ReportFunc

	mu   sync.RWMutex
	snap *model.FleetSnapshot
}

// NewSimulator prepares a run over the fleet, the scheduled bookings, and
// the instant bookings. Load times for the instants are drawn here, once,
// from the seeded generator, so a fixed seed reproduces the whole day.
func NewSimulator(cfg SimConfig, vehicles []*model.Vehicle, scheduled, instants []*model.Booking, rates RateTable) *Simulator {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	pending := append([]*model.Booking(nil), instants...)
	for _, b := range pending {
		b.LoadTime = drawLoadTime(rng, cfg.StartMinute, b.PickupMinute)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].LoadTime < pending[j].LoadTime
	})

	s := &Simulator{
		cfg:          cfg,
		runID:        uuid.NewString(),
		rates:        rates,
		vehicles:     vehicles,
		vehicleBy:    make(map[int]*model.Vehicle, len(vehicles)),
		active:       append([]*model.Booking(nil), scheduled...),
		pending:      pending,
		locked:       make(map[int]bool),
		lockedAssign: make(map[int]int),
		positions:    make(map[int]model.RoutePosition),
	}
	for _, v := range vehicles {
		s.vehicleBy[v.ID] = v
	}
	return s
}

// RunID identifies this simulation run in reports, the cache, and the archive.
func (s *Simulator) RunID() string { return s.runID }

// OnReport registers the snapshot sink. Must be called before Run.
func (s *Simulator) OnReport(fn ReportFunc) { s.onReport = fn }

// Snapshot returns the latest published fleet snapshot. ok is false until
// the first tick has planned.
func (s *Simulator) Snapshot() (model.FleetSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return model.FleetSnapshot{}, false
	}
	return *s.snap, true
}

// drawLoadTime picks the minute an instant booking surfaces: uniform in
// [max(start, pickup−120), pickup−60] when that range is non-empty, else
// the earliest visible minute.
func drawLoadTime(rng *rand.Rand, startMinute, pickupMinute float64) float64 {
	earliest := math.Max(startMinute, pickupMinute-InstantLeadMaxMinutes)
	latest := pickupMinute - InstantLeadMinMinutes
	if latest < earliest {
		return earliest
	}
	return earliest + float64(rng.Intn(int(latest-earliest)+1))
}

// ─── The tick loop ──────────────────────────────────────────

// Run drives the simulated day and returns the final plan. Within a tick
// the order is fixed: admission, locking, replanning, reporting, sleeping.
// Cancelling the context stops the run at the next sleep; the closing
// replan and consistency check still execute.
func (s *Simulator) Run(ctx context.Context) *PlanResult {
	log.Printf("[sim] run %s: %d vehicle(s), %d scheduled, %d instant booking(s), %s → %s",
		s.runID, len(s.vehicles), len(s.active), len(s.pending),
		ClockTime(s.cfg.StartMinute), ClockTime(s.cfg.EndMinute))

	tick := 0
	for sim := s.cfg.StartMinute; sim <= s.cfg.EndMinute; sim += s.cfg.StepMinutes {
		admitted := s.admitInstants(sim)
		s.lockImminent(sim)

		replanned := tick == 0 || admitted > 0
		if replanned {
			s.replan(tick, sim)
		} else {
			log.Printf("[sim] tick %d (%s): no new instants — keeping current plan", tick, ClockTime(sim))
		}

		if replanned || tick%s.cfg.ReportEvery == 0 {
			s.publish(tick, sim, false)
		}

		if !s.sleep(ctx) {
			log.Printf("[sim] ⏳ cancelled at tick %d (%s)", tick, ClockTime(sim))
			break
		}
		tick++
	}

	// Closing pass: one unconditional replan so the last-admitted instants
	// are placed, then verify nothing frozen ever moved.
	s.replan(tick, s.cfg.EndMinute)
	s.verifyLocks()
	s.publish(tick, s.cfg.EndMinute, true)

	log.Printf("[sim] ✅ run %s complete after %d tick(s)", s.runID, tick)
	return s.last
}

// admitInstants moves pending instants whose load time has passed into the
// active table. Admission is append-only: an admitted booking never leaves.
func (s *Simulator) admitInstants(sim float64) int {
	admitted := 0
	for len(s.pending) > 0 && s.pending[0].LoadTime <= sim {
		b := s.pending[0]
		s.pending = s.pending[1:]
		s.active = append(s.active, b)
		admitted++
		log.Printf("[sim] instant booking %d surfaced (pickup %s, loaded %s)",
			b.ID, ClockTime(b.PickupMinute), ClockTime(b.LoadTime))
	}
	return admitted
}

// lockImminent freezes every scheduled booking whose pickup falls inside
// the lock window. Instant bookings are deliberately exempt: they stay
// available to the planner for their whole life, so a late-surfacing
// instant can still be woven into a nearby vehicle's day.
func (s *Simulator) lockImminent(sim float64) {
	for _, b := range s.active {
		if b.Origin != model.OriginScheduled || s.locked[b.ID] {
			continue
		}
		if b.PickupMinute <= sim+LockWindowMinutes {
			s.locked[b.ID] = true
			log.Printf("[sim] booking %d locked (pickup %s within window)", b.ID, ClockTime(b.PickupMinute))
		}
	}
	s.pinLocked()
}

// pinLocked records the vehicle of every frozen booking the latest plan
// assigned. A pin is written once and never overwritten, which is what
// makes frozen assignments survive replanning verbatim.
func (s *Simulator) pinLocked() {
	if s.last == nil {
		return
	}
	for bid := range s.locked {
		if _, pinned := s.lockedAssign[bid]; pinned {
			continue
		}
		if vid, ok := s.last.AssignedTo[bid]; ok {
			s.lockedAssign[bid] = vid
		}
	}
}

// replan rebuilds the day: fresh assigner, frozen bookings replayed onto
// their pinned vehicles in pickup order, batch planning over the residue.
// Replayed vehicles stay open (IsRouted false), so the planner may still
// extend their days past the frozen prefix.
func (s *Simulator) replan(tick int, sim float64) {
	a := NewAssigner(s.vehicles, s.active, s.rates)

	replayed := 0
	for _, v := range s.vehicles {
		group := s.lockedGroup(v.ID)
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].PickupMinute < group[j].PickupMinute
		})
		for _, b := range group {
			pos, ok := s.positions[b.ID]
			if !ok {
				pos = model.PositionFresh
			}
			a.Assign(b, v, pos)
			replayed++
		}
	}
	if replayed > 0 {
		log.Printf("[sim] tick %d (%s): replayed %d locked booking(s)", tick, ClockTime(sim), replayed)
	}

	log.Printf("[sim] tick %d (%s): replanning %d active booking(s)", tick, ClockTime(sim), len(s.active))
	s.last = a.Plan()
	s.positions = s.last.Positions
	s.pinLocked()
}

// lockedGroup returns the frozen bookings pinned to one vehicle.
func (s *Simulator) lockedGroup(vehicleID int) []*model.Booking {
	var group []*model.Booking
	for bid, vid := range s.lockedAssign {
		if vid != vehicleID {
			continue
		}
		for _, b := range s.active {
			if b.ID == bid {
				group = append(group, b)
				break
			}
		}
	}
	return group
}

// publish builds the fleet snapshot for this tick, stores it for the
// monitor API, and hands it to the report sink.
func (s *Simulator) publish(tick int, sim float64, final bool) {
	snap := BuildSnapshot(s.last, s.runID, "simulator", tick, sim, s.locked)

	s.mu.Lock()
	s.snap = &snap
	s.mu.Unlock()

	if s.onReport != nil {
		s.onReport(s.last, snap, final)
	}
}

// verifyLocks cross-checks the final plan against every pin taken during
// the run. A violated pin is a planner bug, not an input problem, so it is
// logged loudly rather than returned.
func (s *Simulator) verifyLocks() {
	violations := 0
	for bid, vid := range s.lockedAssign {
		got, ok := s.last.AssignedTo[bid]
		if !ok || got != vid {
			violations++
			log.Printf("[sim] WARNING: locked booking %d moved from vehicle %d (now %v)", bid, vid, got)
		}
	}
	if violations == 0 {
		log.Printf("[sim] ✓ all %d locked assignment(s) preserved", len(s.lockedAssign))
	}
}

// sleep pauses the loop for the configured real-time step. Returns false
// when the context was cancelled instead.
func (s *Simulator) sleep(ctx context.Context) bool {
	if s.cfg.RealStep <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(s.cfg.RealStep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ClockTime renders minutes from midnight as "HH:MM" for logs and reports.
func ClockTime(minute float64) string {
	m := int(minute)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
