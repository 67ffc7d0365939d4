/*
scheduler.go - Automated discount expiry scheduler

PURPOSE:
  Periodically sweeps pending discount requests whose expiry has passed
  (or that have gone stale past the grace window) and marks them expired,
  so a seller's abandoned request cannot surprise a shop weeks later.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates the actual sweep to the workflow engine, which is
    idempotent: re-running over the same rows is a no-op
  - Attributes swept rows to a system actor in the audit trail

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewSweepScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunDiscountExpirySweep endpoint (manual sweep)
  - workflow/discount.go: sweep implementation
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sellershop/inventory-engine/engine"
)

// systemActor attributes scheduler-driven mutations in the audit trail.
var systemActor = engine.Actor{ID: "system", Role: engine.RoleAdmin}

// SweepScheduler handles automated discount expiry.
type SweepScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweepScheduler creates a new scheduler.
func NewSweepScheduler(handler *Handler) *SweepScheduler {
	return &SweepScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *SweepScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	log.Printf("[Scheduler] Started with check interval: %v", ss.CheckInterval)
}

// Stop stops the scheduler.
func (ss *SweepScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ss *SweepScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.sweep()

	for {
		select {
		case <-ss.ticker.C:
			ss.sweep()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SweepScheduler) sweep() {
	ctx := context.Background()

	expired, err := ss.Handler.Workflow.RunDiscountExpirySweep(ctx, systemActor)
	if err != nil {
		log.Printf("[Scheduler] Discount expiry sweep failed: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[Scheduler] Expired %d pending discount(s)", expired)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (ss *SweepScheduler) RunNow() {
	ss.sweep()
}
