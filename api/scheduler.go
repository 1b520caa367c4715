/*
scheduler.go - Periodic recalculation of the open period

PURPOSE:
  Recalculates and stores the payments of every instructor of a tenant for
  the open period at a fixed interval, so stored payments follow late class
  imports and category changes without a manual batch call.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Start is a no-op while running; a stopped scheduler can be started again
  - Each tick is one BatchRunner run over ListInstructors(tenant)
  - Shares the handler's calculation lock with API-triggered runs

CONFIGURATION:
  scheduler.enabled, scheduler.interval, scheduler.tenant, scheduler.period

USAGE:
  scheduler := NewRecalculationScheduler(handler, tenant, period)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - batch.go: BatchRunner
  - handlers.go: RunBatch endpoint (manual runs)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/studio-payroll/payroll"
)

// RecalculationScheduler handles automated period recalculation.
type RecalculationScheduler struct {
	Handler       *Handler
	TenantID      payroll.TenantID
	PeriodID      payroll.PeriodID
	CheckInterval time.Duration
	Enabled       bool

	// Per-run state, reset by every Start.
	ticker *time.Ticker
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
	mu     sync.Mutex

	lastRun *BatchResult
}

// NewRecalculationScheduler creates a new scheduler.
func NewRecalculationScheduler(handler *Handler, tenantID payroll.TenantID, periodID payroll.PeriodID) *RecalculationScheduler {
	return &RecalculationScheduler{
		Handler:       handler,
		TenantID:      tenantID,
		PeriodID:      periodID,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler. Calling it on a running scheduler does nothing.
func (rs *RecalculationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		return
	}
	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if rs.PeriodID == "" {
		log.Println("[Scheduler] No period configured, not starting")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rs.cancel = cancel
	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.done = make(chan struct{})

	go rs.run(ctx, rs.ticker, rs.stop, rs.done)

	log.Printf("[Scheduler] Started for period %s with check interval: %v", rs.PeriodID, rs.CheckInterval)
}

// Stop stops the scheduler and waits for a running batch to end.
func (rs *RecalculationScheduler) Stop() {
	rs.mu.Lock()
	ticker, cancel, stop, done := rs.ticker, rs.cancel, rs.stop, rs.done
	rs.ticker, rs.cancel, rs.stop, rs.done = nil, nil, nil, nil
	rs.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	cancel()
	close(stop)
	<-done
	log.Println("[Scheduler] Stopped")
}

// LastRun returns the result of the most recent tick, or nil.
func (rs *RecalculationScheduler) LastRun() *BatchResult {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastRun
}

func (rs *RecalculationScheduler) run(ctx context.Context, ticker *time.Ticker, stop, done chan struct{}) {
	defer close(done)

	// Run immediately on start
	rs.recalculate(ctx)

	for {
		select {
		case <-ticker.C:
			rs.recalculate(ctx)
		case <-stop:
			return
		}
	}
}

func (rs *RecalculationScheduler) recalculate(ctx context.Context) {
	instructors, err := rs.Handler.Store.ListInstructors(ctx, rs.TenantID)
	if err != nil {
		log.Printf("[Scheduler] Error listing instructors: %v", err)
		return
	}

	ids := make([]payroll.InstructorID, len(instructors))
	for i, inst := range instructors {
		ids[i] = inst.ID
	}

	rs.Handler.calcMu.Lock()
	result, err := rs.Handler.Batch.Run(ctx, rs.TenantID, rs.PeriodID, ids)
	rs.Handler.calcMu.Unlock()
	if err != nil {
		log.Printf("[Scheduler] Recalculation interrupted: %v", err)
	}

	rs.mu.Lock()
	rs.lastRun = result
	rs.mu.Unlock()
}
