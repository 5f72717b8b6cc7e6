// Package scheduler hosts the two interchangeable front-ends over the
// generator service: an in-process polling loop and a durable cron runner.
// Both lean on the generator's idempotency, so overlapping triggers from
// either (or both, or a manual CLI run) are harmless.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lessonloop/api/internal/generator"
	"github.com/lessonloop/api/internal/recurrence"
)

type PollerConfig struct {
	// Interval between rollover checks. Zero means 60s.
	Interval time.Duration
	// LookaheadDays is the catch-up window generated after a day rollover.
	// Zero means 7.
	LookaheadDays int
	// Now is the clock; tests override it.
	Now func() time.Time
}

// Poller triggers a generation pass when the calendar date rolls over. The
// loop itself must never die from a failed pass; failures are logged and
// retried on the next tick.
type Poller struct {
	generator     *generator.Service
	interval      time.Duration
	lookaheadDays int
	now           func() time.Time

	mu                 sync.Mutex
	running            bool
	lastGenerationDate time.Time
	stopChan           chan struct{}
}

func NewPoller(gen *generator.Service, cfg PollerConfig) *Poller {
	if cfg.Interval == 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.LookaheadDays == 0 {
		cfg.LookaheadDays = 7
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Poller{
		generator:     gen,
		interval:      cfg.Interval,
		lookaheadDays: cfg.LookaheadDays,
		now:           cfg.Now,
		stopChan:      make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	log.Printf("[Poller] Starting with interval %v, lookahead %d days", p.interval, p.lookaheadDays)

	// First pass immediately; the ticker covers rollovers from then on.
	p.Tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Poller] Context cancelled, stopping")
			return
		case <-p.stopChan:
			log.Println("[Poller] Stop signal received")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		close(p.stopChan)
		p.running = false
		log.Println("[Poller] Stopped")
	}
}

// Tick runs one rollover check: if the current calendar date differs from
// the last successfully generated one, a catch-up pass runs.
func (p *Poller) Tick(ctx context.Context) {
	today := recurrence.DateOnly(p.now())

	p.mu.Lock()
	upToDate := today.Equal(p.lastGenerationDate)
	p.mu.Unlock()

	if upToDate {
		return
	}

	p.generateSafe(ctx, today)
}

// generateSafe is the failure boundary around one catch-up pass. Errors and
// panics are logged; lastGenerationDate only advances on success, so a
// failed pass is retried on the next tick.
func (p *Poller) generateSafe(ctx context.Context, today time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Poller] Generation pass panicked: %v", r)
		}
	}()

	reports, err := p.generator.GenerateUpcoming(ctx, p.lookaheadDays)
	if err != nil {
		log.Printf("[Poller] Generation pass failed: %v", err)
		return
	}

	var generated, failed, skipped int
	for _, r := range reports {
		generated += r.Generated
		failed += r.Failed
		skipped += r.Skipped
	}
	log.Printf("[Poller] Pass for %s: generated=%d failed=%d skipped=%d over %d days",
		today.Format("2006-01-02"), generated, failed, skipped, len(reports))

	p.mu.Lock()
	p.lastGenerationDate = today
	p.mu.Unlock()
}

// GetStatus returns current poller status
func (p *Poller) GetStatus() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	lastDate := ""
	if !p.lastGenerationDate.IsZero() {
		lastDate = p.lastGenerationDate.Format("2006-01-02")
	}

	return map[string]interface{}{
		"running":            p.running,
		"interval":           p.interval.String(),
		"lookaheadDays":      p.lookaheadDays,
		"lastGenerationDate": lastDate,
	}
}
