package lottery

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/randworks/lottery_token/internal/logging"
	"github.com/randworks/lottery_token/internal/metrics"
)

// DefaultSweepSchedule runs the pending-request sweep every minute.
const DefaultSweepSchedule = "@every 1m"

// defaultStaleAfter is how long a request may stay pending before the sweep
// flags it. Oracle fulfillments normally arrive within a few blocks.
const defaultStaleAfter = 10 * time.Minute

// Sweeper periodically scans the registry for requests that never received a
// fulfillment. It only observes and reports; redelivery is the oracle's job.
type Sweeper struct {
	store      Store
	meter      *metrics.Metrics
	log        *logging.Logger
	schedule   string
	staleAfter time.Duration
	cron       *cron.Cron
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(store Store, meter *metrics.Metrics, log *logging.Logger) *Sweeper {
	if log == nil {
		log = logging.NewDefault("lottery-sweeper")
	}
	return &Sweeper{
		store:      store,
		meter:      meter,
		log:        log,
		schedule:   DefaultSweepSchedule,
		staleAfter: defaultStaleAfter,
	}
}

// WithSchedule overrides the cron schedule.
func (s *Sweeper) WithSchedule(schedule string) {
	s.schedule = schedule
}

// WithStaleAfter overrides the staleness threshold.
func (s *Sweeper) WithStaleAfter(d time.Duration) {
	s.staleAfter = d
}

// Start schedules the sweep. It returns once the schedule is registered.
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Sweep(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("pending-request sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info("pending-request sweeper stopped")
}

// Sweep runs one scan: it updates the pending gauge and logs requests older
// than the staleness threshold.
func (s *Sweeper) Sweep(ctx context.Context) {
	pending, err := s.store.ListByStatus(ctx, StatusPending, 0)
	if err != nil {
		s.log.WithError(err).Error("pending sweep failed")
		return
	}

	if s.meter != nil {
		s.meter.SetPendingRequests(len(pending))
	}

	cutoff := time.Now().Add(-s.staleAfter)
	for _, req := range pending {
		if req.CreatedAt.After(cutoff) {
			continue
		}
		entry := s.log.
			WithField("nonce", req.Nonce.String()).
			WithField("recipient", req.Recipient.Hex()).
			WithField("age", time.Since(req.CreatedAt).Round(time.Second).String())
		if req.LastError != "" {
			entry = entry.WithField("last_error", req.LastError)
		}
		entry.Warn("mint request still pending")
	}
}
