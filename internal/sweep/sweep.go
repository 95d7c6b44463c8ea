package sweep

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"campus-facility-backend/internal/facility"
)

// Sweeper is the maintenance operation run on each tick.
type Sweeper interface {
	Sweep(ctx context.Context) (facility.SweepReport, error)
}

// Service runs the periodic maintenance sweep on a cron schedule.
type Service struct {
	enabled  bool
	schedule string
	target   Sweeper
	timeout  time.Duration
}

// NewService validates schedule up front so a bad expression fails at startup.
func NewService(enabled bool, schedule string, target Sweeper) (*Service, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return &Service{enabled: enabled, schedule: schedule, target: target, timeout: time.Minute}, nil
}

// Run sweeps once, then on every schedule tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.enabled {
		log.Println("Sweep is disabled. Not starting.")
		return
	}
	log.Printf("Starting sweep service (%s)...", s.schedule)

	s.RunOnce(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		log.Printf("Error scheduling sweep: %v", err)
		return
	}
	c.Start()

	<-ctx.Done()
	log.Println("Sweep service shutting down.")
	<-c.Stop().Done()
}

// RunOnce performs a single sweep and logs its outcome.
func (s *Service) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.target.Sweep(ctx)
	if err != nil {
		log.Printf("Error during sweep: %v", err)
		return
	}
	if report.OverdueLoans > 0 || report.StaleVisits > 0 || report.ExpiredItems > 0 {
		log.Printf("Sweep marked %d loans overdue, closed %d stale library visits and expired %d personal items",
			report.OverdueLoans, report.StaleVisits, report.ExpiredItems)
	}
}
