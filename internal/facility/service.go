package facility

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"campus-facility-backend/internal/allocation"
	"campus-facility-backend/internal/belongings"
	"campus-facility-backend/internal/clock"
	"campus-facility-backend/internal/discipline"
	"campus-facility-backend/internal/identity"
	"campus-facility-backend/internal/ledger"
	"campus-facility-backend/internal/notify"
	"campus-facility-backend/internal/store"
	"campus-facility-backend/internal/violation"
)

// Action and session kinds used by the features.
const (
	ActionGateEntry     = "gate.entry"
	ActionGateExit      = "gate.exit"
	SessionGate         = "gate"
	SessionLibraryVisit = "library-visit"
)

// Options configures the engine. Zero values fall back to the campus
// defaults, except DailyFine: a zero fine means late returns are free.
type Options struct {
	Location           *time.Location
	MealWindows        []clock.Window
	GateHours          clock.OperatingHours
	ViolationThreshold int
	MaxActiveLoans     int
	LoanPeriod         time.Duration
	DailyFine          decimal.Decimal
	ItemValidity       time.Duration
	Now                func() time.Time
	NewID              func() string
}

// DefaultMealWindows are the cafeteria service hours.
func DefaultMealWindows() []clock.Window {
	return []clock.Window{
		clock.MustWindow("breakfast", "Breakfast", "06:00", "08:30"),
		clock.MustWindow("lunch", "Lunch", "11:30", "13:15"),
		clock.MustWindow("dinner", "Dinner", "17:15", "19:00"),
	}
}

// DefaultGateHours keeps the gate open from 06:00 to midnight.
func DefaultGateHours() clock.OperatingHours {
	return clock.OperatingHours{Open: 6 * 60, Close: clock.MinutesPerDay}
}

func (o *Options) applyDefaults() error {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if len(o.MealWindows) == 0 {
		o.MealWindows = DefaultMealWindows()
	}
	for _, w := range o.MealWindows {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	if o.GateHours == (clock.OperatingHours{}) {
		o.GateHours = DefaultGateHours()
	}
	if o.ViolationThreshold <= 0 {
		o.ViolationThreshold = violation.DefaultThreshold
	}
	if o.MaxActiveLoans <= 0 {
		o.MaxActiveLoans = allocation.DefaultMaxActiveLoans
	}
	if o.LoanPeriod <= 0 {
		o.LoanPeriod = 14 * 24 * time.Hour
	}
	if o.DailyFine.IsNegative() {
		return fmt.Errorf("daily fine %s is negative", o.DailyFine)
	}
	if o.ItemValidity <= 0 {
		o.ItemValidity = belongings.DefaultValidity
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return nil
}

// Service is the process-wide engine instance. Every mutating operation runs
// under one lock, so check-then-act sequences cannot interleave.
type Service struct {
	mu   sync.Mutex
	opts Options

	bus        *notify.Bus
	subjects   *identity.Registry
	ledger     *ledger.Ledger
	violations *violation.Accrual
	allocator  *allocation.Allocator
	office     *discipline.Office
	belongings *belongings.Registry
}

// Open loads every aggregate from st and wires the components to bus.
func Open(ctx context.Context, st store.Store, bus *notify.Bus, opts Options) (*Service, error) {
	if err := opts.applyDefaults(); err != nil {
		return nil, fmt.Errorf("invalid facility options: %w", err)
	}

	subjects, err := identity.Open(ctx, st, bus)
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(ctx, st, bus, opts.NewID)
	if err != nil {
		return nil, err
	}
	v, err := violation.Open(ctx, st, bus, subjects, opts.ViolationThreshold, opts.NewID)
	if err != nil {
		return nil, err
	}
	a, err := allocation.Open(ctx, st, bus, opts.MaxActiveLoans, opts.NewID)
	if err != nil {
		return nil, err
	}
	office, err := discipline.Open(ctx, st, bus, subjects, opts.NewID)
	if err != nil {
		return nil, err
	}
	items, err := belongings.Open(ctx, st, bus, opts.NewID)
	if err != nil {
		return nil, err
	}

	return &Service{
		opts:       opts,
		bus:        bus,
		subjects:   subjects,
		ledger:     l,
		violations: v,
		allocator:  a,
		office:     office,
		belongings: items,
	}, nil
}

func (s *Service) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// Today is the period key of the current campus day.
func (s *Service) Today() string {
	return clock.DateKey(s.now())
}

// Options returns the effective configuration.
func (s *Service) Options() Options { return s.opts }

func (s *Service) Bus() *notify.Bus                 { return s.bus }
func (s *Service) Subjects() *identity.Registry     { return s.subjects }
func (s *Service) Ledger() *ledger.Ledger           { return s.ledger }
func (s *Service) Violations() *violation.Accrual   { return s.violations }
func (s *Service) Allocator() *allocation.Allocator { return s.allocator }
func (s *Service) Discipline() *discipline.Office   { return s.office }
func (s *Service) Belongings() *belongings.Registry { return s.belongings }

// OnSuspend registers a hook run after a subject is suspended.
func (s *Service) OnSuspend(h violation.SuspendHook) {
	s.violations.OnSuspend(h)
}

// SweepReport counts what a sweep changed.
type SweepReport struct {
	OverdueLoans int `json:"overdue_loans"`
	StaleVisits  int `json:"stale_visits"`
	ExpiredItems int `json:"expired_items"`
}

// Sweep marks overdue loans, closes library visits left open on earlier days
// and expires lapsed personal item registrations.
func (s *Service) Sweep(ctx context.Context) (SweepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var report SweepReport
	var err error
	if report.OverdueLoans, err = s.allocator.MarkOverdue(ctx, now); err != nil {
		return report, err
	}
	if report.StaleVisits, err = s.ledger.CloseStale(ctx, SessionLibraryVisit, clock.DateKey(now), now); err != nil {
		return report, err
	}
	if report.ExpiredItems, err = s.belongings.Expire(ctx, now); err != nil {
		return report, err
	}
	return report, nil
}
