package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shiftcal/internal/interval"
	"shiftcal/internal/models"
	"shiftcal/internal/schedule"
)

// ScheduleSource reads schedule rows from the shared weekly schedule.
type ScheduleSource interface {
	// ReadRow returns the cells of a row for the day. Read failures yield an empty slice.
	ReadRow(ctx context.Context, row int, day time.Time) []models.Token
	// FindRow returns the row of the named person on the day's sheet, or models.ErrPersonNotFound.
	FindRow(ctx context.Context, name string, day time.Time) (int, error)
}

// Person identifies whose schedule to read. A positive Row is used as is;
// otherwise the row is looked up by Name for every day.
type Person struct {
	Name string
	Row  int
}

func (p Person) String() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("row %d", p.Row)
}

// LunchOptions configures the shared lunch search.
type LunchOptions struct {
	Earliest  float64
	Latest    float64
	MinHours  float64
	BusyTypes models.TokenSet
}

// DefaultLunchOptions returns the standard 11:00-16:00 window with a 1.5 hour minimum.
func DefaultLunchOptions() LunchOptions {
	return LunchOptions{
		Earliest:  schedule.DefaultLunchEarliest,
		Latest:    schedule.DefaultLunchLatest,
		MinHours:  schedule.DefaultLunchMinHours,
		BusyTypes: schedule.DefaultBusyTypes(),
	}
}

// DayReport is the outcome for one day.
type DayReport struct {
	Day        time.Time
	NoSchedule bool             // at least one person had no schedule for the day
	Results    []ProviderResult // one per provider, in provider order
}

// Syncer orchestrates the day-by-day synchronization from the schedule to the calendars.
type Syncer struct {
	logger     *slog.Logger
	source     ScheduleSource
	coalescer  *schedule.Coalescer
	reconciler *Reconciler
	providers  []Provider
	loc        *time.Location
}

// NewSyncer creates a new Syncer. All days are interpreted in loc. A nil
// coalescer or reconciler is replaced by the default one.
func NewSyncer(logger *slog.Logger, source ScheduleSource, coalescer *schedule.Coalescer, reconciler *Reconciler, providers []Provider, loc *time.Location) (*Syncer, error) {
	if source == nil {
		return nil, errors.New("schedule source is required")
	}
	if len(providers) == 0 {
		return nil, errors.New("at least one calendar provider is required")
	}
	if loc == nil {
		loc = time.Local
	}
	if coalescer == nil {
		coalescer = schedule.NewCoalescer(nil)
	}
	if reconciler == nil {
		reconciler = NewReconciler(logger, nil, false)
	}
	return &Syncer{
		logger:     logger,
		source:     source,
		coalescer:  coalescer,
		reconciler: reconciler,
		providers:  providers,
		loc:        loc,
	}, nil
}

// Days returns the midnights of the weekdays among the lookAhead days starting at start.
func (s *Syncer) Days(start time.Time, lookAhead int) []time.Time {
	first := schedule.Midnight(start, s.loc)
	var days []time.Time
	for n := 0; n < lookAhead; n++ {
		day := first.AddDate(0, 0, n)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		days = append(days, day)
	}
	return days
}

// SyncShifts pushes one person's shifts for every weekday in the range to all providers.
func (s *Syncer) SyncShifts(ctx context.Context, person Person, start time.Time, lookAhead int) ([]DayReport, error) {
	var (
		reports []DayReport
		errs    []error
	)
	for _, day := range s.Days(start, lookAhead) {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		logger := s.logger.With("day", day.Format(time.DateOnly), "person", person.String())

		appointments, ok := s.appointments(ctx, logger, person, day)
		if !ok {
			reports = append(reports, DayReport{Day: day, NoSchedule: true})
			continue
		}

		report, err := s.reconcile(ctx, logger, day, appointments)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// SyncLunch finds the windows every person has free for lunch on each weekday
// in the range and pushes them to all providers.
func (s *Syncer) SyncLunch(ctx context.Context, people []Person, opts LunchOptions, start time.Time, lookAhead int) ([]DayReport, error) {
	if len(people) < 2 {
		return nil, errors.New("a shared lunch needs at least two people")
	}

	var (
		reports []DayReport
		errs    []error
	)
	for _, day := range s.Days(start, lookAhead) {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		logger := s.logger.With("day", day.Format(time.DateOnly))

		participants := make([][]models.Appointment, 0, len(people))
		for _, person := range people {
			appointments, ok := s.appointments(ctx, logger.With("person", person.String()), person, day)
			if !ok {
				break
			}
			participants = append(participants, appointments)
		}
		if len(participants) < len(people) {
			logger.Info("No schedule yet defined.")
			reports = append(reports, DayReport{Day: day, NoSchedule: true})
			continue
		}

		lunches := schedule.FindSharedFreeWindows(participants, schedule.FreeWindowQuery{
			Day:       day,
			Window:    interval.New(opts.Earliest, opts.Latest),
			BusyTypes: opts.BusyTypes,
			MinHours:  opts.MinHours,
			Type:      models.TokenSharedLunch,
		})
		logger.Debug("Found shared free windows.", "count", len(lunches))

		report, err := s.reconcile(ctx, logger, day, lunches)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// appointments reads and coalesces a person's row for the day. It reports
// false when the person has no schedule for the day.
func (s *Syncer) appointments(ctx context.Context, logger *slog.Logger, person Person, day time.Time) ([]models.Appointment, bool) {
	row := person.Row
	if row <= 0 {
		var err error
		row, err = s.source.FindRow(ctx, person.Name, day)
		if err != nil {
			if errors.Is(err, models.ErrPersonNotFound) {
				logger.Info("Person not on the schedule, skipping day.")
			} else {
				logger.Warn("Could not look up schedule row, skipping day.", "error", err)
			}
			return nil, false
		}
	}

	cells := s.source.ReadRow(ctx, row, day)
	if len(cells) == 0 {
		return nil, false
	}
	appointments := s.coalescer.Coalesce(cells, day)
	return appointments, len(appointments) > 0
}

func (s *Syncer) reconcile(ctx context.Context, logger *slog.Logger, day time.Time, appointments []models.Appointment) (DayReport, error) {
	results, err := s.reconciler.SyncAll(ctx, appointments, s.providers)
	for _, res := range results {
		if res.Made == 0 && res.Err == nil {
			logger.Info("No shifts found.", "provider", res.Provider)
		}
	}
	if err != nil {
		err = fmt.Errorf("%s: %w", day.Format(time.DateOnly), err)
	}
	return DayReport{Day: day, Results: results}, err
}
