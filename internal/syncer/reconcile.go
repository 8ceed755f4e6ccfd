package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"shiftcal/internal/models"
)

// SummaryTable maps appointment types to calendar event summaries. Types
// without an entry are never synced.
type SummaryTable map[models.Token]string

// DefaultSummaries returns the standard summary table.
func DefaultSummaries() SummaryTable {
	return SummaryTable{
		models.TokenPhones:      "On Phones",
		models.TokenChat:        "On Chat",
		models.TokenSharedLunch: "Lunch Date",
	}
}

// Summary returns the summary for an appointment type.
func (t SummaryTable) Summary(typ models.Token) (string, bool) {
	s, ok := t[typ]
	return s, ok && s != ""
}

// Reconciler pushes appointments to calendar providers without creating duplicates.
type Reconciler struct {
	logger    *slog.Logger
	summaries SummaryTable
	dryRun    bool
}

// NewReconciler creates a Reconciler. A nil table uses DefaultSummaries.
func NewReconciler(logger *slog.Logger, summaries SummaryTable, dryRun bool) *Reconciler {
	if summaries == nil {
		summaries = DefaultSummaries()
	}
	return &Reconciler{logger: logger, summaries: summaries, dryRun: dryRun}
}

// Sync makes sure every summarized appointment has an event in p.
//
// It returns the number of appointments that had a summary, whether or not an
// event had to be created for them. Appointments whose query or create fails
// are not counted; their errors are joined and returned after the remaining
// appointments have been processed.
func (r *Reconciler) Sync(ctx context.Context, appointments []models.Appointment, p Provider) (int, error) {
	logger := r.logger.With("provider", p.Name())
	made := 0
	var errs []error

	for _, appointment := range appointments {
		summary, ok := r.summaries.Summary(appointment.Type)
		if !ok {
			continue
		}

		exists, err := r.exists(ctx, p, appointment, summary)
		if err != nil {
			errs = append(errs, fmt.Errorf("query %s: %w", appointment, err))
			continue
		}
		if exists {
			logger.Info("Found matching event, will not create a new one.", "appointment", appointment.String())
			made++
			continue
		}

		if r.dryRun {
			logger.Info("[DRY RUN] Would create new event", "summary", summary, "start", appointment.StartTime, "end", appointment.EndTime)
			made++
			continue
		}

		event, err := p.Create(ctx, appointment, summary)
		if err != nil {
			errs = append(errs, fmt.Errorf("create %s: %w", appointment, err))
			continue
		}
		logger.Info("Calendar event created.", "summary", summary, "start", appointment.StartTime, "end", appointment.EndTime, "id", event.ID)
		made++
	}

	return made, errors.Join(errs...)
}

// ProviderResult is the outcome of reconciling against one provider.
type ProviderResult struct {
	Provider string
	Made     int
	Err      error
}

// SyncAll reconciles the appointments against every provider concurrently.
// Results are returned in the order of providers, so providers sharing a
// name keep separate counts.
func (r *Reconciler) SyncAll(ctx context.Context, appointments []models.Appointment, providers []Provider) ([]ProviderResult, error) {
	results := make([]ProviderResult, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		i, p := i, p
		g.Go(func() error {
			made, err := r.Sync(ctx, appointments, p)
			if err != nil {
				err = fmt.Errorf("%s: %w", p.Name(), err)
			}
			results[i] = ProviderResult{Provider: p.Name(), Made: made, Err: err}
			return err
		})
	}
	if err := g.Wait(); err == nil {
		return results, nil
	}

	// Wait only keeps the first failure.
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return results, errors.Join(errs...)
}

// exists reports whether p already holds an event with exactly the appointment's interval.
func (r *Reconciler) exists(ctx context.Context, p Provider, appointment models.Appointment, summary string) (bool, error) {
	events, err := p.Query(ctx, appointment.StartTime, appointment.EndTime, summary)
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Matches(appointment) {
			return true, nil
		}
	}
	return false, nil
}
