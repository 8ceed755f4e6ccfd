package syncer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"shiftcal/internal/models"
)

// Provider is the capability the reconciler needs from a calendar back-end.
type Provider interface {
	// Name identifies the provider in logs and results.
	Name() string
	// Query returns events intersecting [timeMin, timeMax] whose text matches text.
	Query(ctx context.Context, timeMin, timeMax time.Time, text string) ([]models.Event, error)
	// Create persists a new event for the appointment with the given summary.
	Create(ctx context.Context, appointment models.Appointment, summary string) (*models.Event, error)
}

// throttledProvider waits on a shared limiter before every remote call.
type throttledProvider struct {
	Provider
	limiter *rate.Limiter
}

// Throttle wraps p so that its calls are spaced by limiter.
// A nil limiter returns p unchanged.
func Throttle(p Provider, limiter *rate.Limiter) Provider {
	if limiter == nil {
		return p
	}
	return &throttledProvider{Provider: p, limiter: limiter}
}

func (t *throttledProvider) Query(ctx context.Context, timeMin, timeMax time.Time, text string) ([]models.Event, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return t.Provider.Query(ctx, timeMin, timeMax, text)
}

func (t *throttledProvider) Create(ctx context.Context, appointment models.Appointment, summary string) (*models.Event, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return t.Provider.Create(ctx, appointment, summary)
}
