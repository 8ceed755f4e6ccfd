package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/models"
)

func shift(fromH, fromM, toH, toM int, typ models.Token) models.Appointment {
	return models.Appointment{
		StartTime: time.Date(2017, 3, 6, fromH, fromM, 0, 0, time.UTC),
		EndTime:   time.Date(2017, 3, 6, toH, toM, 0, 0, time.UTC),
		Type:      typ,
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	p := newMemoryProvider("memory")
	r := NewReconciler(discardLogger(), nil, false)
	appointments := []models.Appointment{shift(7, 0, 9, 0, models.TokenPhones)}

	first, err := r.Sync(context.Background(), appointments, p)
	require.NoError(t, err)
	second, err := r.Sync(context.Background(), appointments, p)
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second, "existing events are still counted")
	assert.Equal(t, 1, p.creates)
	assert.Len(t, p.events, 1)
}

func TestSyncSkipsUnmappedTypes(t *testing.T) {
	p := newMemoryProvider("memory")
	r := NewReconciler(discardLogger(), nil, false)
	appointments := []models.Appointment{
		shift(7, 0, 8, 0, models.Token("")),
		shift(8, 0, 9, 0, models.TokenPTO),
		shift(9, 0, 10, 0, models.Token("M")),
	}

	made, err := r.Sync(context.Background(), appointments, p)

	require.NoError(t, err)
	assert.Equal(t, 0, made)
	assert.Equal(t, 0, p.queries)
	assert.Equal(t, 0, p.creates)
}

func TestSyncRequiresExactMatch(t *testing.T) {
	p := newMemoryProvider("memory")
	// Same label, overlapping but not identical interval.
	p.events = []models.Event{{
		Summary:   "On Phones",
		StartTime: time.Date(2017, 3, 6, 7, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2017, 3, 6, 8, 0, 0, 0, time.UTC),
	}}
	r := NewReconciler(discardLogger(), nil, false)

	made, err := r.Sync(context.Background(), []models.Appointment{shift(7, 30, 9, 0, models.TokenPhones)}, p)

	require.NoError(t, err)
	assert.Equal(t, 1, made)
	assert.Equal(t, 1, p.creates)
}

func TestSyncMatchesAcrossTimeZones(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	p := newMemoryProvider("memory")
	appointment := shift(13, 0, 15, 0, models.TokenChat)
	p.events = []models.Event{{
		Summary:   "On Chat",
		StartTime: appointment.StartTime.In(loc),
		EndTime:   appointment.EndTime.In(loc),
	}}
	r := NewReconciler(discardLogger(), nil, false)

	_, err = r.Sync(context.Background(), []models.Appointment{appointment}, p)

	require.NoError(t, err)
	assert.Equal(t, 0, p.creates)
}

func TestSyncSurfacesFailures(t *testing.T) {
	p := newMemoryProvider("memory")
	p.createErr = errors.New("boom")
	r := NewReconciler(discardLogger(), nil, false)
	appointments := []models.Appointment{
		shift(7, 0, 8, 0, models.TokenPhones),
		shift(8, 0, 9, 0, models.TokenChat),
	}

	made, err := r.Sync(context.Background(), appointments, p)

	require.Error(t, err)
	assert.ErrorIs(t, err, p.createErr)
	assert.Equal(t, 0, made, "failed creates are not counted")
	assert.Equal(t, 2, p.creates, "remaining appointments are still attempted")
}

func TestSyncQueryFailure(t *testing.T) {
	p := newMemoryProvider("memory")
	p.queryErr = errors.New("unavailable")
	r := NewReconciler(discardLogger(), nil, false)

	made, err := r.Sync(context.Background(), []models.Appointment{shift(7, 0, 8, 0, models.TokenPhones)}, p)

	assert.ErrorIs(t, err, p.queryErr)
	assert.Equal(t, 0, made)
	assert.Equal(t, 0, p.creates)
}

func TestSyncDryRun(t *testing.T) {
	p := newMemoryProvider("memory")
	r := NewReconciler(discardLogger(), nil, true)

	made, err := r.Sync(context.Background(), []models.Appointment{shift(7, 0, 8, 0, models.TokenPhones)}, p)

	require.NoError(t, err)
	assert.Equal(t, 1, made)
	assert.Equal(t, 1, p.queries)
	assert.Equal(t, 0, p.creates)
}

func TestSyncCustomSummaries(t *testing.T) {
	p := newMemoryProvider("memory")
	table := DefaultSummaries()
	table[models.TokenSharedLunch] = "Team Lunch"
	r := NewReconciler(discardLogger(), table, false)

	_, err := r.Sync(context.Background(), []models.Appointment{shift(13, 0, 16, 0, models.TokenSharedLunch)}, p)

	require.NoError(t, err)
	require.Len(t, p.events, 1)
	assert.Equal(t, "Team Lunch", p.events[0].Summary)
}

func TestSyncAll(t *testing.T) {
	good := newMemoryProvider("good")
	bad := newMemoryProvider("bad")
	bad.createErr = errors.New("denied")
	r := NewReconciler(discardLogger(), nil, false)
	appointments := []models.Appointment{shift(7, 0, 8, 0, models.TokenPhones)}

	results, err := r.SyncAll(context.Background(), appointments, []Provider{good, bad})

	require.Error(t, err)
	assert.ErrorIs(t, err, bad.createErr)
	assert.Contains(t, err.Error(), "bad")
	require.Len(t, results, 2)
	assert.Equal(t, ProviderResult{Provider: "good", Made: 1}, results[0])
	assert.Equal(t, "bad", results[1].Provider)
	assert.Equal(t, 0, results[1].Made)
	assert.ErrorIs(t, results[1].Err, bad.createErr)
	assert.Len(t, good.events, 1)
}

func TestSyncAllJoinsEveryFailure(t *testing.T) {
	first := newMemoryProvider("first")
	first.queryErr = errors.New("first down")
	second := newMemoryProvider("second")
	second.queryErr = errors.New("second down")
	r := NewReconciler(discardLogger(), nil, false)

	_, err := r.SyncAll(context.Background(), []models.Appointment{shift(7, 0, 8, 0, models.TokenPhones)}, []Provider{first, second})

	assert.ErrorIs(t, err, first.queryErr)
	assert.ErrorIs(t, err, second.queryErr)
}

func TestSyncAllKeepsProvidersWithSameName(t *testing.T) {
	work := newMemoryProvider("caldav")
	home := newMemoryProvider("caldav")
	home.events = []models.Event{{
		Summary:   "On Phones",
		StartTime: time.Date(2017, 3, 6, 7, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2017, 3, 6, 8, 0, 0, 0, time.UTC),
	}}
	r := NewReconciler(discardLogger(), nil, false)
	appointments := []models.Appointment{
		shift(7, 0, 8, 0, models.TokenPhones),
		shift(8, 0, 9, 0, models.TokenChat),
	}

	results, err := r.SyncAll(context.Background(), appointments, []Provider{work, home})

	require.NoError(t, err)
	assert.Equal(t, []ProviderResult{{Provider: "caldav", Made: 2}, {Provider: "caldav", Made: 2}}, results)
	assert.Equal(t, 2, work.creates)
	assert.Equal(t, 1, home.creates)
}
