package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/interval"
	"shiftcal/internal/models"
)

func appt(day time.Time, fromH, fromM, toH, toM int, typ models.Token) models.Appointment {
	y, m, d := day.Date()
	return models.Appointment{
		StartTime: time.Date(y, m, d, fromH, fromM, 0, 0, day.Location()),
		EndTime:   time.Date(y, m, d, toH, toM, 0, 0, day.Location()),
		Type:      typ,
	}
}

func lunchQuery(day time.Time, minHours float64) FreeWindowQuery {
	return FreeWindowQuery{
		Day:       day,
		Window:    interval.Range{Start: DefaultLunchEarliest, End: DefaultLunchLatest},
		BusyTypes: DefaultBusyTypes(),
		MinHours:  minHours,
		Type:      models.TokenSharedLunch,
	}
}

func TestFindSharedFreeWindows(t *testing.T) {
	day := time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC)
	alice := []models.Appointment{appt(day, 12, 0, 13, 0, models.TokenPhones)}
	bob := []models.Appointment{appt(day, 12, 0, 13, 0, models.TokenChat)}

	got := FindSharedFreeWindows([][]models.Appointment{alice, bob}, lunchQuery(day, 0))

	assert.Equal(t, []models.Appointment{
		appt(day, 11, 0, 12, 0, models.TokenSharedLunch),
		appt(day, 13, 0, 16, 0, models.TokenSharedLunch),
	}, got)
}

func TestFindSharedFreeWindowsMinLength(t *testing.T) {
	day := time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC)
	alice := []models.Appointment{appt(day, 12, 0, 13, 0, models.TokenPhones)}
	bob := []models.Appointment{appt(day, 12, 0, 13, 0, models.TokenChat)}

	got := FindSharedFreeWindows([][]models.Appointment{alice, bob}, lunchQuery(day, 1.5))

	assert.Equal(t, []models.Appointment{appt(day, 13, 0, 16, 0, models.TokenSharedLunch)}, got)
}

func TestFindSharedFreeWindowsIgnoresNonBusyTypes(t *testing.T) {
	day := time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC)
	alice := []models.Appointment{
		appt(day, 7, 0, 11, 30, models.TokenPhones),
		appt(day, 11, 30, 14, 0, models.Token("M")),
		appt(day, 14, 0, 22, 0, models.Token("")),
	}
	bob := []models.Appointment{appt(day, 15, 0, 16, 0, models.TokenPTO)}

	got := FindSharedFreeWindows([][]models.Appointment{alice, bob}, lunchQuery(day, 1.5))

	assert.Equal(t, []models.Appointment{appt(day, 11, 30, 15, 0, models.TokenSharedLunch)}, got)
}

func TestFindSharedFreeWindowsOrderIndependent(t *testing.T) {
	day := time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC)
	a := appt(day, 11, 15, 12, 0, models.TokenPhones)
	b := appt(day, 13, 30, 14, 0, models.TokenChat)
	c := appt(day, 11, 45, 12, 30, models.TokenChat)

	forward := FindSharedFreeWindows([][]models.Appointment{{a, b}, {c}}, lunchQuery(day, 0))
	backward := FindSharedFreeWindows([][]models.Appointment{{c}, {b, a}}, lunchQuery(day, 0))

	assert.Equal(t, forward, backward)
	require.Len(t, forward, 3)
}

func TestFindSharedFreeWindowsFullyBusy(t *testing.T) {
	day := time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC)
	alice := []models.Appointment{appt(day, 10, 0, 17, 0, models.TokenPhones)}
	bob := []models.Appointment{appt(day, 12, 0, 13, 0, models.TokenChat)}

	got := FindSharedFreeWindows([][]models.Appointment{alice, bob}, lunchQuery(day, 0))

	assert.Empty(t, got, "zero-length leftovers must be dropped")
}

func TestFindSharedFreeWindowsMissingSchedule(t *testing.T) {
	day := time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC)
	alice := []models.Appointment{appt(day, 12, 0, 13, 0, models.TokenPhones)}

	assert.Empty(t, FindSharedFreeWindows([][]models.Appointment{alice, nil}, lunchQuery(day, 0)))
	assert.Empty(t, FindSharedFreeWindows(nil, lunchQuery(day, 0)))
}

func TestHourMinuteTruncates(t *testing.T) {
	tests := []struct {
		in         float64
		hour, mins int
	}{
		{11.0, 11, 0},
		{13.25, 13, 15},
		{15.75, 15, 45},
		{13.999, 13, 59},
		{12.0 + 59.9/60, 12, 59},
	}
	for _, tt := range tests {
		h, m := HourMinute(tt.in)
		assert.Equal(t, tt.hour, h, "hour of %v", tt.in)
		assert.Equal(t, tt.mins, m, "minute of %v", tt.in)
	}
}

func TestFractionalHour(t *testing.T) {
	ts := time.Date(2017, 3, 6, 13, 45, 30, 0, time.UTC)
	assert.Equal(t, 13.75, FractionalHour(ts))
	assert.Equal(t, time.Date(2017, 3, 6, 13, 45, 0, 0, time.UTC), AtFractionalHour(ts, 13.75))
}

func TestAtFractionalHourRoundTripsEveryMinute(t *testing.T) {
	day := time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC)

	for ts := day.Add(7 * time.Hour); !ts.After(day.Add(22 * time.Hour)); ts = ts.Add(time.Minute) {
		got := AtFractionalHour(day, FractionalHour(ts))
		if !got.Equal(ts) {
			t.Fatalf("%s came back as %s", ts.Format("15:04"), got.Format("15:04"))
		}
	}
}

func TestFindSharedFreeWindowsOffGridBoundary(t *testing.T) {
	day := time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC)
	alice := []models.Appointment{appt(day, 11, 0, 13, 10, models.TokenPhones)}
	bob := []models.Appointment{appt(day, 11, 0, 13, 10, models.TokenPhones)}

	got := FindSharedFreeWindows([][]models.Appointment{alice, bob}, lunchQuery(day, 1.5))

	require.Len(t, got, 1)
	assert.Equal(t, appt(day, 13, 10, 16, 0, models.TokenSharedLunch), got[0])
	assert.False(t, got[0].StartTime.Before(alice[0].EndTime), "window overlaps the shift")
}

func TestFindSharedFreeWindowsTenMinuteGrid(t *testing.T) {
	day := time.Date(2017, 3, 6, 0, 0, 0, 0, time.UTC)
	c := NewCoalescer(SlotMapper(7*time.Hour, 10*time.Minute))
	// 25 cells of phones reach 11:10, then chat until 13:20.
	cells := make([]models.Token, 0, 40)
	for i := 0; i < 25; i++ {
		cells = append(cells, models.TokenPhones)
	}
	for i := 0; i < 13; i++ {
		cells = append(cells, models.TokenChat)
	}
	alice := c.Coalesce(cells, day)
	bob := []models.Appointment{appt(day, 15, 40, 16, 0, models.TokenPTO)}

	got := FindSharedFreeWindows([][]models.Appointment{alice, bob}, lunchQuery(day, 1.5))

	assert.Equal(t, []models.Appointment{appt(day, 13, 20, 15, 40, models.TokenSharedLunch)}, got)
}
