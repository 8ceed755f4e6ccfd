package schedule

import (
	"math"
	"time"

	"shiftcal/internal/interval"
	"shiftcal/internal/models"
)

// Lunch defaults.
const (
	DefaultLunchEarliest = 11.0
	DefaultLunchLatest   = 16.0
	DefaultLunchMinHours = 1.5
)

// DefaultBusyTypes are the tokens that make a person unavailable.
func DefaultBusyTypes() models.TokenSet {
	return models.NewTokenSet(models.TokenPhones, models.TokenChat, models.TokenPTO)
}

// FreeWindowQuery describes a shared free window search for one day.
type FreeWindowQuery struct {
	Day       time.Time      // any time on the day; its location is used for the results
	Window    interval.Range // candidate window in fractional hours
	BusyTypes models.TokenSet
	MinHours  float64
	Type      models.Token // type of the produced appointments
}

// FindSharedFreeWindows subtracts every busy appointment of every participant
// from the candidate window and returns the remaining windows that are at least
// MinHours long.
//
// A participant without appointments has no known schedule, so no window is
// returned at all.
func FindSharedFreeWindows(participants [][]models.Appointment, q FreeWindowQuery) []models.Appointment {
	if len(participants) == 0 {
		return nil
	}
	for _, p := range participants {
		if len(p) == 0 {
			return nil
		}
	}

	windows := []interval.Range{q.Window}
	for _, p := range participants {
		for _, a := range p {
			if !q.BusyTypes.Has(a.Type) {
				continue
			}
			windows = interval.SubtractAll(windows, interval.New(FractionalHour(a.StartTime), FractionalHour(a.EndTime)))
		}
	}

	var free []models.Appointment
	for _, w := range windows {
		if w.Length() < q.MinHours || w.Empty() {
			continue
		}
		free = append(free, models.Appointment{
			StartTime: AtFractionalHour(q.Day, w.Start),
			EndTime:   AtFractionalHour(q.Day, w.End),
			Type:      q.Type,
		})
	}
	return free
}

// FractionalHour returns the wall-clock time of t as hours since midnight,
// ignoring seconds.
func FractionalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// minuteEpsilon absorbs the float error of a whole minute stored as a
// fractional hour, e.g. 13:10 as 13.1666...
const minuteEpsilon = 1e-6

// HourMinute splits a fractional hour into whole hours and minutes. Minutes
// are truncated, never rounded up.
func HourMinute(fractional float64) (int, int) {
	total := int(math.Floor(fractional*60 + minuteEpsilon))
	return total / 60, total % 60
}

// AtFractionalHour returns the time on day's date at the given fractional hour.
func AtFractionalHour(day time.Time, fractional float64) time.Time {
	hour, minute := HourMinute(fractional)
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}
