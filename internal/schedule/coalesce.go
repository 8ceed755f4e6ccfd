// Package schedule turns schedule grid cells into appointments and finds
// free windows shared by several people.
package schedule

import (
	"time"

	"shiftcal/internal/models"
)

// Coalescer merges runs of equal cells into appointments.
type Coalescer struct {
	timeAt TimeMapper
}

// NewCoalescer creates a Coalescer. A nil mapper uses the default 07:00 / 15 minute grid.
func NewCoalescer(timeAt TimeMapper) *Coalescer {
	if timeAt == nil {
		timeAt = SlotMapper(DefaultFirstSlot, DefaultSlotDuration)
	}
	return &Coalescer{timeAt: timeAt}
}

// Coalesce scans cells left to right and returns one appointment per run of
// equal tokens, in start-time order.
//
// An empty row yields an empty slice. Blank cells are tokens like any other
// and form their own runs.
func (c *Coalescer) Coalesce(cells []models.Token, day time.Time) []models.Appointment {
	if len(cells) == 0 {
		return nil
	}

	var appointments []models.Appointment
	current := models.Appointment{
		StartTime: c.timeAt(0, day),
		EndTime:   c.timeAt(1, day),
		Type:      cells[0],
	}
	for i := 1; i < len(cells); i++ {
		if cells[i] == current.Type {
			current.EndTime = c.timeAt(i+1, day)
			continue
		}
		appointments = append(appointments, current)
		current = models.Appointment{
			StartTime: c.timeAt(i, day),
			EndTime:   c.timeAt(i+1, day),
			Type:      cells[i],
		}
	}
	return append(appointments, current)
}
