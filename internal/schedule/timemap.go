package schedule

import "time"

const (
	// DefaultFirstSlot is the offset from midnight of the first tracked cell (07:00).
	DefaultFirstSlot = 7 * time.Hour
	// DefaultSlotDuration is the span of a single cell.
	DefaultSlotDuration = 15 * time.Minute
)

// TimeMapper converts a cell index on the given day into an absolute timestamp.
type TimeMapper func(index int, day time.Time) time.Time

// SlotMapper returns a TimeMapper where cell 0 starts firstSlot after midnight
// of day and every cell spans slot. Timestamps are wall-clock times in the
// location of day.
func SlotMapper(firstSlot, slot time.Duration) TimeMapper {
	return func(index int, day time.Time) time.Time {
		y, m, d := day.Date()
		offset := firstSlot + time.Duration(index)*slot
		return time.Date(y, m, d, 0, 0, int(offset/time.Second), 0, day.Location())
	}
}

// Midnight returns the start of the calendar day of t in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
