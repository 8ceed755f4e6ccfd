package models

import "time"

// Event represents a calendar event as seen through a provider.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID          string    // Provider-specific identifier (Google event ID or CalDAV object path)
	Summary     string    // Summary (Google) or SUMMARY (CalDAV)
	Description string    // Detailed description of the event
	StartTime   time.Time // Start time of the event
	EndTime     time.Time // End time of the event
	Source      string    // The provider that returned the event (e.g., "google")
	UID         string    // The iCalendar UID
}

// Matches reports whether the event occupies exactly the same interval as the appointment.
// Overlap alone is not a match: adjacent shifts with the same label are distinct events.
func (e Event) Matches(a Appointment) bool {
	return e.StartTime.Equal(a.StartTime) && e.EndTime.Equal(a.EndTime)
}

// EventDefaults are applied by every provider to the events it creates.
type EventDefaults struct {
	Description string
	Reminders   []time.Duration // reminders before the start
}

// DefaultReminders fire five minutes before and at the start of an event.
var DefaultReminders = []time.Duration{5 * time.Minute, 0}

// DefaultEventDefaults returns the standard description and reminders. The
// contact is mentioned in the description when set.
func DefaultEventDefaults(contact string) EventDefaults {
	description := "This event was created by Frontline Calendar."
	if contact != "" {
		description += " Contact " + contact + " with issues."
	}
	return EventDefaults{
		Description: description,
		Reminders:   append([]time.Duration(nil), DefaultReminders...),
	}
}
