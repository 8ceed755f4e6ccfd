package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"shiftcal/internal/models"
)

// CalendarClient implements the syncer Provider capability on Google Calendar.
type CalendarClient struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
	loc        *time.Location
	defaults   models.EventDefaults
}

// NewCalendarClient creates a Google Calendar provider for calendarID.
// Times sent to and read from the API are expressed in loc.
func NewCalendarClient(ctx context.Context, logger *slog.Logger, httpClient *http.Client, calendarID string, loc *time.Location, defaults models.EventDefaults, opts ...option.ClientOption) (*CalendarClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &CalendarClient{
		service:    service,
		logger:     logger,
		calendarID: calendarID,
		loc:        loc,
		defaults:   defaults,
	}, nil
}

// Name implements syncer.Provider.
func (c *CalendarClient) Name() string {
	return "google:" + c.calendarID
}

// Query lists single events intersecting [timeMin, timeMax] that match text,
// following every result page.
func (c *CalendarClient) Query(ctx context.Context, timeMin, timeMax time.Time, text string) ([]models.Event, error) {
	c.logger.Debug("Querying Google Calendar", "calendarID", c.calendarID, "timeMin", timeMin, "timeMax", timeMax, "q", text)

	var events []models.Event
	err := c.service.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(c.format(timeMin)).
		TimeMax(c.format(timeMax)).
		Q(text).
		Pages(ctx, func(page *calendar.Events) error {
			events = append(events, c.toInternalEvents(page.Items)...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	return events, nil
}

// Create inserts an event for the appointment.
func (c *CalendarClient) Create(ctx context.Context, appointment models.Appointment, summary string) (*models.Event, error) {
	created, err := c.service.Events.Insert(c.calendarID, c.toGoogleEvent(appointment, summary)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	c.logger.Info("Google Calendar event created.", "link", created.HtmlLink, "summary", summary)

	events := c.toInternalEvents([]*calendar.Event{created})
	if len(events) == 0 {
		return nil, fmt.Errorf("created event %s has no start time", created.Id)
	}
	return &events[0], nil
}

func (c *CalendarClient) format(t time.Time) string {
	return t.In(c.loc).Format(time.RFC3339)
}

// toGoogleEvent builds the insert body for an appointment.
func (c *CalendarClient) toGoogleEvent(appointment models.Appointment, summary string) *calendar.Event {
	overrides := make([]*calendar.EventReminder, 0, len(c.defaults.Reminders))
	for _, before := range c.defaults.Reminders {
		overrides = append(overrides, &calendar.EventReminder{
			Method:  "popup",
			Minutes: int64(before / time.Minute),
			// Minutes is omitted from the request when zero otherwise.
			ForceSendFields: []string{"Minutes"},
		})
	}

	return &calendar.Event{
		Summary:     summary,
		Description: c.defaults.Description,
		Start: &calendar.EventDateTime{
			DateTime: c.format(appointment.StartTime),
			TimeZone: c.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: c.format(appointment.EndTime),
			TimeZone: c.loc.String(),
		},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

// toInternalEvents converts Google Calendar events to the internal Event model.
func (c *CalendarClient) toInternalEvents(googleEvents []*calendar.Event) []models.Event {
	var internalEvents []models.Event
	for _, item := range googleEvents {
		// All-day events carry a Date instead of a DateTime and never match a shift.
		if item == nil || item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
			continue
		}

		startTime, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			c.logger.Warn("Skipping event with unparseable start", "id", item.Id, "error", err)
			continue
		}
		endTime, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			c.logger.Warn("Skipping event with unparseable end", "id", item.Id, "error", err)
			continue
		}

		internalEvents = append(internalEvents, models.Event{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			StartTime:   startTime.In(c.loc),
			EndTime:     endTime.In(c.loc),
			UID:         item.ICalUID,
			Source:      fmt.Sprintf("google-%s", c.calendarID),
		})
	}
	return internalEvents
}
