// Package dav implements the calendar provider on CalDAV servers such as
// iCloud, or Exchange reached through a CalDAV gateway.
package dav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"shiftcal/internal/models"
)

// ICloudEndpoint is the default CalDAV endpoint.
const ICloudEndpoint = "https://caldav.icloud.com/"

const productID = "-//shiftcal//EN"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "shiftcal/1.0")
	return t.Transport.RoundTrip(req)
}

// Options configure a CalDAVClient.
type Options struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
	Location     *time.Location
	Defaults     models.EventDefaults
}

// CalDAVClient implements the syncer Provider capability on a CalDAV calendar.
type CalDAVClient struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	name         string
	calendarPath string
	loc          *time.Location
	defaults     models.EventDefaults
}

// NewClient connects to the CalDAV server and locates the named calendar.
func NewClient(ctx context.Context, logger *slog.Logger, opts Options) (*CalDAVClient, error) {
	transport := &customTransport{
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: http.DefaultTransport,
	}
	c, err := newClient(logger, &http.Client{Transport: transport}, opts)
	if err != nil {
		return nil, err
	}

	logger.Info("Finding CalDAV calendar", "calendarName", opts.CalendarName)
	calendarPath, err := c.findCalendar(ctx, opts.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", opts.CalendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// newClient builds a client without discovering the calendar path.
func newClient(logger *slog.Logger, httpClient *http.Client, opts Options) (*CalDAVClient, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = ICloudEndpoint
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	caldavClient, err := caldav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	return &CalDAVClient{
		caldavClient: caldavClient,
		logger:       logger,
		name:         "caldav:" + opts.CalendarName,
		loc:          opts.Location,
		defaults:     opts.Defaults,
	}, nil
}

// Name implements syncer.Provider.
func (c *CalDAVClient) Name() string {
	return c.name
}

// Query returns the events overlapping [timeMin, timeMax] whose summary equals text.
func (c *CalDAVClient) Query(ctx context.Context, timeMin, timeMax time.Time, text string) ([]models.Event, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Props: []string{ical.PropVersion},
			Comps: []caldav.CalendarCompRequest{{
				Name: ical.CompEvent,
				Props: []string{
					ical.PropUID,
					ical.PropSummary,
					ical.PropDescription,
					ical.PropDateTimeStart,
					ical.PropDateTimeEnd,
					ical.PropDuration,
				},
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: timeMin.UTC(),
				End:   timeMax.UTC(),
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var events []models.Event
	for _, obj := range objects {
		for _, event := range c.fromICal(obj.Path, obj.Data) {
			if event.Summary == text {
				events = append(events, event)
			}
		}
	}
	return events, nil
}

// Create stores a new VEVENT for the appointment.
func (c *CalDAVClient) Create(ctx context.Context, appointment models.Appointment, summary string) (*models.Event, error) {
	event := models.Event{
		Summary:     summary,
		Description: c.defaults.Description,
		StartTime:   appointment.StartTime.In(c.loc),
		EndTime:     appointment.EndTime.In(c.loc),
		UID:         GenerateUID(),
		Source:      c.Name(),
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, c.toICal(event))

	event.ID = path.Join(c.calendarPath, event.UID+".ics")
	if _, err := c.caldavClient.PutCalendarObject(ctx, event.ID, cal); err != nil {
		return nil, fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	c.logger.Info("CalDAV event created.", "summary", summary, "path", event.ID)
	return &event, nil
}

// toICal converts an internal Event into a VEVENT with one VALARM per reminder.
// Times are written in UTC.
func (c *CalDAVClient) toICal(event models.Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetText(ical.PropSummary, event.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime.UTC())
	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}

	for _, before := range c.defaults.Reminders {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, event.Summary)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = formatTrigger(before)
		alarm.Props.Set(trigger)
		ve.Children = append(ve.Children, alarm)
	}
	return ve
}

// fromICal extracts the timed events of a calendar object.
func (c *CalDAVClient) fromICal(objectPath string, cal *ical.Calendar) []models.Event {
	if cal == nil {
		return nil
	}
	var events []models.Event
	for _, ve := range cal.Events() {
		start, err := ve.DateTimeStart(c.loc)
		if err != nil {
			c.logger.Warn("Skipping event with unreadable start", "path", objectPath, "error", err)
			continue
		}
		end, err := ve.DateTimeEnd(c.loc)
		if err != nil {
			c.logger.Warn("Skipping event with unreadable end", "path", objectPath, "error", err)
			continue
		}
		summary, _ := ve.Props.Text(ical.PropSummary)
		description, _ := ve.Props.Text(ical.PropDescription)
		uid, _ := ve.Props.Text(ical.PropUID)

		events = append(events, models.Event{
			ID:          objectPath,
			Summary:     summary,
			Description: description,
			StartTime:   start.In(c.loc),
			EndTime:     end.In(c.loc),
			UID:         uid,
			Source:      c.Name(),
		})
	}
	return events
}

// formatTrigger renders a reminder offset as a relative TRIGGER duration.
func formatTrigger(before time.Duration) string {
	minutes := int64(before / time.Minute)
	if minutes <= 0 {
		return "PT0S"
	}
	return fmt.Sprintf("-PT%dM", minutes)
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name || path.Base(cal.Path) == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
