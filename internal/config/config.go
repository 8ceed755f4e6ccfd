// Package config holds the validated settings of a run.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shiftcal/internal/google"
	"shiftcal/internal/models"
	"shiftcal/internal/syncer"
)

// Config is assembled from flags and environment variables by the CLI.
type Config struct {
	StartDate string // YYYY-MM-DD
	LookAhead int
	TimeZone  string
	DryRun    bool
	Contact   string
	APIRate   float64 // requests per second per remote service, 0 disables throttling

	FirstSlot    time.Duration
	SlotDuration time.Duration

	// Google
	UseGoogle          bool
	GoogleClientID     string
	GoogleClientSecret string
	GoogleAccount      string
	GoogleCalendarID   string

	// Schedule spreadsheet
	SpreadsheetID string
	Layout        google.SheetLayout

	// CalDAV
	UseCalDAV     bool
	CalDAVURL     string
	CalDAVUser    string
	CalDAVPass    string
	CalDAVCalName string

	// Lunch
	LunchEarliest float64
	LunchLatest   float64
	LunchMinHours float64
	BusyTypes     string
	LunchSummary  string
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	var errs []error
	if !c.UseGoogle && !c.UseCalDAV {
		errs = append(errs, errors.New("select at least one calendar with --google and/or --caldav"))
	}
	if c.LookAhead < 1 {
		errs = append(errs, fmt.Errorf("look-ahead days must be at least 1, got %d", c.LookAhead))
	}
	if c.SlotDuration <= 0 {
		errs = append(errs, fmt.Errorf("slot duration must be positive, got %s", c.SlotDuration))
	}
	if c.FirstSlot < 0 || c.FirstSlot >= 24*time.Hour {
		errs = append(errs, fmt.Errorf("first slot offset must be within a day, got %s", c.FirstSlot))
	}
	if c.APIRate < 0 {
		errs = append(errs, fmt.Errorf("api rate must not be negative, got %g", c.APIRate))
	}
	if c.SpreadsheetID == "" {
		errs = append(errs, errors.New("spreadsheet ID is required"))
	}
	if c.UseCalDAV && (c.CalDAVUser == "" || c.CalDAVCalName == "") {
		errs = append(errs, errors.New("caldav requires a username and a calendar name"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Start(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateLunch checks the lunch window settings.
func (c *Config) ValidateLunch() error {
	if c.LunchEarliest < 0 || c.LunchLatest > 24 || c.LunchLatest <= c.LunchEarliest {
		return fmt.Errorf("invalid lunch window %g-%g", c.LunchEarliest, c.LunchLatest)
	}
	if c.LunchMinHours < 0 {
		return fmt.Errorf("lunch minimum must not be negative, got %g", c.LunchMinHours)
	}
	if len(models.ParseTokenSet(c.BusyTypes)) == 0 {
		return errors.New("at least one busy type is required")
	}
	return nil
}

// Location loads the reference timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.TimeZone, err)
	}
	return loc, nil
}

// Start parses the start date in the reference timezone.
func (c *Config) Start() (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	start, err := time.ParseInLocation(time.DateOnly, c.StartDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date '%s', use YYYY-MM-DD: %w", c.StartDate, err)
	}
	return start, nil
}

// Limiter returns a limiter for one remote service, or nil when throttling is disabled.
func (c *Config) Limiter() *rate.Limiter {
	if c.APIRate <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.APIRate), 1)
}

// Summaries returns the summary table with the configured lunch summary.
func (c *Config) Summaries() syncer.SummaryTable {
	table := syncer.DefaultSummaries()
	if c.LunchSummary != "" {
		table[models.TokenSharedLunch] = c.LunchSummary
	}
	return table
}

// LunchOptions converts the lunch settings.
func (c *Config) LunchOptions() syncer.LunchOptions {
	return syncer.LunchOptions{
		Earliest:  c.LunchEarliest,
		Latest:    c.LunchLatest,
		MinHours:  c.LunchMinHours,
		BusyTypes: models.ParseTokenSet(c.BusyTypes),
	}
}

// ParsePerson interprets a command-line person: a number is a row, anything else a name.
func ParsePerson(s string) (syncer.Person, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return syncer.Person{}, errors.New("empty person")
	}
	if row, err := strconv.Atoi(s); err == nil {
		if row < 1 {
			return syncer.Person{}, fmt.Errorf("row must be positive, got %d", row)
		}
		return syncer.Person{Row: row}, nil
	}
	return syncer.Person{Name: s}, nil
}
