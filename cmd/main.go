package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"shiftcal/internal/config"
	"shiftcal/internal/dav"
	"shiftcal/internal/google"
	"shiftcal/internal/models"
	"shiftcal/internal/schedule"
	"shiftcal/internal/syncer"
)

const defaultSpreadsheetID = "1RgDgDRcyAFDdkEyRH7m_4QOtJ7e-kv324hEWE4JuwgI"

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "shiftcal",
		Usage: "Put shifts and shared lunches from the weekly schedule spreadsheet on your calendars.",
		Commands: []*cli.Command{
			authCommand(),
			syncCommand(),
			lunchCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "account", Value: "default", EnvVars: []string{"GOOGLE_ACCOUNT"}, Usage: "Name of the account the token is stored under."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfig(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			tokenFile := google.TokenFile(c.String("account"))
			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Create calendar events for one person's phone and chat shifts.",
		ArgsUsage: "DATE LOOK_AHEAD_DAYS",
		Flags: append(commonFlags(),
			&cli.StringFlag{Name: "person", Required: true, EnvVars: []string{"PERSON"}, Usage: "Name on the schedule, or the row number of your schedule."},
		),
		Action: func(c *cli.Context) error {
			person, err := config.ParsePerson(c.String("person"))
			if err != nil {
				return err
			}
			return run(c, func(ctx context.Context, s *syncer.Syncer, cfg *config.Config, start time.Time) ([]syncer.DayReport, error) {
				return s.SyncShifts(ctx, person, start, cfg.LookAhead)
			})
		},
	}
}

func lunchCommand() *cli.Command {
	return &cli.Command{
		Name:      "lunch",
		Usage:     "Create calendar events for windows where everyone is free for lunch.",
		ArgsUsage: "DATE LOOK_AHEAD_DAYS",
		Flags: append(commonFlags(),
			&cli.StringSliceFlag{Name: "person", Required: true, Usage: "Name or row of a participant. Repeat for every participant."},
			&cli.Float64Flag{Name: "lunch-earliest", Value: schedule.DefaultLunchEarliest, EnvVars: []string{"LUNCH_EARLIEST"}, Usage: "Earliest lunch start as a fractional hour."},
			&cli.Float64Flag{Name: "lunch-latest", Value: schedule.DefaultLunchLatest, EnvVars: []string{"LUNCH_LATEST"}, Usage: "Latest lunch end as a fractional hour."},
			&cli.Float64Flag{Name: "lunch-min-hours", Value: schedule.DefaultLunchMinHours, EnvVars: []string{"LUNCH_MIN_HOURS"}, Usage: "Shortest window worth a lunch, in hours."},
			&cli.StringFlag{Name: "busy-types", Value: "F,C,PTO", EnvVars: []string{"BUSY_TYPES"}, Usage: "Comma separated cell codes that make a person unavailable."},
			&cli.StringFlag{Name: "lunch-summary", EnvVars: []string{"LUNCH_SUMMARY"}, Usage: "Summary of the shared lunch events."},
		),
		Action: func(c *cli.Context) error {
			var people []syncer.Person
			for _, raw := range c.StringSlice("person") {
				person, err := config.ParsePerson(raw)
				if err != nil {
					return err
				}
				people = append(people, person)
			}
			if len(people) < 2 {
				return fmt.Errorf("lunch needs at least two --person flags, got %d", len(people))
			}
			return run(c, func(ctx context.Context, s *syncer.Syncer, cfg *config.Config, start time.Time) ([]syncer.DayReport, error) {
				if err := cfg.ValidateLunch(); err != nil {
					return nil, err
				}
				return s.SyncLunch(ctx, people, cfg.LunchOptions(), start, cfg.LookAhead)
			})
		},
	}
}

func commonFlags() []cli.Flag {
	layout := google.DefaultSheetLayout()
	return []cli.Flag{
		&cli.BoolFlag{Name: "google", EnvVars: []string{"USE_GOOGLE_CALENDAR"}, Usage: "Create events on Google Calendar."},
		&cli.BoolFlag{Name: "caldav", EnvVars: []string{"USE_CALDAV"}, Usage: "Create events on a CalDAV calendar (iCloud, or Exchange through a CalDAV gateway)."},
		&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be created without making changes."},
		&cli.IntFlag{Name: "watch", Usage: "Run again every N seconds."},
		&cli.StringFlag{Name: "spreadsheet-id", Value: defaultSpreadsheetID, EnvVars: []string{"SPREADSHEET_ID"}, Usage: "ID of the weekly schedule spreadsheet."},
		&cli.StringFlag{Name: "tab-format", Value: layout.TabFormat, EnvVars: []string{"SHEET_TAB_FORMAT"}, Usage: "Go time layout of the per-day tab names."},
		&cli.StringFlag{Name: "first-column", Value: layout.FirstColumn, EnvVars: []string{"FIRST_COLUMN"}},
		&cli.StringFlag{Name: "last-column", Value: layout.LastColumn, EnvVars: []string{"LAST_COLUMN"}},
		&cli.StringFlag{Name: "name-column", Value: layout.NameColumn, EnvVars: []string{"NAME_COLUMN"}},
		&cli.DurationFlag{Name: "first-slot", Value: schedule.DefaultFirstSlot, EnvVars: []string{"FIRST_SLOT_OFFSET"}, Usage: "Time after midnight of the first schedule cell."},
		&cli.DurationFlag{Name: "slot", Value: schedule.DefaultSlotDuration, EnvVars: []string{"SLOT_DURATION"}, Usage: "Duration of one schedule cell."},
		&cli.StringFlag{Name: "timezone", Value: "America/Chicago", EnvVars: []string{"PRIMARY_TIMEZONE"}},
		&cli.StringFlag{Name: "contact", EnvVars: []string{"CONTACT"}, Usage: "Who to contact about created events, added to their description."},
		&cli.Float64Flag{Name: "api-rate", Value: 5, EnvVars: []string{"API_RATE"}, Usage: "Maximum requests per second to each remote service. 0 disables the limit."},
		&cli.StringFlag{Name: "google-account", Value: "default", EnvVars: []string{"GOOGLE_ACCOUNT"}},
		&cli.StringFlag{Name: "google-calendar-id", Value: "primary", EnvVars: []string{"GOOGLE_CALENDAR_ID"}},
		&cli.StringFlag{Name: "caldav-url", Value: dav.ICloudEndpoint, EnvVars: []string{"CALDAV_ENDPOINT"}},
		&cli.StringFlag{Name: "caldav-username", EnvVars: []string{"CALDAV_USERNAME", "ICLOUD_USERNAME"}},
		&cli.StringFlag{Name: "caldav-password", EnvVars: []string{"CALDAV_PASSWORD", "ICLOUD_APP_SPECIFIC_PASSWORD"}},
		&cli.StringFlag{Name: "caldav-calendar", EnvVars: []string{"CALDAV_CALENDAR_NAME", "ICLOUD_CALENDAR_NAME"}},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if c.NArg() != 2 {
		return nil, fmt.Errorf("expected DATE and LOOK_AHEAD_DAYS arguments, got %d", c.NArg())
	}
	lookAhead, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return nil, fmt.Errorf("invalid look-ahead days '%s': %w", c.Args().Get(1), err)
	}

	cfg := &config.Config{
		StartDate:          c.Args().Get(0),
		LookAhead:          lookAhead,
		TimeZone:           c.String("timezone"),
		DryRun:             c.Bool("dry-run"),
		Contact:            c.String("contact"),
		APIRate:            c.Float64("api-rate"),
		FirstSlot:          c.Duration("first-slot"),
		SlotDuration:       c.Duration("slot"),
		UseGoogle:          c.Bool("google"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleAccount:      c.String("google-account"),
		GoogleCalendarID:   c.String("google-calendar-id"),
		SpreadsheetID:      c.String("spreadsheet-id"),
		Layout: google.SheetLayout{
			TabFormat:   c.String("tab-format"),
			FirstColumn: c.String("first-column"),
			LastColumn:  c.String("last-column"),
			NameColumn:  c.String("name-column"),
		},
		UseCalDAV:     c.Bool("caldav"),
		CalDAVURL:     c.String("caldav-url"),
		CalDAVUser:    c.String("caldav-username"),
		CalDAVPass:    c.String("caldav-password"),
		CalDAVCalName: c.String("caldav-calendar"),
		LunchEarliest: c.Float64("lunch-earliest"),
		LunchLatest:   c.Float64("lunch-latest"),
		LunchMinHours: c.Float64("lunch-min-hours"),
		BusyTypes:     c.String("busy-types"),
		LunchSummary:  c.String("lunch-summary"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type runFunc func(ctx context.Context, s *syncer.Syncer, cfg *config.Config, start time.Time) ([]syncer.DayReport, error)

func run(c *cli.Context, fn runFunc) error {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := setupLogger(logLevel)

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.DryRun {
		logger.Info("Performing a dry run. No changes will be made.")
	}

	s, err := newSyncer(c.Context, logger, cfg)
	if err != nil {
		return err
	}
	start, err := cfg.Start()
	if err != nil {
		return err
	}

	cycle := func() error {
		reports, err := fn(c.Context, s, cfg, start)
		logReports(logger, reports)
		return err
	}

	if c.Int("watch") > 0 {
		watch(c.Context, logger, time.Duration(c.Int("watch"))*time.Second, cycle)
		return nil
	}

	logger.Info("Running a single sync cycle.")
	if err := cycle(); err != nil {
		return fmt.Errorf("sync cycle failed: %w", err)
	}
	return nil
}

// watch runs cycle immediately and then every interval until ctx is done.
// Cycle failures are logged and do not stop the watcher.
func watch(ctx context.Context, logger *slog.Logger, interval time.Duration, cycle func() error) {
	logger.Info("Starting watcher.", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for ctx.Err() == nil {
		if err := cycle(); err != nil {
			logger.Error("Sync cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	logger.Info("Stopping watcher.")
}

func newSyncer(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*syncer.Syncer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	defaults := models.DefaultEventDefaults(cfg.Contact)

	httpClient, err := google.NewHTTPClient(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	sheetClient, err := google.NewSheetClient(ctx, logger.With("service", "sheets"), httpClient, cfg.SpreadsheetID, cfg.Layout, cfg.Limiter())
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	var providers []syncer.Provider
	if cfg.UseGoogle {
		gClient, err := google.NewCalendarClient(ctx, logger.With("service", "google-calendar"), httpClient, cfg.GoogleCalendarID, loc, defaults)
		if err != nil {
			return nil, fmt.Errorf("failed to create google calendar client: %w", err)
		}
		providers = append(providers, syncer.Throttle(gClient, cfg.Limiter()))
	}
	if cfg.UseCalDAV {
		dClient, err := dav.NewClient(ctx, logger.With("service", "caldav"), dav.Options{
			Endpoint:     cfg.CalDAVURL,
			Username:     cfg.CalDAVUser,
			Password:     cfg.CalDAVPass,
			CalendarName: cfg.CalDAVCalName,
			Location:     loc,
			Defaults:     defaults,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		providers = append(providers, syncer.Throttle(dClient, cfg.Limiter()))
	}
	logger.Info("Initialized calendar providers.", "count", len(providers))

	coalescer := schedule.NewCoalescer(schedule.SlotMapper(cfg.FirstSlot, cfg.SlotDuration))
	reconciler := syncer.NewReconciler(logger, cfg.Summaries(), cfg.DryRun)
	return syncer.NewSyncer(logger, sheetClient, coalescer, reconciler, providers, loc)
}

func logReports(logger *slog.Logger, reports []syncer.DayReport) {
	for _, r := range reports {
		day := r.Day.Format(time.DateOnly)
		for _, res := range r.Results {
			logger.Info("Day synced.", "day", day, "provider", res.Provider, "appointments", res.Made)
		}
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
