package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"shiftcal/internal/models"
)

// SheetLayout describes where a day's schedule lives in the spreadsheet.
type SheetLayout struct {
	TabFormat   string // time layout of the per-day tab name
	FirstColumn string // column of the first cell of the day
	LastColumn  string // column of the last cell of the day
	NameColumn  string // column holding the person names
}

// DefaultSheetLayout is the weekly schedule layout: one tab per day named like
// "Mon 03.06.17", cells K through BF, names in column A.
func DefaultSheetLayout() SheetLayout {
	return SheetLayout{
		TabFormat:   "Mon 01.02.06",
		FirstColumn: "K",
		LastColumn:  "BF",
		NameColumn:  "A",
	}
}

// Tab returns the tab name of the day.
func (l SheetLayout) Tab(day time.Time) string {
	return day.Format(l.TabFormat)
}

// RowRange returns the A1 range of a person's cells on the day.
func (l SheetLayout) RowRange(row int, day time.Time) string {
	return fmt.Sprintf("'%s'!%s%d:%s%d", l.Tab(day), l.FirstColumn, row, l.LastColumn, row)
}

// NameRange returns the A1 range of the name column on the day.
func (l SheetLayout) NameRange(day time.Time) string {
	return fmt.Sprintf("'%s'!%s:%s", l.Tab(day), l.NameColumn, l.NameColumn)
}

// SheetClient reads schedule rows from Google Sheets.
type SheetClient struct {
	service       *sheets.Service
	logger        *slog.Logger
	spreadsheetID string
	layout        SheetLayout
	limiter       *rate.Limiter
}

// NewSheetClient creates a schedule reader for the spreadsheet. A nil limiter disables throttling.
func NewSheetClient(ctx context.Context, logger *slog.Logger, httpClient *http.Client, spreadsheetID string, layout SheetLayout, limiter *rate.Limiter, opts ...option.ClientOption) (*SheetClient, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &SheetClient{
		service:       service,
		logger:        logger,
		spreadsheetID: spreadsheetID,
		layout:        layout,
		limiter:       limiter,
	}, nil
}

// ReadRow returns the cells of row on the day's tab. Missing tabs, empty
// ranges and API failures are logged and yield no cells.
func (c *SheetClient) ReadRow(ctx context.Context, row int, day time.Time) []models.Token {
	rangeName := c.layout.RowRange(row, day)

	values, err := c.get(ctx, rangeName)
	if err != nil {
		c.logger.Warn("Could not find cells on spreadsheet in range", "range", rangeName, "error", err)
		return nil
	}

	cells := rowTokens(values)
	if len(cells) == 0 {
		c.logger.Info("Could not find cells on spreadsheet in range", "range", rangeName)
	}
	return cells
}

// FindRow returns the 1-based row whose name cell matches name, ignoring case
// and surrounding whitespace.
func (c *SheetClient) FindRow(ctx context.Context, name string, day time.Time) (int, error) {
	rangeName := c.layout.NameRange(day)

	values, err := c.get(ctx, rangeName)
	if err != nil {
		return 0, fmt.Errorf("failed to read names in %s: %w", rangeName, err)
	}

	row, ok := findName(values, name)
	if !ok {
		return 0, fmt.Errorf("%q in %s: %w", name, rangeName, models.ErrPersonNotFound)
	}
	return row, nil
}

func (c *SheetClient) get(ctx context.Context, rangeName string) ([][]interface{}, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, rangeName).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// rowTokens sheds the outer list of a single-row value range.
func rowTokens(values [][]interface{}) []models.Token {
	if len(values) == 0 {
		return nil
	}
	cells := make([]models.Token, len(values[0]))
	for i, v := range values[0] {
		cells[i] = models.ParseToken(fmt.Sprint(v))
	}
	return cells
}

func findName(values [][]interface{}, name string) (int, bool) {
	want := strings.TrimSpace(name)
	if want == "" {
		return 0, false
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[0])), want) {
			return i + 1, true
		}
	}
	return 0, false
}
