package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"shiftcal/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryProvider is an in-memory Provider whose Query reflects prior Creates.
type memoryProvider struct {
	name string

	mu        sync.Mutex
	events    []models.Event
	queries   int
	creates   int
	createErr error
	queryErr  error
}

func newMemoryProvider(name string) *memoryProvider {
	return &memoryProvider{name: name}
}

func (m *memoryProvider) Name() string { return m.name }

func (m *memoryProvider) Query(_ context.Context, timeMin, timeMax time.Time, text string) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []models.Event
	for _, e := range m.events {
		if e.Summary == text && e.StartTime.Before(timeMax) && e.EndTime.After(timeMin) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryProvider) Create(_ context.Context, a models.Appointment, summary string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return nil, m.createErr
	}
	e := models.Event{
		ID:        fmt.Sprintf("%s-%d", m.name, len(m.events)+1),
		Summary:   summary,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Source:    m.name,
	}
	m.events = append(m.events, e)
	return &e, nil
}

// fakeSource serves rows from a map keyed by day and row.
type fakeSource struct {
	rows  map[string]map[int][]models.Token // day -> row -> cells
	names map[string]int
	reads int
}

func (f *fakeSource) ReadRow(_ context.Context, row int, day time.Time) []models.Token {
	f.reads++
	return f.rows[day.Format(time.DateOnly)][row]
}

func (f *fakeSource) FindRow(_ context.Context, name string, day time.Time) (int, error) {
	if name == "broken" {
		return 0, errors.New("transport failure")
	}
	row, ok := f.names[name]
	if !ok {
		return 0, models.ErrPersonNotFound
	}
	if _, onSheet := f.rows[day.Format(time.DateOnly)][row]; !onSheet {
		return 0, models.ErrPersonNotFound
	}
	return row, nil
}
