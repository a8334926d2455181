package agenda

import (
	"context"
	"fmt"
	"gcal/internal/models"
	"log/slog"
	"time"
)

// Calendar is a calendar backend holding an authenticated handle and a target calendar.
type Calendar interface {
	// InsertEvent creates the event and returns the server-assigned link.
	InsertEvent(ctx context.Context, req models.EventRequest) (string, error)
	// ListEvents returns single occurrences starting inside the window, ordered by start.
	ListEvents(ctx context.Context, window models.Window) ([]models.Summary, error)
}

// Agenda performs event operations against a Calendar.
// Call failures are logged and folded into the returned value instead of being propagated.
type Agenda struct {
	logger   *slog.Logger
	calendar Calendar
	location *time.Location
}

// New creates a new Agenda. Timed events and list windows are placed in loc.
func New(logger *slog.Logger, cal Calendar, loc *time.Location) *Agenda {
	if loc == nil {
		loc = time.Local
	}
	return &Agenda{
		logger:   logger,
		calendar: cal,
		location: loc,
	}
}

// CreateFullDayEvent adds an all-day event spanning date only.
func (a *Agenda) CreateFullDayEvent(ctx context.Context, name, description string, date models.Date) models.Result {
	return a.create(ctx, models.NewFullDay(name, description, date))
}

// CreateTimedEvent adds an event from start to end on date.
func (a *Agenda) CreateTimedEvent(ctx context.Context, name, description string, date models.Date, start, end models.TimeOfDay) models.Result {
	return a.create(ctx, models.NewTimed(name, description, date, start, end, a.location))
}

// CreateMultiDayEvent adds an all-day event from start through end inclusive.
func (a *Agenda) CreateMultiDayEvent(ctx context.Context, name, description string, start, end models.Date) models.Result {
	req, err := models.NewMultiDay(name, description, start, end)
	if err != nil {
		a.logger.Error("Rejected multi-day event", "title", name, "error", err)
		return models.Result{Err: err}
	}
	return a.create(ctx, req)
}

// ListEvents returns the events starting between the beginning of start and the end of end.
// An empty listing is returned when the call fails.
func (a *Agenda) ListEvents(ctx context.Context, start, end models.Date) models.Listing {
	window := models.NewWindow(start, end, a.location)
	a.logger.Debug("Listing events", "from", window.From, "to", window.To)

	events, err := a.calendar.ListEvents(ctx, window)
	if err != nil {
		a.logger.Error("Failed to retrieve events", "from", start.String(), "to", end.String(), "error", err)
		return models.Listing{}
	}

	a.logger.Info("Events retrieved", "count", len(events))
	return models.Listing(events)
}

func (a *Agenda) create(ctx context.Context, req models.EventRequest) models.Result {
	s, e := req.Bounds()
	a.logger.Debug("Creating event", "title", req.Title(), "start", s.String(), "end", e.String())

	link, err := a.calendar.InsertEvent(ctx, req)
	if err != nil {
		err = fmt.Errorf("%w: %w", models.ErrRequest, err)
		a.logger.Error("Failed to create event", "title", req.Title(), "error", err)
		return models.Result{Err: err}
	}

	a.logger.Info("Event created", "title", req.Title(), "link", link)
	return models.Result{Link: link}
}
