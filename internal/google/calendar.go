package google

import (
	"context"
	"fmt"
	"gcal/internal/models"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarClient provides a client for interacting with one Google calendar.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
	logger     *slog.Logger
}

// NewClient creates a new Google Calendar client.
// Authentication happens here: missing, malformed or rejected credentials produce an error
// wrapping models.ErrAuthentication.
func NewClient(ctx context.Context, logger *slog.Logger, creds Credentials, calendarID string) (*CalendarClient, error) {
	if calendarID == "" {
		return nil, fmt.Errorf("%w: calendar id is not set", models.ErrAuthentication)
	}

	httpClient, err := creds.httpClient(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrAuthentication, err)
	}

	return NewClientFromHTTP(ctx, logger, httpClient, calendarID)
}

// NewClientFromHTTP creates a client over an already authenticated HTTP client.
func NewClientFromHTTP(ctx context.Context, logger *slog.Logger, httpClient *http.Client, calendarID string) (*CalendarClient, error) {
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	logger.Info("Google Calendar API initialized", "calendarID", calendarID)
	return &CalendarClient{service: service, calendarID: calendarID, logger: logger}, nil
}

// InsertEvent creates the event and returns its htmlLink.
func (c *CalendarClient) InsertEvent(ctx context.Context, req models.EventRequest) (string, error) {
	start, end := req.Bounds()
	event := &calendar.Event{
		Summary:     req.Title(),
		Description: req.Description(),
		Start:       toEventDateTime(start),
		End:         toEventDateTime(end),
	}

	created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}
	return created.HtmlLink, nil
}

// ListEvents fetches the first page of single events starting inside the window, ordered by start time.
func (c *CalendarClient) ListEvents(ctx context.Context, window models.Window) ([]models.Summary, error) {
	c.logger.Debug("Fetching events", "calendarID", c.calendarID, "from", window.From, "to", window.To)

	events, err := c.service.Events.List(c.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(window.From.Format(time.RFC3339)).
		TimeMax(window.To.Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	return c.toSummaries(events.Items, window.From.Location()), nil
}

// toEventDateTime serializes a span boundary into the wire shape: {date} or {dateTime, timeZone}.
func toEventDateTime(b models.Boundary) *calendar.EventDateTime {
	if b.AllDay {
		return &calendar.EventDateTime{Date: b.Date.String()}
	}
	edt := &calendar.EventDateTime{DateTime: b.Time.Format(time.RFC3339)}
	if name := b.Time.Location().String(); name != "Local" && name != "UTC" && name != "" {
		if _, err := time.LoadLocation(name); err == nil {
			edt.TimeZone = name
		}
	}
	return edt
}

// toSummaries converts Google Calendar events to summaries.
// Items with an unreadable start are skipped and logged.
func (c *CalendarClient) toSummaries(items []*calendar.Event, loc *time.Location) []models.Summary {
	summaries := make([]models.Summary, 0, len(items))
	for _, item := range items {
		start, allDay, err := parseEventDateTime(item.Start, loc)
		if err != nil {
			c.logger.Warn("Skipping event with unreadable start", "id", item.Id, "error", err)
			continue
		}
		end, _, err := parseEventDateTime(item.End, loc)
		if err != nil {
			end = start
		}
		summaries = append(summaries, models.Summary{
			ID:          item.Id,
			Title:       item.Summary,
			Description: item.Description,
			Start:       start,
			End:         end,
			AllDay:      allDay,
		})
	}
	return summaries
}

func parseEventDateTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, fmt.Errorf("missing date")
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		return t, false, err
	}
	d, err := models.ParseDate(edt.Date)
	if err != nil {
		return time.Time{}, true, err
	}
	return d.Time(loc), true, nil
}
