package caldav

import (
	"context"
	"errors"
	"fmt"
	"gcal/internal/models"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const productID = "-//gcal//EN"

// basicAuthTransport adds Basic Auth and a user agent to every request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "gcal/1.0")
	return t.Transport.RoundTrip(req)
}

// Config describes how to reach a CalDAV calendar.
type Config struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
}

// CalDAVClient is a calendar backend talking to a CalDAV server.
type CalDAVClient struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	endpoint     *url.URL
	calendarPath string
}

// NewClient creates and initializes a new CalDAVClient.
// Discovering the named calendar doubles as the credential check.
func NewClient(ctx context.Context, logger *slog.Logger, cfg Config) (*CalDAVClient, error) {
	if cfg.Endpoint == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: caldav endpoint, username and password are required", models.ErrAuthentication)
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid caldav endpoint: %w", err)
	}

	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		logger:       logger,
		endpoint:     endpoint,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", cfg.CalendarName)
	calendarPath, err := c.findCalendar(ctx, cfg.CalendarName)
	if err != nil {
		return nil, fmt.Errorf("%w: could not find calendar '%s': %w", models.ErrAuthentication, cfg.CalendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

// InsertEvent stores the event as a new calendar object and returns its URL.
func (c *CalDAVClient) InsertEvent(ctx context.Context, req models.EventRequest) (string, error) {
	uid := uuid.New().String()
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, toICal(req, uid, time.Now().UTC()))

	objectPath := path.Join(c.calendarPath, uid+".ics")
	if _, err := c.caldavClient.PutCalendarObject(ctx, objectPath, cal); err != nil {
		return "", fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	link := c.endpoint.ResolveReference(&url.URL{Path: objectPath})
	return link.String(), nil
}

// ListEvents queries events overlapping the window and expands recurrences locally.
func (c *CalDAVClient) ListEvents(ctx context.Context, window models.Window) ([]models.Summary, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: window.From,
				End:   window.To,
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	calendars := make([]*ical.Calendar, 0, len(objects))
	for _, obj := range objects {
		if obj.Data != nil {
			calendars = append(calendars, obj.Data)
		}
	}
	return c.occurrences(calendars, window), nil
}

// toICal converts an event request to a VEVENT.
func toICal(req models.EventRequest, uid string, stamp time.Time) *ical.Component {
	start, end := req.Bounds()

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, req.Title())
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	setBoundary(ve.Props, ical.PropDateTimeStart, start)
	setBoundary(ve.Props, ical.PropDateTimeEnd, end)

	if req.Description() != "" {
		ve.Props.SetText(ical.PropDescription, req.Description())
	}
	return ve
}

func setBoundary(props ical.Props, name string, b models.Boundary) {
	if b.AllDay {
		props.SetDate(name, b.Date.Time(time.UTC))
		return
	}
	props.SetDateTime(name, b.Time)
}

// occurrences flattens VEVENTs into summaries ordered by start.
// Overridden instances (RECURRENCE-ID) replace the occurrence they modify.
func (c *CalDAVClient) occurrences(calendars []*ical.Calendar, window models.Window) []models.Summary {
	loc := window.From.Location()

	overrides := make(map[string]*ical.Component)
	var masters []*ical.Component
	for _, cal := range calendars {
		for _, child := range cal.Events() {
			comp := child.Component
			rid := comp.Props.Get(ical.PropRecurrenceID)
			if rid == nil {
				masters = append(masters, comp)
				continue
			}
			t, err := rid.DateTime(loc)
			if err != nil {
				c.logger.Warn("Skipping override with unreadable RECURRENCE-ID", "uid", propText(comp, ical.PropUID), "error", err)
				continue
			}
			overrides[overrideKey(propText(comp, ical.PropUID), t)] = comp
		}
	}

	var summaries []models.Summary
	for _, comp := range masters {
		found, err := expandEvent(comp, window, loc, overrides)
		if err != nil {
			c.logger.Warn("Skipping unreadable event", "uid", propText(comp, ical.PropUID), "error", err)
			continue
		}
		summaries = append(summaries, found...)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Start.Before(summaries[j].Start)
	})
	return summaries
}

func overrideKey(uid string, t time.Time) string {
	return uid + "|" + t.UTC().Format(time.RFC3339)
}

func expandEvent(comp *ical.Component, window models.Window, loc *time.Location, overrides map[string]*ical.Component) ([]models.Summary, error) {
	base, start, duration, err := describe(comp, loc)
	if err != nil {
		return nil, err
	}

	set, err := comp.RecurrenceSet(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence: %w", err)
	}
	if set == nil {
		if !overlaps(start, start.Add(duration), window) {
			return nil, nil
		}
		base.Start, base.End = start, start.Add(duration)
		return []models.Summary{base}, nil
	}

	// Moved instances may come from anywhere in the series, so look a day further on both sides.
	var out []models.Summary
	for _, s := range set.Between(window.From.Add(-duration-24*time.Hour), window.To.Add(24*time.Hour), true) {
		occurrence := base
		occurrence.Start, occurrence.End = s, s.Add(duration)
		if override, ok := overrides[overrideKey(base.ID, s)]; ok {
			moved, movedStart, movedDuration, err := describe(override, loc)
			if err != nil {
				return nil, fmt.Errorf("invalid override: %w", err)
			}
			occurrence = moved
			occurrence.Start, occurrence.End = movedStart, movedStart.Add(movedDuration)
		}
		if overlaps(occurrence.Start, occurrence.End, window) {
			out = append(out, occurrence)
		}
	}
	return out, nil
}

// describe reads the summary fields, start and duration of a VEVENT.
func describe(comp *ical.Component, loc *time.Location) (models.Summary, time.Time, time.Duration, error) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return models.Summary{}, time.Time{}, 0, errors.New("event has no DTSTART")
	}

	event := ical.Event{Component: comp}
	start, err := event.DateTimeStart(loc)
	if err != nil {
		return models.Summary{}, time.Time{}, 0, fmt.Errorf("invalid DTSTART: %w", err)
	}
	end, err := event.DateTimeEnd(loc)
	if err != nil || end.Before(start) {
		end = start
	}

	summary := models.Summary{
		ID:          propText(comp, ical.PropUID),
		Title:       propText(comp, ical.PropSummary),
		Description: propText(comp, ical.PropDescription),
		AllDay:      startProp.ValueType() == ical.ValueDate,
	}
	return summary, start, end.Sub(start), nil
}

// overlaps matches the Google Calendar list filter: the event ends after the window
// opens and starts before it closes. Zero-length events count when they start inside.
func overlaps(start, end time.Time, window models.Window) bool {
	if start.After(window.To) {
		return false
	}
	if end.Equal(start) {
		return !start.Before(window.From)
	}
	return end.After(window.From)
}

func propText(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
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
		if cal.Name == name || strings.Trim(cal.Path, "/") == strings.Trim(name, "/") {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
