package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"gcal/internal/agenda"
	"gcal/internal/models"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeCalendar struct {
	inserted  []models.EventRequest
	windows   []models.Window
	insertErr error
	events    []models.Summary
}

func (f *fakeCalendar) InsertEvent(_ context.Context, req models.EventRequest) (string, error) {
	f.inserted = append(f.inserted, req)
	if f.insertErr != nil {
		return "", f.insertErr
	}
	return "https://calendar.example/event", nil
}

func (f *fakeCalendar) ListEvents(_ context.Context, w models.Window) ([]models.Summary, error) {
	f.windows = append(f.windows, w)
	return f.events, nil
}

type harness struct {
	cal    *fakeCalendar
	opens  int
	openFn Opener
	stdin  string
	stdout bytes.Buffer
	stderr bytes.Buffer
	now    time.Time
}

func newHarness() *harness {
	return &harness{
		cal: &fakeCalendar{},
		now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}
}

func (h *harness) run(args ...string) int {
	open := h.openFn
	if open == nil {
		open = func(context.Context, *slog.Logger, Config) (agenda.Calendar, error) {
			h.opens++
			return h.cal, nil
		}
	}
	d := New(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return h.now },
		Open:   open,
		Stdin:  strings.NewReader(h.stdin),
		Stdout: &h.stdout,
		Stderr: &h.stderr,
	})
	return d.Run(context.Background(), append([]string{"gcal", "--timezone", "UTC"}, args...))
}

func TestAddPartialMissingEndMinute(t *testing.T) {
	h := newHarness()
	code := h.run("add", "Standup", "--type", "partial",
		"--starthour", "9", "--startminute", "0", "--endhour", "10")

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if h.opens != 0 || len(h.cal.inserted) != 0 {
		t.Fatalf("calendar used on usage error: opens=%d inserts=%d", h.opens, len(h.cal.inserted))
	}
	if !strings.Contains(h.stderr.String(), "Usage: For partial events, start and end times are required.") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestAddBogusType(t *testing.T) {
	for _, args := range [][]string{
		{"add", "X", "--type", "bogus"},
		{"add", "X", "--type", "bogus", "--starthour", "1", "--startminute", "0", "--endhour", "2", "--endminute", "0"},
		{"add", "--type", "bogus"},
	} {
		h := newHarness()
		if code := h.run(args...); code != 1 {
			t.Errorf("%v: exit code = %d, want 1", args, code)
		}
		if h.opens != 0 {
			t.Errorf("%v: calendar opened", args)
		}
		if !strings.Contains(h.stderr.String(), "Invalid event type specified.") {
			t.Errorf("%v: stderr = %q", args, h.stderr.String())
		}
	}
}

func TestAddFullDayScenario(t *testing.T) {
	h := newHarness()
	code := h.run("add", "Team_Sync", "--type", "full", "--day", "15", "--month", "3", "--year", "2024")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, h.stderr.String())
	}
	if len(h.cal.inserted) != 1 {
		t.Fatalf("inserts = %d, want 1", len(h.cal.inserted))
	}
	req := h.cal.inserted[0]
	if req.Title() != "Team Sync" {
		t.Errorf("title = %q", req.Title())
	}
	start, end := req.Bounds()
	if !start.AllDay || start.String() != "2024-03-15" || end.String() != "2024-03-16" {
		t.Errorf("bounds = %s..%s", start, end)
	}
	if h.stdout.Len() != 0 {
		t.Errorf("add should print nothing, got %q", h.stdout.String())
	}
}

func TestAddFullDayDefaultsToToday(t *testing.T) {
	h := newHarness()
	if code := h.run("add", "Review", "--type", "full", "--desc", "quarterly"); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	req := h.cal.inserted[0]
	start, _ := req.Bounds()
	if start.String() != "2026-10-17" {
		t.Errorf("start = %s, want today", start)
	}
	if req.Description() != "quarterly" {
		t.Errorf("description = %q", req.Description())
	}

	h = newHarness()
	if code := h.run("add", "Payday", "--type", "full", "--day", "1"); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if start, _ := h.cal.inserted[0].Bounds(); start.String() != "2026-10-01" {
		t.Errorf("partial date start = %s", start)
	}
}

func TestAddFullDayNaturalDate(t *testing.T) {
	h := newHarness()
	if code := h.run("add", "Dentist", "--type", "full", "--date", "tomorrow"); code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, h.stderr.String())
	}
	if start, _ := h.cal.inserted[0].Bounds(); start.String() != "2026-10-18" {
		t.Errorf("start = %s", start)
	}

	h = newHarness()
	if code := h.run("add", "Dentist", "--type", "full", "--date", "tomorrow", "--day", "3"); code != 1 {
		t.Errorf("combined --date and --day: exit code = %d", code)
	}
}

func TestAddInvalidDate(t *testing.T) {
	h := newHarness()
	code := h.run("add", "Leap", "--type", "full", "--day", "30", "--month", "2", "--year", "2024")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if h.opens != 0 {
		t.Error("calendar opened for invalid date")
	}
}

func TestAddPartial(t *testing.T) {
	h := newHarness()
	code := h.run("add", "Night_Shift", "--type", "partial", "--day", "15", "--month", "3", "--year", "2024",
		"--starthour", "0", "--startminute", "0", "--endhour", "6", "--endminute", "30")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, h.stderr.String())
	}
	start, end := h.cal.inserted[0].Bounds()
	if start.String() != "2024-03-15T00:00:00Z" || end.String() != "2024-03-15T06:30:00Z" {
		t.Errorf("bounds = %s..%s", start, end)
	}

	h = newHarness()
	if code := h.run("add", "Bad", "--type", "partial",
		"--starthour", "25", "--startminute", "0", "--endhour", "6", "--endminute", "0"); code != 1 {
		t.Errorf("hour 25: exit code = %d", code)
	}
}

func TestAddTimedTransportFailureStillExitsZero(t *testing.T) {
	h := newHarness()
	h.cal.insertErr = errors.New("dial tcp: connection refused")
	code := h.run("add", "Standup", "--type", "partial",
		"--starthour", "9", "--startminute", "0", "--endhour", "9", "--endminute", "15")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if len(h.cal.inserted) != 1 {
		t.Errorf("attempts = %d, want 1", len(h.cal.inserted))
	}
}

func TestAddMulti(t *testing.T) {
	h := newHarness()
	code := h.run("add", "Conference", "--type", "multi",
		"--startday", "30", "--startmonth", "12", "--startyear", "2024",
		"--endday", "2", "--endmonth", "1", "--endyear", "2025")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, h.stderr.String())
	}
	start, end := h.cal.inserted[0].Bounds()
	if start.String() != "2024-12-30" || end.String() != "2025-01-03" {
		t.Errorf("bounds = %s..%s", start, end)
	}

	h = newHarness()
	if code := h.run("add", "Conference", "--type", "multi",
		"--startday", "30", "--startmonth", "12", "--startyear", "2024",
		"--endday", "2", "--endmonth", "1"); code != 1 {
		t.Errorf("missing endyear: exit code = %d", code)
	}

	h = newHarness()
	if code := h.run("add", "Backwards", "--type", "multi",
		"--startday", "5", "--startmonth", "1", "--startyear", "2025",
		"--endday", "2", "--endmonth", "1", "--endyear", "2025"); code != 1 {
		t.Errorf("reversed range: exit code = %d", code)
	}
	if h.opens != 0 {
		t.Error("calendar opened for reversed range")
	}
}

func TestAddFlagsBeforeName(t *testing.T) {
	h := newHarness()
	code := h.run("add", "--type", "full", "--day", "1", "--month", "2", "--year", "2024", "Off_site")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, h.stderr.String())
	}
	if h.cal.inserted[0].Title() != "Off site" {
		t.Errorf("title = %q", h.cal.inserted[0].Title())
	}
}

func TestAddMissingName(t *testing.T) {
	h := newHarness()
	if code := h.run("add", "--type", "full"); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestViewNoEvents(t *testing.T) {
	h := newHarness()
	code := h.run("view", "--startday", "1", "--startmonth", "1", "--startyear", "2024",
		"--endday", "31", "--endmonth", "1", "--endyear", "2024")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if got := h.stdout.String(); got != "No events found.\n" {
		t.Errorf("stdout = %q", got)
	}
	w := h.cal.windows[0]
	if w.From.Format(time.RFC3339) != "2024-01-01T00:00:00Z" || w.To.Format(time.RFC3339) != "2024-01-31T23:59:59Z" {
		t.Errorf("window = %s..%s", w.From, w.To)
	}
}

func TestViewDefaultsToToday(t *testing.T) {
	h := newHarness()
	h.cal.events = []models.Summary{
		{Title: "Holiday", Start: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), AllDay: true},
		{Title: "Review", Start: time.Date(2026, 10, 17, 9, 30, 0, 0, time.FixedZone("", 2*3600))},
	}
	if code := h.run("view"); code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	want := "2026-10-17: Holiday\n2026-10-17T09:30:00+02:00: Review\n"
	if got := h.stdout.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	w := h.cal.windows[0]
	if w.From.Format(time.RFC3339) != "2026-10-17T00:00:00Z" || w.To.Format(time.RFC3339) != "2026-10-17T23:59:59Z" {
		t.Errorf("window = %s..%s", w.From, w.To)
	}
}

func TestViewICS(t *testing.T) {
	h := newHarness()
	h.cal.events = []models.Summary{
		{ID: "abc", Title: "Review", Start: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)},
		{Title: "Holiday", Start: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), AllDay: true},
	}
	if code := h.run("view", "--format", "ics"); code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, h.stderr.String())
	}
	out := h.stdout.String()
	for _, want := range []string{"BEGIN:VCALENDAR", "UID:abc", "SUMMARY:Review", "DTSTART:20261017T090000Z", "DTSTART;VALUE=DATE:20261017", "END:VCALENDAR"} {
		if !strings.Contains(out, want) {
			t.Errorf("ics output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "BEGIN:VEVENT") != 2 {
		t.Errorf("expected 2 events:\n%s", out)
	}
}

func TestViewRejectsReversedRange(t *testing.T) {
	h := newHarness()
	if code := h.run("view", "--startday", "10", "--endday", "1"); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if h.opens != 0 {
		t.Error("calendar opened")
	}
}

func TestOpenFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.openFn = func(context.Context, *slog.Logger, Config) (agenda.Calendar, error) {
		return nil, fmt.Errorf("%w: unable to read credentials file", models.ErrAuthentication)
	}
	if code := h.run("view"); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(h.stderr.String(), "authentication failed") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestOpenReceivesConfig(t *testing.T) {
	h := newHarness()
	var got Config
	h.openFn = func(_ context.Context, _ *slog.Logger, cfg Config) (agenda.Calendar, error) {
		got = cfg
		return h.cal, nil
	}
	if code := h.run("--credentials", "sa.json", "--calendar", "team@example.com", "view"); code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, h.stderr.String())
	}
	if got.Google.File != "sa.json" || got.CalendarID != "team@example.com" {
		t.Errorf("config = %+v", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness()
	if code := h.run("remove"); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	h = newHarness()
	if code := h.run(); code != 1 {
		t.Errorf("no command: exit code = %d, want 1", code)
	}
}

func TestAuthRequiresCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	secret := `{"installed": {"client_id": "id.apps.googleusercontent.com", "client_secret": "secret",
		"auth_uri": "https://accounts.google.com/o/oauth2/auth", "token_uri": "https://oauth2.googleapis.com/token",
		"redirect_uris": ["http://localhost"]}}`
	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		t.Fatal(err)
	}

	h := newHarness()
	code := h.run("--credentials", path, "--token", filepath.Join(t.TempDir(), "token.json"), "auth")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(h.stdout.String(), "accounts.google.com") {
		t.Errorf("auth URL not printed: %q", h.stdout.String())
	}
}
