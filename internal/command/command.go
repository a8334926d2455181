package command

import (
	"context"
	"errors"
	"fmt"
	"gcal/internal/agenda"
	"gcal/internal/caldav"
	"gcal/internal/google"
	"gcal/internal/models"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/urfave/cli/v2"
)

const (
	BackendGoogle = "google"
	BackendCalDAV = "caldav"
)

// Config is the backend configuration collected from global flags and the environment.
type Config struct {
	Backend    string
	CalendarID string
	Google     google.Credentials
	CalDAV     caldav.Config
}

// Opener authenticates and returns a calendar backend for cfg.
type Opener func(ctx context.Context, logger *slog.Logger, cfg Config) (agenda.Calendar, error)

// Options wires the dispatcher to its collaborators. Zero values fall back to the process defaults.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	Open   Opener
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Dispatcher parses one command line, runs it against the calendar and renders the result.
type Dispatcher struct {
	logger *slog.Logger
	now    func() time.Time
	open   Opener
	when   *when.Parser
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		logger: opts.Logger,
		now:    opts.Now,
		open:   opts.Open,
		stdin:  opts.Stdin,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.open == nil {
		d.open = OpenCalendar
	}
	if d.stdin == nil {
		d.stdin = os.Stdin
	}
	if d.stdout == nil {
		d.stdout = os.Stdout
	}
	if d.stderr == nil {
		d.stderr = os.Stderr
	}

	d.when = when.New(nil)
	d.when.Add(en.All...)
	d.when.Add(common.All...)
	return d
}

// Run executes args (including the program name) and returns the process exit code.
// Usage, validation and authentication errors give 1; a calendar call that failed after
// being sent is only logged and still gives 0.
func (d *Dispatcher) Run(ctx context.Context, args []string) int {
	app := d.app()
	if err := app.RunContext(ctx, reorderArgs(args)); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			if msg := exitErr.Error(); msg != "" {
				fmt.Fprintln(d.stderr, msg)
			}
			return exitErr.ExitCode()
		}
		d.logger.Error("Command failed", "error", err)
		fmt.Fprintf(d.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (d *Dispatcher) app() *cli.App {
	return &cli.App{
		Name:      "gcal",
		Usage:     "Create and list events on a calendar.",
		Reader:    d.stdin,
		Writer:    d.stdout,
		ErrWriter: d.stderr,
		// Errors are turned into exit codes by Run, never by os.Exit inside the app.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Value: BackendGoogle, EnvVars: []string{"CALENDAR_BACKEND"}, Usage: "Calendar backend: google or caldav"},
			&cli.StringFlag{Name: "credentials", EnvVars: []string{"CREDENTIALS_FILE"}, Usage: "Google service account key or OAuth client secret file"},
			&cli.StringFlag{Name: "token", Value: google.DefaultTokenFile, EnvVars: []string{"TOKEN_FILE"}, Usage: "OAuth user token file written by the auth command"},
			&cli.StringFlag{Name: "calendar", EnvVars: []string{"CALENDAR_ID"}, Usage: "Calendar identifier (Google) or calendar name (CalDAV)"},
			&cli.StringFlag{Name: "caldav-url", EnvVars: []string{"CALDAV_URL"}, Usage: "CalDAV server endpoint"},
			&cli.StringFlag{Name: "caldav-username", EnvVars: []string{"CALDAV_USERNAME"}},
			&cli.StringFlag{Name: "caldav-password", EnvVars: []string{"CALDAV_PASSWORD"}},
			&cli.StringFlag{Name: "timezone", EnvVars: []string{"TIMEZONE"}, Usage: "IANA time zone for dates and times (default: local)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return usageError("unknown command '%s'", c.Args().First())
			}
			_ = cli.ShowAppHelp(c)
			return usageError("a command is required (add, view or auth)")
		},
		Commands: []*cli.Command{
			d.addCommand(),
			d.viewCommand(),
			d.authCommand(),
		},
	}
}

// usageError aborts the command before any network activity.
func usageError(format string, args ...any) error {
	return cli.Exit("Usage: "+fmt.Sprintf(format, args...), 1)
}

func configFromContext(c *cli.Context) Config {
	return Config{
		Backend:    strings.ToLower(c.String("backend")),
		CalendarID: c.String("calendar"),
		Google: google.Credentials{
			File:      c.String("credentials"),
			TokenFile: c.String("token"),
		},
		CalDAV: caldav.Config{
			Endpoint:     c.String("caldav-url"),
			Username:     c.String("caldav-username"),
			Password:     c.String("caldav-password"),
			CalendarName: c.String("calendar"),
		},
	}
}

func location(c *cli.Context) (*time.Location, error) {
	name := c.String("timezone")
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, usageError("invalid timezone '%s': %v", name, err)
	}
	return loc, nil
}

// today is the current date in loc, taken from the injected clock.
func (d *Dispatcher) today(loc *time.Location) models.Date {
	return models.DateOf(d.now().In(loc))
}

// openAgenda opens the configured backend. Failure here is fatal for the command.
func (d *Dispatcher) openAgenda(c *cli.Context, loc *time.Location) (*agenda.Agenda, error) {
	cal, err := d.open(c.Context, d.logger, configFromContext(c))
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar: %w", err)
	}
	return agenda.New(d.logger, cal, loc), nil
}

// OpenCalendar is the default Opener.
func OpenCalendar(ctx context.Context, logger *slog.Logger, cfg Config) (agenda.Calendar, error) {
	switch cfg.Backend {
	case BackendGoogle, "":
		return google.NewClient(ctx, logger, cfg.Google, cfg.CalendarID)
	case BackendCalDAV:
		return caldav.NewClient(ctx, logger, cfg.CalDAV)
	default:
		return nil, usageError("unknown backend '%s' (must be 'google' or 'caldav')", cfg.Backend)
	}
}
