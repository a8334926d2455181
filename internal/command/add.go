package command

import (
	"fmt"
	"gcal/internal/models"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	typeFull    = "full"
	typePartial = "partial"
	typeMulti   = "multi"
)

func (d *Dispatcher) addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a new event",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Event type: full, partial or multi"},
			&cli.StringFlag{Name: "desc", Usage: "Event description"},
			&cli.IntFlag{Name: "day", Usage: "Day for full/partial day events"},
			&cli.IntFlag{Name: "month", Usage: "Month for full/partial day events"},
			&cli.IntFlag{Name: "year", Usage: "Year for full/partial day events"},
			&cli.StringFlag{Name: "date", Usage: "Date for full/partial day events in plain words, e.g. \"next friday\""},
			&cli.IntFlag{Name: "starthour", Usage: "Start hour for partial day events"},
			&cli.IntFlag{Name: "startminute", Usage: "Start minute for partial day events"},
			&cli.IntFlag{Name: "endhour", Usage: "End hour for partial day events"},
			&cli.IntFlag{Name: "endminute", Usage: "End minute for partial day events"},
			&cli.IntFlag{Name: "startday", Usage: "Start day for multi-day events"},
			&cli.IntFlag{Name: "startmonth", Usage: "Start month for multi-day events"},
			&cli.IntFlag{Name: "startyear", Usage: "Start year for multi-day events"},
			&cli.IntFlag{Name: "endday", Usage: "End day for multi-day events"},
			&cli.IntFlag{Name: "endmonth", Usage: "End month for multi-day events"},
			&cli.IntFlag{Name: "endyear", Usage: "End year for multi-day events"},
		},
		Action: d.addEvent,
	}
}

// addEvent validates the whole request before opening the calendar. The outcome of the
// create call is reported by the agenda's log, not by the exit code.
func (d *Dispatcher) addEvent(c *cli.Context) error {
	kind := c.String("type")
	switch kind {
	case typeFull, typePartial, typeMulti:
	case "":
		return usageError("add <name> --type {full|partial|multi}: an event type is required.")
	default:
		return usageError("Invalid event type specified.")
	}

	name := strings.ReplaceAll(c.Args().First(), "_", " ")
	if strings.TrimSpace(name) == "" {
		return usageError("add <name> --type {full|partial|multi}: an event name is required.")
	}
	desc := c.String("desc")

	loc, err := location(c)
	if err != nil {
		return err
	}

	switch kind {
	case typeFull:
		date, err := d.eventDate(c, loc)
		if err != nil {
			return err
		}
		ag, err := d.openAgenda(c, loc)
		if err != nil {
			return err
		}
		res := ag.CreateFullDayEvent(c.Context, name, desc, date)
		d.logger.Debug("Add finished", "type", kind, "ok", res.OK())

	case typePartial:
		if !allSet(c, "starthour", "startminute", "endhour", "endminute") {
			return usageError("For partial events, start and end times are required.")
		}
		start, err := models.NewTimeOfDay(c.Int("starthour"), c.Int("startminute"))
		if err != nil {
			return usageError("invalid start time: %v", err)
		}
		end, err := models.NewTimeOfDay(c.Int("endhour"), c.Int("endminute"))
		if err != nil {
			return usageError("invalid end time: %v", err)
		}
		date, err := d.eventDate(c, loc)
		if err != nil {
			return err
		}
		ag, err := d.openAgenda(c, loc)
		if err != nil {
			return err
		}
		res := ag.CreateTimedEvent(c.Context, name, desc, date, start, end)
		d.logger.Debug("Add finished", "type", kind, "ok", res.OK())

	case typeMulti:
		if !allSet(c, "startday", "startmonth", "startyear", "endday", "endmonth", "endyear") {
			return usageError("For multi-day events, start and end dates are required.")
		}
		start, err := models.NewDate(c.Int("startyear"), c.Int("startmonth"), c.Int("startday"))
		if err != nil {
			return usageError("invalid start date: %v", err)
		}
		end, err := models.NewDate(c.Int("endyear"), c.Int("endmonth"), c.Int("endday"))
		if err != nil {
			return usageError("invalid end date: %v", err)
		}
		if end.Before(start) {
			return usageError("end date %s is before start date %s.", end, start)
		}
		ag, err := d.openAgenda(c, loc)
		if err != nil {
			return err
		}
		res := ag.CreateMultiDayEvent(c.Context, name, desc, start, end)
		d.logger.Debug("Add finished", "type", kind, "ok", res.OK())
	}

	return nil
}

// eventDate resolves --date, or --day/--month/--year with each missing part taken from today.
func (d *Dispatcher) eventDate(c *cli.Context, loc *time.Location) (models.Date, error) {
	now := d.now().In(loc)

	if c.IsSet("date") {
		if c.IsSet("day") || c.IsSet("month") || c.IsSet("year") {
			return models.Date{}, usageError("--date cannot be combined with --day, --month or --year.")
		}
		result, err := d.when.Parse(c.String("date"), now)
		if err != nil {
			return models.Date{}, usageError("can't parse date '%s': %v", c.String("date"), err)
		}
		if result == nil {
			return models.Date{}, usageError("can't understand date '%s'.", c.String("date"))
		}
		return models.DateOf(result.Time.In(loc)), nil
	}

	date, err := dateFlags(c, d.today(loc), "day", "month", "year")
	if err != nil {
		return models.Date{}, usageError("invalid date: %v", err)
	}
	return date, nil
}

func allSet(c *cli.Context, names ...string) bool {
	for _, name := range names {
		if !c.IsSet(name) {
			return false
		}
	}
	return true
}

// dateFlags reads a date from three flags, each defaulting to the matching part of today.
func dateFlags(c *cli.Context, today models.Date, dayFlag, monthFlag, yearFlag string) (models.Date, error) {
	year, month, day := today.Year, int(today.Month), today.Day
	if c.IsSet(yearFlag) {
		year = c.Int(yearFlag)
	}
	if c.IsSet(monthFlag) {
		month = c.Int(monthFlag)
	}
	if c.IsSet(dayFlag) {
		day = c.Int(dayFlag)
	}
	date, err := models.NewDate(year, month, day)
	if err != nil {
		return models.Date{}, fmt.Errorf("%s/%s/%s: %w", dayFlag, monthFlag, yearFlag, err)
	}
	return date, nil
}
