package command

import (
	"fmt"
	"gcal/internal/models"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

const (
	formatText = "text"
	formatICS  = "ics"

	noEvents = "No events found."
)

func (d *Dispatcher) viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "View calendar events",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "startday", Usage: "Start day for viewing events"},
			&cli.IntFlag{Name: "startmonth", Usage: "Start month for viewing events"},
			&cli.IntFlag{Name: "startyear", Usage: "Start year for viewing events"},
			&cli.IntFlag{Name: "endday", Usage: "End day for viewing events"},
			&cli.IntFlag{Name: "endmonth", Usage: "End month for viewing events"},
			&cli.IntFlag{Name: "endyear", Usage: "End year for viewing events"},
			&cli.StringFlag{Name: "format", Value: formatText, Usage: "Output format: text or ics"},
		},
		Action: d.viewEvents,
	}
}

func (d *Dispatcher) viewEvents(c *cli.Context) error {
	format := c.String("format")
	if format != formatText && format != formatICS {
		return usageError("unknown format '%s' (must be 'text' or 'ics').", format)
	}

	loc, err := location(c)
	if err != nil {
		return err
	}
	today := d.today(loc)

	start, err := dateFlags(c, today, "startday", "startmonth", "startyear")
	if err != nil {
		return usageError("invalid start date: %v", err)
	}
	end, err := dateFlags(c, today, "endday", "endmonth", "endyear")
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
	events := ag.ListEvents(c.Context, start, end)

	if format == formatICS {
		return writeICS(d.stdout, events, d.now())
	}
	writeText(d.stdout, events)
	return nil
}

// writeText prints one "<start>: <title>" line per event.
func writeText(w io.Writer, events models.Listing) {
	if len(events) == 0 {
		fmt.Fprintln(w, noEvents)
		return
	}
	for _, ev := range events {
		fmt.Fprintf(w, "%s: %s\n", ev.StartString(), ev.Title)
	}
}

// writeICS renders the listing as a single VCALENDAR.
func writeICS(w io.Writer, events models.Listing, now time.Time) error {
	if len(events) == 0 {
		fmt.Fprintln(w, noEvents)
		return nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//gcal//EN")

	stamp := now.UTC()
	for _, ev := range events {
		uid := ev.ID
		if uid == "" {
			uid = uuid.New().String()
		}

		ve := ical.NewComponent(ical.CompEvent)
		ve.Props.SetText(ical.PropUID, uid)
		ve.Props.SetText(ical.PropSummary, ev.Title)
		ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		if ev.AllDay {
			ve.Props.SetDate(ical.PropDateTimeStart, ev.Start)
			if !ev.End.IsZero() && ev.End.After(ev.Start) {
				ve.Props.SetDate(ical.PropDateTimeEnd, ev.End)
			}
		} else {
			ve.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
			if !ev.End.IsZero() && !ev.End.Before(ev.Start) {
				ve.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
			}
		}
		if ev.Description != "" {
			ve.Props.SetText(ical.PropDescription, ev.Description)
		}
		cal.Children = append(cal.Children, ve)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode events to iCal format: %w", err)
	}
	return nil
}
