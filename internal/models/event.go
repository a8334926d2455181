package models

import (
	"fmt"
	"time"
)

// EventRequest is one of FullDay, Timed or MultiDay.
// The set of implementations is closed; backends switch on Bounds instead of the concrete type.
type EventRequest interface {
	Title() string
	Description() string
	// Bounds returns the half-open span [start, end) sent to the calendar service.
	Bounds() (start, end Boundary)
	isEventRequest()
}

// Boundary is one end of an event span: either a whole date or an instant.
type Boundary struct {
	AllDay bool
	Date   Date      // Set when AllDay
	Time   time.Time // Set otherwise
}

func (b Boundary) String() string {
	if b.AllDay {
		return b.Date.String()
	}
	return b.Time.Format(time.RFC3339)
}

// FullDay is an all-day event covering exactly one date.
type FullDay struct {
	Name    string
	Details string
	Date    Date
}

// NewFullDay builds a single-day all-day event.
func NewFullDay(name, description string, date Date) FullDay {
	return FullDay{Name: name, Details: description, Date: date}
}

func (e FullDay) Title() string       { return e.Name }
func (e FullDay) Description() string { return e.Details }
func (e FullDay) isEventRequest()     {}

func (e FullDay) Bounds() (Boundary, Boundary) {
	return Boundary{AllDay: true, Date: e.Date}, Boundary{AllDay: true, Date: e.Date.AddDays(1)}
}

// Timed is an event with explicit start and end instants on a single date.
// Start after End is not rejected here; the service decides.
type Timed struct {
	Name     string
	Details  string
	Date     Date
	Start    TimeOfDay
	End      TimeOfDay
	Location *time.Location
}

// NewTimed builds a timed event. A nil location means time.Local.
func NewTimed(name, description string, date Date, start, end TimeOfDay, loc *time.Location) Timed {
	if loc == nil {
		loc = time.Local
	}
	return Timed{Name: name, Details: description, Date: date, Start: start, End: end, Location: loc}
}

func (e Timed) Title() string       { return e.Name }
func (e Timed) Description() string { return e.Details }
func (e Timed) isEventRequest()     {}

func (e Timed) Bounds() (Boundary, Boundary) {
	return Boundary{Time: e.Date.At(e.Start, e.Location)}, Boundary{Time: e.Date.At(e.End, e.Location)}
}

// MultiDay is an all-day event from StartDate through EndDate inclusive.
type MultiDay struct {
	Name      string
	Details   string
	StartDate Date
	EndDate   Date
}

// NewMultiDay builds a multi-day event, rejecting an end date before the start date.
func NewMultiDay(name, description string, start, end Date) (MultiDay, error) {
	if end.Before(start) {
		return MultiDay{}, fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidRange, end, start)
	}
	return MultiDay{Name: name, Details: description, StartDate: start, EndDate: end}, nil
}

func (e MultiDay) Title() string       { return e.Name }
func (e MultiDay) Description() string { return e.Details }
func (e MultiDay) isEventRequest()     {}

// Bounds encodes the inclusive end date as the following day.
func (e MultiDay) Bounds() (Boundary, Boundary) {
	return Boundary{AllDay: true, Date: e.StartDate}, Boundary{AllDay: true, Date: e.EndDate.AddDays(1)}
}

// Result is the outcome of a single create call.
type Result struct {
	Link string // Server-assigned link or identifier on success
	Err  error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Summary is a single listed event occurrence.
type Summary struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// StartString renders the start as an ISO-8601 date for all-day events and as RFC 3339 otherwise.
func (s Summary) StartString() string {
	if s.AllDay {
		return s.Start.Format(time.DateOnly)
	}
	return s.Start.Format(time.RFC3339)
}

// Listing is a sequence of summaries ordered by start time ascending.
type Listing []Summary
