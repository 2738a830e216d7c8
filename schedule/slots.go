// Package schedule computes bookable one-hour session slots from fixed
// working-hour windows and existing calendar reservations.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// SlotLength is the fixed duration of every bookable session.
const SlotLength = time.Hour

// ClockTime is a wall-clock time of day, independent of date and timezone.
type ClockTime struct {
	Hour   int
	Minute int
}

// Window is a daily working-hour range [Start, End) during which sessions
// may be scheduled. Start must be before End.
type Window struct {
	Start ClockTime
	End   ClockTime
}

// DefaultWindows are the deployment working hours: 7AM-1PM, 3PM-6PM, 7PM-11PM.
// They are ordered chronologically, which FreeSlots relies on for ordered output.
var DefaultWindows = []Window{
	{Start: ClockTime{Hour: 7}, End: ClockTime{Hour: 13}},
	{Start: ClockTime{Hour: 15}, End: ClockTime{Hour: 18}},
	{Start: ClockTime{Hour: 19}, End: ClockTime{Hour: 23}},
}

// BusyInterval is an existing calendar reservation blocking [Start, End).
type BusyInterval struct {
	Start time.Time
	End   time.Time
	Title string
}

// Slot is a bookable half-open one-hour interval [Start, End).
type Slot struct {
	Start time.Time
	End   time.Time
}

// String renders the slot in its wire format, e.g. "07:00-08:00".
func (s Slot) String() string {
	return s.Start.Format("15:04") + "-" + s.End.Format("15:04")
}

// Date renders the slot's calendar day as an ISO date string.
func (s Slot) Date() string {
	return s.Start.Format("2006-01-02")
}

// ParseSlot parses a "YYYY-MM-DD" date and an "HH:MM-HH:MM" range into a Slot
// anchored in loc. The raw strings stop at this boundary; everything past it
// works with the typed value.
func ParseSlot(date, timeRange string, loc *time.Location) (Slot, error) {
	startStr, endStr, ok := strings.Cut(timeRange, "-")
	if !ok {
		return Slot{}, fmt.Errorf("invalid time range %q", timeRange)
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+startStr, loc)
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", date+" "+endStr, loc)
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot end: %w", err)
	}
	if !end.After(start) {
		return Slot{}, fmt.Errorf("slot end %q is not after start %q", endStr, startStr)
	}
	return Slot{Start: start, End: end}, nil
}

// FreeSlots returns the open one-hour slots on day, walking each window in
// fixed one-hour steps and dropping steps that start before now+lead or that
// overlap a busy interval on the same day. Slots come back in chronological
// order. A trailing step that does not fit a full hour before the window end
// is dropped.
//
// The slot grid is anchored in the timezone of the first busy interval when
// any exist, otherwise in loc. An empty result is not an error.
func FreeSlots(day time.Time, busy []BusyInterval, windows []Window, now time.Time, lead time.Duration, loc *time.Location) []Slot {
	minBookable := now.Add(lead)

	gridLoc := loc
	if len(busy) > 0 {
		gridLoc = busy[0].Start.Location()
	}

	year, month, dom := day.Date()

	var dayBusy []BusyInterval
	for _, b := range busy {
		y, m, d := b.Start.Date()
		if y == year && m == month && d == dom {
			dayBusy = append(dayBusy, b)
		}
	}

	var free []Slot
	for _, w := range windows {
		windowEnd := time.Date(year, month, dom, w.End.Hour, w.End.Minute, 0, 0, gridLoc)
		start := time.Date(year, month, dom, w.Start.Hour, w.Start.Minute, 0, 0, gridLoc)
		for !start.Add(SlotLength).After(windowEnd) {
			slot := Slot{Start: start, End: start.Add(SlotLength)}
			start = slot.End
			if slot.Start.Before(minBookable) {
				continue
			}
			if overlapsAny(slot, dayBusy) {
				continue
			}
			free = append(free, slot)
		}
	}
	return free
}

// overlapsAny reports whether the half-open slot intersects any busy
// interval: [a,b) and [c,d) overlap iff a < d and b > c.
func overlapsAny(slot Slot, busy []BusyInterval) bool {
	for _, b := range busy {
		if slot.Start.Before(b.End) && slot.End.After(b.Start) {
			return true
		}
	}
	return false
}
