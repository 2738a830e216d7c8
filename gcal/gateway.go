// Package gcal adapts the shared Google Workspace calendar for the booking
// server: listing blocked time and creating session events with Meet links.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"gurukul-booking/schedule"
)

// noMeetLink is returned in place of a conference URI when Google did not
// provision one for the created event.
const noMeetLink = "No Meet link generated"

// Student is the contact record attached to a booking.
type Student struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	SessionType string `json:"sessionType"`
}

// CreatedBooking describes one successfully created calendar event.
type CreatedBooking struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
	MeetLink string `json:"meetLink"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

// Config carries everything needed to reach the target calendar.
type Config struct {
	// CalendarID identifies the shared workspace calendar.
	CalendarID string
	// CredentialsJSON is the service account key, read from the environment
	// or a file before construction.
	CredentialsJSON []byte
	// Subject is the workspace account the service account impersonates
	// through domain-wide delegation.
	Subject string
	// TimeZone is the IANA name of the fixed scheduling timezone.
	TimeZone string
}

// Gateway is an authenticated client for the target calendar. It is safe for
// concurrent use and intended to be constructed once at startup.
type Gateway struct {
	service    *calendar.Service
	calendarID string
	tzName     string
	loc        *time.Location
}

// NewGateway builds a calendar client from service account credentials with
// domain-wide delegation. Any credential or timezone problem surfaces here,
// at construction time.
func NewGateway(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.CalendarID == "" {
		return nil, errors.New("calendar ID is required")
	}
	if len(cfg.CredentialsJSON) == 0 {
		return nil, errors.New("service account credentials are required")
	}

	jwtConfig, err := google.JWTConfigFromJSON(cfg.CredentialsJSON, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	jwtConfig.Subject = cfg.Subject

	service, err := calendar.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling timezone %q: %w", cfg.TimeZone, err)
	}

	return &Gateway{
		service:    service,
		calendarID: cfg.CalendarID,
		tzName:     cfg.TimeZone,
		loc:        loc,
	}, nil
}

// Location returns the fixed scheduling timezone.
func (g *Gateway) Location() *time.Location {
	return g.loc
}

// CheckAccess verifies that delegation to the target calendar works: the
// calendar must be readable and its events listable. Called once at startup
// so misconfiguration fails the process instead of the first request.
func (g *Gateway) CheckAccess(ctx context.Context) error {
	target, err := g.service.Calendars.Get(g.calendarID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("cannot access calendar %s: %w", g.calendarID, err)
	}
	log.Printf("Target calendar access verified: %s", target.Summary)

	if _, err := g.service.Events.List(g.calendarID).MaxResults(1).Context(ctx).Do(); err != nil {
		return fmt.Errorf("cannot list events on calendar %s: %w", g.calendarID, err)
	}
	return nil
}

// ListBusy fetches every event intersecting [from, to], with recurring events
// expanded to single occurrences and sorted by start time, and converts them
// into busy intervals.
func (g *Gateway) ListBusy(ctx context.Context, from, to time.Time) ([]schedule.BusyInterval, error) {
	resp, err := g.service.Events.List(g.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}

	busy := make([]schedule.BusyInterval, 0, len(resp.Items))
	for _, item := range resp.Items {
		interval, err := eventInterval(item, g.loc)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", item.Id, err)
		}
		busy = append(busy, interval)
	}
	return busy, nil
}

// CreateBooking inserts a session event for the slot, invites the student,
// requests a Meet link, and dispatches attendee notifications.
func (g *Gateway) CreateBooking(ctx context.Context, student Student, slot schedule.Slot) (CreatedBooking, error) {
	created, err := g.service.Events.Insert(g.calendarID, newSessionEvent(student, slot, g.tzName)).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).Do()
	if err != nil {
		return CreatedBooking{}, fmt.Errorf("failed to create calendar event: %w", err)
	}

	log.Printf("Created session event %s for %s %s", created.Id, slot.Date(), slot)

	return CreatedBooking{
		ID:       created.Id,
		HTMLLink: created.HtmlLink,
		MeetLink: meetLink(created),
		Date:     slot.Date(),
		Time:     slot.String(),
	}, nil
}

// eventInterval converts a calendar event into a busy interval, using the
// timed range when present or the date range for all-day entries.
func eventInterval(event *calendar.Event, loc *time.Location) (schedule.BusyInterval, error) {
	start, err := eventTime(event.Start, loc)
	if err != nil {
		return schedule.BusyInterval{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := eventTime(event.End, loc)
	if err != nil {
		return schedule.BusyInterval{}, fmt.Errorf("invalid end: %w", err)
	}

	title := event.Summary
	if title == "" {
		title = "(No Title)"
	}
	return schedule.BusyInterval{Start: start, End: end, Title: title}, nil
}

func eventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, error) {
	if edt == nil {
		return time.Time{}, errors.New("missing event time")
	}
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	return time.ParseInLocation("2006-01-02", edt.Date, loc)
}

// newSessionEvent builds the event payload for one booked session: the
// student as sole pending attendee, a Meet conference request, 24h email and
// 30m popup reminders, and all guest permissions disabled.
func newSessionEvent(student Student, slot schedule.Slot, tzName string) *calendar.Event {
	name := student.Name
	if name == "" {
		name = "Student"
	}
	sessionType := student.SessionType
	if sessionType == "" {
		sessionType = "Python Session"
	}
	phone := student.Phone
	if phone == "" {
		phone = "Not provided"
	}
	// GuestsCanInviteOthers and GuestsCanSeeOtherGuests default to true on
	// the API side, so false must be sent explicitly.
	guestsAllowed := false

	description := fmt.Sprintf(`Student: %s
Email: %s
Phone: %s
Session Type: %s

Booked via Gurukul Python Booking System

Join the session using the Google Meet link above.`, name, student.Email, phone, sessionType)

	return &calendar.Event{
		Summary:     fmt.Sprintf("%s - %s", sessionType, name),
		Description: description,
		Start: &calendar.EventDateTime{
			DateTime: slot.Start.Format(time.RFC3339),
			TimeZone: tzName,
		},
		End: &calendar.EventDateTime{
			DateTime: slot.End.Format(time.RFC3339),
			TimeZone: tzName,
		},
		Attendees: []*calendar.EventAttendee{
			{
				Email:          student.Email,
				DisplayName:    name,
				ResponseStatus: "needsAction",
			},
		},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: "meet-" + uuid.New().String(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
		GuestsCanModify:         false,
		GuestsCanInviteOthers:   &guestsAllowed,
		GuestsCanSeeOtherGuests: &guestsAllowed,
	}
}

// meetLink pulls the conference URI out of a created event, falling back to
// an explicit sentinel when Google generated none.
func meetLink(event *calendar.Event) string {
	if event.ConferenceData == nil || len(event.ConferenceData.EntryPoints) == 0 {
		return noMeetLink
	}
	uri := event.ConferenceData.EntryPoints[0].Uri
	if uri == "" {
		return noMeetLink
	}
	return uri
}
