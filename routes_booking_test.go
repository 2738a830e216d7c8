package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gurukul-booking/gcal"
	"gurukul-booking/schedule"
)

type stubBookingCreator struct {
	calls    int
	students []gcal.Student
	slots    []schedule.Slot
	failOn   int // 1-based call index that errors; 0 never fails
}

func (s *stubBookingCreator) CreateBooking(ctx context.Context, student gcal.Student, slot schedule.Slot) (gcal.CreatedBooking, error) {
	s.calls++
	s.students = append(s.students, student)
	s.slots = append(s.slots, slot)
	if s.failOn != 0 && s.calls == s.failOn {
		return gcal.CreatedBooking{}, errors.New("googleapi: Error 500: backend error")
	}
	return gcal.CreatedBooking{
		ID:       "event-" + slot.Date() + "-" + slot.String(),
		HTMLLink: "https://calendar.google.com/event?eid=test",
		MeetLink: "https://meet.google.com/abc-defg-hij",
		Date:     slot.Date(),
		Time:     slot.String(),
	}, nil
}

func newBookingHandler(creator bookingCreator) *bookingHandler {
	return &bookingHandler{
		calendar: creator,
		loc:      time.UTC,
		now:      func() time.Time { return frozenNow },
	}
}

func postBookSlots(t *testing.T, handler *bookingHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/book-slots", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handler.handleBookSlots(w, req)
	return w
}

func testStudent() gcal.Student {
	return gcal.Student{
		Name:        "Asha Rao",
		Email:       "asha@example.com",
		Phone:       "+91 98765 43210",
		SessionType: "Advanced Python",
	}
}

func TestBookSlotsSuccess(t *testing.T) {
	creator := &stubBookingCreator{}
	handler := newBookingHandler(creator)

	w := postBookSlots(t, handler, bookSlotsRequest{
		Student: testStudent(),
		Slots: []slotRequest{
			{Date: "2026-03-02", Time: "09:00-10:00"},
			{Date: "2026-03-03", Time: "15:00-16:00"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp bookSlotsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.True(t, resp.Success)
	require.Equal(t, "Successfully booked 2 session(s)", resp.Message)
	require.Len(t, resp.Events, 2)
	require.Equal(t, "2026-03-02", resp.Events[0].Date)
	require.Equal(t, "09:00-10:00", resp.Events[0].Time)
	require.Equal(t, "2026-03-03", resp.Events[1].Date)

	require.Equal(t, 2, creator.calls)
	require.Equal(t, testStudent(), creator.students[0])
	require.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), creator.slots[0].Start)
	require.Equal(t, time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC), creator.slots[1].Start)
}

func TestBookSlotsRejectsEmptySlots(t *testing.T) {
	creator := &stubBookingCreator{}
	handler := newBookingHandler(creator)

	w := postBookSlots(t, handler, bookSlotsRequest{Student: testStudent(), Slots: []slotRequest{}})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, creator.calls)
}

func TestBookSlotsRejectsMissingStudent(t *testing.T) {
	creator := &stubBookingCreator{}
	handler := newBookingHandler(creator)

	w := postBookSlots(t, handler, bookSlotsRequest{
		Slots: []slotRequest{{Date: "2026-03-02", Time: "09:00-10:00"}},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, creator.calls)
}

func TestBookSlotsRejectsInvalidBody(t *testing.T) {
	creator := &stubBookingCreator{}
	handler := newBookingHandler(creator)

	req := httptest.NewRequest(http.MethodPost, "/api/book-slots", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	handler.handleBookSlots(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Zero(t, creator.calls)
}

func TestBookSlotsLeadTimeViolation(t *testing.T) {
	creator := &stubBookingCreator{}
	handler := newBookingHandler(creator)

	// now is 05:00, so anything starting before 07:00 is too close.
	w := postBookSlots(t, handler, bookSlotsRequest{
		Student: testStudent(),
		Slots:   []slotRequest{{Date: "2026-03-02", Time: "06:00-07:00"}},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Contains(t, resp.Error, "too close to current time")
	require.Zero(t, creator.calls)
}

func TestBookSlotsLeadTimeViolationAfterEarlierCreation(t *testing.T) {
	creator := &stubBookingCreator{}
	handler := newBookingHandler(creator)

	w := postBookSlots(t, handler, bookSlotsRequest{
		Student: testStudent(),
		Slots: []slotRequest{
			{Date: "2026-03-02", Time: "09:00-10:00"},
			{Date: "2026-03-02", Time: "06:00-07:00"},
		},
	})

	// The request is rejected, but the event created for the first slot is
	// not rolled back.
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, 1, creator.calls)
}

func TestBookSlotsMalformedRange(t *testing.T) {
	creator := &stubBookingCreator{}
	handler := newBookingHandler(creator)

	w := postBookSlots(t, handler, bookSlotsRequest{
		Student: testStudent(),
		Slots:   []slotRequest{{Date: "2026-03-02", Time: "nine to ten"}},
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Contains(t, resp.Error, "2026-03-02 nine to ten")
	require.Zero(t, creator.calls)
}

func TestBookSlotsUpstreamFailureAborts(t *testing.T) {
	creator := &stubBookingCreator{failOn: 2}
	handler := newBookingHandler(creator)

	w := postBookSlots(t, handler, bookSlotsRequest{
		Student: testStudent(),
		Slots: []slotRequest{
			{Date: "2026-03-02", Time: "09:00-10:00"},
			{Date: "2026-03-02", Time: "10:00-11:00"},
			{Date: "2026-03-02", Time: "11:00-12:00"},
		},
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Contains(t, resp.Error, "2026-03-02 10:00-11:00")
	// Processing stopped at the failing slot; the third was never attempted.
	require.Equal(t, 2, creator.calls)
}
