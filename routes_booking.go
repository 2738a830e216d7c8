package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gurukul-booking/gcal"
	"gurukul-booking/schedule"
)

type bookingCreator interface {
	CreateBooking(ctx context.Context, student gcal.Student, slot schedule.Slot) (gcal.CreatedBooking, error)
}

type bookingHandler struct {
	calendar bookingCreator
	loc      *time.Location
	now      func() time.Time
}

type slotRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type bookSlotsRequest struct {
	Student gcal.Student  `json:"student"`
	Slots   []slotRequest `json:"slots"`
}

type bookSlotsResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Events  []gcal.CreatedBooking `json:"events"`
}

func registerBookingRoutes(router *mux.Router, calendar bookingCreator, loc *time.Location) {
	handler := &bookingHandler{
		calendar: calendar,
		loc:      loc,
		now:      time.Now,
	}
	router.HandleFunc("/api/book-slots", handler.handleBookSlots).Methods("POST")
}

// handleBookSlots creates one calendar event per requested slot, in request
// order. Processing stops at the first failing slot; events already created
// in the same request are not rolled back.
func (h *bookingHandler) handleBookSlots(w http.ResponseWriter, r *http.Request) {
	var req bookSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No data received")
		return
	}
	if req.Student == (gcal.Student{}) || len(req.Slots) == 0 {
		writeError(w, http.StatusBadRequest, "Missing student or slots data")
		return
	}

	// The lead-time floor is re-derived here rather than reusing the one the
	// availability response was computed against; a slot listed as free can
	// therefore expire between listing and booking.
	minBookable := h.now().Add(minLeadTime)

	created := make([]gcal.CreatedBooking, 0, len(req.Slots))
	for _, requested := range req.Slots {
		log.Printf("Booking: processing slot %s %s", requested.Date, requested.Time)

		slot, err := schedule.ParseSlot(requested.Date, requested.Time, h.loc)
		if err != nil {
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("Error processing slot %s %s: %v", requested.Date, requested.Time, err))
			return
		}

		if slot.Start.Before(minBookable) {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Slot %s %s is too close to current time. Please select a slot at least 2 hours from now.",
					requested.Date, requested.Time))
			return
		}

		booking, err := h.calendar.CreateBooking(r.Context(), req.Student, slot)
		if err != nil {
			log.Printf("Booking: create error for slot %s %s: %v", requested.Date, requested.Time, err)
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("Error processing slot %s %s: %v", requested.Date, requested.Time, err))
			return
		}
		created = append(created, booking)
	}

	writeJSON(w, http.StatusOK, bookSlotsResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully booked %d session(s)", len(created)),
		Events:  created,
	})
}
