package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gurukul-booking/schedule"
)

type busyLister interface {
	ListBusy(ctx context.Context, from, to time.Time) ([]schedule.BusyInterval, error)
}

type availabilityHandler struct {
	calendar busyLister
	windows  []schedule.Window
	loc      *time.Location
	now      func() time.Time
}

type dayAvailability struct {
	DayName string   `json:"dayName"`
	DayDate string   `json:"dayDate"`
	Slots   []string `json:"slots"`
}

func registerAvailabilityRoutes(router *mux.Router, calendar busyLister, windows []schedule.Window, loc *time.Location) {
	handler := &availabilityHandler{
		calendar: calendar,
		windows:  windows,
		loc:      loc,
		now:      time.Now,
	}
	router.HandleFunc("/api/available-slots", handler.handleAvailableSlots).Methods("GET")
}

// handleAvailableSlots returns the free one-hour slots for each of the next
// 8 days (today included) keyed by ISO date. Days without a single free slot
// are left out of the map entirely.
func (h *availabilityHandler) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	utcNow := now.UTC()
	today := time.Date(utcNow.Year(), utcNow.Month(), utcNow.Day(), 0, 0, 0, 0, time.UTC)
	rangeEnd := today.AddDate(0, 0, horizonDays-1).Add(23*time.Hour + 59*time.Minute)

	busy, err := h.calendar.ListBusy(r.Context(), today, rangeEnd)
	if err != nil {
		log.Printf("Availability: fetch error: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch available slots: %v", err))
		return
	}
	log.Printf("Availability: found %d existing events between %s and %s",
		len(busy), today.Format("2006-01-02"), rangeEnd.Format("2006-01-02"))

	available := make(map[string]dayAvailability)
	for i := 0; i < horizonDays; i++ {
		day := today.AddDate(0, 0, i)
		free := schedule.FreeSlots(day, busy, h.windows, now, minLeadTime, h.loc)
		if len(free) == 0 {
			continue
		}
		slots := make([]string, 0, len(free))
		for _, slot := range free {
			slots = append(slots, slot.String())
		}
		available[day.Format("2006-01-02")] = dayAvailability{
			DayName: day.Weekday().String(),
			DayDate: day.Format("02 January 2006"),
			Slots:   slots,
		}
	}

	writeJSON(w, http.StatusOK, available)
}
