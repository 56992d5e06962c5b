package services

import (
	"time"

	"glowdesk-wa-agent/models"
)

// occupancy resolution for overlap marking
const slotResolutionMinutes = 15

// AvailableSlots generates candidate start times at the service's duration
// granularity across the working window, then removes every slot that touches
// a 15-minute cell occupied by an existing booking that day. Times are
// returned as "HH:MM" strings.
func AvailableSlots(openMin, closeMin, durationMin int, day time.Time, bookings []models.Booking) []string {
	if durationMin <= 0 || closeMin <= openMin {
		return nil
	}

	cells := (24 * 60) / slotResolutionMinutes
	occupied := make([]bool, cells)

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	for _, b := range bookings {
		startMin := int(b.StartAt.Sub(dayStart).Minutes())
		endMin := int(b.EndAt.Sub(dayStart).Minutes())
		if endMin <= 0 || startMin >= 24*60 {
			continue
		}
		if startMin < 0 {
			startMin = 0
		}
		if endMin > 24*60 {
			endMin = 24 * 60
		}
		firstCell := startMin / slotResolutionMinutes
		lastCell := (endMin + slotResolutionMinutes - 1) / slotResolutionMinutes
		for c := firstCell; c < lastCell && c < cells; c++ {
			occupied[c] = true
		}
	}

	var slots []string
	for start := openMin; start+durationMin <= closeMin; start += durationMin {
		free := true
		firstCell := start / slotResolutionMinutes
		lastCell := (start + durationMin + slotResolutionMinutes - 1) / slotResolutionMinutes
		for c := firstCell; c < lastCell && c < cells; c++ {
			if occupied[c] {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, formatMinutes(start))
		}
	}
	return slots
}

func formatMinutes(minutes int) string {
	t := time.Date(2000, 1, 1, 0, minutes, 0, 0, time.UTC)
	return t.Format("15:04")
}
