package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"glowdesk-wa-agent/models"
)

// DayWindow: opening window for one weekday, times as "15:04" clock strings
type DayWindow struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// WeeklySchedule maps weekday to its opening window. A nil entry (or a
// missing one) means closed that day.
type WeeklySchedule map[time.Weekday]*DayWindow

// DefaultWeeklySchedule: Mon-Fri 09:00-19:00, Sat 09:00-17:00, Sun closed.
// Used when an organization has no working_hours configured.
func DefaultWeeklySchedule() WeeklySchedule {
	return WeeklySchedule{
		time.Monday:    {Open: "09:00", Close: "19:00"},
		time.Tuesday:   {Open: "09:00", Close: "19:00"},
		time.Wednesday: {Open: "09:00", Close: "19:00"},
		time.Thursday:  {Open: "09:00", Close: "19:00"},
		time.Friday:    {Open: "09:00", Close: "19:00"},
		time.Saturday:  {Open: "09:00", Close: "17:00"},
	}
}

var weekdayKeys = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var weekdayNamesIT = map[time.Weekday]string{
	time.Monday:    "Lunedì",
	time.Tuesday:   "Martedì",
	time.Wednesday: "Mercoledì",
	time.Thursday:  "Giovedì",
	time.Friday:    "Venerdì",
	time.Saturday:  "Sabato",
	time.Sunday:    "Domenica",
}

// ScheduleResolver is the single source of truth for business hours. Both the
// business-hours policy filter and the availability function consume it.
type ScheduleResolver struct {
	schedule WeeklySchedule
}

// NewScheduleResolver builds a resolver from the organization's working_hours
// JSON, falling back to the default weekly schedule when unset or malformed.
// Expected shape: {"monday": {"open": "09:00", "close": "19:00"}, ...} with
// closed days omitted or null.
func NewScheduleResolver(org *models.Organization) *ScheduleResolver {
	if org == nil || len(org.WorkingHours) == 0 {
		return &ScheduleResolver{schedule: DefaultWeeklySchedule()}
	}

	var raw map[string]*DayWindow
	if err := json.Unmarshal(org.WorkingHours, &raw); err != nil {
		log.Printf("⚠️  [Schedule] Invalid working_hours for org %s, using default: %v", org.ID, err)
		return &ScheduleResolver{schedule: DefaultWeeklySchedule()}
	}

	schedule := WeeklySchedule{}
	for key, window := range raw {
		day, ok := weekdayKeys[strings.ToLower(key)]
		if !ok || window == nil {
			continue
		}
		if _, err := parseClock(window.Open); err != nil {
			continue
		}
		if _, err := parseClock(window.Close); err != nil {
			continue
		}
		schedule[day] = window
	}

	if len(schedule) == 0 {
		return &ScheduleResolver{schedule: DefaultWeeklySchedule()}
	}
	return &ScheduleResolver{schedule: schedule}
}

// WindowFor returns the opening window for a weekday in minutes since
// midnight. ok is false when the salon is closed that day.
func (r *ScheduleResolver) WindowFor(day time.Weekday) (openMin, closeMin int, ok bool) {
	window := r.schedule[day]
	if window == nil {
		return 0, 0, false
	}
	openMin, _ = parseClock(window.Open)
	closeMin, _ = parseClock(window.Close)
	return openMin, closeMin, true
}

// IsOpenAt reports whether the salon is open at the given wall-clock time
func (r *ScheduleResolver) IsOpenAt(t time.Time) bool {
	openMin, closeMin, ok := r.WindowFor(t.Weekday())
	if !ok {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= openMin && minutes < closeMin
}

// Describe renders the weekly schedule as user-facing Italian text
func (r *ScheduleResolver) Describe() string {
	var b strings.Builder
	days := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	for i, day := range days {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(weekdayNamesIT[day])
		b.WriteString(": ")
		if window := r.schedule[day]; window != nil {
			b.WriteString(window.Open)
			b.WriteString(" - ")
			b.WriteString(window.Close)
		} else {
			b.WriteString("chiuso")
		}
	}
	return b.String()
}

// parseClock converts "15:04" to minutes since midnight
func parseClock(clock string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(clock), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", clock)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", clock)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", clock)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", clock)
	}
	return hours*60 + minutes, nil
}
