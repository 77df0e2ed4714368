package Scheduling

import (
	"ClinicFlow/Models"
	"fmt"

	"gorm.io/gorm"
)

// Working window of the clinic. Candidate starts are generated every
// SlotStepMinutes between open and close; a slot whose end would pass the
// close is excluded, not clipped.
const (
	WindowOpenMinutes  = 8 * 60
	WindowCloseMinutes = 20 * 60
	SlotStepMinutes    = 15
)

// AllowedDurations are the session lengths the booking UI may offer.
var AllowedDurations = []int{15, 30, 45, 60}

type Slot struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration int    `json:"duration"`
}

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

func minutesOfDay(value string) (int, error) {
	var hours, minutes int
	if _, err := fmt.Sscanf(value, "%d:%d", &hours, &minutes); err != nil {
		return 0, fmt.Errorf("%w: bad time %q", Models.ErrValidation, value)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: bad time %q", Models.ErrValidation, value)
	}
	return hours*60 + minutes, nil
}

func formatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps is the half-open interval test: [s1,e1) and [s2,e2) overlap iff
// s1 < e2 and s2 < e1. Intervals sharing only a boundary do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

type interval struct {
	start int
	end   int
}

func occupiedIntervals(db *gorm.DB, date string, excludeID uint) ([]interval, error) {
	appointments, err := Models.OccupiedAppointments(db, date)
	if err != nil {
		return nil, err
	}
	var intervals []interval
	for _, appointment := range appointments {
		if excludeID != 0 && appointment.ID == excludeID {
			continue
		}
		start, err := minutesOfDay(appointment.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := minutesOfDay(appointment.EndTime)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, interval{start: start, end: end})
	}
	return intervals, nil
}

// AvailableSlots enumerates every bookable (start, duration) pair on a date,
// ascending by start time. This list is advisory, for UI display; the booking
// path re-checks with IsSlotFree inside its transaction.
func (service *Service) AvailableSlots(date string) ([]Slot, error) {
	return AvailableSlots(service.DB, date)
}

func AvailableSlots(db *gorm.DB, date string) ([]Slot, error) {
	occupied, err := occupiedIntervals(db, date, 0)
	if err != nil {
		return nil, err
	}

	var slots []Slot
	for start := WindowOpenMinutes; start < WindowCloseMinutes; start += SlotStepMinutes {
		for _, duration := range AllowedDurations {
			end := start + duration
			if end > WindowCloseMinutes {
				continue
			}
			free := true
			for _, busy := range occupied {
				if Overlaps(start, end, busy.start, busy.end) {
					free = false
					break
				}
			}
			if free {
				slots = append(slots, Slot{
					Start:    formatMinutes(start),
					End:      formatMinutes(end),
					Duration: duration,
				})
			}
		}
	}
	return slots, nil
}

// IsSlotFree answers whether [start,end) on the date overlaps any
// non-cancelled appointment other than the optionally excluded one. This is
// the authoritative conflict guard used by the booking path.
func (service *Service) IsSlotFree(date, start, end string, excludeID uint) (bool, error) {
	return IsSlotFree(service.DB, date, start, end, excludeID)
}

func IsSlotFree(db *gorm.DB, date, start, end string, excludeID uint) (bool, error) {
	startMinutes, err := minutesOfDay(start)
	if err != nil {
		return false, err
	}
	endMinutes, err := minutesOfDay(end)
	if err != nil {
		return false, err
	}
	if startMinutes >= endMinutes {
		return false, fmt.Errorf("%w: slot start %s is not before end %s", Models.ErrValidation, start, end)
	}

	occupied, err := occupiedIntervals(db, date, excludeID)
	if err != nil {
		return false, err
	}
	for _, busy := range occupied {
		if Overlaps(startMinutes, endMinutes, busy.start, busy.end) {
			return false, nil
		}
	}
	return true, nil
}
