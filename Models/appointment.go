package Models

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

// Appointment is a scheduled session (a "cita"). Date is "2006-01-02",
// StartTime and EndTime are "15:04" wall-clock values inside the clinic's
// working window. An appointment holds at most one credit-pack unit.
type Appointment struct {
	gorm.Model
	PatientID      uint   `json:"patient_id"`
	PatientName    string `json:"patient_name"`
	ProviderID     uint   `json:"provider_id"`
	ProviderName   string `json:"provider_name"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Reason         string `json:"reason"`
	State          string `json:"state"`
	CreditPackID   *uint  `json:"credit_pack_id" gorm:"default:null"`
	UsesCreditPack bool   `json:"uses_credit_pack"`
	Notes          string `json:"notes"`
	ReminderSent   bool   `json:"reminder_sent"`
}

func ValidAppointmentState(state string) bool {
	switch state {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// ValidAppointmentTransition reports whether an appointment may move between
// the two states. Completed and cancelled are terminal.
func ValidAppointmentTransition(from, to string) bool {
	switch from {
	case AppointmentPending:
		return to == AppointmentConfirmed || to == AppointmentCompleted || to == AppointmentCancelled
	case AppointmentConfirmed:
		return to == AppointmentCompleted || to == AppointmentCancelled
	}
	return false
}

func (appointment *Appointment) AppendAuditNote(actor, text string) {
	appointment.Notes = appendAuditLine(appointment.Notes, actor, text)
}

func GetAppointment(db *gorm.DB, id uint) (Appointment, error) {
	var appointment Appointment
	if err := db.First(&appointment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appointment, fmt.Errorf("%w: appointment %d", ErrNotFound, id)
		}
		return appointment, err
	}
	return appointment, nil
}

// OccupiedAppointments returns every non-cancelled appointment on a date.
// These are the intervals the slot guard checks against.
func OccupiedAppointments(db *gorm.DB, date string) ([]Appointment, error) {
	var appointments []Appointment
	if err := db.Model(&Appointment{}).
		Where("date = ? AND state <> ?", date, AppointmentCancelled).
		Order("start_time").
		Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

// LinkedAppointments returns the appointments currently holding a unit from
// the pack, restricted to the given states.
func LinkedAppointments(db *gorm.DB, packID uint, states []string) ([]Appointment, error) {
	var appointments []Appointment
	if err := db.Model(&Appointment{}).
		Where("credit_pack_id = ? AND uses_credit_pack = ? AND state IN ?", packID, true, states).
		Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}
