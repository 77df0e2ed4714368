package Ledger

import (
	"ClinicFlow/Models"
	"ClinicFlow/Scheduling"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Coordinator is the only component allowed to move a credit pack's
// remaining-unit counter and an appointment's pack linkage together. Every
// exported operation runs as one database transaction: all of its writes
// succeed or none do. The pack row is locked for the read-modify-write
// sequence so two concurrent bookings cannot both spend the last unit.
type Coordinator struct {
	DB *gorm.DB
}

func NewCoordinator(db *gorm.DB) *Coordinator {
	return &Coordinator{DB: db}
}

// AppointmentInput carries the booking form fields. CreditPackID nil means
// the appointment is (or becomes) unbacked by a pack; on edits, a nil value
// detaches a previously held credit.
type AppointmentInput struct {
	PatientID    uint   `json:"patient_id"`
	ProviderID   uint   `json:"provider_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Reason       string `json:"reason"`
	CreditPackID *uint  `json:"credit_pack_id"`
}

func (input *AppointmentInput) validate() error {
	if input.PatientID == 0 {
		return fmt.Errorf("%w: appointment requires a patient", Models.ErrValidation)
	}
	if input.ProviderID == 0 {
		return fmt.Errorf("%w: appointment requires a provider", Models.ErrValidation)
	}
	if input.Date == "" || input.StartTime == "" || input.EndTime == "" {
		return fmt.Errorf("%w: appointment requires date, start and end times", Models.ErrValidation)
	}
	return nil
}

// CreateAppointment books a new appointment, optionally consuming one unit
// from a credit pack. The slot guard, the appointment insert and the credit
// application happen in the same transaction; if the credit cannot be
// applied the booking does not exist afterwards.
func (coordinator *Coordinator) CreateAppointment(input AppointmentInput, actor string) (Models.Appointment, error) {
	if err := input.validate(); err != nil {
		return Models.Appointment{}, err
	}

	var appointment Models.Appointment
	err := coordinator.DB.Transaction(func(tx *gorm.DB) error {
		free, err := Scheduling.IsSlotFree(tx, input.Date, input.StartTime, input.EndTime, 0)
		if err != nil {
			return err
		}
		if !free {
			return fmt.Errorf("%w: %s %s-%s", Models.ErrSlotConflict, input.Date, input.StartTime, input.EndTime)
		}

		var patient Models.Patient
		if err := tx.First(&patient, input.PatientID).Error; err != nil {
			return fmt.Errorf("%w: patient %d", Models.ErrNotFound, input.PatientID)
		}
		var provider Models.Provider
		if err := tx.First(&provider, input.ProviderID).Error; err != nil {
			return fmt.Errorf("%w: provider %d", Models.ErrNotFound, input.ProviderID)
		}

		appointment = Models.Appointment{
			PatientID:    patient.ID,
			PatientName:  patient.Name,
			ProviderID:   provider.ID,
			ProviderName: provider.Name,
			Date:         input.Date,
			StartTime:    input.StartTime,
			EndTime:      input.EndTime,
			Reason:       input.Reason,
			State:        Models.AppointmentPending,
		}
		appointment.AppendAuditNote(actor, "appointment created")
		if err := tx.Create(&appointment).Error; err != nil {
			return err
		}

		if input.CreditPackID != nil {
			if err := applyCreditTx(tx, &appointment, *input.CreditPackID, actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Models.Appointment{}, err
	}
	return appointment, nil
}

// UpdateAppointment reschedules and relinks an appointment. The slot guard
// excludes the appointment itself, so keeping the same slot is never a
// conflict. Pack linkage follows the submitted form value: nil detaches,
// a different pack swaps via release-then-apply, the same pack is kept.
func (coordinator *Coordinator) UpdateAppointment(id uint, input AppointmentInput, actor string) (Models.Appointment, error) {
	if err := input.validate(); err != nil {
		return Models.Appointment{}, err
	}

	var appointment Models.Appointment
	err := coordinator.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		appointment, err = Models.GetAppointment(tx, id)
		if err != nil {
			return err
		}
		if appointment.State == Models.AppointmentCancelled || appointment.State == Models.AppointmentCompleted {
			return fmt.Errorf("%w: appointment %d is %s", Models.ErrValidation, id, appointment.State)
		}

		free, err := Scheduling.IsSlotFree(tx, input.Date, input.StartTime, input.EndTime, appointment.ID)
		if err != nil {
			return err
		}
		if !free {
			return fmt.Errorf("%w: %s %s-%s", Models.ErrSlotConflict, input.Date, input.StartTime, input.EndTime)
		}

		appointment.Date = input.Date
		appointment.StartTime = input.StartTime
		appointment.EndTime = input.EndTime
		appointment.Reason = input.Reason
		appointment.AppendAuditNote(actor, "appointment updated")

		switch {
		case input.CreditPackID == nil:
			if err := releaseCreditTx(tx, &appointment, actor); err != nil {
				return err
			}
		case appointment.CreditPackID == nil || *appointment.CreditPackID != *input.CreditPackID:
			if err := releaseCreditTx(tx, &appointment, actor); err != nil {
				return err
			}
			if err := applyCreditTx(tx, &appointment, *input.CreditPackID, actor); err != nil {
				return err
			}
		}

		return tx.Save(&appointment).Error
	})
	if err != nil {
		return Models.Appointment{}, err
	}
	return appointment, nil
}

// CancelAppointment cancels a pending or confirmed appointment, releasing a
// held credit unit back to its pack first.
func (coordinator *Coordinator) CancelAppointment(id uint, actor string) error {
	return coordinator.DB.Transaction(func(tx *gorm.DB) error {
		appointment, err := Models.GetAppointment(tx, id)
		if err != nil {
			return err
		}
		if !Models.ValidAppointmentTransition(appointment.State, Models.AppointmentCancelled) {
			return fmt.Errorf("%w: cannot cancel a %s appointment", Models.ErrValidation, appointment.State)
		}
		if err := releaseCreditTx(tx, &appointment, actor); err != nil {
			return err
		}
		appointment.AppendAuditNote(actor, "appointment cancelled")
		appointment.State = Models.AppointmentCancelled
		return tx.Save(&appointment).Error
	})
}

// ChangeAppointmentState confirms or completes an appointment. Cancellation
// goes through CancelAppointment so the credit release is never skipped.
func (coordinator *Coordinator) ChangeAppointmentState(id uint, newState, actor string) error {
	if !Models.ValidAppointmentState(newState) {
		return fmt.Errorf("%w: unknown appointment state %q", Models.ErrValidation, newState)
	}
	if newState == Models.AppointmentCancelled {
		return coordinator.CancelAppointment(id, actor)
	}
	return coordinator.DB.Transaction(func(tx *gorm.DB) error {
		appointment, err := Models.GetAppointment(tx, id)
		if err != nil {
			return err
		}
		if !Models.ValidAppointmentTransition(appointment.State, newState) {
			return fmt.Errorf("%w: appointment %d cannot move from %s to %s", Models.ErrValidation, id, appointment.State, newState)
		}
		appointment.AppendAuditNote(actor, fmt.Sprintf("state %s -> %s", appointment.State, newState))
		appointment.State = newState
		return tx.Save(&appointment).Error
	})
}

// ApplyCredit links an appointment to a pack, spending one unit.
func (coordinator *Coordinator) ApplyCredit(appointmentID, packID uint, actor string) error {
	return coordinator.DB.Transaction(func(tx *gorm.DB) error {
		appointment, err := Models.GetAppointment(tx, appointmentID)
		if err != nil {
			return err
		}
		if err := applyCreditTx(tx, &appointment, packID, actor); err != nil {
			return err
		}
		return tx.Save(&appointment).Error
	})
}

// ReleaseCredit returns an appointment's held unit to its pack. Calling it on
// an appointment without a credit is a no-op, not an error.
func (coordinator *Coordinator) ReleaseCredit(appointmentID uint, actor string) error {
	return coordinator.DB.Transaction(func(tx *gorm.DB) error {
		appointment, err := Models.GetAppointment(tx, appointmentID)
		if err != nil {
			return err
		}
		if err := releaseCreditTx(tx, &appointment, actor); err != nil {
			return err
		}
		return tx.Save(&appointment).Error
	})
}

// SwapCredit moves an appointment's credit from its current pack to another
// as one transaction. If applying against the new pack fails, the original
// linkage is preserved untouched.
func (coordinator *Coordinator) SwapCredit(appointmentID, newPackID uint, actor string) error {
	return coordinator.DB.Transaction(func(tx *gorm.DB) error {
		appointment, err := Models.GetAppointment(tx, appointmentID)
		if err != nil {
			return err
		}
		if appointment.CreditPackID != nil && *appointment.CreditPackID == newPackID {
			return nil
		}
		if err := releaseCreditTx(tx, &appointment, actor); err != nil {
			return err
		}
		if err := applyCreditTx(tx, &appointment, newPackID, actor); err != nil {
			return err
		}
		return tx.Save(&appointment).Error
	})
}

// ChangePackState transitions a pack. Cancelling a pack cascades: every
// pending or confirmed appointment still linked to it is cancelled in the
// same transaction, with an audit note naming the pack. The cascade does not
// release the reserved units; the pack is terminal, so its counter is frozen
// as a record of how many sessions were unused at cancellation time.
func (coordinator *Coordinator) ChangePackState(packID uint, newState, reason, actor string) error {
	return coordinator.DB.Transaction(func(tx *gorm.DB) error {
		pack, err := Models.ChangeCreditPackState(tx, packID, newState, reason, actor)
		if err != nil {
			return err
		}
		if newState != Models.PackCancelled {
			return nil
		}

		linked, err := Models.LinkedAppointments(tx, pack.ID, []string{Models.AppointmentPending, Models.AppointmentConfirmed})
		if err != nil {
			return err
		}
		for index := range linked {
			appointment := &linked[index]
			appointment.AppendAuditNote(actor, fmt.Sprintf("cancelled: credit pack %d was cancelled (%s)", pack.ID, reason))
			appointment.State = Models.AppointmentCancelled
			if err := tx.Save(appointment).Error; err != nil {
				return err
			}
		}
		if len(linked) > 0 {
			logrus.WithFields(logrus.Fields{
				"pack_id":      pack.ID,
				"appointments": len(linked),
			}).Info("cancelled appointments linked to cancelled credit pack")
		}
		return nil
	})
}

func applyCreditTx(tx *gorm.DB, appointment *Models.Appointment, packID uint, actor string) error {
	if appointment.UsesCreditPack && appointment.CreditPackID != nil {
		if *appointment.CreditPackID == packID {
			return nil
		}
		return fmt.Errorf("%w: appointment %d already holds a unit from pack %d", Models.ErrValidation, appointment.ID, *appointment.CreditPackID)
	}

	pack, err := Models.GetCreditPackForUpdate(tx, packID)
	if err != nil {
		return err
	}
	if pack.RemainingUnits == 0 {
		return fmt.Errorf("%w: pack %d", Models.ErrCreditExhausted, pack.ID)
	}
	if pack.State != Models.PackActive {
		return fmt.Errorf("%w: pack %d is %s", Models.ErrPackNotActive, pack.ID, pack.State)
	}

	pack.RemainingUnits--
	if pack.RemainingUnits == 0 {
		pack.AppendAuditNote(actor, "last session spent, pack exhausted")
		pack.State = Models.PackExhausted
	}
	pack.AppendAuditNote(actor, fmt.Sprintf("1 session applied to appointment %d (%d left)", appointment.ID, pack.RemainingUnits))
	if err := tx.Save(&pack).Error; err != nil {
		return err
	}

	appointment.CreditPackID = &pack.ID
	appointment.UsesCreditPack = true
	appointment.AppendAuditNote(actor, fmt.Sprintf("1 session consumed from pack %d", pack.ID))
	return tx.Save(appointment).Error
}

func releaseCreditTx(tx *gorm.DB, appointment *Models.Appointment, actor string) error {
	if !appointment.UsesCreditPack || appointment.CreditPackID == nil {
		return nil
	}

	pack, err := Models.GetCreditPackForUpdate(tx, *appointment.CreditPackID)
	if err != nil {
		return err
	}
	if pack.RemainingUnits >= pack.TotalUnits {
		err := fmt.Errorf("%w: releasing appointment %d would push pack %d past %d units", Models.ErrLedgerConsistency, appointment.ID, pack.ID, pack.TotalUnits)
		logrus.WithFields(logrus.Fields{
			"pack_id":        pack.ID,
			"appointment_id": appointment.ID,
		}).Error(err)
		return err
	}

	pack.RemainingUnits++
	if pack.State == Models.PackExhausted {
		pack.State = Models.PackActive
	}
	pack.AppendAuditNote(actor, fmt.Sprintf("1 session released from appointment %d (%d left)", appointment.ID, pack.RemainingUnits))
	if err := tx.Save(&pack).Error; err != nil {
		return err
	}

	appointment.CreditPackID = nil
	appointment.UsesCreditPack = false
	appointment.AppendAuditNote(actor, fmt.Sprintf("session returned to pack %d", pack.ID))
	return tx.Save(appointment).Error
}
