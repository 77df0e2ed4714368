package Ledger

import (
	"errors"
	"sync"
	"testing"

	"ClinicFlow/Models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *gorm.DB) {
	t.Helper()
	db, err := Models.ConnectTestDataBase()
	require.NoError(t, err)
	return NewCoordinator(db), db
}

func seedPatientProvider(t *testing.T, db *gorm.DB) (Models.Patient, Models.Provider) {
	t.Helper()
	patient := Models.Patient{Name: "Ana Garcia", Phone: "+34600111222"}
	require.NoError(t, db.Create(&patient).Error)
	provider := Models.Provider{Name: "Dr. Ruiz", Specialty: "Physiotherapy"}
	require.NoError(t, db.Create(&provider).Error)
	return patient, provider
}

func seedPack(t *testing.T, db *gorm.DB, patientID, totalUnits uint) Models.CreditPack {
	t.Helper()
	pack := Models.CreditPack{PatientID: patientID, TotalUnits: totalUnits}
	require.NoError(t, Models.CreateCreditPack(db, &pack))
	return pack
}

func setRemaining(t *testing.T, db *gorm.DB, packID, remaining uint) {
	t.Helper()
	require.NoError(t, db.Model(&Models.CreditPack{}).Where("id = ?", packID).
		Update("remaining_units", remaining).Error)
}

func bookingInput(patient Models.Patient, provider Models.Provider, start, end string, packID *uint) AppointmentInput {
	return AppointmentInput{
		PatientID:    patient.ID,
		ProviderID:   provider.ID,
		Date:         "2025-03-10",
		StartTime:    start,
		EndTime:      end,
		Reason:       "session",
		CreditPackID: packID,
	}
}

// assertConservation checks the ledger invariant: units spent on live
// appointments plus units remaining always equals the pack's total.
func assertConservation(t *testing.T, db *gorm.DB, packID uint) {
	t.Helper()
	pack, err := Models.GetCreditPack(db, packID)
	require.NoError(t, err)
	linked, err := Models.LinkedAppointments(db, packID, []string{
		Models.AppointmentPending, Models.AppointmentConfirmed, Models.AppointmentCompleted,
	})
	require.NoError(t, err)
	require.Equal(t, pack.TotalUnits, pack.RemainingUnits+uint(len(linked)),
		"pack %d: %d remaining + %d linked != %d total", packID, pack.RemainingUnits, len(linked), pack.TotalUnits)
}

func TestCreateAppointmentConsumesOneUnit(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)
	require.Equal(t, Models.AppointmentPending, appointment.State)
	require.True(t, appointment.UsesCreditPack)
	require.NotNil(t, appointment.CreditPackID)
	require.Equal(t, pack.ID, *appointment.CreditPackID)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(3), reloaded.RemainingUnits)
	require.Equal(t, Models.PackActive, reloaded.State)
	assertConservation(t, db, pack.ID)
}

func TestCreateAppointmentWithoutPack(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", nil), "reception")
	require.NoError(t, err)
	require.False(t, appointment.UsesCreditPack)
	require.Nil(t, appointment.CreditPackID)
}

func TestCreateAppointmentRollsBackWhenCreditFails(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)
	setRemaining(t, db, pack.ID, 0)

	_, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.ErrorIs(t, err, Models.ErrCreditExhausted)

	// The booking must not exist either
	var count int64
	require.NoError(t, db.Model(&Models.Appointment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateAppointmentRejectsConflictingSlot(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)

	_, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", nil), "reception")
	require.NoError(t, err)

	_, err = coordinator.CreateAppointment(bookingInput(patient, provider, "10:15", "10:45", nil), "reception")
	require.ErrorIs(t, err, Models.ErrSlotConflict)

	// Abutting slot is fine
	_, err = coordinator.CreateAppointment(bookingInput(patient, provider, "10:30", "11:00", nil), "reception")
	require.NoError(t, err)
}

func TestCreateAppointmentValidation(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)

	input := bookingInput(patient, provider, "10:00", "10:30", nil)
	input.PatientID = 0
	_, err := coordinator.CreateAppointment(input, "reception")
	require.ErrorIs(t, err, Models.ErrValidation)

	input = bookingInput(patient, provider, "", "", nil)
	input.Date = ""
	_, err = coordinator.CreateAppointment(input, "reception")
	require.ErrorIs(t, err, Models.ErrValidation)

	input = bookingInput(patient, provider, "10:00", "10:30", nil)
	input.PatientID = 999
	_, err = coordinator.CreateAppointment(input, "reception")
	require.ErrorIs(t, err, Models.ErrNotFound)
}

func TestLastUnitExhaustsPack(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)
	setRemaining(t, db, pack.ID, 1)

	first, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Zero(t, reloaded.RemainingUnits)
	require.Equal(t, Models.PackExhausted, reloaded.State)

	// The last unit can only be spent once
	_, err = coordinator.CreateAppointment(bookingInput(patient, provider, "11:00", "11:30", &pack.ID), "reception")
	require.ErrorIs(t, err, Models.ErrCreditExhausted)

	linked, err := Models.LinkedAppointments(db, pack.ID, []string{Models.AppointmentPending})
	require.NoError(t, err)
	require.Len(t, linked, 1)
	require.Equal(t, first.ID, linked[0].ID)
}

// Two callers racing for the last unit: the pack row lock (or the store's
// write serialization) must let exactly one through.
func TestConcurrentApplyLastUnitSingleWinner(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)
	setRemaining(t, db, pack.ID, 1)

	first, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", nil), "reception")
	require.NoError(t, err)
	second, err := coordinator.CreateAppointment(bookingInput(patient, provider, "11:00", "11:30", nil), "reception")
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []uint{first.ID, second.ID} {
		wg.Add(1)
		go func(appointmentID uint) {
			defer wg.Done()
			results <- coordinator.ApplyCredit(appointmentID, pack.ID, "reception")
		}(id)
	}
	wg.Wait()
	close(results)

	var succeeded, exhausted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, Models.ErrCreditExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, exhausted)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Zero(t, reloaded.RemainingUnits)
	require.Equal(t, Models.PackExhausted, reloaded.State)

	linked, err := Models.LinkedAppointments(db, pack.ID, []string{Models.AppointmentPending})
	require.NoError(t, err)
	require.Len(t, linked, 1)
}

func TestApplyCreditRejectsInactivePack(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)
	_, err := Models.ChangeCreditPackState(db, pack.ID, Models.PackExpired, "past expiry date", "system")
	require.NoError(t, err)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", nil), "reception")
	require.NoError(t, err)

	err = coordinator.ApplyCredit(appointment.ID, pack.ID, "reception")
	require.ErrorIs(t, err, Models.ErrPackNotActive)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(4), reloaded.RemainingUnits)
}

func TestApplyCreditSamePackIsNoop(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)

	require.NoError(t, coordinator.ApplyCredit(appointment.ID, pack.ID, "reception"))

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(3), reloaded.RemainingUnits)
	assertConservation(t, db, pack.ID)
}

func TestApplyCreditRejectsSecondPack(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	packOne := seedPack(t, db, patient.ID, 4)
	packTwo := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &packOne.ID), "reception")
	require.NoError(t, err)

	err = coordinator.ApplyCredit(appointment.ID, packTwo.ID, "reception")
	require.ErrorIs(t, err, Models.ErrValidation)

	reloadedTwo, err := Models.GetCreditPack(db, packTwo.ID)
	require.NoError(t, err)
	require.Equal(t, uint(4), reloadedTwo.RemainingUnits)
}

func TestReleaseCreditReturnsUnit(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)

	require.NoError(t, coordinator.ReleaseCredit(appointment.ID, "reception"))

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(4), reloaded.RemainingUnits)

	updated, err := Models.GetAppointment(db, appointment.ID)
	require.NoError(t, err)
	require.False(t, updated.UsesCreditPack)
	require.Nil(t, updated.CreditPackID)
	assertConservation(t, db, pack.ID)

	// A second release finds no credit and changes nothing
	require.NoError(t, coordinator.ReleaseCredit(appointment.ID, "reception"))
	reloaded, err = Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(4), reloaded.RemainingUnits)
}

func TestReleaseCreditReactivatesExhaustedPack(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 1)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, Models.PackExhausted, reloaded.State)

	require.NoError(t, coordinator.ReleaseCredit(appointment.ID, "reception"))

	reloaded, err = Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, Models.PackActive, reloaded.State)
	require.Equal(t, uint(1), reloaded.RemainingUnits)
}

func TestReleaseBeyondTotalIsConsistencyError(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)

	// Corrupt the counter the way a buggy direct write would
	setRemaining(t, db, pack.ID, 4)

	err = coordinator.ReleaseCredit(appointment.ID, "reception")
	require.ErrorIs(t, err, Models.ErrLedgerConsistency)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(4), reloaded.RemainingUnits)

	updated, err := Models.GetAppointment(db, appointment.ID)
	require.NoError(t, err)
	require.True(t, updated.UsesCreditPack)
}

func TestSwapCreditMovesUnitBetweenPacks(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	packOne := seedPack(t, db, patient.ID, 4)
	packTwo := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &packOne.ID), "reception")
	require.NoError(t, err)

	setRemaining(t, db, packOne.ID, 1)
	setRemaining(t, db, packTwo.ID, 3)

	require.NoError(t, coordinator.SwapCredit(appointment.ID, packTwo.ID, "reception"))

	reloadedOne, err := Models.GetCreditPack(db, packOne.ID)
	require.NoError(t, err)
	require.Equal(t, uint(2), reloadedOne.RemainingUnits)

	reloadedTwo, err := Models.GetCreditPack(db, packTwo.ID)
	require.NoError(t, err)
	require.Equal(t, uint(2), reloadedTwo.RemainingUnits)

	updated, err := Models.GetAppointment(db, appointment.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.CreditPackID)
	require.Equal(t, packTwo.ID, *updated.CreditPackID)
}

func TestSwapCreditRollsBackWhenTargetExhausted(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	packOne := seedPack(t, db, patient.ID, 4)
	packTwo := seedPack(t, db, patient.ID, 4)
	setRemaining(t, db, packTwo.ID, 0)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &packOne.ID), "reception")
	require.NoError(t, err)

	err = coordinator.SwapCredit(appointment.ID, packTwo.ID, "reception")
	require.ErrorIs(t, err, Models.ErrCreditExhausted)

	// The original linkage survives the failed swap
	reloadedOne, err := Models.GetCreditPack(db, packOne.ID)
	require.NoError(t, err)
	require.Equal(t, uint(3), reloadedOne.RemainingUnits)

	updated, err := Models.GetAppointment(db, appointment.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.CreditPackID)
	require.Equal(t, packOne.ID, *updated.CreditPackID)
	assertConservation(t, db, packOne.ID)
}

func TestSwapCreditToSamePackIsNoop(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)

	require.NoError(t, coordinator.SwapCredit(appointment.ID, pack.ID, "reception"))

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(3), reloaded.RemainingUnits)
}

func TestCancelAppointmentReleasesCredit(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)

	require.NoError(t, coordinator.CancelAppointment(appointment.ID, "reception"))

	updated, err := Models.GetAppointment(db, appointment.ID)
	require.NoError(t, err)
	require.Equal(t, Models.AppointmentCancelled, updated.State)
	require.False(t, updated.UsesCreditPack)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(4), reloaded.RemainingUnits)
	assertConservation(t, db, pack.ID)
}

func TestCancelAppointmentFreesItsSlot(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", nil), "reception")
	require.NoError(t, err)
	require.NoError(t, coordinator.CancelAppointment(appointment.ID, "reception"))

	_, err = coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", nil), "reception")
	require.NoError(t, err)
}

func TestChangeAppointmentStateTransitions(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", nil), "reception")
	require.NoError(t, err)

	require.NoError(t, coordinator.ChangeAppointmentState(appointment.ID, Models.AppointmentConfirmed, "reception"))
	require.NoError(t, coordinator.ChangeAppointmentState(appointment.ID, Models.AppointmentCompleted, "reception"))

	// Completed is terminal
	err = coordinator.ChangeAppointmentState(appointment.ID, Models.AppointmentCancelled, "reception")
	require.ErrorIs(t, err, Models.ErrValidation)

	err = coordinator.ChangeAppointmentState(appointment.ID, "unknown", "reception")
	require.ErrorIs(t, err, Models.ErrValidation)
}

func TestCompletedAppointmentKeepsItsUnit(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)
	require.NoError(t, coordinator.ChangeAppointmentState(appointment.ID, Models.AppointmentCompleted, "reception"))

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(3), reloaded.RemainingUnits)
	assertConservation(t, db, pack.ID)
}

func TestUpdateAppointmentDetachesCredit(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)

	updated, err := coordinator.UpdateAppointment(appointment.ID, bookingInput(patient, provider, "11:00", "11:30", nil), "reception")
	require.NoError(t, err)
	require.False(t, updated.UsesCreditPack)
	require.Nil(t, updated.CreditPackID)
	require.Equal(t, "11:00", updated.StartTime)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(4), reloaded.RemainingUnits)
}

func TestUpdateAppointmentSwapsPack(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	packOne := seedPack(t, db, patient.ID, 4)
	packTwo := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &packOne.ID), "reception")
	require.NoError(t, err)

	updated, err := coordinator.UpdateAppointment(appointment.ID, bookingInput(patient, provider, "10:00", "10:30", &packTwo.ID), "reception")
	require.NoError(t, err)
	require.NotNil(t, updated.CreditPackID)
	require.Equal(t, packTwo.ID, *updated.CreditPackID)

	reloadedOne, err := Models.GetCreditPack(db, packOne.ID)
	require.NoError(t, err)
	require.Equal(t, uint(4), reloadedOne.RemainingUnits)
	reloadedTwo, err := Models.GetCreditPack(db, packTwo.ID)
	require.NoError(t, err)
	require.Equal(t, uint(3), reloadedTwo.RemainingUnits)
}

func TestUpdateAppointmentKeepsOwnSlot(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)

	// Same slot, same pack: nothing to conflict with, no double spend
	updated, err := coordinator.UpdateAppointment(appointment.ID, bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)
	require.Equal(t, pack.ID, *updated.CreditPackID)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(3), reloaded.RemainingUnits)
}

func TestUpdateAppointmentRejectsTerminalStates(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", nil), "reception")
	require.NoError(t, err)
	require.NoError(t, coordinator.CancelAppointment(appointment.ID, "reception"))

	_, err = coordinator.UpdateAppointment(appointment.ID, bookingInput(patient, provider, "11:00", "11:30", nil), "reception")
	require.ErrorIs(t, err, Models.ErrValidation)
}

func TestCancelPackCascadesToLinkedAppointments(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	first, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)
	second, err := coordinator.CreateAppointment(bookingInput(patient, provider, "11:00", "11:30", &pack.ID), "reception")
	require.NoError(t, err)
	require.NoError(t, coordinator.ChangeAppointmentState(second.ID, Models.AppointmentConfirmed, "reception"))

	// An unrelated appointment must survive the cascade
	other, err := coordinator.CreateAppointment(bookingInput(patient, provider, "12:00", "12:30", nil), "reception")
	require.NoError(t, err)

	require.NoError(t, coordinator.ChangePackState(pack.ID, Models.PackCancelled, "patient moved away", "admin"))

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, Models.PackCancelled, reloaded.State)
	// Cancellation freezes the counter; the cascade does not refund units
	require.Equal(t, uint(2), reloaded.RemainingUnits)

	for _, id := range []uint{first.ID, second.ID} {
		appointment, err := Models.GetAppointment(db, id)
		require.NoError(t, err)
		require.Equal(t, Models.AppointmentCancelled, appointment.State)
		require.Contains(t, appointment.Notes, "credit pack")
	}

	untouched, err := Models.GetAppointment(db, other.ID)
	require.NoError(t, err)
	require.Equal(t, Models.AppointmentPending, untouched.State)
}

func TestCancelPackLeavesCompletedAppointmentsAlone(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	appointment, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)
	require.NoError(t, coordinator.ChangeAppointmentState(appointment.ID, Models.AppointmentCompleted, "reception"))

	require.NoError(t, coordinator.ChangePackState(pack.ID, Models.PackCancelled, "refund", "admin"))

	updated, err := Models.GetAppointment(db, appointment.ID)
	require.NoError(t, err)
	require.Equal(t, Models.AppointmentCompleted, updated.State)
}

func TestChangePackStateRejectsBadTransitions(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, _ := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 4)

	err := coordinator.ChangePackState(pack.ID, "frozen", "typo", "admin")
	require.ErrorIs(t, err, Models.ErrValidation)

	// Counter-driven states are not staff transitions
	err = coordinator.ChangePackState(pack.ID, Models.PackExhausted, "manual drain", "admin")
	require.ErrorIs(t, err, Models.ErrValidation)

	require.NoError(t, coordinator.ChangePackState(pack.ID, Models.PackCancelled, "refund", "admin"))

	// Cancelled is terminal
	err = coordinator.ChangePackState(pack.ID, Models.PackExpired, "oops", "admin")
	require.ErrorIs(t, err, Models.ErrPackNotActive)
}

func TestConservationThroughMixedSequence(t *testing.T) {
	coordinator, db := newTestCoordinator(t)
	patient, provider := seedPatientProvider(t, db)
	pack := seedPack(t, db, patient.ID, 3)

	first, err := coordinator.CreateAppointment(bookingInput(patient, provider, "09:00", "09:30", &pack.ID), "reception")
	require.NoError(t, err)
	assertConservation(t, db, pack.ID)

	second, err := coordinator.CreateAppointment(bookingInput(patient, provider, "10:00", "10:30", &pack.ID), "reception")
	require.NoError(t, err)
	assertConservation(t, db, pack.ID)

	require.NoError(t, coordinator.CancelAppointment(first.ID, "reception"))
	assertConservation(t, db, pack.ID)

	third, err := coordinator.CreateAppointment(bookingInput(patient, provider, "11:00", "11:30", &pack.ID), "reception")
	require.NoError(t, err)
	assertConservation(t, db, pack.ID)

	require.NoError(t, coordinator.ChangeAppointmentState(second.ID, Models.AppointmentCompleted, "reception"))
	assertConservation(t, db, pack.ID)

	require.NoError(t, coordinator.ReleaseCredit(third.ID, "reception"))
	assertConservation(t, db, pack.ID)

	reloaded, err := Models.GetCreditPack(db, pack.ID)
	require.NoError(t, err)
	require.Equal(t, uint(2), reloaded.RemainingUnits)
}
