package Scheduling

import (
	"testing"

	"ClinicFlow/Models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Models.ConnectTestDataBase()
	require.NoError(t, err)
	return db
}

func seedAppointment(t *testing.T, db *gorm.DB, date, start, end, state string) Models.Appointment {
	t.Helper()
	appointment := Models.Appointment{
		PatientID: 1,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		State:     state,
	}
	require.NoError(t, db.Create(&appointment).Error)
	return appointment
}

func slotsForDuration(slots []Slot, duration int) map[string]bool {
	starts := make(map[string]bool)
	for _, slot := range slots {
		if slot.Duration == duration {
			starts[slot.Start] = true
		}
	}
	return starts
}

func TestAvailableSlotsAroundExistingAppointment(t *testing.T) {
	db := setupDB(t)
	seedAppointment(t, db, "2025-03-10", "10:00", "10:30", Models.AppointmentConfirmed)

	slots, err := AvailableSlots(db, "2025-03-10")
	require.NoError(t, err)

	starts := slotsForDuration(slots, 30)

	// 30-minute slots overlapping 10:00-10:30 must be gone
	require.False(t, starts["09:45"])
	require.False(t, starts["10:00"])
	require.False(t, starts["10:15"])

	// Slots abutting the appointment stay available
	require.True(t, starts["09:30"])
	require.True(t, starts["10:30"])
}

func TestAvailableSlotsIgnoreCancelledAppointments(t *testing.T) {
	db := setupDB(t)
	seedAppointment(t, db, "2025-03-10", "10:00", "10:30", Models.AppointmentCancelled)

	slots, err := AvailableSlots(db, "2025-03-10")
	require.NoError(t, err)

	starts := slotsForDuration(slots, 30)
	require.True(t, starts["10:00"])
	require.True(t, starts["10:15"])
}

func TestAvailableSlotsStayInsideWorkingWindow(t *testing.T) {
	db := setupDB(t)

	slots, err := AvailableSlots(db, "2025-03-10")
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	require.Equal(t, "08:00", slots[0].Start)
	for _, slot := range slots {
		require.LessOrEqual(t, slot.Start, "19:45")
		require.LessOrEqual(t, slot.End, "20:00")
	}

	// A 60-minute slot may not start after 19:00
	hourStarts := slotsForDuration(slots, 60)
	require.True(t, hourStarts["19:00"])
	require.False(t, hourStarts["19:15"])
}

func TestAvailableSlotsAreAscending(t *testing.T) {
	db := setupDB(t)
	seedAppointment(t, db, "2025-03-10", "09:00", "10:00", Models.AppointmentPending)

	slots, err := AvailableSlots(db, "2025-03-10")
	require.NoError(t, err)

	for i := 1; i < len(slots); i++ {
		require.GreaterOrEqual(t, slots[i].Start, slots[i-1].Start)
	}
}

func TestIsSlotFreeOverlapAndBoundary(t *testing.T) {
	db := setupDB(t)
	seedAppointment(t, db, "2025-03-10", "10:00", "10:30", Models.AppointmentConfirmed)

	cases := []struct {
		start string
		end   string
		free  bool
	}{
		{"09:45", "10:15", false},
		{"10:00", "10:30", false},
		{"10:15", "10:45", false},
		{"09:30", "10:00", true}, // shared boundary, no overlap
		{"10:30", "11:00", true}, // shared boundary, no overlap
		{"09:00", "11:00", false},
	}
	for _, tc := range cases {
		free, err := IsSlotFree(db, "2025-03-10", tc.start, tc.end, 0)
		require.NoError(t, err)
		require.Equal(t, tc.free, free, "slot %s-%s", tc.start, tc.end)
	}
}

func TestIsSlotFreeExcludesGivenAppointment(t *testing.T) {
	db := setupDB(t)
	appointment := seedAppointment(t, db, "2025-03-10", "10:00", "10:30", Models.AppointmentConfirmed)

	free, err := IsSlotFree(db, "2025-03-10", "10:00", "10:30", appointment.ID)
	require.NoError(t, err)
	require.True(t, free)

	free, err = IsSlotFree(db, "2025-03-10", "10:00", "10:30", 0)
	require.NoError(t, err)
	require.False(t, free)
}

func TestIsSlotFreeOtherDatesUnaffected(t *testing.T) {
	db := setupDB(t)
	seedAppointment(t, db, "2025-03-10", "10:00", "10:30", Models.AppointmentConfirmed)

	free, err := IsSlotFree(db, "2025-03-11", "10:00", "10:30", 0)
	require.NoError(t, err)
	require.True(t, free)
}

func TestIsSlotFreeRejectsBadInput(t *testing.T) {
	db := setupDB(t)

	_, err := IsSlotFree(db, "2025-03-10", "nonsense", "10:30", 0)
	require.ErrorIs(t, err, Models.ErrValidation)

	_, err = IsSlotFree(db, "2025-03-10", "11:00", "10:30", 0)
	require.ErrorIs(t, err, Models.ErrValidation)
}

func TestOverlaps(t *testing.T) {
	require.True(t, Overlaps(600, 630, 615, 645))
	require.True(t, Overlaps(615, 645, 600, 630))
	require.True(t, Overlaps(600, 660, 615, 630))
	require.False(t, Overlaps(600, 630, 630, 660))
	require.False(t, Overlaps(630, 660, 600, 630))
	require.False(t, Overlaps(600, 630, 700, 730))
}
