package CronJobs

import (
	"ClinicFlow/Models"
	"ClinicFlow/Whatsapp"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ClinicWorkers runs the background jobs: appointment reminders and the
// daily credit-pack expiry sweep.
type ClinicWorkers struct {
	DB *gorm.DB
}

func NewClinicWorkers(db *gorm.DB) *ClinicWorkers {
	return &ClinicWorkers{
		DB: db,
	}
}

func (workers *ClinicWorkers) Start() *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.Local)

	scheduler.Every(15).Minutes().Do(func() {
		if err := workers.SendAppointmentReminders(); err != nil {
			logrus.Errorf("Error sending appointment reminders: %v", err)
		}
	})

	scheduler.Every(1).Day().At("00:30").Do(func() {
		if err := workers.ExpireCreditPacks(); err != nil {
			logrus.Errorf("Error expiring credit packs: %v", err)
		}
	})

	scheduler.StartAsync()
	logrus.Info("Clinic background workers started")

	return scheduler
}

// SendAppointmentReminders messages patients with appointments roughly three
// hours out that have not been reminded yet.
func (workers *ClinicWorkers) SendAppointmentReminders() error {
	now := time.Now()
	today := now.Format("2006-01-02")

	var appointments []Models.Appointment
	if err := workers.DB.Model(&Models.Appointment{}).
		Where("date = ? AND state IN ? AND reminder_sent = ?",
			today,
			[]string{Models.AppointmentPending, Models.AppointmentConfirmed},
			false).
		Find(&appointments).Error; err != nil {
		return fmt.Errorf("failed to query upcoming appointments: %w", err)
	}

	for _, appointment := range appointments {
		startAt, err := time.ParseInLocation("2006-01-02 15:04", appointment.Date+" "+appointment.StartTime, time.Local)
		if err != nil {
			logrus.Warnf("Failed to parse appointment time for ID %d: %v", appointment.ID, err)
			continue
		}

		untilStart := time.Until(startAt)
		if untilStart < 2*time.Hour+53*time.Minute || untilStart > 3*time.Hour+7*time.Minute {
			continue
		}

		var patient Models.Patient
		if err := workers.DB.First(&patient, appointment.PatientID).Error; err != nil {
			logrus.Warnf("Failed to find patient for appointment ID %d: %v", appointment.ID, err)
			continue
		}
		if patient.Phone == "" {
			continue
		}

		message := fmt.Sprintf(
			"Reminder: You have an appointment with %s today at %s (in 3 hours). "+
				"Please arrive 10 minutes early. If you need to reschedule, please contact us.",
			appointment.ProviderName,
			appointment.StartTime,
		)

		if err := Whatsapp.SendMessage(patient.Phone, message); err != nil {
			logrus.Warnf("Failed to send reminder to patient %s: %v", patient.Name, err)
			continue
		}

		workers.DB.Model(&Models.Appointment{}).Where("id = ?", appointment.ID).Update("reminder_sent", true)
		logrus.Infof("Reminder sent for appointment %d on %s %s", appointment.ID, appointment.Date, appointment.StartTime)
	}

	return nil
}

// ExpireCreditPacks moves packs past their expiry date to the expired state.
// Expiry is a pack-only transition; linked appointments keep their states.
func (workers *ClinicWorkers) ExpireCreditPacks() error {
	today := time.Now().Format("2006-01-02")

	var packs []Models.CreditPack
	if err := workers.DB.Model(&Models.CreditPack{}).
		Where("expiry_date IS NOT NULL AND expiry_date < ? AND state IN ?",
			today,
			[]string{Models.PackActive, Models.PackExhausted}).
		Find(&packs).Error; err != nil {
		return fmt.Errorf("failed to query expirable packs: %w", err)
	}

	for _, pack := range packs {
		if _, err := Models.ChangeCreditPackState(workers.DB, pack.ID, Models.PackExpired, "past expiry date", "system"); err != nil {
			logrus.Warnf("Failed to expire pack %d: %v", pack.ID, err)
			continue
		}
		logrus.Infof("Credit pack %d expired (%d units unused)", pack.ID, pack.RemainingUnits)
	}

	return nil
}
