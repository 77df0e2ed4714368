package Controllers

import (
	"ClinicFlow/FirebaseMessaging"
	"ClinicFlow/Ledger"
	"ClinicFlow/Models"
	"ClinicFlow/SSE"
	"ClinicFlow/Whatsapp"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func CreateAppointment(c *gin.Context) {
	var input Ledger.AppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coordinator := Ledger.NewCoordinator(Models.DB)
	appointment, err := coordinator.CreateAppointment(input, actingUser(c))
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appointment booked successfully", "appointment": appointment})

	SSE.Broadcaster.Broadcast("refresh")
	notifyStaff("New Appointment", fmt.Sprintf("%s booked %s %s-%s with %s",
		appointment.PatientName, appointment.Date, appointment.StartTime, appointment.EndTime, appointment.ProviderName))

	var patient Models.Patient
	if err := Models.DB.First(&patient, appointment.PatientID).Error; err == nil && patient.Phone != "" {
		Whatsapp.SendMessage(patient.Phone, fmt.Sprintf("Your appointment on %s at %s with %s has been registered",
			appointment.Date, appointment.StartTime, appointment.ProviderName))
	}
}

func UpdateAppointment(c *gin.Context) {
	var input struct {
		ID uint `json:"id"`
		Ledger.AppointmentInput
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coordinator := Ledger.NewCoordinator(Models.DB)
	appointment, err := coordinator.UpdateAppointment(input.ID, input.AppointmentInput, actingUser(c))
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appointment updated successfully", "appointment": appointment})
	SSE.Broadcaster.Broadcast("refresh")
}

func CancelAppointment(c *gin.Context) {
	var input struct {
		ID uint `json:"id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appointment, err := Models.GetAppointment(Models.DB, input.ID)
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	coordinator := Ledger.NewCoordinator(Models.DB)
	if err := coordinator.CancelAppointment(input.ID, actingUser(c)); err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appointment cancelled successfully"})

	SSE.Broadcaster.Broadcast("refresh")
	var patient Models.Patient
	if err := Models.DB.First(&patient, appointment.PatientID).Error; err == nil && patient.Phone != "" {
		Whatsapp.SendMessage(patient.Phone, "We're sorry. Your appointment has been cancelled, please contact the clinic to reschedule")
	}
	notifyStaff("Appointment Cancelled", fmt.Sprintf("Appointment with %s on %s at %s has been cancelled",
		appointment.PatientName, appointment.Date, appointment.StartTime))
}

func ChangeAppointmentState(c *gin.Context) {
	var input struct {
		ID    uint   `json:"id"`
		State string `json:"state"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coordinator := Ledger.NewCoordinator(Models.DB)
	if err := coordinator.ChangeAppointmentState(input.ID, input.State, actingUser(c)); err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	SSE.Broadcaster.Broadcast("refresh")
	c.JSON(http.StatusOK, gin.H{"message": "Marked Successfully"})
}

func SwapAppointmentCredit(c *gin.Context) {
	var input struct {
		AppointmentID uint `json:"appointment_id"`
		CreditPackID  uint `json:"credit_pack_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coordinator := Ledger.NewCoordinator(Models.DB)
	if err := coordinator.SwapCredit(input.AppointmentID, input.CreditPackID, actingUser(c)); err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	SSE.Broadcaster.Broadcast("refresh")
	c.JSON(http.StatusOK, gin.H{"message": "Credit pack swapped successfully"})
}

func ReleaseAppointmentCredit(c *gin.Context) {
	var input struct {
		AppointmentID uint `json:"appointment_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coordinator := Ledger.NewCoordinator(Models.DB)
	if err := coordinator.ReleaseCredit(input.AppointmentID, actingUser(c)); err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	SSE.Broadcaster.Broadcast("refresh")
	c.JSON(http.StatusOK, gin.H{"message": "Credit released successfully"})
}

func FetchAppointmentsByDate(c *gin.Context) {
	var input struct {
		Date string `json:"date"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var appointments []Models.Appointment
	if err := Models.DB.Model(&Models.Appointment{}).
		Where("date = ?", input.Date).
		Order("start_time").
		Find(&appointments).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func FetchAppointmentsByPatientID(c *gin.Context) {
	var input struct {
		ID uint `json:"id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var appointments []Models.Appointment
	if err := Models.DB.Model(&Models.Appointment{}).
		Where("patient_id = ?", input.ID).
		Order("date, start_time").
		Find(&appointments).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, appointments)
}

func notifyStaff(title, body string) {
	fcms, err := Models.GetStaffFCMs()
	if err != nil {
		logrus.Warnf("failed to load staff device tokens: %v", err)
		return
	}
	if len(fcms) > 0 {
		FirebaseMessaging.SendMessage(Models.NotificationRequest{Tokens: fcms, Title: title, Body: body})
	}
}
