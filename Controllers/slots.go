package Controllers

import (
	"ClinicFlow/Models"
	"ClinicFlow/Scheduling"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAvailableSlots lists the bookable (start, duration) pairs for a date.
// Advisory for the booking UI; the booking transaction re-checks conflicts.
func GetAvailableSlots(c *gin.Context) {
	var input struct {
		Date     string `json:"date" binding:"required"`
		Duration int    `json:"duration"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	service := Scheduling.NewService(Models.DB)
	slots, err := service.AvailableSlots(input.Date)
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	if input.Duration != 0 {
		filtered := slots[:0]
		for _, slot := range slots {
			if slot.Duration == input.Duration {
				filtered = append(filtered, slot)
			}
		}
		slots = filtered
	}
	c.JSON(http.StatusOK, slots)
}

func IsSlotFree(c *gin.Context) {
	var input struct {
		Date                 string `json:"date" binding:"required"`
		StartTime            string `json:"start_time" binding:"required"`
		EndTime              string `json:"end_time" binding:"required"`
		ExcludeAppointmentID uint   `json:"exclude_appointment_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	service := Scheduling.NewService(Models.DB)
	free, err := service.IsSlotFree(input.Date, input.StartTime, input.EndTime, input.ExcludeAppointmentID)
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"free": free})
}
