package Controllers

import (
	"ClinicFlow/Ledger"
	"ClinicFlow/Models"
	"ClinicFlow/SSE"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func PurchaseCreditPack(c *gin.Context) {
	var input Models.CreditPack
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input.AppendAuditNote(actingUser(c), "pack purchased")
	if err := Models.CreateCreditPack(Models.DB, &input); err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pack Created Successfully", "credit_pack": input})

	SSE.Broadcaster.Broadcast("refresh")
	notifyStaff("A Pack Has Been Purchased", fmt.Sprintf("Patient %d purchased a %d-session pack for %.2f",
		input.PatientID, input.TotalUnits, input.UnitPriceTotal))
}

func FetchCreditPack(c *gin.Context) {
	var input struct {
		ID uint `json:"id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pack, err := Models.GetCreditPack(Models.DB, input.ID)
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, pack)
}

// FetchActiveCreditPacks returns the packs a booking form may offer for a
// patient: active, with sessions remaining.
func FetchActiveCreditPacks(c *gin.Context) {
	var input struct {
		PatientID uint `json:"patient_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	packs, err := Models.ListActiveCreditPacks(Models.DB, input.PatientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, packs)
}

func FetchPatientCreditPacks(c *gin.Context) {
	var input struct {
		PatientID uint `json:"patient_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var packs []Models.CreditPack
	if err := Models.DB.Model(&Models.CreditPack{}).
		Where("patient_id = ?", input.PatientID).
		Order("purchase_date DESC").
		Find(&packs).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, packs)
}

// ChangeCreditPackState transitions a pack. Cancelling cascades to the
// pack's pending and confirmed appointments through the ledger coordinator.
func ChangeCreditPackState(c *gin.Context) {
	var input struct {
		PackID uint   `json:"pack_id"`
		State  string `json:"state"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coordinator := Ledger.NewCoordinator(Models.DB)
	if err := coordinator.ChangePackState(input.PackID, input.State, input.Reason, actingUser(c)); err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pack state changed successfully"})

	SSE.Broadcaster.Broadcast("refresh")
	if input.State == Models.PackCancelled {
		notifyStaff("A Pack Has Been Cancelled", fmt.Sprintf("Pack %d was cancelled: %s", input.PackID, input.Reason))
	}
}

func FetchPackAppointments(c *gin.Context) {
	var input struct {
		PackID uint `json:"pack_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var appointments []Models.Appointment
	if err := Models.DB.Model(&Models.Appointment{}).
		Where("credit_pack_id = ?", input.PackID).
		Order("date, start_time").
		Find(&appointments).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, appointments)
}
