package Controllers

import (
	"errors"
	"net/http"

	"ClinicFlow/Models"
	"ClinicFlow/Utils/Token"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// actingUser resolves the staff identity behind the request, used only for
// audit-note text. Unauthenticated callers (the public booking page) show up
// as "system".
func actingUser(c *gin.Context) string {
	user_id, err := Token.ExtractTokenID(c)
	if err != nil || user_id == 0 {
		return "system"
	}
	user, err := Models.GetUserByID(user_id)
	if err != nil {
		return "system"
	}
	return user.Username
}

// ledgerErrorResponse maps the ledger error taxonomy onto HTTP responses.
// Business-rule violations render as friendly messages; consistency errors
// are unexpected and get logged for operator attention.
func ledgerErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, Models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, Models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, Models.ErrCreditExhausted), errors.Is(err, Models.ErrPackNotActive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot use this credit pack", "detail": err.Error()})
	case errors.Is(err, Models.ErrSlotConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Time slot already booked", "detail": err.Error()})
	case errors.Is(err, Models.ErrLedgerConsistency):
		logrus.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal ledger error"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
