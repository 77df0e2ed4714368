package Controllers

import (
	"ClinicFlow/Models"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func GetProviders(c *gin.Context) {
	var providers []Models.Provider
	if err := Models.DB.Find(&providers).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	for index := range providers {
		var user Models.User
		if err := Models.DB.Where("id = ?", providers[index].UserID).First(&user).Error; err == nil {
			providers[index].IsFrozen = user.IsFrozen
		}
	}
	c.JSON(http.StatusOK, providers)
}

// GetProvidersTrimmed is the public directory shown on the booking page.
func GetProvidersTrimmed(c *gin.Context) {
	type ProviderResponse struct {
		ID        uint   `json:"id"`
		Name      string `json:"name"`
		Specialty string `json:"specialty"`
		PhotoUrl  string `json:"photo_url"`
	}

	var providers []ProviderResponse
	if err := Models.DB.Model(&Models.Provider{}).
		Select("id, name, specialty, photo_url").
		Find(&providers).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, providers)
}

func RegisterProvider(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		logrus.Warn(err)
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	user := Models.User{}
	user.Username = input.Username
	user.Password = input.Password
	user.Permission = 2
	if _, err := user.SaveUser(); err != nil {
		logrus.Warn(err)
		c.String(http.StatusBadRequest, "Failed To Register User")
		return
	}

	var provider Models.Provider
	if err := c.ShouldBindBodyWith(&provider, binding.JSON); err != nil {
		logrus.Warn(err)
		c.JSON(http.StatusBadRequest, err)
		return
	}
	provider.UserID = user.ID
	if provider.Name == "" {
		provider.Name = "Dr. " + input.Username
	}
	if err := Models.DB.Model(&Models.Provider{}).Create(&provider).Error; err != nil {
		logrus.Warn(err)
		c.JSON(http.StatusBadRequest, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Registered Successfully"})
}

func DeleteProvider(c *gin.Context) {
	var input struct {
		ID uint `json:"id"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}

	var provider Models.Provider
	if err := Models.DB.Where("id = ?", input.ID).First(&provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve provider"})
		}
		return
	}

	var user Models.User
	if err := Models.DB.Where("id = ?", provider.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Associated user not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return
	}

	tx := Models.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Delete(&provider).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete provider"})
		return
	}

	if err := tx.Delete(&user).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Provider and associated user deleted successfully"})
}
