package Models

import (
	"gorm.io/gorm"
)

type Provider struct {
	gorm.Model
	Name      string `json:"name"`
	UserID    uint   `json:"user_id"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
	PhotoUrl  string `json:"photo_url"`
	IsFrozen  bool   `json:"is_frozen" gorm:"-"`
}
