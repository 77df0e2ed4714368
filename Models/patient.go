package Models

import (
	"gorm.io/gorm"
)

type Patient struct {
	gorm.Model
	Name        string        `json:"name"`
	Phone       string        `json:"phone"`
	Email       string        `json:"email"`
	Gender      string        `json:"gender"`
	BirthDate   string        `json:"birth_date"`
	Notes       string        `json:"notes"`
	History     []Appointment `json:"history"`
	CreditPacks []CreditPack  `json:"credit_packs"`
}
