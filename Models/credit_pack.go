package Models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	PackActive    = "active"
	PackExhausted = "exhausted"
	PackExpired   = "expired"
	PackCancelled = "cancelled"
)

const (
	DefaultPackUnits = 4
	DefaultPackPrice = 180.00
)

// CreditPack is a prepaid bundle of appointment sessions (a "bono").
// RemainingUnits stays within [0, TotalUnits]; only the ledger coordinator
// moves it, together with the appointment linkage, inside one transaction.
type CreditPack struct {
	gorm.Model
	PatientID      uint          `json:"patient_id"`
	TotalUnits     uint          `json:"total_units"`
	RemainingUnits uint          `json:"remaining_units"`
	UnitPriceTotal float64       `json:"unit_price_total"`
	PurchaseDate   string        `json:"purchase_date"`
	ExpiryDate     *string       `json:"expiry_date" gorm:"default:null"`
	Notes          string        `json:"notes"`
	State          string        `json:"state"`
	Appointments   []Appointment `json:"appointments" gorm:"foreignKey:CreditPackID"`
}

func ValidPackState(state string) bool {
	switch state {
	case PackActive, PackExhausted, PackExpired, PackCancelled:
		return true
	}
	return false
}

// appendAuditLine adds a timestamped line to a free-text notes field. Notes
// are append-only; nothing ever rewrites earlier lines.
func appendAuditLine(notes, actor, text string) string {
	line := fmt.Sprintf("[%s] %s: %s\n", time.Now().Format("2006-01-02 15:04"), actor, text)
	return notes + line
}

func (pack *CreditPack) AppendAuditNote(actor, text string) {
	pack.Notes = appendAuditLine(pack.Notes, actor, text)
}

func CreateCreditPack(db *gorm.DB, pack *CreditPack) error {
	if pack.PatientID == 0 {
		return fmt.Errorf("%w: credit pack requires a patient", ErrValidation)
	}
	if pack.TotalUnits == 0 {
		pack.TotalUnits = DefaultPackUnits
	}
	if pack.UnitPriceTotal == 0 {
		pack.UnitPriceTotal = DefaultPackPrice
	}
	if pack.PurchaseDate == "" {
		pack.PurchaseDate = time.Now().Format("2006-01-02")
	}
	pack.RemainingUnits = pack.TotalUnits
	pack.State = PackActive
	if err := db.Create(pack).Error; err != nil {
		return err
	}
	return nil
}

func GetCreditPack(db *gorm.DB, id uint) (CreditPack, error) {
	var pack CreditPack
	if err := db.First(&pack, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pack, fmt.Errorf("%w: credit pack %d", ErrNotFound, id)
		}
		return pack, err
	}
	return pack, nil
}

// GetCreditPackForUpdate loads a pack under a row lock so concurrent
// apply/release calls against the same pack serialize on the backing store.
// SQLite has no FOR UPDATE; its single-writer model serializes these anyway.
func GetCreditPackForUpdate(tx *gorm.DB, id uint) (CreditPack, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var pack CreditPack
	if err := query.First(&pack, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pack, fmt.Errorf("%w: credit pack %d", ErrNotFound, id)
		}
		return pack, err
	}
	return pack, nil
}

// ListActiveCreditPacks returns the packs a booking UI may offer for a
// patient: active with sessions left, newest purchase first.
func ListActiveCreditPacks(db *gorm.DB, patientID uint) ([]CreditPack, error) {
	var packs []CreditPack
	if err := db.Model(&CreditPack{}).
		Where("patient_id = ? AND state = ? AND remaining_units > 0", patientID, PackActive).
		Order("purchase_date DESC").
		Find(&packs).Error; err != nil {
		return nil, err
	}
	return packs, nil
}

// ChangeCreditPackState moves a pack to a staff-driven state (expired or
// cancelled) and records the reason. Active and exhausted follow the unit
// counter and are only ever set by the ledger's apply/release moves, so they
// are rejected as targets here. It only touches the pack's own row; the
// cascade to linked appointments belongs to the ledger coordinator.
func ChangeCreditPackState(db *gorm.DB, id uint, newState, reason, actor string) (CreditPack, error) {
	if !ValidPackState(newState) {
		return CreditPack{}, fmt.Errorf("%w: unknown pack state %q", ErrValidation, newState)
	}
	if newState != PackExpired && newState != PackCancelled {
		return CreditPack{}, fmt.Errorf("%w: pack state %q follows from spending or releasing sessions, not staff action", ErrValidation, newState)
	}
	pack, err := GetCreditPackForUpdate(db, id)
	if err != nil {
		return pack, err
	}
	if pack.State == PackCancelled {
		return pack, fmt.Errorf("%w: pack %d is cancelled", ErrPackNotActive, id)
	}
	pack.AppendAuditNote(actor, fmt.Sprintf("state %s -> %s (%s)", pack.State, newState, reason))
	pack.State = newState
	if err := db.Save(&pack).Error; err != nil {
		return pack, err
	}
	return pack, nil
}
