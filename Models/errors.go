package Models

import "errors"

// Sentinel errors surfaced by the stores and the ledger coordinator.
// Handlers map these to HTTP statuses; wrap with fmt.Errorf("%w: ...") to add
// context.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("record not found")
	ErrPackNotActive     = errors.New("credit pack is not active")
	ErrCreditExhausted   = errors.New("credit pack has no remaining sessions")
	ErrSlotConflict      = errors.New("time slot conflicts with an existing appointment")
	ErrLedgerConsistency = errors.New("ledger consistency violation")
)
