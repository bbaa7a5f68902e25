package domain

import (
	"errors"

	"github.com/viralforge/sala-escrow/pkg/feesplit"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrConflict              = errors.New("conflict")
	ErrIdempotencyRequired   = errors.New("idempotency key required")
	ErrIdempotencyConflict   = errors.New("idempotency conflict")
	ErrUnsupportedEventType  = errors.New("unsupported event type")
	ErrUnsupportedEventClass = errors.New("unsupported event class")
	ErrLockTimeout           = errors.New("agreement lock timeout")

	ErrInvalidAmount        = feesplit.ErrInvalidAmount
	ErrInvalidCommission    = feesplit.ErrInvalidCommission
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAlreadyLocked        = errors.New("funds already locked")
	ErrAlreadyReleased      = errors.New("funds already released")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrInvalidState         = errors.New("invalid state")
	ErrDisputeAlreadyExists = errors.New("dispute already exists")
)
