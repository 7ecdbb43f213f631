package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrSpaNotFound     = errors.New("spa not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// InvalidStateError is returned when a persisted status is unknown or corrupt.
// Access resolution fails closed (NoAccess) when this occurs.
type InvalidStateError struct {
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid lifecycle status %q", e.Status)
}

// IllegalTransitionError is returned when an event is not legal from the
// spa's current status.
type IllegalTransitionError struct {
	Event   Event
	Current Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from status %q", e.Event, e.Current)
}

// MissingReasonError is returned when a reject or blacklist carries no reason.
type MissingReasonError struct {
	Op string
}

func (e *MissingReasonError) Error() string {
	return fmt.Sprintf("%s requires a non-empty reason", e.Op)
}

// PaymentWindowClosedError is returned when a payment is attempted before the
// due date. DaysRemaining tells the caller how long the current plan still runs.
type PaymentWindowClosedError struct {
	DaysRemaining int
}

func (e *PaymentWindowClosedError) Error() string {
	return fmt.Sprintf("payment window closed: %d days remaining on the current plan", e.DaysRemaining)
}

// PaymentStateError is returned when a payment operation is not valid for the
// payment's current state (e.g. approving a completed payment, or resubmitting
// a non-annual rejection).
type PaymentStateError struct {
	PaymentID string
	State     PaymentState
	Op        string
}

func (e *PaymentStateError) Error() string {
	return fmt.Sprintf("cannot %s payment %s in state %q", e.Op, e.PaymentID, e.State)
}
