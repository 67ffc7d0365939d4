/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these with additional context via fmt.Errorf("%w").

ERROR CATEGORIES:
  1. Validation errors     - malformed input; no side effects, no audit row
  2. Business rejections   - wrong state, insufficient capacity/balance/items,
                             price mismatch; transaction rolled back. For sale
                             events these become a terminal rejected SaleEvent
                             instead of an error.
  3. Idempotent no-ops     - duplicate client_event_id, re-run sweeps; the
                             previous result is returned, not an error
  4. Infrastructure errors - storage failures, tx conflicts; safe to retry

  The offline point-of-sale client keys off this split: business rejections
  are dropped from its queue, infrastructure errors stay queued for retry.

USAGE:
    if errors.Is(err, engine.ErrCapacityExceeded) { ... }

    var short *engine.InsufficientBalanceError
    if errors.As(err, &short) { ... short.Available ... }
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed or missing input. No side
	// effects and no audit row are produced.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when an entity is in the wrong state
	// for the requested operation.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrCapacityExceeded is returned when item creation would push a batch
	// past its declared quantity.
	ErrCapacityExceeded = errors.New("batch capacity exceeded")

	// ErrDuplicateBarcode is returned when a barcode already exists anywhere
	// in the system. Barcodes are globally unique, not per-batch.
	ErrDuplicateBarcode = errors.New("duplicate barcode")

	// ErrInsufficientBalance is returned when a payout exceeds the wallet
	// balance at validation or debit time.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientItems is returned when a handover or return completion
	// needs more items than are available in the required state.
	ErrInsufficientItems = errors.New("not enough items available")

	// ErrAlreadySold is returned when a sale commit loses the race on the
	// sales.item_id unique index.
	ErrAlreadySold = errors.New("item already sold")

	// ErrDuplicateEvent is returned internally when a sale event insert loses
	// the race on the client_event_id unique index. Callers resolve it to the
	// stored event; it never reaches the API as an error.
	ErrDuplicateEvent = errors.New("duplicate sale event")

	// ErrPriceMismatch is returned when a client-submitted price deviates
	// from the server-side quote by more than the configured tolerance.
	ErrPriceMismatch = errors.New("price mismatch")

	// ErrNotOwner is returned when an ownership predicate fails. Role checks
	// proper are external; this is the engine's second line of defense.
	ErrNotOwner = errors.New("caller does not own entity")

	// ErrArchived is returned when starting a batch on an archived product.
	ErrArchived = errors.New("product archived")

	// ErrConcurrentModification is returned when the store detects a write
	// conflict. Safe to retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports a wallet shortfall.
type InsufficientBalanceError struct {
	SellerID  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for seller %s: available %s, requested %s",
		e.SellerID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// CapacityError reports a batch capacity overflow.
type CapacityError struct {
	BatchID   string
	Capacity  int
	Existing  int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("batch %s capacity exceeded: capacity %d, existing %d, requested %d",
		e.BatchID, e.Capacity, e.Existing, e.Requested)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// TransitionError reports an illegal state transition attempt.
type TransitionError struct {
	Entity   string
	EntityID string
	From     string
	To       string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: illegal transition %s → %s", e.Entity, e.EntityID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// PriceMismatchError reports a stale client quote.
type PriceMismatchError struct {
	Barcode   string
	Quoted    decimal.Decimal
	Submitted decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *PriceMismatchError) Error() string {
	return fmt.Sprintf("price mismatch for %s: quoted %s, submitted %s (tolerance %s)",
		e.Barcode, e.Quoted, e.Submitted, e.Tolerance)
}

func (e *PriceMismatchError) Unwrap() error { return ErrPriceMismatch }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsRetryable reports whether the error might succeed on retry. Offline
// clients keep such events queued.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsBusinessRejection reports whether the error is a terminal business-rule
// rejection (drop from any retry queue, surface to the user).
func IsBusinessRejection(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrDuplicateBarcode) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientItems) ||
		errors.Is(err, ErrAlreadySold) ||
		errors.Is(err, ErrPriceMismatch) ||
		errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrArchived)
}

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation reports whether the error is a malformed-input rejection.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
