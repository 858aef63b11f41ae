package bridge

import "errors"

var (
	// ErrInvalidInput reports a zero amount, unknown asset, malformed address or mismatched request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientBalance reports that the invocator cannot cover the lock amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCapacityExceeded reports a full transaction log or asset ledger.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrUnknownTransaction reports a bridge id that does not resolve.
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrInvalidState reports a transaction in the wrong status for the request.
	ErrInvalidState = errors.New("invalid state")

	// ErrQuorumNotMet reports an insufficient, duplicated or invalid signature set.
	ErrQuorumNotMet = errors.New("quorum not met")

	// ErrLedgerGatewayFailure reports a rejected burn, mint or transfer.
	ErrLedgerGatewayFailure = errors.New("ledger gateway failure")

	// ErrPaused reports that the bridge is in emergency pause.
	ErrPaused = errors.New("bridge paused")

	// ErrInvariantViolation reports a detected bookkeeping bug. The call is aborted.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrStorageFailure reports a journal commit that failed. The call is undone
	// and the bridge stays paused until a commit succeeds again.
	ErrStorageFailure = errors.New("storage failure")

	// ErrNotFound is returned by the transaction log for unassigned or overwritten ids.
	ErrNotFound = errors.New("transaction not found")

	// ErrInvalidTransition is returned by the transaction log for non-forward status moves.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Reason is the machine-readable failure code attached to operation results.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonInvalidInput
	ReasonInsufficientBalance
	ReasonCapacityExceeded
	ReasonUnknownTransaction
	ReasonInvalidState
	ReasonQuorumNotMet
	ReasonLedgerGatewayFailure
	ReasonPaused
	ReasonInvariantViolation
	ReasonStorageFailure
)

// reasonNames maps reason codes to their wire names.
var reasonNames = [...]string{
	ReasonNone:                 "",
	ReasonInvalidInput:         "InvalidInput",
	ReasonInsufficientBalance:  "InsufficientBalance",
	ReasonCapacityExceeded:     "CapacityExceeded",
	ReasonUnknownTransaction:   "UnknownTransaction",
	ReasonInvalidState:         "InvalidState",
	ReasonQuorumNotMet:         "QuorumNotMet",
	ReasonLedgerGatewayFailure: "LedgerGatewayFailure",
	ReasonPaused:               "Paused",
	ReasonInvariantViolation:   "InvariantViolation",
	ReasonStorageFailure:       "StorageFailure",
}

// String returns the reason name.
func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}

	return "Unknown"
}

// ReasonOf classifies err into a Reason. Nil maps to ReasonNone.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrInvariantViolation):
		return ReasonInvariantViolation
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	case errors.Is(err, ErrInsufficientBalance):
		return ReasonInsufficientBalance
	case errors.Is(err, ErrCapacityExceeded):
		return ReasonCapacityExceeded
	case errors.Is(err, ErrUnknownTransaction), errors.Is(err, ErrNotFound):
		return ReasonUnknownTransaction
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrInvalidTransition):
		return ReasonInvalidState
	case errors.Is(err, ErrQuorumNotMet):
		return ReasonQuorumNotMet
	case errors.Is(err, ErrLedgerGatewayFailure):
		return ReasonLedgerGatewayFailure
	case errors.Is(err, ErrStorageFailure):
		return ReasonStorageFailure
	case errors.Is(err, ErrPaused):
		return ReasonPaused
	default:
		return ReasonInvariantViolation
	}
}
