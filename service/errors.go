package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStake      = errors.New("invalid stake")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrMatchClosed       = errors.New("match is closed for betting")
	ErrOddsUnavailable   = errors.New("odds unavailable")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrBetNotFound       = errors.New("bet not found")
	ErrInvalidOutcome    = errors.New("invalid settlement outcome")

	// ErrAlreadySettled never leaves this package: Settle turns it into a no-op.
	ErrAlreadySettled = errors.New("bet already settled")

	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrConcurrentUpdate   = errors.New("concurrent update")
	ErrInvalidResultEvent = errors.New("invalid match result event")
	ErrUnknownSelection   = errors.New("unknown selection")
)

// storeErr marks a failure of the backing store so callers can match it
// with errors.Is(err, ErrStoreUnavailable) while keeping the cause.
func storeErr(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
