package withdrawal

import (
	"errors"

	"github.com/cashpoint/cashpoint/internal/account"
	"github.com/cashpoint/cashpoint/internal/lock"
)

var (
	// ErrInvalidAmount is returned for amounts below the minimum or not
	// payable in whole bills.
	ErrInvalidAmount = errors.New("amount must be a positive multiple of the smallest bill and at least the minimum withdrawal")
	// ErrMissingCredential is returned when the credential required by the
	// account kind was not supplied.
	ErrMissingCredential = account.ErrMissingCredential
	// ErrInvalidCredential is returned for a wrong PIN or an invalid or
	// expired withdrawal code.
	ErrInvalidCredential = account.ErrInvalidCredential
	// ErrPersistence wraps storage failures.
	ErrPersistence = account.ErrPersistence
	// ErrBusy is returned when the account lock could not be taken in time.
	// The request may be retried.
	ErrBusy = lock.ErrBusy
)
