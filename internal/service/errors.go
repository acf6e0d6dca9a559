package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrQuoteUnavailable   = errors.New("quote unavailable")
	ErrInsufficientFunds  = errors.New("can't afford")
	ErrNoPosition         = errors.New("symbol not owned")
	ErrInsufficientShares = errors.New("too many shares")
	ErrInvalidCredentials = errors.New("invalid username and/or password")
	ErrUsernameTaken      = errors.New("username is being used")
	ErrPasswordMismatch   = errors.New("passwords don't match")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrStorageFailure     = errors.New("storage failure")
)

// StorageFailure wraps an unexpected repository or cache error so callers can match ErrStorageFailure
// while logs keep the cause.
func StorageFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

var businessErrs = []error{
	ErrInvalidInput,
	ErrInvalidSymbol,
	ErrQuoteUnavailable,
	ErrInsufficientFunds,
	ErrNoPosition,
	ErrInsufficientShares,
	ErrInvalidCredentials,
	ErrUsernameTaken,
	ErrPasswordMismatch,
	ErrUnauthenticated,
}

// IsBusiness reports whether err is a user-facing rule violation rather than an infrastructure failure.
func IsBusiness(err error) bool {
	_, ok := businessErr(err)
	return ok
}

func businessErr(err error) (error, bool) {
	for _, target := range businessErrs {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// PublicMessage is the text shown to the user for err. Causes joined to a business error and
// anything else are hidden behind a generic message.
func PublicMessage(err error) string {
	if target, ok := businessErr(err); ok {
		return target.Error()
	}
	return "something went wrong, try again later"
}
