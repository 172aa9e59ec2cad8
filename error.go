package implicit

import (
	"errors"
)

var (
	// ErrNoMatch reports that a fragment is neither a token callback nor an
	// error callback.  It is the designed "try the next route" signal, not an
	// exceptional condition.
	ErrNoMatch = errors.New("fragment does not match a known callback shape")

	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrNilParameter         = errors.New("nil parameter")
	ErrIDGeneratorFailed    = errors.New("id generation failed")
	ErrExpiredRequest       = errors.New("request is expired")
	ErrResponseStateInvalid = errors.New("invalid response state")
	ErrInvalidCACert        = errors.New("invalid CA certificate")
	ErrInvalidIssuer        = errors.New("invalid issuer")
	ErrNotFound             = errors.New("not found")
)
