package domain

import "errors"

// Error kinds surfaced to the HTTP layer. Handlers map each kind to a
// status exactly once; nothing below this layer touches HTTP codes.
var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("invalid token")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrTimeout    = errors.New("deadline exceeded")
	ErrInternal   = errors.New("internal error")
)

// Token verification failures. All of them wrap ErrAuth so callers can
// collapse the taxonomy to one outward condition while tests and logs
// still see which check failed.
var (
	ErrMalformedToken   = wrap("malformed token", ErrAuth)
	ErrInvalidSignature = wrap("invalid signature", ErrAuth)
	ErrExpiredToken     = wrap("token expired", ErrAuth)
	ErrIssuerMismatch   = wrap("issuer or audience mismatch", ErrAuth)
)

func wrap(msg string, kind error) error {
	return &kindError{msg: msg, kind: kind}
}

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }
