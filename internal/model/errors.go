package model

import "errors"

// Error kinds surfaced to callers. Wrap them with fmt.Errorf("%w: ...") to add detail.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUpstream          = errors.New("upstream error")
	ErrValidation        = errors.New("validation error")
	ErrTimeout           = errors.New("upstream timeout")
)

// Kind returns the stable, client-visible name of err's kind, or "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "internal"
	}
}
