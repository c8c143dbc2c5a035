package errors

import "github.com/pkg/errors"

var (
	// provider errors, any of them aborts the running cycle
	ErrProvider        = errors.New("mail provider error")
	ErrMissingAddress  = errors.Wrap(ErrProvider, "provider response has no email address")
	ErrInvalidAddress  = errors.Wrap(ErrProvider, "provider returned an invalid email address")
	ErrUnexpectedState = errors.Wrap(ErrProvider, "unexpected provider response")

	// processor errors
	ErrCycleInProgress = errors.New("a polling cycle is already running")
)

// IsProviderError reports whether err originates from the mail provider
func IsProviderError(err error) bool {
	return errors.Is(err, ErrProvider)
}
