// Package joseerror defines the error kinds reported by the JOSE packages.
//
// Every error returned by this module carries exactly one kind, which can be
// matched with [errors.Is]:
//
//	if errors.Is(err, joseerror.ErrInvalidSignature) {
//		// well-formed token, bad signature
//	}
package joseerror

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrInvalidJWTFormat     = errors.New("invalid JWT format")
	ErrInvalidJWKFormat     = errors.New("invalid JWK format")
	ErrInvalidJWSFormat     = errors.New("invalid JWS format")
	ErrInvalidJWEFormat     = errors.New("invalid JWE format")
	ErrInvalidKeyFormat     = errors.New("invalid key format")
	ErrInvalidJSON          = errors.New("invalid JSON")
	ErrInvalidClaim         = errors.New("invalid claim")

	// ErrInvalidSignature covers both a failed verification and a signature
	// that could not be decoded, so callers cannot tell the two apart.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrGeneric is reported for configuration misuse, such as an
	// unsupported AES key length.
	ErrGeneric = errors.New("generic error")
)

var kinds = []error{
	ErrUnsupportedAlgorithm,
	ErrInvalidJWTFormat,
	ErrInvalidJWKFormat,
	ErrInvalidJWSFormat,
	ErrInvalidJWEFormat,
	ErrInvalidKeyFormat,
	ErrInvalidJSON,
	ErrInvalidClaim,
	ErrInvalidSignature,
	ErrGeneric,
}

// Error is an error of a single kind with an optional cause.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Err.Error()
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with a formatted cause.
func New(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap returns err re-kinded as kind. An existing kind on err is dropped so
// the result only matches the new one, while the message and any other
// errors in the chain, such as package sentinels, are preserved.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	var je *Error
	if errors.As(err, &je) {
		if je.Kind == kind {
			return err
		}
		return &Error{Kind: kind, Err: &rekinded{err: err}}
	}
	return &Error{Kind: kind, Err: err}
}

// rekinded hides the kinds in err's chain from [errors.Is] while still
// matching every other error in it.
type rekinded struct {
	err error
}

func (r *rekinded) Error() string {
	return r.err.Error()
}

func (r *rekinded) Is(target error) bool {
	if isKind(target) {
		return false
	}
	return errors.Is(r.err, target)
}

func (r *rekinded) As(target any) bool {
	if _, ok := target.(**Error); ok {
		return false
	}
	return errors.As(r.err, target)
}

func isKind(err error) bool {
	for _, kind := range kinds {
		if err == kind {
			return true
		}
	}
	return false
}

// Ensure returns err unchanged if it already has a kind, otherwise it wraps
// it as kind.
func Ensure(kind error, err error) error {
	if err == nil {
		return nil
	}
	var je *Error
	if errors.As(err, &je) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of err, or nil if err has no kind.
func KindOf(err error) error {
	var je *Error
	if errors.As(err, &je) {
		return je.Kind
	}
	return nil
}
