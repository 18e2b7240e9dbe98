package jwt

import (
	"errors"
	"fmt"

	"github.com/picatz/josekit/pkg/joseerror"
)

// ErrNoClaimSet is the cause reported when a token is created without
// claims. The error returned by [New] is of kind [joseerror.ErrInvalidClaim].
var ErrNoClaimSet = errors.New("no claim set")

// SigningError is returned by [New] when the claims cannot be serialized as
// a signed compact JWS. It keeps the error kind of the cause.
type SigningError struct {
	Inner error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing failed: %v", e.Inner)
}

func (e *SigningError) Unwrap() error {
	return e.Inner
}

func newSigningError(inner error) error {
	return &SigningError{Inner: inner}
}

func errNoClaimSet() error {
	return &joseerror.Error{Kind: joseerror.ErrInvalidClaim, Err: ErrNoClaimSet}
}
