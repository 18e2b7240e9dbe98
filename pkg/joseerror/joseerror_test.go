package joseerror

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrInvalidClaim, "claim %q is not a string", "iss")
	require.ErrorIs(t, err, ErrInvalidClaim)
	require.NotErrorIs(t, err, ErrInvalidJSON)
	require.Equal(t, `invalid claim: claim "iss" is not a string`, err.Error())
	require.Equal(t, ErrInvalidClaim, KindOf(err))
}

func TestWrap(t *testing.T) {
	require.NoError(t, Wrap(ErrGeneric, nil))

	cause := errors.New("boom")
	err := Wrap(ErrInvalidKeyFormat, cause)
	require.ErrorIs(t, err, ErrInvalidKeyFormat)
	require.ErrorIs(t, err, cause)

	t.Run("re-kind drops the previous kind", func(t *testing.T) {
		inner := New(ErrInvalidJSON, "unexpected EOF")
		outer := Wrap(ErrInvalidJWTFormat, fmt.Errorf("failed to decode header: %w", inner))
		require.ErrorIs(t, outer, ErrInvalidJWTFormat)
		require.NotErrorIs(t, outer, ErrInvalidJSON)
		require.Contains(t, outer.Error(), "unexpected EOF")
		require.Equal(t, ErrInvalidJWTFormat, KindOf(outer))
	})

	t.Run("re-kind keeps other errors in the chain", func(t *testing.T) {
		errMalformed := errors.New("malformed structure")
		inner := New(ErrInvalidKeyFormat, "bad modulus: %w", errMalformed)
		outer := Wrap(ErrInvalidJWKFormat, fmt.Errorf("key %q: %w", "n", inner))

		require.ErrorIs(t, outer, ErrInvalidJWKFormat)
		require.ErrorIs(t, outer, errMalformed)
		require.NotErrorIs(t, outer, ErrInvalidKeyFormat)
		require.Equal(t, ErrInvalidJWKFormat, KindOf(outer))
		require.Equal(t, `invalid JWK format: key "n": invalid key format: bad modulus: malformed structure`, outer.Error())

		var target *os.PathError
		pathErr := &os.PathError{Op: "open", Path: "key.pem", Err: errMalformed}
		rewrapped := Wrap(ErrGeneric, New(ErrInvalidKeyFormat, "read: %w", pathErr))
		require.ErrorAs(t, rewrapped, &target)
		require.Equal(t, "key.pem", target.Path)

		var je *Error
		require.ErrorAs(t, rewrapped, &je)
		require.Equal(t, ErrGeneric, je.Kind)
	})

	t.Run("same kind is kept as is", func(t *testing.T) {
		inner := New(ErrInvalidJSON, "x")
		require.Same(t, inner.(*Error), Wrap(ErrInvalidJSON, inner).(*Error))
	})
}

func TestEnsure(t *testing.T) {
	require.NoError(t, Ensure(ErrGeneric, nil))

	typed := New(ErrInvalidJWKFormat, "missing kty")
	require.Equal(t, typed, Ensure(ErrInvalidKeyFormat, typed))

	untyped := errors.New("plain")
	err := Ensure(ErrInvalidKeyFormat, untyped)
	require.ErrorIs(t, err, ErrInvalidKeyFormat)
	require.Nil(t, KindOf(untyped))
}
