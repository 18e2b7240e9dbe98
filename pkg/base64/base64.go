package base64

import (
	"encoding/base64"
	"fmt"
)

// encoding is the unpadded base64url alphabet, in strict mode so that
// non-canonical trailing bits are rejected instead of silently dropped.
var encoding = base64.RawURLEncoding.Strict()

// Decode returns the base64url decoded bytes from the given input.
// This function implements base64url decoding as defined in RFC 4648 Section 5,
// which is used in JWT and JWS specifications (RFC 7515).
//
// Padding characters and line breaks are not accepted, and an empty input
// decodes to an empty (non-nil) slice; callers that require content must
// check the length.
func Decode(input string) ([]byte, error) {
	if len(input) == 0 {
		return []byte{}, nil
	}

	// encoding/base64 skips '\r' and '\n' even in strict mode.
	for i := 0; i < len(input); i++ {
		if !isURLSafe(input[i]) {
			return nil, fmt.Errorf("base64: invalid base64url input: illegal byte %q at offset %d", input[i], i)
		}
	}

	result, err := encoding.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("base64: invalid base64url input: %w", err)
	}
	return result, nil
}

// Encode returns the base64url encoded string from the given input.
// This function implements base64url encoding as defined in RFC 4648 Section 5,
// which is used in JWT and JWS specifications (RFC 7515).
//
// It omits padding characters as required by the JWS specification.
func Encode(input []byte) string {
	return encoding.EncodeToString(input)
}

// IsURLSafeNoPad reports whether the given string is a canonical,
// unpadded base64url encoding.
func IsURLSafeNoPad(input string) bool {
	_, err := Decode(input)
	return err == nil
}

func isURLSafe(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	}
	return c == '-' || c == '_'
}
