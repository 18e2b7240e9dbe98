package header

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/picatz/josekit/pkg/base64"
	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwk"
)

// Check validates the value of a single header parameter.
type Check func(value any) error

// Rules is a registry of per-parameter checks consulted whenever a parameter
// is added to a header. Parameters without a check are accepted untyped.
type Rules struct {
	name   string
	kind   error
	checks map[ParamaterName]Check
}

// NewRules returns a rule set whose violations are reported as errors of the
// given kind.
func NewRules(name string, kind error, checks map[ParamaterName]Check) *Rules {
	r := &Rules{name: name, kind: kind, checks: make(map[ParamaterName]Check, len(checks))}
	for k, v := range checks {
		r.checks[k] = v
	}
	return r
}

// With returns a copy of r with an additional, or replaced, check.
func (r *Rules) With(name ParamaterName, check Check) *Rules {
	out := NewRules(r.name, r.kind, r.checks)
	out.checks[name] = check
	return out
}

// Name returns the rule set name, such as "JWS".
func (r *Rules) Name() string {
	return r.name
}

// Kind returns the error kind reported for rule violations.
func (r *Rules) Kind() error {
	return r.kind
}

// Check runs the check registered for name, if any.
func (r *Rules) Check(name ParamaterName, value any) error {
	check, ok := r.checks[name]
	if !ok {
		return nil
	}
	if err := check(value); err != nil {
		return joseerror.New(r.kind, "invalid %s header parameter %q: %v", r.name, name, err)
	}
	return nil
}

// JWS is the rule set for JWS protected headers.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1
var JWS = NewRules("JWS", joseerror.ErrInvalidJWSFormat, map[ParamaterName]Check{
	Algorithm:                       String,
	JWKSetURL:                       String,
	X509URL:                         String,
	KeyID:                           String,
	Type:                            String,
	ContentType:                     String,
	URL:                             String,
	Critical:                        NonEmptyStringArray,
	X509CertificateSHA1Thumbprint:   Base64URL,
	X509CertificateSHA256Thumbprint: Base64URL,
	Nonce:                           Base64URL,
	X509CertificateChain:            Base64URLArray,
	JSONWebKey:                      Object,
	Base64URLEncodePayload:          Bool,
})

// JWE is the rule set for JWE protected headers.
//
// https://datatracker.ietf.org/doc/html/rfc7516#section-4.1
var JWE = NewRules("JWE", joseerror.ErrInvalidJWEFormat, map[ParamaterName]Check{
	Algorithm:                       String,
	Encryption:                      String,
	Compression:                     String,
	JWKSetURL:                       String,
	X509URL:                         String,
	KeyID:                           String,
	Type:                            String,
	ContentType:                     String,
	Critical:                        NonEmptyStringArray,
	X509CertificateSHA1Thumbprint:   Base64URL,
	X509CertificateSHA256Thumbprint: Base64URL,
	X509CertificateChain:            Base64URLArray,
	JSONWebKey:                      Object,
	EphemeralPublicKey:              Object,
	AgreementPartyUInfo:             Base64URL,
	AgreementPartyVInfo:             Base64URL,
	InitializationVector:            Base64URL,
	AuthenticationTag:               Base64URL,
	PBES2SaltInput:                  Base64URL,
	PBES2Count:                      Uint64,
})

// String requires a JSON string.
func String(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("must be a string, got %T", value)
	}
	return nil
}

// Bool requires a JSON boolean.
func Bool(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("must be a boolean, got %T", value)
	}
	return nil
}

// StringArray requires an array of strings.
func StringArray(value any) error {
	if _, ok := jwk.StringArray(value); !ok {
		return fmt.Errorf("must be an array of strings, got %T", value)
	}
	return nil
}

// NonEmptyStringArray requires a non-empty array of strings.
func NonEmptyStringArray(value any) error {
	values, ok := jwk.StringArray(value)
	if !ok {
		return fmt.Errorf("must be an array of strings, got %T", value)
	}
	if len(values) == 0 {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

// Base64URL requires a string holding unpadded base64url.
func Base64URL(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("must be a base64url string, got %T", value)
	}
	if _, err := base64.Decode(s); err != nil {
		return err
	}
	return nil
}

// Base64URLArray requires an array of unpadded base64url strings.
func Base64URLArray(value any) error {
	values, ok := jwk.StringArray(value)
	if !ok {
		return fmt.Errorf("must be an array of base64url strings, got %T", value)
	}
	for i, s := range values {
		if _, err := base64.Decode(s); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

// Object requires a JSON object that is a valid JWK.
func Object(value any) error {
	v, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("must be a JSON object, got %T", value)
	}
	return jwk.Validate(v)
}

// Uint64 requires a non-negative integer that fits in 64 bits.
func Uint64(value any) error {
	_, err := toUint64(value)
	return err
}

func toUint64(value any) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("must not be negative")
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("must not be negative")
		}
		return uint64(v), nil
	case json.Number:
		n, err := strconv.ParseUint(string(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("must be an unsigned 64-bit integer, got %s", v)
		}
		return n, nil
	case float64:
		if v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
			return 0, fmt.Errorf("must be an unsigned 64-bit integer, got %v", v)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("must be an unsigned 64-bit integer, got %T", value)
	}
}
