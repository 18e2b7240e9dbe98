package jwt

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/picatz/josekit/pkg/base64"
	"github.com/picatz/josekit/pkg/joseerror"
)

// There are three classes of JWT Claim Names:
// 1. Registered Claim Names
// 2. Public Claim Names
// 3. Private Claim Names
type (
	ClaimName = string

	Registered = ClaimName
	Public     = ClaimName
	Private    = ClaimName
)

// ClaimValue is a piece of information asserted about a subject, represented
// as a name/value pair consisting of a ClaimName and a ClaimValue.
type ClaimValue = any

// Registered Claim Names
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-4.1
const (
	Issuer         Registered = "iss"
	Subject        Registered = "sub"
	Audience       Registered = "aud"
	ExpirationTime Registered = "exp"
	NotBefore      Registered = "nbf"
	IssuedAt       Registered = "iat"
	JWTID          Registered = "jti"
)

// ClaimsSet is a JSON object that contains the claims conveyed by the JWT.
//
// A claim is a piece of information asserted about a subject, represented
// as a name/value pair consisting of a Claim Name and a Claim Value.
type ClaimsSet map[ClaimName]ClaimValue

// String returns the base64url encoded JSON claims set, which is the
// payload of a JWS JWT.
func (claims ClaimsSet) String() string {
	b, err := json.Marshal(claims)
	if err != nil {
		return fmt.Sprintf("<invalid-claims-set %q: %#v>", err, claims)
	}
	return base64.Encode(b)
}

// Get returns the value of the named claim.
func (claims ClaimsSet) Get(name ClaimName) (ClaimValue, error) {
	value, ok := claims[name]
	if !ok {
		return nil, fmt.Errorf("claim %q not found in claims set", name)
	}
	return value, nil
}

// Set sets the value of the named claim.
func (claims ClaimsSet) Set(name ClaimName, value ClaimValue) {
	claims[name] = value
}

// Names returns the claim names in sorted order.
func (claims ClaimsSet) Names() []ClaimName {
	names := make([]ClaimName, 0, len(claims))
	for name := range claims {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StringClaim returns the value of a claim that must be a string, such as
// "iss", "sub" or "jti".
func (claims ClaimsSet) StringClaim(name ClaimName) (string, error) {
	value, err := claims.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", joseerror.New(joseerror.ErrInvalidClaim, "invalid type %T used for %q", value, name)
	}
	return s, nil
}

// Audiences returns the "aud" claim, which may be a single string or an
// array of strings, as a list.
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-4.1.3
func (claims ClaimsSet) Audiences() ([]string, error) {
	value, err := claims.Get(Audience)
	if err != nil {
		return nil, err
	}
	aud, ok := audiences(value)
	if !ok {
		return nil, joseerror.New(joseerror.ErrInvalidClaim, "invalid type %T used for %q", value, Audience)
	}
	return aud, nil
}

// NumericDate returns the value of a claim holding a NumericDate, such as
// "exp", "nbf" or "iat". Fractional seconds are kept.
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-2
func (claims ClaimsSet) NumericDate(name ClaimName) (time.Time, error) {
	value, err := claims.Get(name)
	if err != nil {
		return time.Time{}, err
	}
	seconds, ok := numericDate(value)
	if !ok {
		return time.Time{}, joseerror.New(joseerror.ErrInvalidClaim, "invalid value %v used for %q", value, name)
	}
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*1e9)), nil
}

// Validate checks the types of the registered claims: "iss", "sub" and
// "jti" must be strings, "aud" a string or an array of strings, and "exp",
// "nbf" and "iat" numbers. Every problem is reported, as one error of kind
// [joseerror.ErrInvalidClaim].
//
// Times are not compared with the current time.
func (claims ClaimsSet) Validate() error {
	var result *multierror.Error

	for _, name := range claims.Names() {
		value := claims[name]
		switch name {
		case Issuer, Subject, JWTID:
			if _, ok := value.(string); !ok {
				result = multierror.Append(result, fmt.Errorf("invalid type %T used for %q", value, name))
			}
		case Audience:
			if _, ok := audiences(value); !ok {
				result = multierror.Append(result, fmt.Errorf("invalid type %T used for %q", value, name))
			}
		case ExpirationTime, NotBefore, IssuedAt:
			if _, ok := numericDate(value); !ok {
				result = multierror.Append(result, fmt.Errorf("invalid value %v used for %q", value, name))
			}
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return joseerror.Wrap(joseerror.ErrInvalidClaim, err)
	}
	return nil
}

// normalize returns a copy of claims with the convenience types accepted
// by New converted to their JSON form: time.Time for dates and
// fmt.Stringer for string claims.
func (claims ClaimsSet) normalize() ClaimsSet {
	out := make(ClaimsSet, len(claims))
	for name, value := range claims {
		switch name {
		case ExpirationTime, NotBefore, IssuedAt:
			if v, ok := value.(time.Time); ok {
				value = v.Unix()
			}
		case Issuer, Subject, Audience, JWTID:
			if v, ok := value.(fmt.Stringer); ok {
				value = v.String()
			}
		}
		out[name] = value
	}
	return out
}

func audiences(value any) ([]string, bool) {
	switch v := value.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func numericDate(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
