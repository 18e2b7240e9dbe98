package jwt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jws"
)

// Type "JWT" is the media type used by JSON Web Token (JWT).
//
// https://www.rfc-editor.org/rfc/rfc7519.html#section-5.1
const Type = header.TypeJWT

// Token is a decoded JSON Web Token, a string representing a
// set of claims as a JSON object that is encoded in a JWS,
// enabling the claims to be digitally signed or MACed.
//
// JWTs contain three parts, separated by dots (".") which are:
//
//  1. Header
//  2. Claims (Payload)
//  3. Signature
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-1
type Token struct {
	// Header is the set of parameters that are used to describe
	// the cryptographic operations applied to the JWT claims set.
	Header *jws.Header

	// Claims is the set of claims that are asserted by the JWT.
	//
	// This is sometimes referred to as the "payload".
	Claims ClaimsSet

	// raw is the compact serialization of the JWT.
	raw string
}

// New can be used to create a signed Token object. If this fails for any
// reason, an error is returned with a nil token.
//
// The given header parameters do not need to define the "typ"
// (header.Type), which is always set to "JWT" (header.TypeJWT), but
// callers can include it if they like. The "alg" and "kid" parameters are
// taken from the signer. A nil header is the same as an empty one, and the
// given header is never modified.
//
// The claims set must not be empty. Registered claims may be given as
// time.Time ("exp", "nbf", "iat") or fmt.Stringer ("iss", "sub", "aud",
// "jti") values, which are converted to their JSON form, and must
// otherwise have the types [ClaimsSet.Validate] requires.
func New(params *jws.Header, claims ClaimsSet, signer jws.Signer) (*Token, error) {
	// Given claims set cannot be empty.
	if len(claims) == 0 {
		return nil, errNoClaimSet()
	}

	claims = claims.normalize()
	if err := claims.Validate(); err != nil {
		return nil, err
	}

	if params == nil {
		params = jws.NewHeader()
	} else {
		params = params.Clone()
	}

	// Ensure the "typ" header parameter is set to "JWT".
	if params.Has(header.Type) {
		typ, err := params.Type()
		if err != nil {
			return nil, joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
		}
		if typ != Type {
			return nil, joseerror.New(joseerror.ErrInvalidJWTFormat, "header type %q is not supported", typ)
		}
	} else if err := params.SetType(Type); err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidClaim, "failed to encode claims set: %w", err)
	}

	raw, err := jws.SerializeCompact(params, payload, signer)
	if err != nil {
		return nil, newSigningError(err)
	}

	signed, err := jws.ParseHeader(raw)
	if err != nil {
		return nil, err
	}

	return &Token{
		Header: signed,
		Claims: claims,
		raw:    raw,
	}, nil
}

// String returns the string representation of the token, which is
// the raw JWT string of three base64url encoded parts, separated
// by a period.
func (t *Token) String() string {
	return t.raw
}

// ParseConfig is a configuration type for parsing and verifying JWTs.
type ParseConfig struct {
	// AllowedIssuers is a set of allowed issuers for the JWT.
	//
	// If not set, then any issuers are allowed.
	AllowedIssuers []string

	// AllowedAudiences is a set of allowed audiences for the JWT. At
	// least one of the token's audiences must be allowed.
	//
	// If not set, then any audiences are allowed.
	AllowedAudiences []string

	// CriticalHeaders lists the "crit" header parameters the caller
	// understands.
	CriticalHeaders []string
}

// ParseOption is a functional option type used to configure
// the verification requirements for JWTs.
type ParseOption func(*ParseConfig)

// WithAllowedIssuers sets the allowed issuers for the JWT.
func WithAllowedIssuers(issuers ...string) ParseOption {
	return func(pc *ParseConfig) {
		pc.AllowedIssuers = issuers
	}
}

// WithAllowedAudiences sets the allowed audiences for the JWT.
func WithAllowedAudiences(audiences ...string) ParseOption {
	return func(pc *ParseConfig) {
		pc.AllowedAudiences = audiences
	}
}

// WithCriticalHeaders adds "crit" header parameters the caller
// understands.
func WithCriticalHeaders(names ...string) ParseOption {
	return func(pc *ParseConfig) {
		pc.CriticalHeaders = append(pc.CriticalHeaders, names...)
	}
}

// Parseable is a type that can be parsed into a JWT,
// either a string or byte slice.
type Parseable interface {
	~string | ~[]byte
}

// Parse verifies the given JWT with the verifier, and returns the
// decoded Token.
//
// The signature is checked first, using the compact JWS rules of
// [jws.DeserializeCompact]. Then "typ", if present, must be "JWT", the
// payload must be a JSON object, and the registered claims must have
// valid types. Failures of these last two checks are of kind
// [joseerror.ErrInvalidJSON] and [joseerror.ErrInvalidClaim].
//
// Time based claims ("exp", "nbf", "iat") are decoded but not compared
// with the current time.
func Parse[T Parseable](input T, verifier jws.Verifier, opts ...ParseOption) (*Token, error) {
	config := &ParseConfig{}
	for _, opt := range opts {
		opt(config)
	}

	raw := string(input)

	h, payload, err := jws.DeserializeCompact(raw, verifier, jws.WithCriticalHeaders(config.CriticalHeaders...))
	if err != nil {
		return nil, err
	}

	// The "typ" value is compared case-insensitively.
	//
	// https://datatracker.ietf.org/doc/html/rfc7519#section-5.1
	if h.Has(header.Type) {
		typ, err := h.Type()
		if err != nil {
			return nil, joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
		}
		if !strings.EqualFold(typ, Type) {
			return nil, joseerror.New(joseerror.ErrInvalidJWTFormat, "header type %q is not supported", typ)
		}
	}

	claims, err := decodeClaims(payload)
	if err != nil {
		return nil, err
	}

	if err := claims.Validate(); err != nil {
		return nil, err
	}

	if err := config.check(claims); err != nil {
		return nil, err
	}

	return &Token{
		Header: h,
		Claims: claims,
		raw:    raw,
	}, nil
}

func decodeClaims(payload []byte) (ClaimsSet, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	claims := ClaimsSet{}
	if err := dec.Decode(&claims); err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidJSON, "failed to decode claims JSON: %w", err)
	}
	if claims == nil {
		return nil, joseerror.New(joseerror.ErrInvalidJSON, "claims set must be a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, joseerror.New(joseerror.ErrInvalidJSON, "unexpected data after claims set")
	}
	return claims, nil
}

func (pc *ParseConfig) check(claims ClaimsSet) error {
	// If the allowed issuers is empty, then any issuer is allowed.
	//
	// Otherwise, the issuer must be in the allowed issuers.
	if pc.AllowedIssuers != nil {
		issuer, err := claims.StringClaim(Issuer)
		if err != nil {
			return joseerror.Wrap(joseerror.ErrInvalidClaim, err)
		}
		if !slices.Contains(pc.AllowedIssuers, issuer) {
			return joseerror.New(joseerror.ErrInvalidClaim, "requested issuer %q is not allowed", issuer)
		}
	}

	// If the allowed audiences is empty, then any audience is allowed.
	//
	// Otherwise, one of the audiences must be in the allowed audiences.
	if pc.AllowedAudiences != nil {
		aud, err := claims.Audiences()
		if err != nil {
			return joseerror.Wrap(joseerror.ErrInvalidClaim, err)
		}
		if !slices.ContainsFunc(aud, func(a string) bool { return slices.Contains(pc.AllowedAudiences, a) }) {
			return joseerror.New(joseerror.ErrInvalidClaim, "requested audiences %q are not allowed", aud)
		}
	}

	return nil
}

// FromHTTPAuthorizationHeader extracts a JWT string from the Authorization header of an HTTP request.
// If the Authorization header is not set, then an error is returned.
//
// # Warning
//
// This value needs to be parsed and verified before it can be used safely.
func FromHTTPAuthorizationHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid authorization header format")
	}

	if !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return parts[1], nil
}

// HTTPHeaderValue is a type that can be used as a value when setting
// an HTTP request header.
type HTTPHeaderValue interface {
	string | *Token
}

// SetHTTPAuthorizationHeader sets the Authorization header of an HTTP request
// to the given JWT. The JWT is prefixed with "Bearer ", as required by the
// HTTP Authorization header specification.
//
// https://tools.ietf.org/html/rfc6750#section-2.1
func SetHTTPAuthorizationHeader[T HTTPHeaderValue](r *http.Request, jwt T) {
	r.Header.Set("Authorization", fmt.Sprintf("Bearer %s", jwt))
}
