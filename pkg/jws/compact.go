package jws

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/slices"

	"github.com/picatz/josekit/pkg/base64"
	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/joseerror"
)

// registered lists the header parameters defined by RFC 7515 itself, which
// must never appear in "crit".
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1.11
var registered = []string{
	header.Algorithm,
	header.JWKSetURL,
	header.JSONWebKey,
	header.KeyID,
	header.X509URL,
	header.X509CertificateChain,
	header.X509CertificateSHA1Thumbprint,
	header.X509CertificateSHA256Thumbprint,
	header.Type,
	header.ContentType,
	header.Critical,
}

// DeserializeOption configures DeserializeCompact.
type DeserializeOption func(*deserializeConfig)

type deserializeConfig struct {
	understood []string
}

// WithCriticalHeaders adds header parameter names that the caller
// understands and may therefore be listed in "crit". The "b64" parameter is
// always understood.
func WithCriticalHeaders(names ...string) DeserializeOption {
	return func(c *deserializeConfig) {
		c.understood = append(c.understood, names...)
	}
}

// SerializeCompact signs payload and returns the JWS compact serialization
//
//	BASE64URL(header) "." BASE64URL(payload) "." BASE64URL(signature)
//
// The header is cloned before use, so h is never modified. When "alg" is
// absent it is taken from the signer, and when present it must match the
// signer's algorithm. The same applies to "kid" when the signer has a key
// ID. When "b64" is false the payload is written as is, and must then be
// valid UTF-8 without any "." character.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-7.1
func SerializeCompact(h *Header, payload []byte, signer Signer) (string, error) {
	if signer == nil {
		return "", joseerror.New(joseerror.ErrGeneric, "no signer provided")
	}

	if h == nil {
		h = NewHeader()
	} else {
		h = h.Clone()
	}

	name := signer.Algorithm().Name()
	if h.Has(header.Algorithm) {
		alg, err := h.Algorithm()
		if err != nil {
			return "", joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
		}
		if alg != name {
			return "", joseerror.New(joseerror.ErrInvalidJWTFormat, "header algorithm %q does not match signer algorithm %q", alg, name)
		}
	} else if err := h.SetAlgorithm(name); err != nil {
		return "", joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
	}

	if kid := signer.KeyID(); kid != "" {
		if h.Has(header.KeyID) {
			got, err := h.KeyID()
			if err != nil {
				return "", joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
			}
			if got != kid {
				return "", joseerror.New(joseerror.ErrInvalidJWTFormat, "header key ID %q does not match signer key ID %q", got, kid)
			}
		} else if err := h.SetKeyID(kid); err != nil {
			return "", joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
		}
	}

	if err := h.Validate(); err != nil {
		return "", joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
	}

	encodedPayload, err := encodePayload(h.PayloadEncoded(), payload)
	if err != nil {
		return "", err
	}

	encodedHeader, err := h.Base64URLString()
	if err != nil {
		return "", joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
	}

	var b strings.Builder
	b.Grow(len(encodedHeader) + len(encodedPayload) + base64EncodedLen(signer.Algorithm().SignatureLen()) + 2)
	b.WriteString(encodedHeader)
	b.WriteByte('.')
	b.WriteString(encodedPayload)

	sig, err := signer.Sign([]byte(b.String()))
	if err != nil {
		return "", joseerror.Ensure(joseerror.ErrGeneric, err)
	}

	b.WriteByte('.')
	b.WriteString(base64.Encode(sig))

	return b.String(), nil
}

func encodePayload(encoded bool, payload []byte) (string, error) {
	if encoded {
		return base64.Encode(payload), nil
	}
	if !utf8.Valid(payload) {
		return "", joseerror.New(joseerror.ErrInvalidJWTFormat, "unencoded payload must be valid UTF-8")
	}
	if bytes.IndexByte(payload, '.') >= 0 {
		return "", joseerror.New(joseerror.ErrInvalidJWTFormat, "unencoded payload must not contain '.'")
	}
	return string(payload), nil
}

func base64EncodedLen(n int) int {
	return (n*8 + 5) / 6
}

// split returns the positions of the two dots of a compact JWS, or an error
// when there are not exactly two.
func split(token string) (first, second int, err error) {
	if n := strings.Count(token, "."); n != 2 {
		return 0, 0, joseerror.New(joseerror.ErrInvalidJWTFormat, "compact JWS must have exactly 3 parts separated by '.', got %d separators", n)
	}
	first = strings.IndexByte(token, '.')
	second = first + 1 + strings.IndexByte(token[first+1:], '.')
	return first, second, nil
}

func decodeHeader(segment string) (*Header, error) {
	data, err := base64.Decode(segment)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidJWTFormat, "failed to decode JOSE header base64: %w", err)
	}
	h, err := header.FromJSON(header.JWS, data)
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
	}
	return h, nil
}

// ParseHeader returns the protected header of a compact JWS without
// verifying anything else. It is meant for selecting a key by "kid" or
// "alg" before calling DeserializeCompact.
func ParseHeader(token string) (*Header, error) {
	first, _, err := split(token)
	if err != nil {
		return nil, err
	}
	return decodeHeader(token[:first])
}

// DeserializeCompact verifies a compact JWS and returns its header and
// payload.
//
// The token must have exactly three parts. Before the signature is checked,
// the header "alg" must equal the verifier's algorithm, "kid" must equal
// the verifier's key ID (both may be absent), every name in "crit" must be
// present and understood, and the payload must decode according to "b64".
// These failures are of kind [joseerror.ErrInvalidJWTFormat]. A signature
// that does not decode or does not verify is of kind
// [joseerror.ErrInvalidSignature].
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-5.2
func DeserializeCompact(token string, verifier Verifier, opts ...DeserializeOption) (*Header, []byte, error) {
	if verifier == nil {
		return nil, nil, joseerror.New(joseerror.ErrGeneric, "no verifier provided")
	}

	config := &deserializeConfig{
		understood: []string{header.Base64URLEncodePayload},
	}
	for _, opt := range opts {
		opt(config)
	}

	first, second, err := split(token)
	if err != nil {
		return nil, nil, err
	}

	h, err := decodeHeader(token[:first])
	if err != nil {
		return nil, nil, err
	}

	// Algorithm confusion defense: the verifier decides the algorithm,
	// the header only has to agree with it.
	if !h.Has(header.Algorithm) {
		return nil, nil, joseerror.New(joseerror.ErrInvalidJWTFormat, "missing %q header parameter", header.Algorithm)
	}
	alg, err := h.Algorithm()
	if err != nil {
		return nil, nil, joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
	}
	if want := verifier.Algorithm().Name(); alg != want {
		return nil, nil, joseerror.New(joseerror.ErrInvalidJWTFormat, "header algorithm %q does not match verifier algorithm %q", alg, want)
	}

	if err := checkKeyID(h, verifier.KeyID()); err != nil {
		return nil, nil, err
	}

	if err := checkCritical(h, config.understood); err != nil {
		return nil, nil, err
	}

	var payload []byte
	if h.PayloadEncoded() {
		payload, err = base64.Decode(token[first+1 : second])
		if err != nil {
			return nil, nil, joseerror.New(joseerror.ErrInvalidJWTFormat, "failed to decode payload base64: %w", err)
		}
	} else {
		payload = []byte(token[first+1 : second])
	}

	sig, err := base64.Decode(token[second+1:])
	if err != nil {
		return nil, nil, joseerror.New(joseerror.ErrInvalidSignature, "failed to decode signature base64: %w", err)
	}

	if err := verifier.Verify([]byte(token[:second]), sig); err != nil {
		return nil, nil, joseerror.Wrap(joseerror.ErrInvalidSignature, err)
	}

	return h, payload, nil
}

func checkKeyID(h *Header, want string) error {
	if !h.Has(header.KeyID) {
		if want != "" {
			return joseerror.New(joseerror.ErrInvalidJWTFormat, "missing %q header parameter, want %q", header.KeyID, want)
		}
		return nil
	}

	got, err := h.KeyID()
	if err != nil {
		return joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
	}
	if want == "" {
		return joseerror.New(joseerror.ErrInvalidJWTFormat, "unexpected %q header parameter %q", header.KeyID, got)
	}
	if got != want {
		return joseerror.New(joseerror.ErrInvalidJWTFormat, "header key ID %q does not match verifier key ID %q", got, want)
	}
	return nil
}

// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1.11
func checkCritical(h *Header, understood []string) error {
	if !h.Has(header.Critical) {
		return nil
	}

	crit, err := h.Critical()
	if err != nil {
		return joseerror.Wrap(joseerror.ErrInvalidJWTFormat, err)
	}

	for _, name := range crit {
		if slices.Contains(registered, name) {
			return joseerror.New(joseerror.ErrInvalidJWTFormat, "%q must not list registered header parameter %q", header.Critical, name)
		}
		if !h.Has(name) {
			return joseerror.New(joseerror.ErrInvalidJWTFormat, "critical header parameter %q is missing", name)
		}
		if !slices.Contains(understood, name) {
			return joseerror.New(joseerror.ErrInvalidJWTFormat, "critical header parameter %q is not understood", name)
		}
	}
	return nil
}
