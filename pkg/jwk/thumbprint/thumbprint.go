package thumbprint

import (
	"bytes"
	"crypto"
	_ "crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/picatz/josekit/pkg/base64"
	"github.com/picatz/josekit/pkg/jwk"
)

var (
	ErrInvalidKey = errors.New("thumbprint: invalid key")
)

// requiredMembers lists, per key type, the members a thumbprint is computed
// over, already in lexicographic order.
//
// https://datatracker.ietf.org/doc/html/rfc7638#section-3.2
var requiredMembers = map[string][]string{
	jwk.KeyTypeRSA: {jwk.E, jwk.KeyType, jwk.N},
	jwk.KeyTypeEC:  {jwk.Curve, jwk.KeyType, jwk.X, jwk.Y},
	jwk.KeyTypeOKP: {jwk.Curve, jwk.KeyType, jwk.X},
	jwk.KeyTypeOct: {jwk.K, jwk.KeyType},
}

// Generate returns the JWK Thumbprint for the given JWK following
// the steps defined in RFC 7638.
func Generate(value jwk.Value, h crypto.Hash) ([]byte, error) {
	kty, ok := value[jwk.KeyType].(string)
	if !ok {
		return nil, ErrInvalidKey
	}

	members, ok := requiredMembers[kty]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported key type %q", ErrInvalidKey, kty)
	}

	// 1. Construct a JSON object [RFC7159] containing only the required
	// members of a JWK representing the key and with no whitespace or
	// line breaks before or after any syntactic elements and with the
	// required members ordered lexicographically by the Unicode
	// [UNICODE] code points of the member names.
	b := bytes.NewBuffer(nil)
	b.WriteByte('{')

	for i, name := range members {
		member, ok := value[name].(string)
		if !ok {
			return nil, fmt.Errorf("%w: missing or non-string %q", ErrInvalidKey, name)
		}

		if i > 0 {
			b.WriteByte(',')
		}

		enc, err := json.Marshal(member)
		if err != nil {
			return nil, err
		}

		b.WriteByte('"')
		b.WriteString(name)
		b.WriteString(`":`)
		b.Write(enc)
	}

	b.WriteByte('}')

	// 2. Hash the octets of the UTF-8 representation of this JSON object
	// with a cryptographic hash function H.
	//
	// If none is specified, SHA-256 is used.
	if h == 0 {
		h = crypto.SHA256
	}

	hash := h.New()

	_, err := hash.Write(b.Bytes())
	if err != nil {
		return nil, err
	}

	return hash.Sum(nil), nil
}

// GenerateString returns the JWK Thumbprint for the given JWK following
// the steps defined in RFC 7638 as a base64url encoded string.
func GenerateString(value jwk.Value, h crypto.Hash) (string, error) {
	thumbprint, err := Generate(value, h)
	if err != nil {
		return "", err
	}

	return base64.Encode(thumbprint), nil
}
