// Package jws implements JSON Web Signature algorithms and the JWS compact
// serialization.
//
// Each algorithm family is a small integer enum that satisfies [Algorithm]
// and builds a [Signer] or [Verifier] bound to one key:
//
//	signer, err := jws.RS256.SignerFromPEM(privatePEM)
//	if err != nil {
//		return err
//	}
//	token, err := jws.SerializeCompact(jws.NewHeader(), payload, signer)
//
// Signers and verifiers are immutable after construction and safe for
// concurrent use.
//
// https://datatracker.ietf.org/doc/html/rfc7515
package jws

import (
	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/jwa"
)

// Header is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// The JOSE (JSON Object Signing and Encryption) Header is comprised
// of a set of Header Parameters.
type Header = header.Parameters

// NewHeader returns an empty header checked against the JWS parameter
// rules.
func NewHeader() *Header {
	return header.New(header.JWS)
}

// Algorithm identifies a JWS algorithm.
type Algorithm interface {
	// Name returns the "alg" header parameter value.
	Name() jwa.Algorithm

	// KeyType returns the JWK "kty" value of keys used with the algorithm.
	KeyType() string

	// SignatureLen returns the length in bytes of a signature. For RSA
	// algorithms this is the length for the smallest accepted key.
	SignatureLen() int
}

// Signer produces signatures with a private or shared key.
type Signer interface {
	Algorithm() Algorithm

	// KeyID returns the key ID stamped into the "kid" header parameter,
	// or the empty string.
	KeyID() string

	// Sign returns the signature of message.
	Sign(message []byte) ([]byte, error)
}

// Verifier checks signatures with a public or shared key.
type Verifier interface {
	Algorithm() Algorithm

	// KeyID returns the key ID the "kid" header parameter must match, or
	// the empty string if the header must not carry one.
	KeyID() string

	// Verify returns an error of kind [joseerror.ErrInvalidSignature] if
	// signature is not valid for message.
	Verify(message, signature []byte) error
}
