// Package jwe implements the JSON Web Encryption (JWE) key management
// algorithms that produce and recover a content encryption key (CEK).
//
// Content encryption itself (the "enc" algorithms) is left to the caller:
// an [Encrypter] returns the CEK to use and the encrypted key to place in
// the JWE, and a [Decrypter] recovers the CEK from that encrypted key.
//
// https://datatracker.ietf.org/doc/html/rfc7516
// https://datatracker.ietf.org/doc/html/rfc7518#section-4
package jwe

import (
	"crypto/rand"

	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
)

// Header is a JWE protected header, checked against [header.JWE].
type Header = header.Parameters

// NewHeader returns an empty JWE header.
func NewHeader() *Header {
	return header.New(header.JWE)
}

// Algorithm is a JWE key management algorithm.
type Algorithm interface {
	// Name returns the "alg" header value.
	Name() jwa.Algorithm
	// KeyType returns the JWK "kty" of keys used with the algorithm.
	KeyType() string
}

// KeyResult is the outcome of [Encrypter.Encrypt].
type KeyResult struct {
	// Key is the generated content encryption key.
	Key []byte
	// EncryptedKey is the value of the JWE Encrypted Key part.
	EncryptedKey []byte
	// Claims lists the header parameters Encrypt wrote into the header.
	Claims []string
}

// Encrypter generates a content encryption key and encrypts it.
type Encrypter interface {
	Algorithm() Algorithm
	KeyID() string
	// Encrypt returns a fresh keyLen byte content encryption key and its
	// encrypted form. It writes the parameters the recipient needs, at
	// least "alg", into h, which must not be shared with other callers
	// while Encrypt runs.
	Encrypt(h *Header, keyLen int) (*KeyResult, error)
}

// Decrypter recovers a content encryption key.
type Decrypter interface {
	Algorithm() Algorithm
	KeyID() string
	Decrypt(h *Header, encryptedKey []byte, keyLen int) ([]byte, error)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, joseerror.New(joseerror.ErrGeneric, "failed to read random bytes: %w", err)
	}
	return b, nil
}

// stampHeader writes "alg" and, when kid is set, "kid" into h, or fails if
// they are present with other values. It returns the names it wrote.
func stampHeader(h *Header, name jwa.Algorithm, kid string) ([]string, error) {
	var written []string

	if h.Has(header.Algorithm) {
		alg, err := h.Algorithm()
		if err != nil {
			return nil, joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
		}
		if alg != name {
			return nil, joseerror.New(joseerror.ErrInvalidJWEFormat, "header algorithm %q does not match %q", alg, name)
		}
	} else {
		if err := h.SetAlgorithm(name); err != nil {
			return nil, joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
		}
		written = append(written, header.Algorithm)
	}

	if kid == "" {
		return written, nil
	}
	if h.Has(header.KeyID) {
		got, err := h.KeyID()
		if err != nil {
			return nil, joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
		}
		if got != kid {
			return nil, joseerror.New(joseerror.ErrInvalidJWEFormat, "header key ID %q does not match %q", got, kid)
		}
		return written, nil
	}
	if err := h.SetKeyID(kid); err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
	}
	return append(written, header.KeyID), nil
}

// checkHeader requires "alg" to name the decrypter's algorithm, and "kid",
// when both sides have one, to match.
func checkHeader(h *Header, name jwa.Algorithm, kid string) error {
	if h == nil {
		return joseerror.New(joseerror.ErrInvalidJWEFormat, "no header provided")
	}
	alg, err := h.Algorithm()
	if err != nil {
		return joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
	}
	if alg != name {
		return joseerror.New(joseerror.ErrInvalidJWEFormat, "header algorithm %q does not match %q", alg, name)
	}
	if kid != "" && h.Has(header.KeyID) {
		got, err := h.KeyID()
		if err != nil {
			return joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
		}
		if got != kid {
			return joseerror.New(joseerror.ErrInvalidJWEFormat, "header key ID %q does not match %q", got, kid)
		}
	}
	return nil
}

// checkKeyLen rejects content encryption key sizes AES key wrap cannot
// carry.
func checkKeyLen(keyLen int) error {
	if keyLen < 16 || keyLen%8 != 0 {
		return joseerror.New(joseerror.ErrGeneric, "content encryption key length must be a multiple of 8 bytes and at least 16 bytes, got %d", keyLen)
	}
	return nil
}
