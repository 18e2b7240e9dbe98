package jwa

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/exp/slices"
)

// https://datatracker.ietf.org/doc/html/rfc7518#section-3.1
type Algorithm = string

// HMAC with SHA-2 Functions
//
// These algorithms are used to construct a MAC using a shared secret
// and the Hash-based Message Authentication Code (HMAC) construction
// [RFC2104] employing SHA-2 [SHS] hash functions.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.2
const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
)

// RSASSA-PKCS1-v1_5
//
// These algorithms are used to digitally sign a JWS and produce a
// JWS Signature using PKCS #1 v1.5 methods.
//
// # RSA Key Size
//
// A key of size 2048 bits or larger MUST be used with these algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.3
const (
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
)

// ECDSA
//
// These algorithms are used to digitally sign a JWS and produce a
// JWS Signature using ECDSA algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.4
const (
	ES256 Algorithm = "ES256"
	ES384 Algorithm = "ES384"
	ES512 Algorithm = "ES512"
)

// RSASSA-PSS
//
// These algorithms are used to digitally sign a JWS and produce a
// JWS Signature using the RSASSA-PSS algorithms.
//
// # RSA Key Size
//
// A key of size 2048 bits or larger MUST be used with these algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.5
const (
	PS256 Algorithm = "PS256"
	PS384 Algorithm = "PS384"
	PS512 Algorithm = "PS512"
)

// No signature or MAC performed (unprotected JWS). It is never accepted by
// this module and only named so it can be rejected explicitly.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.6
const None Algorithm = "none"

// Edwards-curve Digital Signature Algorithm, with the curve (Ed25519 or
// Ed448) selected by the OKP key.
//
// https://datatracker.ietf.org/doc/html/rfc8037#section-3.1
const EdDSA Algorithm = "EdDSA"

// AES Key Wrap
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.4
const (
	A128KW Algorithm = "A128KW"
	A192KW Algorithm = "A192KW"
	A256KW Algorithm = "A256KW"
)

// PBES2 with HMAC SHA-2 and AES Key Wrap
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.8
const (
	PBES2HS256A128KW Algorithm = "PBES2-HS256+A128KW"
	PBES2HS384A192KW Algorithm = "PBES2-HS384+A192KW"
	PBES2HS512A256KW Algorithm = "PBES2-HS512+A256KW"
)

// AllowedAlgorithms is a set of algorithm names a caller is willing to accept.
type AllowedAlgorithms []Algorithm

// NewAllowedAlgorithms returns the given algorithms as a set, without
// duplicates.
func NewAllowedAlgorithms(algs ...Algorithm) AllowedAlgorithms {
	set := AllowedAlgorithms{}
	for _, alg := range algs {
		if !slices.Contains(set, alg) {
			set = append(set, alg)
		}
	}
	return set
}

// Allowed reports whether every given algorithm is in the set. It is always
// false for an empty argument list.
func (a AllowedAlgorithms) Allowed(algs ...Algorithm) bool {
	if len(algs) == 0 {
		return false
	}
	for _, alg := range algs {
		if !slices.Contains(a, alg) {
			return false
		}
	}
	return true
}

// List returns a copy of the algorithm names in the set.
func (a AllowedAlgorithms) List() []Algorithm {
	return slices.Clone(a)
}

// DefaultAllowedAlgorithms returns a list of algorithms that are allowed to be used.
func DefaultAllowedAlgorithms() AllowedAlgorithms {
	return NewAllowedAlgorithms(RS256, ES256)
}

// Hash identifies a message digest used by an algorithm family.
type Hash int

const (
	SHA1 Hash = iota + 1
	SHA256
	SHA384
	SHA512
)

// Name returns the name used in JOSE registries, such as "SHA-256".
func (h Hash) Name() string {
	switch h {
	case SHA1:
		return "SHA-1"
	case SHA256:
		return "SHA-256"
	case SHA384:
		return "SHA-384"
	case SHA512:
		return "SHA-512"
	default:
		return fmt.Sprintf("Hash(%d)", int(h))
	}
}

func (h Hash) String() string {
	return h.Name()
}

// Size returns the digest length in bytes.
func (h Hash) Size() int {
	return h.CryptoHash().Size()
}

// CryptoHash returns the [crypto.Hash] computing this digest, or 0 for an
// unknown value.
func (h Hash) CryptoHash() crypto.Hash {
	switch h {
	case SHA1:
		return crypto.SHA1
	case SHA256:
		return crypto.SHA256
	case SHA384:
		return crypto.SHA384
	case SHA512:
		return crypto.SHA512
	default:
		return 0
	}
}

// New returns a new hash.Hash computing this digest.
func (h Hash) New() hash.Hash {
	return h.CryptoHash().New()
}

// Sum returns the digest of data.
func (h Hash) Sum(data []byte) []byte {
	d := h.New()
	d.Write(data)
	return d.Sum(nil)
}
