package jws

import (
	"crypto/hmac"
	"fmt"

	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
)

// HMACAlgorithm is HMAC with a SHA-2 hash.
//
// A key of the same size as the hash output or larger MUST be used with
// these algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.2
type HMACAlgorithm int

const (
	HS256 HMACAlgorithm = iota + 1 // HMAC using SHA-256
	HS384                          // HMAC using SHA-384
	HS512                          // HMAC using SHA-512
)

func (a HMACAlgorithm) Name() jwa.Algorithm {
	switch a {
	case HS256:
		return jwa.HS256
	case HS384:
		return jwa.HS384
	case HS512:
		return jwa.HS512
	default:
		return fmt.Sprintf("HMACAlgorithm(%d)", int(a))
	}
}

func (a HMACAlgorithm) KeyType() string {
	return jwk.KeyTypeOct
}

func (a HMACAlgorithm) SignatureLen() int {
	return a.Hash().Size()
}

func (a HMACAlgorithm) Hash() jwa.Hash {
	switch a {
	case HS384:
		return jwa.SHA384
	case HS512:
		return jwa.SHA512
	default:
		return jwa.SHA256
	}
}

func (a HMACAlgorithm) String() string {
	return a.Name()
}

func (a HMACAlgorithm) newKey(key []byte, kid string) (*HMACKey, error) {
	if size := a.Hash().Size(); len(key) < size {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "%s key must be at least %d bytes, got %d", a.Name(), size, len(key))
	}
	return &HMACKey{algorithm: a, key: append([]byte(nil), key...), keyID: kid}, nil
}

// SignerFromBytes returns a signer for a shared secret. The key is copied.
func (a HMACAlgorithm) SignerFromBytes(key []byte) (*HMACKey, error) {
	return a.newKey(key, "")
}

// VerifierFromBytes returns a verifier for a shared secret. The key is
// copied.
func (a HMACAlgorithm) VerifierFromBytes(key []byte) (*HMACKey, error) {
	return a.newKey(key, "")
}

// SignerFromJWK returns a signer for an "oct" JWK.
func (a HMACAlgorithm) SignerFromJWK(v jwk.Value) (*HMACKey, error) {
	return a.fromJWK(v, jwk.OpSign)
}

// VerifierFromJWK returns a verifier for an "oct" JWK.
func (a HMACAlgorithm) VerifierFromJWK(v jwk.Value) (*HMACKey, error) {
	return a.fromJWK(v, jwk.OpVerify)
}

func (a HMACAlgorithm) fromJWK(v jwk.Value, op string) (*HMACKey, error) {
	if err := jwk.CheckUsage(v, jwk.KeyTypeOct, jwk.UseSignature, op, a.Name()); err != nil {
		return nil, err
	}
	key, err := jwk.Parameter(v, jwk.K)
	if err != nil {
		return nil, err
	}
	return a.newKey(key, jwk.KeyIDOf(v))
}

// HMACKey is a shared secret that both signs and verifies.
type HMACKey struct {
	algorithm HMACAlgorithm
	key       []byte
	keyID     string
}

func (k *HMACKey) Algorithm() Algorithm {
	return k.algorithm
}

func (k *HMACKey) KeyID() string {
	return k.keyID
}

// WithKeyID returns a copy of the key using the given key ID.
func (k *HMACKey) WithKeyID(kid string) *HMACKey {
	c := *k
	c.keyID = kid
	return &c
}

func (k *HMACKey) mac(message []byte) []byte {
	h := hmac.New(k.algorithm.Hash().New, k.key)
	h.Write(message)
	return h.Sum(nil)
}

func (k *HMACKey) Sign(message []byte) ([]byte, error) {
	return k.mac(message), nil
}

func (k *HMACKey) Verify(message, signature []byte) error {
	if !hmac.Equal(signature, k.mac(message)) {
		return joseerror.New(joseerror.ErrInvalidSignature, "invalid HMAC signature")
	}
	return nil
}
