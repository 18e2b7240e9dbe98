package jws

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
)

// RSAPSSAlgorithm is RSASSA-PSS with a SHA-2 hash and MGF1 with the same hash.
//
// A key of size 2048 bits or larger MUST be used with these algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.5
type RSAPSSAlgorithm int

const (
	PS256 RSAPSSAlgorithm = iota + 1 // RSASSA-PSS using SHA-256
	PS384                            // RSASSA-PSS using SHA-384
	PS512                            // RSASSA-PSS using SHA-512
)

func (a RSAPSSAlgorithm) Name() jwa.Algorithm {
	switch a {
	case PS256:
		return jwa.PS256
	case PS384:
		return jwa.PS384
	case PS512:
		return jwa.PS512
	default:
		return fmt.Sprintf("RSAPSSAlgorithm(%d)", int(a))
	}
}

func (a RSAPSSAlgorithm) KeyType() string {
	return jwk.KeyTypeRSA
}

func (a RSAPSSAlgorithm) SignatureLen() int {
	return jwk.MinimumRSAModulusBits / 8
}

// Hash returns the digest the algorithm signs.
func (a RSAPSSAlgorithm) Hash() jwa.Hash {
	switch a {
	case PS384:
		return jwa.SHA384
	case PS512:
		return jwa.SHA512
	default:
		return jwa.SHA256
	}
}

func (a RSAPSSAlgorithm) String() string {
	return a.Name()
}

// The salt is as long as the digest.
func pssOptions(hash jwa.Hash) *rsa.PSSOptions {
	return &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: hash.CryptoHash()}
}

// SignerFromKey returns a signer for an RSA private key.
func (a RSAPSSAlgorithm) SignerFromKey(key *rsa.PrivateKey) (*RSAPSSSigner, error) {
	if key == nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "no RSA private key")
	}
	if err := checkRSAKey(&key.PublicKey); err != nil {
		return nil, err
	}
	return &RSAPSSSigner{algorithm: a, key: key}, nil
}

func (a RSAPSSAlgorithm) SignerFromDER(input []byte) (*RSAPSSSigner, error) {
	key, err := rsaSigningKeyFromDER(input)
	if err != nil {
		return nil, err
	}
	return &RSAPSSSigner{algorithm: a, key: key}, nil
}

func (a RSAPSSAlgorithm) SignerFromPEM(input []byte) (*RSAPSSSigner, error) {
	key, err := rsaSigningKeyFromPEM(input)
	if err != nil {
		return nil, err
	}
	return &RSAPSSSigner{algorithm: a, key: key}, nil
}

// SignerFromJWK accepts the same keys as [RSASSAAlgorithm.SignerFromJWK].
func (a RSAPSSAlgorithm) SignerFromJWK(v jwk.Value) (*RSAPSSSigner, error) {
	key, kid, err := rsaSigningKeyFromJWK(v, a.Name())
	if err != nil {
		return nil, err
	}
	return &RSAPSSSigner{algorithm: a, key: key, keyID: kid}, nil
}

// VerifierFromKey returns a verifier for an RSA public key.
func (a RSAPSSAlgorithm) VerifierFromKey(key *rsa.PublicKey) (*RSAPSSVerifier, error) {
	if err := checkRSAKey(key); err != nil {
		return nil, err
	}
	return &RSAPSSVerifier{algorithm: a, key: key}, nil
}

func (a RSAPSSAlgorithm) VerifierFromDER(input []byte) (*RSAPSSVerifier, error) {
	key, err := rsaVerifyingKeyFromDER(input)
	if err != nil {
		return nil, err
	}
	return &RSAPSSVerifier{algorithm: a, key: key}, nil
}

func (a RSAPSSAlgorithm) VerifierFromPEM(input []byte) (*RSAPSSVerifier, error) {
	key, err := rsaVerifyingKeyFromPEM(input)
	if err != nil {
		return nil, err
	}
	return &RSAPSSVerifier{algorithm: a, key: key}, nil
}

func (a RSAPSSAlgorithm) VerifierFromJWK(v jwk.Value) (*RSAPSSVerifier, error) {
	key, kid, err := rsaVerifyingKeyFromJWK(v, a.Name())
	if err != nil {
		return nil, err
	}
	return &RSAPSSVerifier{algorithm: a, key: key, keyID: kid}, nil
}

// RSAPSSSigner signs with an RSA private key using RSASSA-PSS.
type RSAPSSSigner struct {
	algorithm RSAPSSAlgorithm
	key       *rsa.PrivateKey
	keyID     string
}

func (s *RSAPSSSigner) Algorithm() Algorithm {
	return s.algorithm
}

func (s *RSAPSSSigner) KeyID() string {
	return s.keyID
}

// WithKeyID returns a copy of the signer using the given key ID.
func (s *RSAPSSSigner) WithKeyID(kid string) *RSAPSSSigner {
	c := *s
	c.keyID = kid
	return &c
}

// PublicKey returns the public half of the signing key.
func (s *RSAPSSSigner) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

func (s *RSAPSSSigner) Sign(message []byte) ([]byte, error) {
	hash := s.algorithm.Hash()
	sig, err := rsa.SignPSS(rand.Reader, s.key, hash.CryptoHash(), hash.Sum(message), pssOptions(hash))
	if err != nil {
		return nil, joseerror.New(joseerror.ErrGeneric, "failed to sign with RSA-PSS private key: %w", err)
	}
	return sig, nil
}

// RSAPSSVerifier verifies RSASSA-PSS signatures with an RSA public key.
type RSAPSSVerifier struct {
	algorithm RSAPSSAlgorithm
	key       *rsa.PublicKey
	keyID     string
}

func (v *RSAPSSVerifier) Algorithm() Algorithm {
	return v.algorithm
}

func (v *RSAPSSVerifier) KeyID() string {
	return v.keyID
}

func (v *RSAPSSVerifier) WithKeyID(kid string) *RSAPSSVerifier {
	c := *v
	c.keyID = kid
	return &c
}

func (v *RSAPSSVerifier) Verify(message, signature []byte) error {
	hash := v.algorithm.Hash()
	if err := rsa.VerifyPSS(v.key, hash.CryptoHash(), hash.Sum(message), signature, pssOptions(hash)); err != nil {
		return joseerror.New(joseerror.ErrInvalidSignature, "failed to verify RSA-PSS signature: %w", err)
	}
	return nil
}
