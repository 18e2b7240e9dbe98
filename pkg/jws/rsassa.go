package jws

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
)

// RSASSAAlgorithm is RSASSA-PKCS1-v1_5 with a SHA-2 hash.
//
// A key of size 2048 bits or larger MUST be used with these algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.3
type RSASSAAlgorithm int

const (
	RS256 RSASSAAlgorithm = iota + 1 // RSASSA-PKCS1-v1_5 using SHA-256
	RS384                            // RSASSA-PKCS1-v1_5 using SHA-384
	RS512                            // RSASSA-PKCS1-v1_5 using SHA-512
)

func (a RSASSAAlgorithm) Name() jwa.Algorithm {
	switch a {
	case RS256:
		return jwa.RS256
	case RS384:
		return jwa.RS384
	case RS512:
		return jwa.RS512
	default:
		return fmt.Sprintf("RSASSAAlgorithm(%d)", int(a))
	}
}

func (a RSASSAAlgorithm) KeyType() string {
	return jwk.KeyTypeRSA
}

func (a RSASSAAlgorithm) SignatureLen() int {
	return jwk.MinimumRSAModulusBits / 8
}

// Hash returns the digest the algorithm signs.
func (a RSASSAAlgorithm) Hash() jwa.Hash {
	switch a {
	case RS384:
		return jwa.SHA384
	case RS512:
		return jwa.SHA512
	default:
		return jwa.SHA256
	}
}

func (a RSASSAAlgorithm) String() string {
	return a.Name()
}

// SignerFromKey returns a signer for an RSA private key.
func (a RSASSAAlgorithm) SignerFromKey(key *rsa.PrivateKey) (*RSASSASigner, error) {
	if key == nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "no RSA private key")
	}
	if err := checkRSAKey(&key.PublicKey); err != nil {
		return nil, err
	}
	return &RSASSASigner{algorithm: a, key: key}, nil
}

// SignerFromDER returns a signer for a DER encoded PKCS#8 PrivateKeyInfo or
// PKCS#1 RSAPrivateKey.
func (a RSASSAAlgorithm) SignerFromDER(input []byte) (*RSASSASigner, error) {
	key, err := rsaSigningKeyFromDER(input)
	if err != nil {
		return nil, err
	}
	return &RSASSASigner{algorithm: a, key: key}, nil
}

// SignerFromPEM returns a signer for a "PRIVATE KEY" (PKCS#8) or
// "RSA PRIVATE KEY" (PKCS#1) PEM block.
func (a RSASSAAlgorithm) SignerFromPEM(input []byte) (*RSASSASigner, error) {
	key, err := rsaSigningKeyFromPEM(input)
	if err != nil {
		return nil, err
	}
	return &RSASSASigner{algorithm: a, key: key}, nil
}

// SignerFromJWK returns a signer for an RSA private JWK. The key ID of the
// signer is taken from "kid".
func (a RSASSAAlgorithm) SignerFromJWK(v jwk.Value) (*RSASSASigner, error) {
	key, kid, err := rsaSigningKeyFromJWK(v, a.Name())
	if err != nil {
		return nil, err
	}
	return &RSASSASigner{algorithm: a, key: key, keyID: kid}, nil
}

// VerifierFromKey returns a verifier for an RSA public key.
func (a RSASSAAlgorithm) VerifierFromKey(key *rsa.PublicKey) (*RSASSAVerifier, error) {
	if err := checkRSAKey(key); err != nil {
		return nil, err
	}
	return &RSASSAVerifier{algorithm: a, key: key}, nil
}

// VerifierFromDER returns a verifier for a DER encoded SubjectPublicKeyInfo
// or PKCS#1 RSAPublicKey.
func (a RSASSAAlgorithm) VerifierFromDER(input []byte) (*RSASSAVerifier, error) {
	key, err := rsaVerifyingKeyFromDER(input)
	if err != nil {
		return nil, err
	}
	return &RSASSAVerifier{algorithm: a, key: key}, nil
}

// VerifierFromPEM returns a verifier for a "PUBLIC KEY" (SPKI) or
// "RSA PUBLIC KEY" (PKCS#1) PEM block.
func (a RSASSAAlgorithm) VerifierFromPEM(input []byte) (*RSASSAVerifier, error) {
	key, err := rsaVerifyingKeyFromPEM(input)
	if err != nil {
		return nil, err
	}
	return &RSASSAVerifier{algorithm: a, key: key}, nil
}

// VerifierFromJWK returns a verifier for an RSA JWK. The key ID of the
// verifier is taken from "kid".
func (a RSASSAAlgorithm) VerifierFromJWK(v jwk.Value) (*RSASSAVerifier, error) {
	key, kid, err := rsaVerifyingKeyFromJWK(v, a.Name())
	if err != nil {
		return nil, err
	}
	return &RSASSAVerifier{algorithm: a, key: key, keyID: kid}, nil
}

// RSASSASigner signs with an RSA private key using PKCS #1 v1.5.
type RSASSASigner struct {
	algorithm RSASSAAlgorithm
	key       *rsa.PrivateKey
	keyID     string
}

func (s *RSASSASigner) Algorithm() Algorithm {
	return s.algorithm
}

func (s *RSASSASigner) KeyID() string {
	return s.keyID
}

// WithKeyID returns a copy of the signer using the given key ID.
func (s *RSASSASigner) WithKeyID(kid string) *RSASSASigner {
	c := *s
	c.keyID = kid
	return &c
}

// PublicKey returns the public half of the signing key.
func (s *RSASSASigner) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

func (s *RSASSASigner) Sign(message []byte) ([]byte, error) {
	hash := s.algorithm.Hash()
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, hash.CryptoHash(), hash.Sum(message))
	if err != nil {
		return nil, joseerror.New(joseerror.ErrGeneric, "failed to sign with RSA private key: %w", err)
	}
	return sig, nil
}

// RSASSAVerifier verifies PKCS #1 v1.5 signatures with an RSA public key.
type RSASSAVerifier struct {
	algorithm RSASSAAlgorithm
	key       *rsa.PublicKey
	keyID     string
}

func (v *RSASSAVerifier) Algorithm() Algorithm {
	return v.algorithm
}

func (v *RSASSAVerifier) KeyID() string {
	return v.keyID
}

// WithKeyID returns a copy of the verifier expecting the given key ID.
func (v *RSASSAVerifier) WithKeyID(kid string) *RSASSAVerifier {
	c := *v
	c.keyID = kid
	return &c
}

func (v *RSASSAVerifier) Verify(message, signature []byte) error {
	hash := v.algorithm.Hash()
	if err := rsa.VerifyPKCS1v15(v.key, hash.CryptoHash(), hash.Sum(message), signature); err != nil {
		return joseerror.New(joseerror.ErrInvalidSignature, "failed to verify RSA signature: %w", err)
	}
	return nil
}
