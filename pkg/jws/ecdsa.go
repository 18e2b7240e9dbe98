package jws

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"math/big"

	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
	"github.com/picatz/josekit/pkg/keyutil"
)

// ECDSAAlgorithm is ECDSA over a NIST curve with the matching SHA-2 hash.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.4
type ECDSAAlgorithm int

const (
	ES256 ECDSAAlgorithm = iota + 1 // ECDSA using P-256 and SHA-256
	ES384                           // ECDSA using P-384 and SHA-384
	ES512                           // ECDSA using P-521 and SHA-512
)

func (a ECDSAAlgorithm) Name() jwa.Algorithm {
	switch a {
	case ES256:
		return jwa.ES256
	case ES384:
		return jwa.ES384
	case ES512:
		return jwa.ES512
	default:
		return fmt.Sprintf("ECDSAAlgorithm(%d)", int(a))
	}
}

func (a ECDSAAlgorithm) KeyType() string {
	return jwk.KeyTypeEC
}

// SignatureLen returns the length of the fixed width r || s encoding.
func (a ECDSAAlgorithm) SignatureLen() int {
	return 2 * a.coordinateSize()
}

func (a ECDSAAlgorithm) Hash() jwa.Hash {
	switch a {
	case ES384:
		return jwa.SHA384
	case ES512:
		return jwa.SHA512
	default:
		return jwa.SHA256
	}
}

// Curve returns the curve keys for this algorithm must use.
func (a ECDSAAlgorithm) Curve() elliptic.Curve {
	switch a {
	case ES384:
		return elliptic.P384()
	case ES512:
		return elliptic.P521()
	default:
		return elliptic.P256()
	}
}

func (a ECDSAAlgorithm) String() string {
	return a.Name()
}

func (a ECDSAAlgorithm) coordinateSize() int {
	return (a.Curve().Params().BitSize + 7) / 8
}

func (a ECDSAAlgorithm) checkCurve(pub *ecdsa.PublicKey) error {
	if pub == nil || pub.Curve == nil {
		return joseerror.New(joseerror.ErrInvalidKeyFormat, "no ECDSA key")
	}
	if want := a.Curve().Params().Name; pub.Curve.Params().Name != want {
		return joseerror.New(joseerror.ErrInvalidKeyFormat, "%s requires curve %s, got %s", a.Name(), want, pub.Curve.Params().Name)
	}
	return nil
}

// SignerFromKey returns a signer for an ECDSA private key on the
// algorithm's curve.
func (a ECDSAAlgorithm) SignerFromKey(key *ecdsa.PrivateKey) (*ECDSASigner, error) {
	if key == nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "no ECDSA private key")
	}
	if err := a.checkCurve(&key.PublicKey); err != nil {
		return nil, err
	}
	return &ECDSASigner{algorithm: a, key: key}, nil
}

// SignerFromDER returns a signer for a DER encoded PKCS#8 PrivateKeyInfo or
// SEC 1 ECPrivateKey.
func (a ECDSAAlgorithm) SignerFromDER(input []byte) (*ECDSASigner, error) {
	if key, err := x509.ParseECPrivateKey(input); err == nil {
		return a.SignerFromKey(key)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(input)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "failed to parse ECDSA private key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "PKCS#8 key is %T, not an ECDSA key", parsed)
	}
	return a.SignerFromKey(key)
}

// SignerFromPEM returns a signer for a "PRIVATE KEY" or "EC PRIVATE KEY"
// PEM block.
func (a ECDSAAlgorithm) SignerFromPEM(input []byte) (*ECDSASigner, error) {
	label, body, err := keyutil.ParsePEM(input)
	if err != nil {
		return nil, err
	}
	switch label {
	case keyutil.LabelPrivateKey, keyutil.LabelECPrivateKey:
		return a.SignerFromDER(body)
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported ECDSA private key PEM label %q", label)
	}
}

// SignerFromJWK returns a signer for an EC private JWK.
func (a ECDSAAlgorithm) SignerFromJWK(v jwk.Value) (*ECDSASigner, error) {
	if err := jwk.CheckUsage(v, jwk.KeyTypeEC, jwk.UseSignature, jwk.OpSign, a.Name()); err != nil {
		return nil, err
	}
	key, err := jwk.ECDSAPrivateKey(v)
	if err != nil {
		return nil, err
	}
	s, err := a.SignerFromKey(key)
	if err != nil {
		return nil, err
	}
	s.keyID = jwk.KeyIDOf(v)
	return s, nil
}

// VerifierFromKey returns a verifier for an ECDSA public key on the
// algorithm's curve.
func (a ECDSAAlgorithm) VerifierFromKey(key *ecdsa.PublicKey) (*ECDSAVerifier, error) {
	if err := a.checkCurve(key); err != nil {
		return nil, err
	}
	return &ECDSAVerifier{algorithm: a, key: key}, nil
}

// VerifierFromDER returns a verifier for a DER encoded SubjectPublicKeyInfo.
func (a ECDSAAlgorithm) VerifierFromDER(input []byte) (*ECDSAVerifier, error) {
	parsed, err := x509.ParsePKIXPublicKey(input)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "failed to parse ECDSA public key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "public key is %T, not an ECDSA key", parsed)
	}
	return a.VerifierFromKey(key)
}

// VerifierFromPEM returns a verifier for a "PUBLIC KEY" PEM block.
func (a ECDSAAlgorithm) VerifierFromPEM(input []byte) (*ECDSAVerifier, error) {
	label, body, err := keyutil.ParsePEM(input)
	if err != nil {
		return nil, err
	}
	if label != keyutil.LabelPublicKey {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported ECDSA public key PEM label %q", label)
	}
	return a.VerifierFromDER(body)
}

// VerifierFromJWK returns a verifier for an EC JWK.
func (a ECDSAAlgorithm) VerifierFromJWK(v jwk.Value) (*ECDSAVerifier, error) {
	if err := jwk.CheckUsage(v, jwk.KeyTypeEC, jwk.UseSignature, jwk.OpVerify, a.Name()); err != nil {
		return nil, err
	}
	key, err := jwk.ECDSAPublicKey(v)
	if err != nil {
		return nil, err
	}
	verifier, err := a.VerifierFromKey(key)
	if err != nil {
		return nil, err
	}
	verifier.keyID = jwk.KeyIDOf(v)
	return verifier, nil
}

// ECDSASigner produces fixed width r || s signatures.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.4
type ECDSASigner struct {
	algorithm ECDSAAlgorithm
	key       *ecdsa.PrivateKey
	keyID     string
}

func (s *ECDSASigner) Algorithm() Algorithm {
	return s.algorithm
}

func (s *ECDSASigner) KeyID() string {
	return s.keyID
}

func (s *ECDSASigner) WithKeyID(kid string) *ECDSASigner {
	c := *s
	c.keyID = kid
	return &c
}

func (s *ECDSASigner) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

func (s *ECDSASigner) Sign(message []byte) ([]byte, error) {
	r, sv, err := ecdsa.Sign(rand.Reader, s.key, s.algorithm.Hash().Sum(message))
	if err != nil {
		return nil, joseerror.New(joseerror.ErrGeneric, "failed to sign with ECDSA private key: %w", err)
	}

	size := s.algorithm.coordinateSize()
	out := make([]byte, 2*size)
	r.FillBytes(out[:size])
	sv.FillBytes(out[size:])
	return out, nil
}

// ECDSAVerifier checks fixed width r || s signatures.
type ECDSAVerifier struct {
	algorithm ECDSAAlgorithm
	key       *ecdsa.PublicKey
	keyID     string
}

func (v *ECDSAVerifier) Algorithm() Algorithm {
	return v.algorithm
}

func (v *ECDSAVerifier) KeyID() string {
	return v.keyID
}

func (v *ECDSAVerifier) WithKeyID(kid string) *ECDSAVerifier {
	c := *v
	c.keyID = kid
	return &c
}

func (v *ECDSAVerifier) Verify(message, signature []byte) error {
	size := v.algorithm.coordinateSize()
	if len(signature) != 2*size {
		return joseerror.New(joseerror.ErrInvalidSignature, "invalid ECDSA signature length %d", len(signature))
	}

	r := new(big.Int).SetBytes(signature[:size])
	s := new(big.Int).SetBytes(signature[size:])

	if !ecdsa.Verify(v.key, v.algorithm.Hash().Sum(message), r, s) {
		return joseerror.New(joseerror.ErrInvalidSignature, "failed to validate ECDSA signature")
	}
	return nil
}
