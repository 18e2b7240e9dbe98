package jws

import (
	"crypto/ed25519"

	"github.com/cloudflare/circl/sign/ed448"

	"github.com/picatz/josekit/pkg/der"
	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
	"github.com/picatz/josekit/pkg/keyutil"
)

// EdDSAAlgorithm is the Edwards-curve Digital Signature Algorithm. The
// curve, Ed25519 or Ed448, is taken from the key.
//
// https://datatracker.ietf.org/doc/html/rfc8037#section-3.1
type EdDSAAlgorithm int

const EdDSA EdDSAAlgorithm = 1

func (a EdDSAAlgorithm) Name() jwa.Algorithm {
	return jwa.EdDSA
}

func (a EdDSAAlgorithm) KeyType() string {
	return jwk.KeyTypeOKP
}

// SignatureLen returns the Ed25519 signature size; Ed448 signatures are
// [ed448.SignatureSize] bytes.
func (a EdDSAAlgorithm) SignatureLen() int {
	return ed25519.SignatureSize
}

func (a EdDSAAlgorithm) String() string {
	return a.Name()
}

// SignerFromSeed returns a signer for the private key seed on the given
// curve.
func (a EdDSAAlgorithm) SignerFromSeed(crv der.Curve, seed []byte) (*EdDSASigner, error) {
	switch crv {
	case der.Ed25519:
		if len(seed) != ed25519.SeedSize {
			return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid Ed25519 seed length %d", len(seed))
		}
		return &EdDSASigner{curve: crv, ed25519: ed25519.NewKeyFromSeed(seed)}, nil
	case der.Ed448:
		if len(seed) != ed448.SeedSize {
			return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid Ed448 seed length %d", len(seed))
		}
		return &EdDSASigner{curve: crv, ed448: ed448.NewKeyFromSeed(seed)}, nil
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported EdDSA curve %q", crv)
	}
}

// SignerFromKey returns a signer for an ed25519.PrivateKey or
// ed448.PrivateKey.
func (a EdDSAAlgorithm) SignerFromKey(key any) (*EdDSASigner, error) {
	switch key := key.(type) {
	case ed25519.PrivateKey:
		if len(key) != ed25519.PrivateKeySize {
			return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid Ed25519 private key size %d", len(key))
		}
		return a.SignerFromSeed(der.Ed25519, key.Seed())
	case ed448.PrivateKey:
		if len(key) != ed448.PrivateKeySize {
			return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid Ed448 private key size %d", len(key))
		}
		return a.SignerFromSeed(der.Ed448, key.Seed())
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid EdDSA private key type %T", key)
	}
}

// SignerFromDER returns a signer for a PKCS#8 encoded Ed25519 or Ed448 key.
func (a EdDSAAlgorithm) SignerFromDER(input []byte) (*EdDSASigner, error) {
	crv, seed, err := der.ParseOKPPrivateKey(input)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "failed to parse EdDSA private key: %w", err)
	}
	return a.SignerFromSeed(crv, seed)
}

// SignerFromPEM returns a signer for a "PRIVATE KEY" PEM block.
func (a EdDSAAlgorithm) SignerFromPEM(input []byte) (*EdDSASigner, error) {
	label, body, err := keyutil.ParsePEM(input)
	if err != nil {
		return nil, err
	}
	if label != keyutil.LabelPrivateKey {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported EdDSA private key PEM label %q", label)
	}
	return a.SignerFromDER(body)
}

// SignerFromJWK returns a signer for an OKP private JWK.
//
// https://datatracker.ietf.org/doc/html/rfc8037#section-2
func (a EdDSAAlgorithm) SignerFromJWK(v jwk.Value) (*EdDSASigner, error) {
	if err := jwk.CheckUsage(v, jwk.KeyTypeOKP, jwk.UseSignature, jwk.OpSign, a.Name()); err != nil {
		return nil, err
	}
	crv, seed, err := jwk.OKPPrivateKey(v)
	if err != nil {
		return nil, err
	}
	s, err := a.SignerFromSeed(crv, seed)
	if err != nil {
		return nil, err
	}

	// The public half must belong to the private key.
	_, x, _ := jwk.OKPPublicKey(v)
	if !keyutil.SymmetricKeysEqual(x, s.publicKey()) {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "%q does not match %q", jwk.X, jwk.D)
	}

	s.keyID = jwk.KeyIDOf(v)
	return s, nil
}

// VerifierFromPublicKey returns a verifier for a raw public key on the
// given curve.
func (a EdDSAAlgorithm) VerifierFromPublicKey(crv der.Curve, pub []byte) (*EdDSAVerifier, error) {
	switch crv {
	case der.Ed25519:
		if len(pub) != ed25519.PublicKeySize {
			return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid Ed25519 public key length %d", len(pub))
		}
	case der.Ed448:
		if len(pub) != ed448.PublicKeySize {
			return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid Ed448 public key length %d", len(pub))
		}
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported EdDSA curve %q", crv)
	}
	return &EdDSAVerifier{curve: crv, key: append([]byte(nil), pub...)}, nil
}

// VerifierFromKey returns a verifier for an ed25519.PublicKey or
// ed448.PublicKey.
func (a EdDSAAlgorithm) VerifierFromKey(key any) (*EdDSAVerifier, error) {
	switch key := key.(type) {
	case ed25519.PublicKey:
		return a.VerifierFromPublicKey(der.Ed25519, key)
	case ed448.PublicKey:
		return a.VerifierFromPublicKey(der.Ed448, key)
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid EdDSA public key type %T", key)
	}
}

// VerifierFromDER returns a verifier for a SubjectPublicKeyInfo encoded
// Ed25519 or Ed448 key.
func (a EdDSAAlgorithm) VerifierFromDER(input []byte) (*EdDSAVerifier, error) {
	crv, pub, err := der.ParseOKPPublicKey(input)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "failed to parse EdDSA public key: %w", err)
	}
	return a.VerifierFromPublicKey(crv, pub)
}

// VerifierFromPEM returns a verifier for a "PUBLIC KEY" PEM block.
func (a EdDSAAlgorithm) VerifierFromPEM(input []byte) (*EdDSAVerifier, error) {
	label, body, err := keyutil.ParsePEM(input)
	if err != nil {
		return nil, err
	}
	if label != keyutil.LabelPublicKey {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported EdDSA public key PEM label %q", label)
	}
	return a.VerifierFromDER(body)
}

// VerifierFromJWK returns a verifier for an OKP JWK.
func (a EdDSAAlgorithm) VerifierFromJWK(v jwk.Value) (*EdDSAVerifier, error) {
	if err := jwk.CheckUsage(v, jwk.KeyTypeOKP, jwk.UseSignature, jwk.OpVerify, a.Name()); err != nil {
		return nil, err
	}
	crv, pub, err := jwk.OKPPublicKey(v)
	if err != nil {
		return nil, err
	}
	verifier, err := a.VerifierFromPublicKey(crv, pub)
	if err != nil {
		return nil, err
	}
	verifier.keyID = jwk.KeyIDOf(v)
	return verifier, nil
}

// EdDSASigner signs with an Ed25519 or Ed448 private key.
type EdDSASigner struct {
	curve   der.Curve
	ed25519 ed25519.PrivateKey
	ed448   ed448.PrivateKey
	keyID   string
}

func (s *EdDSASigner) Algorithm() Algorithm {
	return EdDSA
}

func (s *EdDSASigner) KeyID() string {
	return s.keyID
}

func (s *EdDSASigner) WithKeyID(kid string) *EdDSASigner {
	c := *s
	c.keyID = kid
	return &c
}

// Curve returns the curve of the signing key.
func (s *EdDSASigner) Curve() der.Curve {
	return s.curve
}

func (s *EdDSASigner) publicKey() []byte {
	if s.curve == der.Ed448 {
		return s.ed448.Public().(ed448.PublicKey)
	}
	return s.ed25519.Public().(ed25519.PublicKey)
}

// PublicKey returns an ed25519.PublicKey or ed448.PublicKey.
func (s *EdDSASigner) PublicKey() any {
	if s.curve == der.Ed448 {
		return s.ed448.Public()
	}
	return s.ed25519.Public()
}

func (s *EdDSASigner) Sign(message []byte) ([]byte, error) {
	if s.curve == der.Ed448 {
		return ed448.Sign(s.ed448, message, ""), nil
	}
	return ed25519.Sign(s.ed25519, message), nil
}

// EdDSAVerifier verifies Ed25519 or Ed448 signatures.
type EdDSAVerifier struct {
	curve der.Curve
	key   []byte
	keyID string
}

func (v *EdDSAVerifier) Algorithm() Algorithm {
	return EdDSA
}

func (v *EdDSAVerifier) KeyID() string {
	return v.keyID
}

func (v *EdDSAVerifier) WithKeyID(kid string) *EdDSAVerifier {
	c := *v
	c.keyID = kid
	return &c
}

func (v *EdDSAVerifier) Curve() der.Curve {
	return v.curve
}

func (v *EdDSAVerifier) Verify(message, signature []byte) error {
	var ok bool
	switch v.curve {
	case der.Ed448:
		ok = len(signature) == ed448.SignatureSize && ed448.Verify(ed448.PublicKey(v.key), message, signature, "")
	default:
		ok = len(signature) == ed25519.SignatureSize && ed25519.Verify(ed25519.PublicKey(v.key), message, signature)
	}
	if !ok {
		return joseerror.New(joseerror.ErrInvalidSignature, "failed to validate EdDSA signature")
	}
	return nil
}
