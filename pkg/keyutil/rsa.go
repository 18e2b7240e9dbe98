package keyutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/picatz/josekit/pkg/der"
	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwk"
)

// RSAKeyPair holds an RSA private key, public key, or both, along with an
// optional algorithm name and key ID that are carried into JWK output.
type RSAKeyPair struct {
	private   *rsa.PrivateKey
	public    *rsa.PublicKey
	algorithm string
	keyID     string
}

// GenerateRSAKeyPair returns a new RSA key pair with a modulus of the given
// size in bits, which must be at least [jwk.MinimumRSAModulusBits].
func GenerateRSAKeyPair(bits int) (*RSAKeyPair, error) {
	if bits < jwk.MinimumRSAModulusBits {
		return nil, joseerror.New(joseerror.ErrGeneric, "RSA key size must be at least %d bits, got %d", jwk.MinimumRSAModulusBits, bits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrGeneric, "failed to generate RSA key pair: %w", err)
	}

	return NewRSAKeyPairFromPrivateKey(key), nil
}

// NewRSAKeyPairFromPrivateKey returns a key pair holding key.
func NewRSAKeyPairFromPrivateKey(key *rsa.PrivateKey) *RSAKeyPair {
	return &RSAKeyPair{private: key, public: &key.PublicKey}
}

// NewRSAKeyPairFromPublicKey returns a verification-only key pair.
func NewRSAKeyPairFromPublicKey(key *rsa.PublicKey) *RSAKeyPair {
	return &RSAKeyPair{public: key}
}

// RSAKeyPairFromDER parses a DER encoded RSA key. Private keys may be PKCS#8
// or PKCS#1, and public keys SPKI or PKCS#1; the form is detected from the
// structure of the input.
func RSAKeyPairFromDER(input []byte) (*RSAKeyPair, error) {
	if pkcs1, err := der.UnwrapPKCS8(input); err == nil {
		return rsaKeyPairFromPKCS1Private(pkcs1)
	}
	if pkcs1, err := der.UnwrapSPKI(input); err == nil {
		return rsaKeyPairFromPKCS1Public(pkcs1)
	}
	if _, err := der.ParseRSAPrivateKey(input); err == nil {
		return rsaKeyPairFromPKCS1Private(input)
	}
	if _, _, err := der.ParseRSAPublicKey(input); err == nil {
		return rsaKeyPairFromPKCS1Public(input)
	}
	return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "input is not a DER encoded RSA key")
}

func rsaKeyPairFromPKCS1Private(pkcs1 []byte) (*RSAKeyPair, error) {
	key, err := x509.ParsePKCS1PrivateKey(pkcs1)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "failed to parse RSA private key: %w", err)
	}
	return NewRSAKeyPairFromPrivateKey(key), nil
}

func rsaKeyPairFromPKCS1Public(pkcs1 []byte) (*RSAKeyPair, error) {
	key, err := x509.ParsePKCS1PublicKey(pkcs1)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "failed to parse RSA public key: %w", err)
	}
	return NewRSAKeyPairFromPublicKey(key), nil
}

// RSAKeyPairFromPEM parses a PEM encoded RSA key with one of the labels
// "PRIVATE KEY", "RSA PRIVATE KEY", "PUBLIC KEY" or "RSA PUBLIC KEY".
func RSAKeyPairFromPEM(data []byte) (*RSAKeyPair, error) {
	label, _, err := ParsePEM(data)
	if err != nil {
		return nil, err
	}

	var input []byte
	switch label {
	case LabelPrivateKey, LabelRSAPrivateKey:
		input, err = RSAPrivateKeyDER(data)
	case LabelPublicKey, LabelRSAPublicKey:
		input, err = RSAPublicKeyDER(data)
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported RSA key PEM label %q", label)
	}
	if err != nil {
		return nil, err
	}
	return RSAKeyPairFromDER(input)
}

// RSAKeyPairFromJWK builds a key pair from an RSA JWK. When "d" is present
// all eight private parameters are required and a PKCS#1 RSAPrivateKey is
// built from them; otherwise only "n" and "e" are used. The "alg" and "kid"
// parameters are kept.
func RSAKeyPairFromJWK(v jwk.Value) (*RSAKeyPair, error) {
	if _, err := jwk.RSAPublicKey(v); err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}

	var (
		pair *RSAKeyPair
		err  error
	)

	if _, ok := v[jwk.D]; ok {
		params, perr := jwk.RSAPrivateParameters(v)
		if perr != nil {
			return nil, perr
		}
		pkcs1, perr := der.RSAPrivateKey(*params)
		if perr != nil {
			return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, perr)
		}
		pair, err = rsaKeyPairFromPKCS1Private(pkcs1)
	} else {
		n, e, perr := jwk.RSAPublicParameters(v)
		if perr != nil {
			return nil, perr
		}
		pkcs1, perr := der.RSAPublicKey(n, e)
		if perr != nil {
			return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, perr)
		}
		pair, err = rsaKeyPairFromPKCS1Public(pkcs1)
	}
	if err != nil {
		return nil, err
	}

	if alg, ok := v[jwk.Algorithm].(string); ok {
		pair.algorithm = alg
	}
	pair.keyID = jwk.KeyIDOf(v)

	return pair, nil
}

// PrivateKey returns the private key, or nil for a verification-only pair.
func (p *RSAKeyPair) PrivateKey() *rsa.PrivateKey {
	return p.private
}

// PublicKey returns the public key.
func (p *RSAKeyPair) PublicKey() *rsa.PublicKey {
	return p.public
}

// Bits returns the modulus length in bits.
func (p *RSAKeyPair) Bits() int {
	return p.public.N.BitLen()
}

func (p *RSAKeyPair) Algorithm() string {
	return p.algorithm
}

func (p *RSAKeyPair) SetAlgorithm(alg string) {
	p.algorithm = alg
}

func (p *RSAKeyPair) KeyID() string {
	return p.keyID
}

func (p *RSAKeyPair) SetKeyID(kid string) {
	p.keyID = kid
}

func (p *RSAKeyPair) requirePrivate() error {
	if p.private == nil {
		return joseerror.New(joseerror.ErrInvalidKeyFormat, "RSA key pair has no private key")
	}
	return nil
}

// ToRawPrivateKey returns the PKCS#1 RSAPrivateKey DER encoding.
func (p *RSAKeyPair) ToRawPrivateKey() ([]byte, error) {
	if err := p.requirePrivate(); err != nil {
		return nil, err
	}
	return x509.MarshalPKCS1PrivateKey(p.private), nil
}

// ToRawPublicKey returns the PKCS#1 RSAPublicKey DER encoding.
func (p *RSAKeyPair) ToRawPublicKey() []byte {
	return x509.MarshalPKCS1PublicKey(p.public)
}

// ToDERPrivateKey returns the PKCS#8 DER encoding of the private key.
func (p *RSAKeyPair) ToDERPrivateKey() ([]byte, error) {
	raw, err := p.ToRawPrivateKey()
	if err != nil {
		return nil, err
	}
	return der.WrapPKCS8(raw)
}

// ToDERPublicKey returns the SPKI DER encoding of the public key.
func (p *RSAKeyPair) ToDERPublicKey() ([]byte, error) {
	return der.WrapSPKI(p.ToRawPublicKey())
}

// ToPEMPrivateKey returns the PKCS#8 private key as a "PRIVATE KEY" PEM block.
func (p *RSAKeyPair) ToPEMPrivateKey() ([]byte, error) {
	body, err := p.ToDERPrivateKey()
	if err != nil {
		return nil, err
	}
	return EncodePEM(LabelPrivateKey, body), nil
}

// ToPEMPublicKey returns the SPKI public key as a "PUBLIC KEY" PEM block.
func (p *RSAKeyPair) ToPEMPublicKey() ([]byte, error) {
	body, err := p.ToDERPublicKey()
	if err != nil {
		return nil, err
	}
	return EncodePEM(LabelPublicKey, body), nil
}

// ToTraditionalPEMPrivateKey returns the PKCS#1 private key as an
// "RSA PRIVATE KEY" PEM block.
func (p *RSAKeyPair) ToTraditionalPEMPrivateKey() ([]byte, error) {
	body, err := p.ToRawPrivateKey()
	if err != nil {
		return nil, err
	}
	return EncodePEM(LabelRSAPrivateKey, body), nil
}

// ToTraditionalPEMPublicKey returns the PKCS#1 public key as an
// "RSA PUBLIC KEY" PEM block.
func (p *RSAKeyPair) ToTraditionalPEMPublicKey() []byte {
	return EncodePEM(LabelRSAPublicKey, p.ToRawPublicKey())
}

func (p *RSAKeyPair) decorate(v jwk.Value) jwk.Value {
	if p.algorithm != "" {
		v[jwk.Algorithm] = p.algorithm
	}
	if p.keyID != "" {
		v[jwk.KeyID] = p.keyID
	}
	return v
}

// ToJWKPrivateKey returns the private key as a JWK with all eight RSA
// parameters.
func (p *RSAKeyPair) ToJWKPrivateKey() (jwk.Value, error) {
	if err := p.requirePrivate(); err != nil {
		return nil, err
	}
	v, err := jwk.ValueFromPrivateKey(p.private)
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	return p.decorate(v), nil
}

// ToJWKPublicKey returns the public key as a JWK.
func (p *RSAKeyPair) ToJWKPublicKey() (jwk.Value, error) {
	v, err := jwk.ValueFromPublicKey(p.public)
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	return p.decorate(v), nil
}

func (p *RSAKeyPair) String() string {
	kind := "public"
	if p.private != nil {
		kind = "private"
	}
	return fmt.Sprintf("RSA %d bit %s key", p.Bits(), kind)
}
