package keyutil

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed448"

	"github.com/picatz/josekit/pkg/der"
	"github.com/picatz/josekit/pkg/joseerror"
)

// SymmetricKeysEqual checks if the given keys are the same.
func SymmetricKeysEqual(key1 []byte, key2 []byte) bool {
	return subtle.ConstantTimeCompare(key1, key2) == 1
}

// NewSymmetricKey generates a new symmetric key of the given size.
func NewSymmetricKey(size int) ([]byte, error) {
	key := make([]byte, size)

	_, err := rand.Read(key)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new symmetic key: %w", err)
	}

	return key, nil
}

// ParsePrivateKey parses the PEM encoded private key from the given reader.
// The result is one of *rsa.PrivateKey, *ecdsa.PrivateKey,
// ed25519.PrivateKey or ed448.PrivateKey.
func ParsePrivateKey(r io.Reader) (any, error) {
	keyBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from reader: %w", err)
	}

	label, block, err := ParsePEM(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key PEM block: %w", err)
	}

	switch label {
	case LabelRSAPrivateKey:
		return x509.ParsePKCS1PrivateKey(block)
	case LabelECPrivateKey:
		return x509.ParseECPrivateKey(block)
	case LabelPrivateKey:
		if crv, seed, err := der.ParseOKPPrivateKey(block); err == nil {
			return okpPrivateKey(crv, seed)
		}
		return x509.ParsePKCS8PrivateKey(block)
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported private key PEM label %q", label)
	}
}

// ParsePublicKey parses the PEM encoded public key from the given reader.
// The result is one of *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey
// or ed448.PublicKey. A certificate yields its subject public key.
func ParsePublicKey(r io.Reader) (any, error) {
	keyBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key from reader: %w", err)
	}

	label, block, err := ParsePEM(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key PEM block: %w", err)
	}

	switch label {
	case LabelRSAPublicKey:
		return x509.ParsePKCS1PublicKey(block)
	case LabelPublicKey:
		if crv, pub, err := der.ParseOKPPublicKey(block); err == nil {
			return okpPublicKey(crv, pub)
		}
		return x509.ParsePKIXPublicKey(block)
	case LabelCertificate:
		cert, err := x509.ParseCertificate(block)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		return cert.PublicKey, nil
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported public key PEM label %q", label)
	}
}

func okpPrivateKey(crv der.Curve, seed []byte) (any, error) {
	switch crv {
	case der.Ed25519:
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("invalid EdDSA seed length: %d", len(seed))
		}
		return ed25519.NewKeyFromSeed(seed), nil
	case der.Ed448:
		if len(seed) != ed448.SeedSize {
			return nil, fmt.Errorf("invalid Ed448 seed length: %d", len(seed))
		}
		return ed448.NewKeyFromSeed(seed), nil
	default:
		return nil, fmt.Errorf("unsupported OKP curve %q", crv)
	}
}

func okpPublicKey(crv der.Curve, pub []byte) (any, error) {
	switch crv {
	case der.Ed25519:
		if len(pub) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid EdDSA public key length: %d", len(pub))
		}
		return ed25519.PublicKey(pub), nil
	case der.Ed448:
		if len(pub) != ed448.PublicKeySize {
			return nil, fmt.Errorf("invalid Ed448 public key length: %d", len(pub))
		}
		return ed448.PublicKey(pub), nil
	default:
		return nil, fmt.Errorf("unsupported OKP curve %q", crv)
	}
}

// MarshalPrivateKey returns the PKCS#8 DER encoding of the given private
// key, including Ed448 keys.
func MarshalPrivateKey(key any) ([]byte, error) {
	switch key := key.(type) {
	case ed448.PrivateKey:
		return der.WrapOKPPrivateKey(der.Ed448, key.Seed())
	case ed25519.PrivateKey:
		return der.WrapOKPPrivateKey(der.Ed25519, key.Seed())
	default:
		return x509.MarshalPKCS8PrivateKey(key)
	}
}

// MarshalPublicKey returns the SPKI DER encoding of the given public key,
// including Ed448 keys.
func MarshalPublicKey(key any) ([]byte, error) {
	switch key := key.(type) {
	case ed448.PublicKey:
		return der.WrapOKPPublicKey(der.Ed448, key)
	case ed25519.PublicKey:
		return der.WrapOKPPublicKey(der.Ed25519, key)
	default:
		return x509.MarshalPKIXPublicKey(key)
	}
}

// NewRSAKeyPair returns a new 2048 bit RSA key pair, or an error if one occurs.
func NewRSAKeyPair() (*rsa.PublicKey, *rsa.PrivateKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate new RSA key pair: %w", err)
	}

	return &privateKey.PublicKey, privateKey, nil
}

// NewECDSAKeyPair returns a new ECDSA key pair on the given curve, or P-256
// when curve is nil.
func NewECDSAKeyPair(curve elliptic.Curve) (*ecdsa.PublicKey, *ecdsa.PrivateKey, error) {
	if curve == nil {
		curve = elliptic.P256()
	}

	privateKey, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate new ECDSA key pair: %w", err)
	}

	return &privateKey.PublicKey, privateKey, nil
}

// NewEdDSAKeyPair returns a new Ed25519 key pair, or an error if one occurs.
func NewEdDSAKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate new EdDSA key pair: %w", err)
	}

	return publicKey, privateKey, nil
}

// NewEd448KeyPair returns a new Ed448 key pair, or an error if one occurs.
func NewEd448KeyPair() (ed448.PublicKey, ed448.PrivateKey, error) {
	publicKey, privateKey, err := ed448.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate new Ed448 key pair: %w", err)
	}

	return publicKey, privateKey, nil
}
