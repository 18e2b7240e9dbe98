package der

import (
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Curve names an OKP curve as it appears in the JWK "crv" parameter.
type Curve string

const (
	Ed25519 Curve = "Ed25519"
	Ed448   Curve = "Ed448"
)

func (c Curve) oid() (asn1.ObjectIdentifier, error) {
	switch c {
	case Ed25519:
		return OIDEd25519, nil
	case Ed448:
		return OIDEd448, nil
	default:
		return nil, fmt.Errorf("%w: unknown OKP curve %q", ErrMalformed, string(c))
	}
}

func curveFromOID(oid asn1.ObjectIdentifier) (Curve, error) {
	switch {
	case oid.Equal(OIDEd25519):
		return Ed25519, nil
	case oid.Equal(OIDEd448):
		return Ed448, nil
	default:
		return "", fmt.Errorf("%w: key algorithm %s is not an OKP curve", ErrMalformed, oid)
	}
}

// WrapOKPPrivateKey returns the PKCS#8 PrivateKeyInfo for an OKP private key
// seed. The seed is held as a CurvePrivateKey OCTET STRING.
func WrapOKPPrivateKey(crv Curve, seed []byte) ([]byte, error) {
	oid, err := crv.oid()
	if err != nil {
		return nil, err
	}
	var b cryptobyte.Builder
	b.AddASN1OctetString(seed)
	inner, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to build OKP private key: %w", err)
	}
	return wrapPKCS8(oid, false, inner)
}

// WrapOKPPublicKey returns the SubjectPublicKeyInfo for an OKP public key.
func WrapOKPPublicKey(crv Curve, pub []byte) ([]byte, error) {
	oid, err := crv.oid()
	if err != nil {
		return nil, err
	}
	return wrapSPKI(oid, false, pub)
}

// ParseOKPPrivateKey returns the curve and seed of an OKP PKCS#8
// PrivateKeyInfo.
func ParseOKPPrivateKey(input []byte) (Curve, []byte, error) {
	oid, params, payload, err := unwrapPKCS8(input)
	if err != nil {
		return "", nil, err
	}
	crv, err := curveFromOID(oid)
	if err != nil {
		return "", nil, err
	}
	if len(params) != 0 {
		return "", nil, fmt.Errorf("%w: OKP algorithm identifier has parameters", ErrMalformed)
	}
	var (
		s    = cryptobyte.String(payload)
		seed []byte
	)
	if !s.ReadASN1Bytes(&seed, cbasn1.OCTET_STRING) || !s.Empty() {
		return "", nil, fmt.Errorf("%w: OKP private key", ErrMalformed)
	}
	return crv, seed, nil
}

// ParseOKPPublicKey returns the curve and public key of an OKP
// SubjectPublicKeyInfo.
func ParseOKPPublicKey(input []byte) (Curve, []byte, error) {
	oid, params, payload, err := unwrapSPKI(input)
	if err != nil {
		return "", nil, err
	}
	crv, err := curveFromOID(oid)
	if err != nil {
		return "", nil, err
	}
	if len(params) != 0 {
		return "", nil, fmt.Errorf("%w: OKP algorithm identifier has parameters", ErrMalformed)
	}
	return crv, payload, nil
}
