package der

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// RSAPrivateKeyParams are the big-endian unsigned integers of a two-prime
// PKCS#1 RSAPrivateKey, named the way JWK names them.
type RSAPrivateKeyParams struct {
	N, E, D, P, Q, DP, DQ, QI []byte
}

// RSAPrivateKey returns the PKCS#1 RSAPrivateKey for params, with the fields
// in their fixed order: version, n, e, d, p, q, dP, dQ, qInv.
func RSAPrivateKey(params RSAPrivateKeyParams) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(0)
		for _, v := range [][]byte{
			params.N, params.E, params.D,
			params.P, params.Q,
			params.DP, params.DQ, params.QI,
		} {
			AddUnsignedInteger(b, v)
		}
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to build PKCS#1 private key: %w", err)
	}
	return der, nil
}

// RSAPublicKey returns the PKCS#1 RSAPublicKey SEQUENCE { n, e }.
func RSAPublicKey(n, e []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		AddUnsignedInteger(b, n)
		AddUnsignedInteger(b, e)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to build PKCS#1 public key: %w", err)
	}
	return der, nil
}

// ParseRSAPrivateKey reads a two-prime PKCS#1 RSAPrivateKey. Integers are
// returned without leading zeros.
func ParseRSAPrivateKey(input []byte) (*RSAPrivateKeyParams, error) {
	var (
		s       = cryptobyte.String(input)
		seq     cryptobyte.String
		version int64
		params  RSAPrivateKeyParams
	)
	if !s.ReadASN1(&seq, cbasn1.SEQUENCE) || !s.Empty() {
		return nil, fmt.Errorf("%w: PKCS#1 private key is not a single SEQUENCE", ErrMalformed)
	}
	if !seq.ReadASN1Integer(&version) {
		return nil, fmt.Errorf("%w: PKCS#1 private key version", ErrMalformed)
	}
	if version != 0 {
		return nil, fmt.Errorf("%w: unsupported PKCS#1 private key version %d", ErrMalformed, version)
	}
	for _, f := range []struct {
		name string
		out  *[]byte
	}{
		{"n", &params.N},
		{"e", &params.E},
		{"d", &params.D},
		{"p", &params.P},
		{"q", &params.Q},
		{"dp", &params.DP},
		{"dq", &params.DQ},
		{"qi", &params.QI},
	} {
		if !seq.ReadASN1Integer(f.out) {
			return nil, fmt.Errorf("%w: PKCS#1 private key field %q", ErrMalformed, f.name)
		}
	}
	if !seq.Empty() {
		return nil, fmt.Errorf("%w: trailing data in PKCS#1 private key", ErrMalformed)
	}
	return &params, nil
}

// ParseRSAPublicKey reads a PKCS#1 RSAPublicKey.
func ParseRSAPublicKey(input []byte) (n, e []byte, err error) {
	var (
		s   = cryptobyte.String(input)
		seq cryptobyte.String
	)
	if !s.ReadASN1(&seq, cbasn1.SEQUENCE) || !s.Empty() {
		return nil, nil, fmt.Errorf("%w: PKCS#1 public key is not a single SEQUENCE", ErrMalformed)
	}
	if !seq.ReadASN1Integer(&n) || !seq.ReadASN1Integer(&e) || !seq.Empty() {
		return nil, nil, fmt.Errorf("%w: PKCS#1 public key fields", ErrMalformed)
	}
	return n, e, nil
}

// WrapPKCS8 wraps a PKCS#1 RSAPrivateKey in a PKCS#8 PrivateKeyInfo.
func WrapPKCS8(pkcs1 []byte) ([]byte, error) {
	return wrapPKCS8(OIDRSAEncryption, true, pkcs1)
}

// WrapSPKI wraps a PKCS#1 RSAPublicKey in a SubjectPublicKeyInfo.
func WrapSPKI(pkcs1 []byte) ([]byte, error) {
	return wrapSPKI(OIDRSAEncryption, true, pkcs1)
}

// UnwrapPKCS8 returns the PKCS#1 RSAPrivateKey held by an RSA PKCS#8
// PrivateKeyInfo.
func UnwrapPKCS8(input []byte) ([]byte, error) {
	oid, params, payload, err := unwrapPKCS8(input)
	if err != nil {
		return nil, err
	}
	if !oid.Equal(OIDRSAEncryption) || !isNullOrAbsent(params) {
		return nil, fmt.Errorf("%w: PKCS#8 key algorithm %s is not rsaEncryption", ErrMalformed, oid)
	}
	return payload, nil
}

// UnwrapSPKI returns the PKCS#1 RSAPublicKey held by an RSA
// SubjectPublicKeyInfo.
func UnwrapSPKI(input []byte) ([]byte, error) {
	oid, params, payload, err := unwrapSPKI(input)
	if err != nil {
		return nil, err
	}
	if !oid.Equal(OIDRSAEncryption) || !isNullOrAbsent(params) {
		return nil, fmt.Errorf("%w: SPKI key algorithm %s is not rsaEncryption", ErrMalformed, oid)
	}
	return payload, nil
}

// IsPKCS8RSA reports whether input is structurally an RSA PKCS#8
// PrivateKeyInfo, as opposed to a bare PKCS#1 RSAPrivateKey.
func IsPKCS8RSA(input []byte) bool {
	_, err := UnwrapPKCS8(input)
	return err == nil
}

// IsSPKIRSA reports whether input is structurally an RSA
// SubjectPublicKeyInfo, as opposed to a bare PKCS#1 RSAPublicKey.
func IsSPKIRSA(input []byte) bool {
	_, err := UnwrapSPKI(input)
	return err == nil
}
