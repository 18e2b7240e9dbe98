package der

import (
	"encoding/asn1"
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	// OIDRSAEncryption is rsaEncryption from PKCS#1.
	OIDRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

	// OIDEd25519 and OIDEd448 identify OKP keys, see RFC 8410 Section 3.
	OIDEd25519 = asn1.ObjectIdentifier{1, 3, 101, 112}
	OIDEd448   = asn1.ObjectIdentifier{1, 3, 101, 113}
)

// ErrMalformed is returned when input is not the expected DER structure.
var ErrMalformed = errors.New("der: malformed structure")

// UnsignedInteger returns the content octets of a DER INTEGER holding the
// given big-endian unsigned value: redundant leading zeros are removed and a
// single zero is prepended when the high bit is set, so the value is never
// read back as negative. An empty value encodes zero.
func UnsignedInteger(v []byte) []byte {
	for len(v) > 1 && v[0] == 0 {
		v = v[1:]
	}
	if len(v) == 0 {
		return []byte{0}
	}
	if v[0]&0x80 != 0 {
		out := make([]byte, len(v)+1)
		copy(out[1:], v)
		return out
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

// AddUnsignedInteger appends v as an unsigned DER INTEGER.
func AddUnsignedInteger(b *cryptobyte.Builder, v []byte) {
	b.AddASN1(cbasn1.INTEGER, func(b *cryptobyte.Builder) {
		b.AddBytes(UnsignedInteger(v))
	})
}

func addAlgorithmIdentifier(b *cryptobyte.Builder, oid asn1.ObjectIdentifier, null bool) {
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1ObjectIdentifier(oid)
		if null {
			b.AddASN1NULL()
		}
	})
}

// readAlgorithmIdentifier reads an AlgorithmIdentifier and reports its OID
// and whether parameters were present.
func readAlgorithmIdentifier(s *cryptobyte.String) (asn1.ObjectIdentifier, cryptobyte.String, bool) {
	var (
		algo   cryptobyte.String
		oid    asn1.ObjectIdentifier
		params cryptobyte.String
		tag    cbasn1.Tag
	)
	if !s.ReadASN1(&algo, cbasn1.SEQUENCE) || !algo.ReadASN1ObjectIdentifier(&oid) {
		return nil, nil, false
	}
	if !algo.Empty() {
		if !algo.ReadAnyASN1Element(&params, &tag) || !algo.Empty() {
			return nil, nil, false
		}
	}
	return oid, params, true
}

// isNullOrAbsent accepts an absent parameter or an encoded NULL, which is
// what rsaEncryption requires.
func isNullOrAbsent(params cryptobyte.String) bool {
	return len(params) == 0 || (len(params) == 2 && params[0] == 0x05 && params[1] == 0x00)
}

// wrapPKCS8 returns a PKCS#8 PrivateKeyInfo holding payload as the
// privateKey OCTET STRING.
func wrapPKCS8(oid asn1.ObjectIdentifier, null bool, payload []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(0)
		addAlgorithmIdentifier(b, oid, null)
		b.AddASN1OctetString(payload)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to build PKCS#8 structure: %w", err)
	}
	return der, nil
}

// wrapSPKI returns a SubjectPublicKeyInfo holding payload as the
// subjectPublicKey BIT STRING.
func wrapSPKI(oid asn1.ObjectIdentifier, null bool, payload []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		addAlgorithmIdentifier(b, oid, null)
		b.AddASN1BitString(payload)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to build SPKI structure: %w", err)
	}
	return der, nil
}

// unwrapPKCS8 returns the algorithm OID, parameters and private key payload
// of a PKCS#8 PrivateKeyInfo. Trailing attributes are tolerated.
func unwrapPKCS8(input []byte) (asn1.ObjectIdentifier, cryptobyte.String, []byte, error) {
	var (
		s       = cryptobyte.String(input)
		info    cryptobyte.String
		version int64
		payload []byte
	)
	if !s.ReadASN1(&info, cbasn1.SEQUENCE) || !s.Empty() {
		return nil, nil, nil, fmt.Errorf("%w: PKCS#8 is not a single SEQUENCE", ErrMalformed)
	}
	if !info.ReadASN1Integer(&version) || (version != 0 && version != 1) {
		return nil, nil, nil, fmt.Errorf("%w: PKCS#8 version", ErrMalformed)
	}
	oid, params, ok := readAlgorithmIdentifier(&info)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: PKCS#8 algorithm identifier", ErrMalformed)
	}
	if !info.ReadASN1Bytes(&payload, cbasn1.OCTET_STRING) {
		return nil, nil, nil, fmt.Errorf("%w: PKCS#8 private key", ErrMalformed)
	}
	return oid, params, payload, nil
}

// unwrapSPKI returns the algorithm OID, parameters and public key payload of
// a SubjectPublicKeyInfo.
func unwrapSPKI(input []byte) (asn1.ObjectIdentifier, cryptobyte.String, []byte, error) {
	var (
		s       = cryptobyte.String(input)
		info    cryptobyte.String
		payload []byte
	)
	if !s.ReadASN1(&info, cbasn1.SEQUENCE) || !s.Empty() {
		return nil, nil, nil, fmt.Errorf("%w: SPKI is not a single SEQUENCE", ErrMalformed)
	}
	oid, params, ok := readAlgorithmIdentifier(&info)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: SPKI algorithm identifier", ErrMalformed)
	}
	if !info.ReadASN1BitStringAsBytes(&payload) || !info.Empty() {
		return nil, nil, nil, fmt.Errorf("%w: SPKI public key", ErrMalformed)
	}
	return oid, params, payload, nil
}
