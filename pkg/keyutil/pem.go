package keyutil

import (
	"bytes"
	"encoding/pem"

	"github.com/picatz/josekit/pkg/der"
	"github.com/picatz/josekit/pkg/joseerror"
)

// PEM labels.
//
// https://datatracker.ietf.org/doc/html/rfc7468
const (
	LabelPrivateKey    = "PRIVATE KEY"
	LabelPublicKey     = "PUBLIC KEY"
	LabelRSAPrivateKey = "RSA PRIVATE KEY"
	LabelRSAPublicKey  = "RSA PUBLIC KEY"
	LabelECPrivateKey  = "EC PRIVATE KEY"
	LabelCertificate   = "CERTIFICATE"
)

// ParsePEM returns the label and DER body of the first PEM block in data.
func ParsePEM(data []byte) (label string, body []byte, err error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return "", nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "no PEM block found")
	}
	return block.Type, block.Bytes, nil
}

// EncodePEM returns body framed as a PEM block with the given label.
func EncodePEM(label string, body []byte) []byte {
	buf := bytes.NewBuffer(nil)
	// Encoding to a bytes.Buffer with a header-free block cannot fail.
	_ = pem.Encode(buf, &pem.Block{Type: label, Bytes: body})
	return buf.Bytes()
}

// RSAPrivateKeyDER returns the PKCS#8 DER form of a PEM encoded RSA private
// key. A "PRIVATE KEY" block must already hold an RSA PKCS#8 structure, an
// "RSA PRIVATE KEY" block holds PKCS#1 and is wrapped; any other label is an
// error of kind [joseerror.ErrInvalidKeyFormat].
func RSAPrivateKeyDER(data []byte) ([]byte, error) {
	label, body, err := ParsePEM(data)
	if err != nil {
		return nil, err
	}

	switch label {
	case LabelPrivateKey:
		if !der.IsPKCS8RSA(body) {
			return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "%q PEM block is not an RSA PKCS#8 key", label)
		}
		return body, nil
	case LabelRSAPrivateKey:
		return NormalizeRSAPrivateKeyDER(body)
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported RSA private key PEM label %q", label)
	}
}

// RSAPublicKeyDER returns the SPKI DER form of a PEM encoded RSA public key,
// accepting the "PUBLIC KEY" and "RSA PUBLIC KEY" labels.
func RSAPublicKeyDER(data []byte) ([]byte, error) {
	label, body, err := ParsePEM(data)
	if err != nil {
		return nil, err
	}

	switch label {
	case LabelPublicKey:
		if !der.IsSPKIRSA(body) {
			return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "%q PEM block is not an RSA SPKI key", label)
		}
		return body, nil
	case LabelRSAPublicKey:
		return NormalizeRSAPublicKeyDER(body)
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "unsupported RSA public key PEM label %q", label)
	}
}

// NormalizeRSAPrivateKeyDER returns input unchanged when it is already an
// RSA PKCS#8 structure, and otherwise wraps it as one after checking that
// it is a PKCS#1 RSAPrivateKey.
func NormalizeRSAPrivateKeyDER(input []byte) ([]byte, error) {
	if der.IsPKCS8RSA(input) {
		return input, nil
	}
	if _, err := der.ParseRSAPrivateKey(input); err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	out, err := der.WrapPKCS8(input)
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	return out, nil
}

// NormalizeRSAPublicKeyDER returns input unchanged when it is already an RSA
// SPKI structure, and otherwise wraps it as one after checking that it is a
// PKCS#1 RSAPublicKey.
func NormalizeRSAPublicKeyDER(input []byte) ([]byte, error) {
	if der.IsSPKIRSA(input) {
		return input, nil
	}
	if _, _, err := der.ParseRSAPublicKey(input); err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	out, err := der.WrapSPKI(input)
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	return out, nil
}
