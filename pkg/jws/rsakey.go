package jws

import (
	"crypto/rsa"

	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwk"
	"github.com/picatz/josekit/pkg/keyutil"
)

// checkRSAKey enforces the minimum modulus size for every RSA key accepted
// by this package.
func checkRSAKey(pub *rsa.PublicKey) error {
	if pub == nil || pub.N == nil {
		return joseerror.New(joseerror.ErrInvalidKeyFormat, "no RSA key")
	}
	if bits := pub.N.BitLen(); bits < jwk.MinimumRSAModulusBits {
		return joseerror.New(joseerror.ErrInvalidKeyFormat, "RSA key length must be %d bits or more, got %d", jwk.MinimumRSAModulusBits, bits)
	}
	return nil
}

func rsaSigningKey(pair *keyutil.RSAKeyPair, err error) (*rsa.PrivateKey, error) {
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	if pair.PrivateKey() == nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "RSA private key required")
	}
	if err := checkRSAKey(pair.PublicKey()); err != nil {
		return nil, err
	}
	return pair.PrivateKey(), nil
}

func rsaVerifyingKey(pair *keyutil.RSAKeyPair, err error) (*rsa.PublicKey, error) {
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	if err := checkRSAKey(pair.PublicKey()); err != nil {
		return nil, err
	}
	return pair.PublicKey(), nil
}

// rsaSigningKeyFromDER accepts a PKCS#8 PrivateKeyInfo or a PKCS#1
// RSAPrivateKey.
func rsaSigningKeyFromDER(input []byte) (*rsa.PrivateKey, error) {
	pkcs8, err := keyutil.NormalizeRSAPrivateKeyDER(input)
	if err != nil {
		return nil, err
	}
	return rsaSigningKey(keyutil.RSAKeyPairFromDER(pkcs8))
}

// rsaSigningKeyFromPEM accepts "PRIVATE KEY" and "RSA PRIVATE KEY" blocks.
func rsaSigningKeyFromPEM(input []byte) (*rsa.PrivateKey, error) {
	pkcs8, err := keyutil.RSAPrivateKeyDER(input)
	if err != nil {
		return nil, err
	}
	return rsaSigningKey(keyutil.RSAKeyPairFromDER(pkcs8))
}

func rsaSigningKeyFromJWK(v jwk.Value, alg string) (*rsa.PrivateKey, string, error) {
	if err := jwk.CheckUsage(v, jwk.KeyTypeRSA, jwk.UseSignature, jwk.OpSign, alg); err != nil {
		return nil, "", err
	}
	if _, err := jwk.Parameter(v, jwk.D); err != nil {
		return nil, "", err
	}
	key, err := rsaSigningKey(keyutil.RSAKeyPairFromJWK(v))
	if err != nil {
		return nil, "", err
	}
	return key, jwk.KeyIDOf(v), nil
}

// rsaVerifyingKeyFromDER accepts a SubjectPublicKeyInfo or a PKCS#1
// RSAPublicKey.
func rsaVerifyingKeyFromDER(input []byte) (*rsa.PublicKey, error) {
	spki, err := keyutil.NormalizeRSAPublicKeyDER(input)
	if err != nil {
		return nil, err
	}
	return rsaVerifyingKey(keyutil.RSAKeyPairFromDER(spki))
}

// rsaVerifyingKeyFromPEM accepts "PUBLIC KEY" and "RSA PUBLIC KEY" blocks.
func rsaVerifyingKeyFromPEM(input []byte) (*rsa.PublicKey, error) {
	spki, err := keyutil.RSAPublicKeyDER(input)
	if err != nil {
		return nil, err
	}
	return rsaVerifyingKey(keyutil.RSAKeyPairFromDER(spki))
}

func rsaVerifyingKeyFromJWK(v jwk.Value, alg string) (*rsa.PublicKey, string, error) {
	if err := jwk.CheckUsage(v, jwk.KeyTypeRSA, jwk.UseSignature, jwk.OpVerify, alg); err != nil {
		return nil, "", err
	}
	if _, _, err := jwk.RSAPublicParameters(v); err != nil {
		return nil, "", err
	}
	// Only the public half is needed, even if v is a private key.
	public := jwk.Value{jwk.KeyType: jwk.KeyTypeRSA, jwk.N: v[jwk.N], jwk.E: v[jwk.E]}
	key, err := rsaVerifyingKey(keyutil.RSAKeyPairFromJWK(public))
	if err != nil {
		return nil, "", err
	}
	return key, jwk.KeyIDOf(v), nil
}
