package jwk

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"math"
	"math/big"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/slices"

	"github.com/picatz/josekit/pkg/base64"
	"github.com/picatz/josekit/pkg/der"
	"github.com/picatz/josekit/pkg/joseerror"
)

// https://datatracker.ietf.org/doc/html/rfc7517#section-4
type (
	ParamaterName = string

	RSA       = ParamaterName
	ECDSA     = ParamaterName
	Symmetric = ParamaterName
)

const (
	KeyType              ParamaterName = "kty"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.1
	PublicKeyUse         ParamaterName = "use"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.2
	KeyOperations        ParamaterName = "key_ops"  // https://datatracker.ietf.org/doc/html/rfc7517#section-4.3
	Algorithm            ParamaterName = "alg"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.4
	KeyID                ParamaterName = "kid"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.5
	X509URL              ParamaterName = "x5u"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.6
	X509CertificateChain ParamaterName = "x5c"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.7
	X509SHA1Thumbprint   ParamaterName = "x5t"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.8
	X509SHA256Thumbprint ParamaterName = "x5t#S256" // https://datatracker.ietf.org/doc/html/rfc7517#section-4.9

	// K is the symmetric key value within a JWK.
	// https://datatracker.ietf.org/doc/html/rfc7517#appendix-A.3
	K Symmetric = "k"

	// Curve is the curve value within an ECDSA or OKP JWK, such as "P-256"
	// or "Ed25519".
	// https://datatracker.ietf.org/doc/html/rfc7518#section-6.2.1.1
	Curve ECDSA = "crv"
	X     ECDSA = "x" // X is the x-coordinate for the elliptic curve point, or the OKP public key.
	Y     ECDSA = "y" // Y is the y-coordinate for the elliptic curve point.

	// https://datatracker.ietf.org/doc/html/rfc7518#section-6.3
	N  RSA = "n"  // N is the RSA public modulus value.
	E  RSA = "e"  // E is the RSA public exponent value.
	D  RSA = "d"  // D is the RSA private exponent value, or the EC/OKP private key.
	P  RSA = "p"  // P is the first prime factor.
	Q  RSA = "q"  // Q is the second prime factor.
	DP RSA = "dp" // DP is the first factor CRT exponent.
	DQ RSA = "dq" // DQ is the second factor CRT exponent.
	QI RSA = "qi" // QI is the first CRT coefficient.
)

// Key types.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-6.1
const (
	KeyTypeEC  = "EC"
	KeyTypeRSA = "RSA"
	KeyTypeOct = "oct"
	KeyTypeOKP = "OKP" // https://datatracker.ietf.org/doc/html/rfc8037#section-2
)

// Public key use values.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-4.2
const (
	UseSignature  = "sig"
	UseEncryption = "enc"
)

// Key operation values.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-4.3
const (
	OpSign       = "sign"
	OpVerify     = "verify"
	OpEncrypt    = "encrypt"
	OpDecrypt    = "decrypt"
	OpWrapKey    = "wrapKey"
	OpUnwrapKey  = "unwrapKey"
	OpDeriveKey  = "deriveKey"
	OpDeriveBits = "deriveBits"
)

// MinimumRSAModulusBits is the smallest RSA modulus accepted for any
// operation.
const MinimumRSAModulusBits = 2048

// Values is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-4
type Value = map[ParamaterName]any

// Validate checks that the required parameters are present for
// the given key type, and that the values are valid. Every problem
// found is reported, and the error is of kind
// [joseerror.ErrInvalidJWKFormat].
func Validate(v Value) error {
	var result *multierror.Error

	kty, err := stringParameter(v, KeyType, true)
	if err != nil {
		return joseerror.Wrap(joseerror.ErrInvalidJWKFormat, err)
	}

	for _, name := range []ParamaterName{PublicKeyUse, Algorithm, KeyID, X509URL} {
		if _, err := stringParameter(v, name, false); err != nil {
			result = multierror.Append(result, err)
		}
	}

	for _, name := range []ParamaterName{KeyOperations, X509CertificateChain} {
		if raw, ok := v[name]; ok {
			if _, ok := StringArray(raw); !ok {
				result = multierror.Append(result, fmt.Errorf("invalid type %T for %q", raw, name))
			}
		}
	}

	for _, name := range []ParamaterName{X509SHA1Thumbprint, X509SHA256Thumbprint} {
		if err := checkBase64(v, name, false); err != nil {
			result = multierror.Append(result, err)
		}
	}

	var required, optional []ParamaterName

	switch kty {
	case KeyTypeEC:
		crv, err := stringParameter(v, Curve, true)
		if err != nil {
			result = multierror.Append(result, err)
		} else if _, err := curve(crv); err != nil {
			result = multierror.Append(result, err)
		}
		required = []ParamaterName{X, Y}
		optional = []ParamaterName{D}
	case KeyTypeOKP:
		crv, err := stringParameter(v, Curve, true)
		if err != nil {
			result = multierror.Append(result, err)
		} else if !slices.Contains([]string{"Ed25519", "Ed448", "X25519", "X448"}, crv) {
			result = multierror.Append(result, fmt.Errorf("invalid curve %q", crv))
		}
		required = []ParamaterName{X}
		optional = []ParamaterName{D}
	case KeyTypeRSA:
		required = []ParamaterName{N, E}
		optional = []ParamaterName{D, P, Q, DP, DQ, QI}
	case KeyTypeOct:
		required = []ParamaterName{K}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown key type %q", kty))
	}

	for _, name := range required {
		if err := checkBase64(v, name, true); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, name := range optional {
		if err := checkBase64(v, name, false); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return joseerror.Wrap(joseerror.ErrInvalidJWKFormat, err)
	}
	return nil
}

// StringArray returns raw as a list of strings, accepting both []string and
// the []any produced by encoding/json.
func StringArray(raw any) ([]string, bool) {
	switch raw := raw.(type) {
	case []string:
		return raw, true
	case []any:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func stringParameter(v Value, name ParamaterName, required bool) (string, error) {
	raw, ok := v[name]
	if !ok {
		if required {
			return "", fmt.Errorf("missing required paramater %q", name)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("invalid type %T for %q", raw, name)
	}
	return s, nil
}

func checkBase64(v Value, name ParamaterName, required bool) error {
	if _, ok := v[name]; !ok && !required {
		return nil
	}
	s, err := stringParameter(v, name, true)
	if err != nil {
		return err
	}
	if _, err := base64.Decode(s); err != nil {
		return fmt.Errorf("invalid base64 encoding for %q: %w", name, err)
	}
	return nil
}

// Parameter returns the decoded value of the named base64url parameter.
// A missing, non-string, empty or undecodable value is an error of kind
// [joseerror.ErrInvalidKeyFormat] naming the parameter.
func Parameter(v Value, name ParamaterName) ([]byte, error) {
	s, err := stringParameter(v, name, true)
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	b, err := base64.Decode(s)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid base64 encoding for %q: %w", name, err)
	}
	if len(b) == 0 {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "empty value for %q", name)
	}
	return b, nil
}

// CheckUsage reports whether v may be used as a key of type kty for the
// given operation of the named algorithm: "kty" must equal kty, "use" (if
// present) must equal use, "key_ops" (if present) must contain op, and
// "alg" (if present) must equal alg. Violations are of kind
// [joseerror.ErrInvalidKeyFormat].
func CheckUsage(v Value, kty, use, op, alg string) error {
	got, err := stringParameter(v, KeyType, true)
	if err != nil {
		return joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	if got != kty {
		return joseerror.New(joseerror.ErrInvalidKeyFormat, "key type must be %q, got %q", kty, got)
	}

	if raw, ok := v[PublicKeyUse]; ok {
		got, ok := raw.(string)
		if !ok {
			return joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid type %T for %q", raw, PublicKeyUse)
		}
		if got != use {
			return joseerror.New(joseerror.ErrInvalidKeyFormat, "key use must be %q, got %q", use, got)
		}
	}

	if raw, ok := v[KeyOperations]; ok {
		ops, ok := StringArray(raw)
		if !ok {
			return joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid type %T for %q", raw, KeyOperations)
		}
		if !slices.Contains(ops, op) {
			return joseerror.New(joseerror.ErrInvalidKeyFormat, "key operations %q do not include %q", ops, op)
		}
	}

	if raw, ok := v[Algorithm]; ok {
		got, ok := raw.(string)
		if !ok {
			return joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid type %T for %q", raw, Algorithm)
		}
		if got != alg {
			return joseerror.New(joseerror.ErrInvalidKeyFormat, "key algorithm must be %q, got %q", alg, got)
		}
	}

	return nil
}

// KeyIDOf returns the "kid" of v, or the empty string.
func KeyIDOf(v Value) string {
	kid, _ := v[KeyID].(string)
	return kid
}

// RSAPublicParameters returns the decoded modulus and exponent of an RSA
// JWK.
func RSAPublicParameters(v Value) (n, e []byte, err error) {
	if v[KeyType] != KeyTypeRSA {
		err = joseerror.New(joseerror.ErrInvalidKeyFormat, "JWK value is not RSA")
		return
	}
	if n, err = Parameter(v, N); err != nil {
		return
	}
	e, err = Parameter(v, E)
	return
}

// RSAPrivateParameters returns the nine decoded parameters of an RSA
// private JWK.
func RSAPrivateParameters(v Value) (*der.RSAPrivateKeyParams, error) {
	n, e, err := RSAPublicParameters(v)
	if err != nil {
		return nil, err
	}

	params := &der.RSAPrivateKeyParams{N: n, E: e}
	for _, f := range []struct {
		name ParamaterName
		out  *[]byte
	}{
		{D, &params.D},
		{P, &params.P},
		{Q, &params.Q},
		{DP, &params.DP},
		{DQ, &params.DQ},
		{QI, &params.QI},
	} {
		if *f.out, err = Parameter(v, f.name); err != nil {
			return nil, err
		}
	}
	return params, nil
}

// RSAPublicKey returns the RSA public key, or an error if the key is not a
// valid RSA public key. The modulus must be at least
// [MinimumRSAModulusBits] long and the exponent an integer in (1, 2^31).
func RSAPublicKey(v Value) (*rsa.PublicKey, error) {
	nBytes, eBytes, err := RSAPublicParameters(v)
	if err != nil {
		return nil, fmt.Errorf("failed to get RSA public key: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	if n.BitLen() < MinimumRSAModulusBits {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "RSA modulus too small: %d bits, want at least %d", n.BitLen(), MinimumRSAModulusBits)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 1 || e.Int64() > math.MaxInt32 {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid RSA public exponent %s", e)
	}

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func curve(crv string) (elliptic.Curve, error) {
	switch crv {
	case "P-256":
		return elliptic.P256(), nil
	case "P-384":
		return elliptic.P384(), nil
	case "P-521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("invalid curve %q", crv)
	}
}

func curveName(c elliptic.Curve) (string, error) {
	switch c {
	case elliptic.P256():
		return "P-256", nil
	case elliptic.P384():
		return "P-384", nil
	case elliptic.P521():
		return "P-521", nil
	default:
		return "", fmt.Errorf("invalid curve %v used for JWK value", c.Params().Name)
	}
}

// ECDSAPublicKey returns the ECDSA public key, or an error if the key is not
// a valid ECDSA public key on a supported curve.
func ECDSAPublicKey(v Value) (*ecdsa.PublicKey, error) {
	if v[KeyType] != KeyTypeEC {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "JWK value is not EC")
	}

	crv, err := stringParameter(v, Curve, true)
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	c, err := curve(crv)
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}

	x, err := Parameter(v, X)
	if err != nil {
		return nil, err
	}
	y, err := Parameter(v, Y)
	if err != nil {
		return nil, err
	}

	size := (c.Params().BitSize + 7) / 8
	if len(x) != size || len(y) != size {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid %s coordinate length", crv)
	}

	pkey := &ecdsa.PublicKey{
		Curve: c,
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}

	if _, err := pkey.ECDH(); err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid %s point: %w", crv, err)
	}

	return pkey, nil
}

// ECDSAPrivateKey returns the ECDSA private key held by v.
func ECDSAPrivateKey(v Value) (*ecdsa.PrivateKey, error) {
	pub, err := ECDSAPublicKey(v)
	if err != nil {
		return nil, err
	}

	d, err := Parameter(v, D)
	if err != nil {
		return nil, err
	}

	size := (pub.Curve.Params().BitSize + 7) / 8
	if len(d) != size {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid private key length %d", len(d))
	}

	priv := &ecdsa.PrivateKey{PublicKey: *pub, D: new(big.Int).SetBytes(d)}

	x, y := pub.Curve.ScalarBaseMult(d)
	if x.Cmp(pub.X) != 0 || y.Cmp(pub.Y) != 0 {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "private key does not match public key")
	}

	return priv, nil
}

func okpSize(crv string) (public, private int, err error) {
	switch der.Curve(crv) {
	case der.Ed25519:
		return ed25519.PublicKeySize, ed25519.SeedSize, nil
	case der.Ed448:
		return ed448.PublicKeySize, ed448.SeedSize, nil
	default:
		return 0, 0, fmt.Errorf("unsupported OKP curve %q", crv)
	}
}

// OKPPublicKey returns the curve and raw public key of an Ed25519 or Ed448
// JWK.
func OKPPublicKey(v Value) (der.Curve, []byte, error) {
	if v[KeyType] != KeyTypeOKP {
		return "", nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "JWK value is not OKP")
	}

	crv, err := stringParameter(v, Curve, true)
	if err != nil {
		return "", nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}
	pubSize, _, err := okpSize(crv)
	if err != nil {
		return "", nil, joseerror.Wrap(joseerror.ErrInvalidKeyFormat, err)
	}

	x, err := Parameter(v, X)
	if err != nil {
		return "", nil, err
	}

	// check the length of the key to make sure it matches the curve
	if len(x) != pubSize {
		return "", nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid %s public key length: %d", crv, len(x))
	}

	return der.Curve(crv), x, nil
}

// OKPPrivateKey returns the curve and private key seed of an Ed25519 or
// Ed448 JWK.
func OKPPrivateKey(v Value) (der.Curve, []byte, error) {
	crv, _, err := OKPPublicKey(v)
	if err != nil {
		return "", nil, err
	}
	_, seedSize, _ := okpSize(string(crv))

	d, err := Parameter(v, D)
	if err != nil {
		return "", nil, err
	}
	if len(d) != seedSize {
		return "", nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "invalid %s private key length: %d", crv, len(d))
	}
	return crv, d, nil
}

// Ed25519PublicKey returns the Ed25519 public key, or an error if the
// key is not an Ed25519 public key.
func Ed25519PublicKey(v Value) (ed25519.PublicKey, error) {
	crv, x, err := OKPPublicKey(v)
	if err != nil {
		return nil, err
	}
	if crv != der.Ed25519 {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "JWK value is not Ed25519")
	}
	return ed25519.PublicKey(x), nil
}

// SymmetricKey returns the decoded symmetric key of an "oct" JWK.
func SymmetricKey(v Value) ([]byte, error) {
	if v[KeyType] != KeyTypeOct {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "JWK value is not a symmetric key")
	}
	k, err := Parameter(v, K)
	if err != nil {
		return nil, fmt.Errorf("no symmetric key value set: %w", err)
	}
	return k, nil
}

// ValueFromSymmetricKey returns an "oct" JWK value for the given key.
func ValueFromSymmetricKey(key []byte) Value {
	return Value{
		KeyType: KeyTypeOct,
		K:       base64.Encode(key),
	}
}

func fixedWidth(i *big.Int, size int) string {
	return base64.Encode(i.FillBytes(make([]byte, size)))
}

// ValueFromPublicKey returns a JWK value from the given public key.
func ValueFromPublicKey(pubKey any) (Value, error) {
	switch pubKey := pubKey.(type) {
	case *rsa.PublicKey:
		return Value{
			KeyType: KeyTypeRSA,
			N:       base64.Encode(pubKey.N.Bytes()),
			E:       base64.Encode(big.NewInt(int64(pubKey.E)).Bytes()),
		}, nil
	case *ecdsa.PublicKey:
		crv, err := curveName(pubKey.Curve)
		if err != nil {
			return nil, err
		}
		size := (pubKey.Curve.Params().BitSize + 7) / 8
		return Value{
			KeyType: KeyTypeEC,
			Curve:   crv,
			X:       fixedWidth(pubKey.X, size),
			Y:       fixedWidth(pubKey.Y, size),
		}, nil
	case ed25519.PublicKey:
		return Value{
			KeyType: KeyTypeOKP,
			Curve:   string(der.Ed25519),
			X:       base64.Encode(pubKey),
		}, nil
	case ed448.PublicKey:
		return Value{
			KeyType: KeyTypeOKP,
			Curve:   string(der.Ed448),
			X:       base64.Encode(pubKey),
		}, nil
	default:
		return nil, fmt.Errorf("invalid type %T used for JWK value", pubKey)
	}
}

// ValueFromPrivateKey returns a JWK value holding both halves of the given
// private key.
func ValueFromPrivateKey(privKey any) (Value, error) {
	switch privKey := privKey.(type) {
	case *rsa.PrivateKey:
		if len(privKey.Primes) != 2 {
			return nil, fmt.Errorf("multi-prime RSA keys are not supported")
		}
		privKey.Precompute()
		value, err := ValueFromPublicKey(&privKey.PublicKey)
		if err != nil {
			return nil, err
		}
		value[D] = base64.Encode(privKey.D.Bytes())
		value[P] = base64.Encode(privKey.Primes[0].Bytes())
		value[Q] = base64.Encode(privKey.Primes[1].Bytes())
		value[DP] = base64.Encode(privKey.Precomputed.Dp.Bytes())
		value[DQ] = base64.Encode(privKey.Precomputed.Dq.Bytes())
		value[QI] = base64.Encode(privKey.Precomputed.Qinv.Bytes())
		return value, nil
	case *ecdsa.PrivateKey:
		value, err := ValueFromPublicKey(&privKey.PublicKey)
		if err != nil {
			return nil, err
		}
		value[D] = fixedWidth(privKey.D, (privKey.Curve.Params().BitSize+7)/8)
		return value, nil
	case ed25519.PrivateKey:
		value, err := ValueFromPublicKey(privKey.Public())
		if err != nil {
			return nil, err
		}
		value[D] = base64.Encode(privKey.Seed())
		return value, nil
	case ed448.PrivateKey:
		value, err := ValueFromPublicKey(privKey.Public())
		if err != nil {
			return nil, err
		}
		value[D] = base64.Encode(privKey.Seed())
		return value, nil
	default:
		return nil, fmt.Errorf("invalid type %T used for JWK value", privKey)
	}
}
