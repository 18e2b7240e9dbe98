package jws

import (
	"sort"

	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
)

// algorithms is never modified after initialization, so lookups are safe
// for concurrent use.
var algorithms = func() map[jwa.Algorithm]Algorithm {
	m := map[jwa.Algorithm]Algorithm{}
	for _, alg := range []Algorithm{
		HS256, HS384, HS512,
		RS256, RS384, RS512,
		PS256, PS384, PS512,
		ES256, ES384, ES512,
		EdDSA,
	} {
		m[alg.Name()] = alg
	}
	return m
}()

// AlgorithmByName returns the algorithm registered for the given "alg"
// value. Unknown names, including "none", are errors of kind
// [joseerror.ErrUnsupportedAlgorithm].
func AlgorithmByName(name jwa.Algorithm) (Algorithm, error) {
	alg, ok := algorithms[name]
	if !ok {
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWS algorithm %q", name)
	}
	return alg, nil
}

// Algorithms returns the names of all supported algorithms, sorted.
func Algorithms() []jwa.Algorithm {
	names := make([]jwa.Algorithm, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// signer and verifier drop the typed nil a failed constructor returns, so
// callers can compare the result with nil.
func signer(s Signer, err error) (Signer, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func verifier(v Verifier, err error) (Verifier, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SignerFromDER returns a signer for the named algorithm from a DER encoded
// private key. For HMAC algorithms input is the raw shared secret.
func SignerFromDER(name jwa.Algorithm, input []byte) (Signer, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case HMACAlgorithm:
		return signer(a.SignerFromBytes(input))
	case RSASSAAlgorithm:
		return signer(a.SignerFromDER(input))
	case RSAPSSAlgorithm:
		return signer(a.SignerFromDER(input))
	case ECDSAAlgorithm:
		return signer(a.SignerFromDER(input))
	case EdDSAAlgorithm:
		return signer(a.SignerFromDER(input))
	default:
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWS algorithm %q", name)
	}
}

// SignerFromPEM returns a signer for the named algorithm from a PEM encoded
// private key.
func SignerFromPEM(name jwa.Algorithm, input []byte) (Signer, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case RSASSAAlgorithm:
		return signer(a.SignerFromPEM(input))
	case RSAPSSAlgorithm:
		return signer(a.SignerFromPEM(input))
	case ECDSAAlgorithm:
		return signer(a.SignerFromPEM(input))
	case EdDSAAlgorithm:
		return signer(a.SignerFromPEM(input))
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "%s keys have no PEM form", name)
	}
}

// SignerFromJWK returns a signer for the named algorithm from a JWK.
func SignerFromJWK(name jwa.Algorithm, v jwk.Value) (Signer, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case HMACAlgorithm:
		return signer(a.SignerFromJWK(v))
	case RSASSAAlgorithm:
		return signer(a.SignerFromJWK(v))
	case RSAPSSAlgorithm:
		return signer(a.SignerFromJWK(v))
	case ECDSAAlgorithm:
		return signer(a.SignerFromJWK(v))
	case EdDSAAlgorithm:
		return signer(a.SignerFromJWK(v))
	default:
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWS algorithm %q", name)
	}
}

// VerifierFromDER returns a verifier for the named algorithm from a DER
// encoded public key. For HMAC algorithms input is the raw shared secret.
func VerifierFromDER(name jwa.Algorithm, input []byte) (Verifier, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case HMACAlgorithm:
		return verifier(a.VerifierFromBytes(input))
	case RSASSAAlgorithm:
		return verifier(a.VerifierFromDER(input))
	case RSAPSSAlgorithm:
		return verifier(a.VerifierFromDER(input))
	case ECDSAAlgorithm:
		return verifier(a.VerifierFromDER(input))
	case EdDSAAlgorithm:
		return verifier(a.VerifierFromDER(input))
	default:
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWS algorithm %q", name)
	}
}

// VerifierFromPEM returns a verifier for the named algorithm from a PEM
// encoded public key.
func VerifierFromPEM(name jwa.Algorithm, input []byte) (Verifier, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case RSASSAAlgorithm:
		return verifier(a.VerifierFromPEM(input))
	case RSAPSSAlgorithm:
		return verifier(a.VerifierFromPEM(input))
	case ECDSAAlgorithm:
		return verifier(a.VerifierFromPEM(input))
	case EdDSAAlgorithm:
		return verifier(a.VerifierFromPEM(input))
	default:
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "%s keys have no PEM form", name)
	}
}

// VerifierFromJWK returns a verifier for the named algorithm from a JWK.
func VerifierFromJWK(name jwa.Algorithm, v jwk.Value) (Verifier, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case HMACAlgorithm:
		return verifier(a.VerifierFromJWK(v))
	case RSASSAAlgorithm:
		return verifier(a.VerifierFromJWK(v))
	case RSAPSSAlgorithm:
		return verifier(a.VerifierFromJWK(v))
	case ECDSAAlgorithm:
		return verifier(a.VerifierFromJWK(v))
	case EdDSAAlgorithm:
		return verifier(a.VerifierFromJWK(v))
	default:
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWS algorithm %q", name)
	}
}

// SignerWithKeyID returns a copy of s bound to kid.
func SignerWithKeyID(s Signer, kid string) (Signer, error) {
	switch s := s.(type) {
	case *HMACKey:
		return s.WithKeyID(kid), nil
	case *RSASSASigner:
		return s.WithKeyID(kid), nil
	case *RSAPSSSigner:
		return s.WithKeyID(kid), nil
	case *ECDSASigner:
		return s.WithKeyID(kid), nil
	case *EdDSASigner:
		return s.WithKeyID(kid), nil
	default:
		return nil, joseerror.New(joseerror.ErrGeneric, "cannot set key ID on %T", s)
	}
}

// VerifierWithKeyID returns a copy of v bound to kid.
func VerifierWithKeyID(v Verifier, kid string) (Verifier, error) {
	switch v := v.(type) {
	case *HMACKey:
		return v.WithKeyID(kid), nil
	case *RSASSAVerifier:
		return v.WithKeyID(kid), nil
	case *RSAPSSVerifier:
		return v.WithKeyID(kid), nil
	case *ECDSAVerifier:
		return v.WithKeyID(kid), nil
	case *EdDSAVerifier:
		return v.WithKeyID(kid), nil
	default:
		return nil, joseerror.New(joseerror.ErrGeneric, "cannot set key ID on %T", v)
	}
}
