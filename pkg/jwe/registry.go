package jwe

import (
	"sort"

	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
)

var algorithms = func() map[jwa.Algorithm]Algorithm {
	m := map[jwa.Algorithm]Algorithm{}
	for _, alg := range []Algorithm{
		A128KW, A192KW, A256KW,
		PBES2HS256A128KW, PBES2HS384A192KW, PBES2HS512A256KW,
	} {
		m[alg.Name()] = alg
	}
	return m
}()

// AlgorithmByName returns the key management algorithm for an "alg"
// value, or an error of kind [joseerror.ErrUnsupportedAlgorithm].
func AlgorithmByName(name jwa.Algorithm) (Algorithm, error) {
	alg, ok := algorithms[name]
	if !ok {
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWE algorithm %q", name)
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

func encrypter(e Encrypter, err error) (Encrypter, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

func decrypter(d Decrypter, err error) (Decrypter, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}

// EncrypterFromBytes returns an encrypter for the named algorithm. The key
// is the AES key encryption key or the PBES2 password.
func EncrypterFromBytes(name jwa.Algorithm, key []byte) (Encrypter, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case AESKWAlgorithm:
		return encrypter(a.EncrypterFromBytes(key))
	case PBES2Algorithm:
		return encrypter(a.EncrypterFromBytes(key))
	default:
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWE algorithm %q", name)
	}
}

func EncrypterFromJWK(name jwa.Algorithm, v jwk.Value) (Encrypter, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case AESKWAlgorithm:
		return encrypter(a.EncrypterFromJWK(v))
	case PBES2Algorithm:
		return encrypter(a.EncrypterFromJWK(v))
	default:
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWE algorithm %q", name)
	}
}

func DecrypterFromBytes(name jwa.Algorithm, key []byte) (Decrypter, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case AESKWAlgorithm:
		return decrypter(a.DecrypterFromBytes(key))
	case PBES2Algorithm:
		return decrypter(a.DecrypterFromBytes(key))
	default:
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWE algorithm %q", name)
	}
}

func DecrypterFromJWK(name jwa.Algorithm, v jwk.Value) (Decrypter, error) {
	alg, err := AlgorithmByName(name)
	if err != nil {
		return nil, err
	}
	switch a := alg.(type) {
	case AESKWAlgorithm:
		return decrypter(a.DecrypterFromJWK(v))
	case PBES2Algorithm:
		return decrypter(a.DecrypterFromJWK(v))
	default:
		return nil, joseerror.New(joseerror.ErrUnsupportedAlgorithm, "unsupported JWE algorithm %q", name)
	}
}
