package jwe

import (
	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
	"github.com/picatz/josekit/pkg/keywrap"
)

// AESKWAlgorithm is AES Key Wrap with a shared key encryption key.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.4
type AESKWAlgorithm int

const (
	A128KW AESKWAlgorithm = iota + 1
	A192KW
	A256KW
)

func (a AESKWAlgorithm) Name() jwa.Algorithm {
	switch a {
	case A128KW:
		return jwa.A128KW
	case A192KW:
		return jwa.A192KW
	case A256KW:
		return jwa.A256KW
	default:
		return ""
	}
}

func (a AESKWAlgorithm) KeyType() string {
	return jwk.KeyTypeOct
}

// KeySize returns the key encryption key size in bytes.
func (a AESKWAlgorithm) KeySize() int {
	switch a {
	case A128KW:
		return 16
	case A192KW:
		return 24
	case A256KW:
		return 32
	default:
		return 0
	}
}

func (a AESKWAlgorithm) String() string {
	return a.Name()
}

func (a AESKWAlgorithm) newKey(kek []byte, kid string) (*AESKWKey, error) {
	if len(kek) != a.KeySize() {
		return nil, joseerror.New(joseerror.ErrInvalidKeyFormat, "%s key must be %d bytes, got %d", a.Name(), a.KeySize(), len(kek))
	}
	return &AESKWKey{algorithm: a, key: append([]byte(nil), kek...), keyID: kid}, nil
}

func (a AESKWAlgorithm) EncrypterFromBytes(kek []byte) (*AESKWKey, error) {
	return a.newKey(kek, "")
}

func (a AESKWAlgorithm) DecrypterFromBytes(kek []byte) (*AESKWKey, error) {
	return a.newKey(kek, "")
}

// EncrypterFromJWK returns an encrypter for an "oct" JWK usable for
// "wrapKey".
func (a AESKWAlgorithm) EncrypterFromJWK(v jwk.Value) (*AESKWKey, error) {
	return a.fromJWK(v, jwk.OpWrapKey)
}

// DecrypterFromJWK returns a decrypter for an "oct" JWK usable for
// "unwrapKey".
func (a AESKWAlgorithm) DecrypterFromJWK(v jwk.Value) (*AESKWKey, error) {
	return a.fromJWK(v, jwk.OpUnwrapKey)
}

func (a AESKWAlgorithm) fromJWK(v jwk.Value, op string) (*AESKWKey, error) {
	if err := jwk.CheckUsage(v, jwk.KeyTypeOct, jwk.UseEncryption, op, a.Name()); err != nil {
		return nil, err
	}
	kek, err := jwk.Parameter(v, jwk.K)
	if err != nil {
		return nil, err
	}
	return a.newKey(kek, jwk.KeyIDOf(v))
}

// AESKWKey wraps and unwraps content encryption keys. It is both an
// Encrypter and a Decrypter.
type AESKWKey struct {
	algorithm AESKWAlgorithm
	key       []byte
	keyID     string
}

func (k *AESKWKey) Algorithm() Algorithm {
	return k.algorithm
}

func (k *AESKWKey) KeyID() string {
	return k.keyID
}

// WithKeyID returns a copy of k with the given key ID.
func (k *AESKWKey) WithKeyID(kid string) *AESKWKey {
	c := *k
	c.keyID = kid
	return &c
}

func (k *AESKWKey) Encrypt(h *Header, keyLen int) (*KeyResult, error) {
	if h == nil {
		return nil, joseerror.New(joseerror.ErrInvalidJWEFormat, "no header provided")
	}
	if err := checkKeyLen(keyLen); err != nil {
		return nil, err
	}

	out := h.Clone()
	claims, err := stampHeader(out, k.algorithm.Name(), k.keyID)
	if err != nil {
		return nil, err
	}

	cek, err := randomBytes(keyLen)
	if err != nil {
		return nil, err
	}

	wrapped, err := wrap(k.key, cek)
	if err != nil {
		return nil, err
	}

	*h = *out
	return &KeyResult{Key: cek, EncryptedKey: wrapped, Claims: claims}, nil
}

func (k *AESKWKey) Decrypt(h *Header, encryptedKey []byte, keyLen int) ([]byte, error) {
	if err := checkHeader(h, k.algorithm.Name(), k.keyID); err != nil {
		return nil, err
	}
	return unwrap(k.key, encryptedKey, keyLen)
}

func wrap(kek, cek []byte) ([]byte, error) {
	wrapped, err := keywrap.Wrap(kek, cek)
	if err != nil {
		return nil, joseerror.Ensure(joseerror.ErrGeneric, err)
	}
	return wrapped, nil
}

// unwrap reports every failure to recover the key, including a wrong key,
// as an error of kind [joseerror.ErrInvalidJWEFormat].
func unwrap(kek, encryptedKey []byte, keyLen int) ([]byte, error) {
	if len(encryptedKey) != keyLen+8 {
		return nil, joseerror.New(joseerror.ErrInvalidJWEFormat, "encrypted key must be %d bytes, got %d", keyLen+8, len(encryptedKey))
	}
	cek, err := keywrap.Unwrap(kek, encryptedKey)
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
	}
	return cek, nil
}
