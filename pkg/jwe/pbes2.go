package jwe

import (
	"math"

	"golang.org/x/crypto/pbkdf2"

	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
)

const (
	// MinSaltLength is the smallest "p2s" accepted, in bytes.
	MinSaltLength = 8
	// MinIterationCount is the smallest iteration count an encrypter can be
	// configured with.
	MinIterationCount = 1000
	// DefaultMaxIterationCount bounds the "p2c" a decrypter accepts unless
	// configured otherwise, since it is chosen by the sender.
	DefaultMaxIterationCount = 1_000_000
)

// PBES2Algorithm is PBES2 with HMAC SHA-2 key derivation and AES Key Wrap.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.8
type PBES2Algorithm int

const (
	PBES2HS256A128KW PBES2Algorithm = iota + 1
	PBES2HS384A192KW
	PBES2HS512A256KW
)

func (a PBES2Algorithm) Name() jwa.Algorithm {
	switch a {
	case PBES2HS256A128KW:
		return jwa.PBES2HS256A128KW
	case PBES2HS384A192KW:
		return jwa.PBES2HS384A192KW
	case PBES2HS512A256KW:
		return jwa.PBES2HS512A256KW
	default:
		return ""
	}
}

func (a PBES2Algorithm) KeyType() string {
	return jwk.KeyTypeOct
}

// Hash returns the PBKDF2 pseudorandom function hash.
func (a PBES2Algorithm) Hash() jwa.Hash {
	switch a {
	case PBES2HS256A128KW:
		return jwa.SHA256
	case PBES2HS384A192KW:
		return jwa.SHA384
	case PBES2HS512A256KW:
		return jwa.SHA512
	default:
		return 0
	}
}

// KeySize returns the size of the derived key wrapping key in bytes.
func (a PBES2Algorithm) KeySize() int {
	switch a {
	case PBES2HS256A128KW:
		return 16
	case PBES2HS384A192KW:
		return 24
	case PBES2HS512A256KW:
		return 32
	default:
		return 0
	}
}

func (a PBES2Algorithm) String() string {
	return a.Name()
}

// deriveKey runs PBKDF2 over the salt value UTF8(alg) || 0x00 || p2s.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.8.1.1
func (a PBES2Algorithm) deriveKey(password, p2s []byte, p2c int) []byte {
	name := a.Name()
	salt := make([]byte, 0, len(name)+1+len(p2s))
	salt = append(salt, name...)
	salt = append(salt, 0x00)
	salt = append(salt, p2s...)
	return pbkdf2.Key(password, salt, p2c, a.KeySize(), a.Hash().New)
}

func checkPassword(password []byte) error {
	if len(password) == 0 {
		return joseerror.New(joseerror.ErrInvalidKeyFormat, "PBES2 password must not be empty")
	}
	return nil
}

func (a PBES2Algorithm) passwordFromJWK(v jwk.Value) ([]byte, string, error) {
	if err := jwk.CheckUsage(v, jwk.KeyTypeOct, jwk.UseEncryption, jwk.OpDeriveKey, a.Name()); err != nil {
		return nil, "", err
	}
	password, err := jwk.Parameter(v, jwk.K)
	if err != nil {
		return nil, "", err
	}
	return password, jwk.KeyIDOf(v), nil
}

// EncrypterOption configures a [PBES2Encrypter].
type EncrypterOption func(*PBES2Encrypter) error

// WithSaltLength sets the length of generated "p2s" values. It must be at
// least [MinSaltLength]; the default is 8.
func WithSaltLength(n int) EncrypterOption {
	return func(e *PBES2Encrypter) error {
		if n < MinSaltLength {
			return joseerror.New(joseerror.ErrGeneric, "salt length must be %d or more, got %d", MinSaltLength, n)
		}
		e.saltLen = n
		return nil
	}
}

// WithIterationCount sets the "p2c" written when the header has none. It
// must be at least [MinIterationCount], which is also the default.
func WithIterationCount(n int) EncrypterOption {
	return func(e *PBES2Encrypter) error {
		if n < MinIterationCount {
			return joseerror.New(joseerror.ErrGeneric, "iteration count must be %d or more, got %d", MinIterationCount, n)
		}
		e.iterCount = n
		return nil
	}
}

// EncrypterFromBytes returns an encrypter deriving its key wrapping key
// from password.
func (a PBES2Algorithm) EncrypterFromBytes(password []byte, opts ...EncrypterOption) (*PBES2Encrypter, error) {
	return a.newEncrypter(password, "", opts)
}

// EncrypterFromJWK returns an encrypter for an "oct" JWK whose "k" is the
// password. "use", "key_ops" and "alg" must allow "enc", "deriveKey" and
// this algorithm when present.
func (a PBES2Algorithm) EncrypterFromJWK(v jwk.Value, opts ...EncrypterOption) (*PBES2Encrypter, error) {
	password, kid, err := a.passwordFromJWK(v)
	if err != nil {
		return nil, err
	}
	return a.newEncrypter(password, kid, opts)
}

func (a PBES2Algorithm) newEncrypter(password []byte, kid string, opts []EncrypterOption) (*PBES2Encrypter, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	e := &PBES2Encrypter{
		algorithm: a,
		password:  append([]byte(nil), password...),
		saltLen:   MinSaltLength,
		iterCount: MinIterationCount,
		keyID:     kid,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// DecrypterOption configures a [PBES2Decrypter].
type DecrypterOption func(*PBES2Decrypter) error

// WithMaxIterationCount sets the largest "p2c" the decrypter will run.
func WithMaxIterationCount(n int) DecrypterOption {
	return func(d *PBES2Decrypter) error {
		if n < 1 {
			return joseerror.New(joseerror.ErrGeneric, "maximum iteration count must be positive, got %d", n)
		}
		d.maxIterCount = n
		return nil
	}
}

func (a PBES2Algorithm) DecrypterFromBytes(password []byte, opts ...DecrypterOption) (*PBES2Decrypter, error) {
	return a.newDecrypter(password, "", opts)
}

func (a PBES2Algorithm) DecrypterFromJWK(v jwk.Value, opts ...DecrypterOption) (*PBES2Decrypter, error) {
	password, kid, err := a.passwordFromJWK(v)
	if err != nil {
		return nil, err
	}
	return a.newDecrypter(password, kid, opts)
}

func (a PBES2Algorithm) newDecrypter(password []byte, kid string, opts []DecrypterOption) (*PBES2Decrypter, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	d := &PBES2Decrypter{
		algorithm:    a,
		password:     append([]byte(nil), password...),
		maxIterCount: DefaultMaxIterationCount,
		keyID:        kid,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// PBES2Encrypter wraps fresh content encryption keys under a password.
type PBES2Encrypter struct {
	algorithm PBES2Algorithm
	password  []byte
	saltLen   int
	iterCount int
	keyID     string
}

func (e *PBES2Encrypter) Algorithm() Algorithm {
	return e.algorithm
}

func (e *PBES2Encrypter) KeyID() string {
	return e.keyID
}

// WithKeyID returns a copy of e with the given key ID.
func (e *PBES2Encrypter) WithKeyID(kid string) *PBES2Encrypter {
	c := *e
	c.keyID = kid
	return &c
}

// Encrypt uses the header's "p2s" and "p2c" when present, and otherwise
// generates a salt and uses the configured iteration count, writing both
// into h. "alg" is always written.
func (e *PBES2Encrypter) Encrypt(h *Header, keyLen int) (*KeyResult, error) {
	if h == nil {
		return nil, joseerror.New(joseerror.ErrInvalidJWEFormat, "no header provided")
	}
	if err := checkKeyLen(keyLen); err != nil {
		return nil, err
	}

	// Work on a copy so a failure leaves h untouched.
	out := h.Clone()
	var claims []string

	var p2s []byte
	if out.Has(header.PBES2SaltInput) {
		salt, err := saltInput(out)
		if err != nil {
			return nil, err
		}
		p2s = salt
	} else {
		salt, err := randomBytes(e.saltLen)
		if err != nil {
			return nil, err
		}
		if err := out.SetPBES2SaltInput(salt); err != nil {
			return nil, joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
		}
		p2s = salt
		claims = append(claims, header.PBES2SaltInput)
	}

	var p2c int
	if out.Has(header.PBES2Count) {
		count, err := iterationCount(out, math.MaxInt)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, joseerror.New(joseerror.ErrInvalidJWEFormat, "header %q must be positive", header.PBES2Count)
		}
		p2c = count
	} else {
		if err := out.SetPBES2Count(uint64(e.iterCount)); err != nil {
			return nil, joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
		}
		p2c = e.iterCount
		claims = append(claims, header.PBES2Count)
	}

	stamped, err := stampHeader(out, e.algorithm.Name(), e.keyID)
	if err != nil {
		return nil, err
	}
	claims = append(claims, stamped...)

	cek, err := randomBytes(keyLen)
	if err != nil {
		return nil, err
	}

	kek := e.algorithm.deriveKey(e.password, p2s, p2c)
	wrapped, err := wrap(kek, cek)
	if err != nil {
		return nil, err
	}

	*h = *out
	return &KeyResult{Key: cek, EncryptedKey: wrapped, Claims: claims}, nil
}

// PBES2Decrypter recovers content encryption keys wrapped under a
// password.
type PBES2Decrypter struct {
	algorithm    PBES2Algorithm
	password     []byte
	maxIterCount int
	keyID        string
}

func (d *PBES2Decrypter) Algorithm() Algorithm {
	return d.algorithm
}

func (d *PBES2Decrypter) KeyID() string {
	return d.keyID
}

// WithKeyID returns a copy of d with the given key ID.
func (d *PBES2Decrypter) WithKeyID(kid string) *PBES2Decrypter {
	c := *d
	c.keyID = kid
	return &c
}

// Decrypt derives the key wrapping key from the header's "p2s" and "p2c",
// which are both required, and unwraps encryptedKey. Every failure,
// including a wrong password, is of kind [joseerror.ErrInvalidJWEFormat].
func (d *PBES2Decrypter) Decrypt(h *Header, encryptedKey []byte, keyLen int) ([]byte, error) {
	if err := checkHeader(h, d.algorithm.Name(), d.keyID); err != nil {
		return nil, err
	}

	p2s, err := saltInput(h)
	if err != nil {
		return nil, err
	}
	p2c, err := iterationCount(h, d.maxIterCount)
	if err != nil {
		return nil, err
	}
	if p2c == 0 {
		return nil, joseerror.New(joseerror.ErrInvalidJWEFormat, "header %q must be positive", header.PBES2Count)
	}

	return unwrap(d.algorithm.deriveKey(d.password, p2s, p2c), encryptedKey, keyLen)
}

func saltInput(h *Header) ([]byte, error) {
	p2s, err := h.PBES2SaltInput()
	if err != nil {
		return nil, joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
	}
	if len(p2s) < MinSaltLength {
		return nil, joseerror.New(joseerror.ErrInvalidJWEFormat, "header %q must decode to %d or more bytes, got %d", header.PBES2SaltInput, MinSaltLength, len(p2s))
	}
	return p2s, nil
}

func iterationCount(h *Header, limit int) (int, error) {
	p2c, err := h.PBES2Count()
	if err != nil {
		return 0, joseerror.Wrap(joseerror.ErrInvalidJWEFormat, err)
	}
	if p2c > uint64(limit) {
		return 0, joseerror.New(joseerror.ErrInvalidJWEFormat, "header %q of %d exceeds the maximum of %d", header.PBES2Count, p2c, limit)
	}
	return int(p2c), nil
}
