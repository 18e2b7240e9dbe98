package keywrap

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"github.com/picatz/josekit/pkg/joseerror"
)

// BlockSize is the size of the single block handled by EncryptBlock and
// DecryptBlock, and of each wrapped key chunk.
const BlockSize = aes.BlockSize

// ErrIntegrity is returned by Unwrap when the integrity check fails, either
// because the key is wrong or the ciphertext was modified.
var ErrIntegrity = errors.New("keywrap: integrity check failed")

// defaultIV is the initial value from RFC 3394 section 2.2.3.1.
var defaultIV = []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

func newCipher(kek []byte) (cipher.Block, error) {
	switch len(kek) {
	case 16, 24, 32:
	default:
		return nil, joseerror.New(joseerror.ErrGeneric, "unsupported AES key length %d", len(kek))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, joseerror.New(joseerror.ErrGeneric, "failed to create AES cipher: %w", err)
	}
	return block, nil
}

func checkBlock(block []byte) error {
	if len(block) != BlockSize {
		return joseerror.New(joseerror.ErrGeneric, "AES key wrap block must be %d bytes, got %d", BlockSize, len(block))
	}
	return nil
}

// EncryptBlock encrypts one 16 byte block under a 16, 24 or 32 byte key
// selecting AES-128, AES-192 or AES-256. Any other length is an error of
// kind [joseerror.ErrGeneric].
func EncryptBlock(kek, block []byte) ([]byte, error) {
	c, err := newCipher(kek)
	if err != nil {
		return nil, err
	}
	if err := checkBlock(block); err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	c.Encrypt(out, block)
	return out, nil
}

// DecryptBlock is the inverse of EncryptBlock.
func DecryptBlock(kek, block []byte) ([]byte, error) {
	c, err := newCipher(kek)
	if err != nil {
		return nil, err
	}
	if err := checkBlock(block); err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	c.Decrypt(out, block)
	return out, nil
}

// Wrap wraps key under kek. The key must be a multiple of 8 bytes and at
// least 16 bytes long; the result is 8 bytes longer than key.
//
// https://datatracker.ietf.org/doc/html/rfc3394#section-2.2.1
func Wrap(kek, key []byte) ([]byte, error) {
	c, err := newCipher(kek)
	if err != nil {
		return nil, err
	}
	if len(key) < 16 || len(key)%8 != 0 {
		return nil, joseerror.New(joseerror.ErrGeneric, "key to wrap must be a multiple of 8 bytes and at least 16 bytes, got %d", len(key))
	}

	n := len(key) / 8
	out := make([]byte, 8+len(key))
	copy(out[8:], key)

	var (
		a   = make([]byte, 8)
		buf = make([]byte, BlockSize)
	)
	copy(a, defaultIV)

	for j := 0; j < 6; j++ {
		for i := 1; i <= n; i++ {
			r := out[i*8 : (i+1)*8]
			copy(buf[:8], a)
			copy(buf[8:], r)
			c.Encrypt(buf, buf)

			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(a, binary.BigEndian.Uint64(buf[:8])^t)
			copy(r, buf[8:])
		}
	}

	copy(out[:8], a)
	return out, nil
}

// Unwrap reverses Wrap. A wrapped key whose integrity check fails returns
// [ErrIntegrity].
//
// https://datatracker.ietf.org/doc/html/rfc3394#section-2.2.2
func Unwrap(kek, wrapped []byte) ([]byte, error) {
	c, err := newCipher(kek)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < 24 || len(wrapped)%8 != 0 {
		return nil, joseerror.New(joseerror.ErrGeneric, "wrapped key must be a multiple of 8 bytes and at least 24 bytes, got %d", len(wrapped))
	}

	n := len(wrapped)/8 - 1
	out := make([]byte, len(wrapped)-8)
	copy(out, wrapped[8:])

	var (
		a   = make([]byte, 8)
		buf = make([]byte, BlockSize)
	)
	copy(a, wrapped[:8])

	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			r := out[(i-1)*8 : i*8]
			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(buf[:8], binary.BigEndian.Uint64(a)^t)
			copy(buf[8:], r)
			c.Decrypt(buf, buf)

			copy(a, buf[:8])
			copy(r, buf[8:])
		}
	}

	if subtle.ConstantTimeCompare(a, defaultIV) != 1 {
		return nil, ErrIntegrity
	}
	return out, nil
}
