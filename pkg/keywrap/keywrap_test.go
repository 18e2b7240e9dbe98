package keywrap

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/picatz/josekit/pkg/joseerror"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestBlock(t *testing.T) {
	// FIPS-197 appendix C
	tests := []struct {
		kek, plaintext, ciphertext string
	}{
		{
			kek:        "000102030405060708090a0b0c0d0e0f",
			plaintext:  "00112233445566778899aabbccddeeff",
			ciphertext: "69c4e0d86a7b0430d8cdb78070b4c55a",
		},
		{
			kek:        "000102030405060708090a0b0c0d0e0f1011121314151617",
			plaintext:  "00112233445566778899aabbccddeeff",
			ciphertext: "dda97ca4864cdfe06eaf70a0ec0d7191",
		},
		{
			kek:        "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			plaintext:  "00112233445566778899aabbccddeeff",
			ciphertext: "8ea2b7ca516745bfeafc49904b496089",
		},
	}

	for _, test := range tests {
		t.Run(fmt.Sprintf("AES-%d", len(test.kek)*4), func(t *testing.T) {
			kek := mustHex(t, test.kek)

			ct, err := EncryptBlock(kek, mustHex(t, test.plaintext))
			require.NoError(t, err)
			require.Equal(t, test.ciphertext, hex.EncodeToString(ct))

			pt, err := DecryptBlock(kek, ct)
			require.NoError(t, err)
			require.Equal(t, test.plaintext, hex.EncodeToString(pt))
		})
	}
}

func TestBlockRoundTrip(t *testing.T) {
	for _, size := range []int{16, 24, 32} {
		kek := make([]byte, size)
		_, err := rand.Read(kek)
		require.NoError(t, err)

		block := make([]byte, BlockSize)
		_, err = rand.Read(block)
		require.NoError(t, err)

		ct, err := EncryptBlock(kek, block)
		require.NoError(t, err)
		pt, err := DecryptBlock(kek, ct)
		require.NoError(t, err)
		require.Equal(t, block, pt)
	}
}

func TestBlockErrors(t *testing.T) {
	good := make([]byte, 16)

	for _, size := range []int{0, 8, 15, 17, 31, 33, 64} {
		_, err := EncryptBlock(make([]byte, size), good)
		require.ErrorIs(t, err, joseerror.ErrGeneric, "kek size %d", size)
		_, err = DecryptBlock(make([]byte, size), good)
		require.ErrorIs(t, err, joseerror.ErrGeneric, "kek size %d", size)
	}

	for _, size := range []int{0, 8, 15, 17, 32} {
		_, err := EncryptBlock(good, make([]byte, size))
		require.ErrorIs(t, err, joseerror.ErrGeneric, "block size %d", size)
		_, err = DecryptBlock(good, make([]byte, size))
		require.ErrorIs(t, err, joseerror.ErrGeneric, "block size %d", size)
	}
}

func TestWrap(t *testing.T) {
	// RFC 3394 section 4
	tests := []struct {
		name, kek, key, wrapped string
	}{
		{
			name:    "128 bit key with 128 bit KEK",
			kek:     "000102030405060708090a0b0c0d0e0f",
			key:     "00112233445566778899aabbccddeeff",
			wrapped: "1fa68b0a8112b447aef34bd8fb5a7b829d3e862371d2cfe5",
		},
		{
			name:    "128 bit key with 192 bit KEK",
			kek:     "000102030405060708090a0b0c0d0e0f1011121314151617",
			key:     "00112233445566778899aabbccddeeff",
			wrapped: "96778b25ae6ca435f92b5b97c050aed2468ab8a17ad84e5d",
		},
		{
			name:    "128 bit key with 256 bit KEK",
			kek:     "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			key:     "00112233445566778899aabbccddeeff",
			wrapped: "64e8c3f9ce0f5ba263e9777905818a2a93c8191e7d6e8ae7",
		},
		{
			name:    "256 bit key with 256 bit KEK",
			kek:     "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			key:     "00112233445566778899aabbccddeeff000102030405060708090a0b0c0d0e0f",
			wrapped: "28c9f404c4b810f4cbccb35cfb87f8263f5786e2d80ed326cbc7f0e71a99f43bfb988b9b7a02dd21",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			kek := mustHex(t, test.kek)

			wrapped, err := Wrap(kek, mustHex(t, test.key))
			require.NoError(t, err)
			require.Equal(t, test.wrapped, hex.EncodeToString(wrapped))

			key, err := Unwrap(kek, wrapped)
			require.NoError(t, err)
			require.Equal(t, test.key, hex.EncodeToString(key))
		})
	}
}

func TestUnwrapIntegrity(t *testing.T) {
	kek := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	wrapped := mustHex(t, "1fa68b0a8112b447aef34bd8fb5a7b829d3e862371d2cfe5")

	for i := range wrapped {
		tampered := append([]byte(nil), wrapped...)
		tampered[i] ^= 0x01

		_, err := Unwrap(kek, tampered)
		require.ErrorIs(t, err, ErrIntegrity, "byte %d", i)
	}

	other := mustHex(t, "0f0e0d0c0b0a09080706050403020100")
	_, err := Unwrap(other, wrapped)
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestWrapErrors(t *testing.T) {
	kek := make([]byte, 16)

	_, err := Wrap(make([]byte, 10), make([]byte, 16))
	require.ErrorIs(t, err, joseerror.ErrGeneric)

	for _, size := range []int{0, 8, 17, 20} {
		_, err := Wrap(kek, make([]byte, size))
		require.ErrorIs(t, err, joseerror.ErrGeneric, "key size %d", size)
	}

	for _, size := range []int{0, 16, 25} {
		_, err := Unwrap(kek, make([]byte, size))
		require.ErrorIs(t, err, joseerror.ErrGeneric, "wrapped size %d", size)
	}
}
