package jwa

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAllowedAlgorithms(t *testing.T) {
	def := DefaultAllowedAlgorithms()

	tests := []struct {
		Name    string
		Allowed []Algorithm
		Require func(t *testing.T, algs AllowedAlgorithms)
	}{
		{
			Name:    "none allowed",
			Allowed: []Algorithm{},
			Require: func(t *testing.T, algs AllowedAlgorithms) {
				require.Empty(t, algs)
				require.Empty(t, algs.List())
				require.False(t, algs.Allowed(def.List()...))
			},
		},
		{
			Name:    "default allowed",
			Allowed: DefaultAllowedAlgorithms().List(),
			Require: func(t *testing.T, algs AllowedAlgorithms) {
				require.NotEmpty(t, algs)
				require.NotEmpty(t, algs.List())
				require.Equal(t, 2, len(algs))
				require.True(t, algs.Allowed(def.List()...))
				require.False(t, algs.Allowed(HS256))
				require.False(t, algs.Allowed())
			},
		},
		{
			Name:    "duplicates collapse",
			Allowed: []Algorithm{PS256, PS256, EdDSA},
			Require: func(t *testing.T, algs AllowedAlgorithms) {
				require.Equal(t, []Algorithm{PS256, EdDSA}, algs.List())
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			algs := NewAllowedAlgorithms(test.Allowed...)
			if test.Require != nil {
				test.Require(t, algs)
			}
		})
	}

}

func TestHash(t *testing.T) {
	data := []byte("The quick brown fox jumps over the lazy dog")

	sha1Sum := sha1.Sum(data)
	sha256Sum := sha256.Sum256(data)
	sha384Sum := sha512.Sum384(data)
	sha512Sum := sha512.Sum512(data)

	tests := []struct {
		Hash Hash
		Name string
		Size int
		Sum  []byte
	}{
		{SHA1, "SHA-1", 20, sha1Sum[:]},
		{SHA256, "SHA-256", 32, sha256Sum[:]},
		{SHA384, "SHA-384", 48, sha384Sum[:]},
		{SHA512, "SHA-512", 64, sha512Sum[:]},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			require.Equal(t, test.Name, test.Hash.Name())
			require.Equal(t, test.Name, test.Hash.String())
			require.Equal(t, test.Size, test.Hash.Size())
			require.True(t, test.Hash.CryptoHash().Available())
			require.Equal(t, test.Sum, test.Hash.Sum(data))
		})
	}

	require.Equal(t, "Hash(0)", Hash(0).Name())
}
