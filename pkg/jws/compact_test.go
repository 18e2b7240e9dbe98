package jws

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"sync"
	"testing"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/stretchr/testify/require"

	"github.com/picatz/josekit/pkg/base64"
	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/joseerror"
)

var (
	testRSAOnce sync.Once
	testRSAKey  *rsa.PrivateKey
)

// rsaKey returns a 2048 bit key shared by the tests of this package.
func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testRSAOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		testRSAKey = key
	})
	return testRSAKey
}

type keyPair struct {
	name     string
	signer   Signer
	verifier Verifier
}

func testKeyPairs(t *testing.T) []keyPair {
	t.Helper()

	var pairs []keyPair

	for _, alg := range []RSASSAAlgorithm{RS256, RS384, RS512} {
		s, err := alg.SignerFromKey(rsaKey(t))
		require.NoError(t, err)
		v, err := alg.VerifierFromKey(&rsaKey(t).PublicKey)
		require.NoError(t, err)
		pairs = append(pairs, keyPair{alg.Name(), s, v})
	}

	for _, alg := range []RSAPSSAlgorithm{PS256, PS384, PS512} {
		s, err := alg.SignerFromKey(rsaKey(t))
		require.NoError(t, err)
		v, err := alg.VerifierFromKey(&rsaKey(t).PublicKey)
		require.NoError(t, err)
		pairs = append(pairs, keyPair{alg.Name(), s, v})
	}

	for _, alg := range []HMACAlgorithm{HS256, HS384, HS512} {
		secret := make([]byte, alg.Hash().Size())
		_, err := rand.Read(secret)
		require.NoError(t, err)
		s, err := alg.SignerFromBytes(secret)
		require.NoError(t, err)
		v, err := alg.VerifierFromBytes(secret)
		require.NoError(t, err)
		pairs = append(pairs, keyPair{alg.Name(), s, v})
	}

	for _, alg := range []ECDSAAlgorithm{ES256, ES384, ES512} {
		key, err := ecdsa.GenerateKey(alg.Curve(), rand.Reader)
		require.NoError(t, err)
		s, err := alg.SignerFromKey(key)
		require.NoError(t, err)
		v, err := alg.VerifierFromKey(&key.PublicKey)
		require.NoError(t, err)
		pairs = append(pairs, keyPair{alg.Name(), s, v})
	}

	{
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		s, err := EdDSA.SignerFromKey(priv)
		require.NoError(t, err)
		v, err := EdDSA.VerifierFromKey(pub)
		require.NoError(t, err)
		pairs = append(pairs, keyPair{"EdDSA Ed25519", s, v})
	}

	{
		pub, priv, err := ed448.GenerateKey(rand.Reader)
		require.NoError(t, err)
		s, err := EdDSA.SignerFromKey(priv)
		require.NoError(t, err)
		v, err := EdDSA.VerifierFromKey(pub)
		require.NoError(t, err)
		pairs = append(pairs, keyPair{"EdDSA Ed448", s, v})
	}

	return pairs
}

func TestCompactRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("Hello, JWS World!"),
		[]byte(`{"iss":"joe","exp":1300819380}`),
		{},
		{0x00, 0xff, 0x2e, 0x2e},
	}

	for _, pair := range testKeyPairs(t) {
		t.Run(pair.name, func(t *testing.T) {
			for _, payload := range payloads {
				token, err := SerializeCompact(NewHeader(), payload, pair.signer)
				require.NoError(t, err)
				require.Equal(t, 2, strings.Count(token, "."))

				h, got, err := DeserializeCompact(token, pair.verifier)
				require.NoError(t, err)
				require.Equal(t, payload, got)

				alg, err := h.Algorithm()
				require.NoError(t, err)
				require.Equal(t, pair.signer.Algorithm().Name(), alg)
			}
		})
	}
}

func TestCompactTamperedSignature(t *testing.T) {
	for _, pair := range testKeyPairs(t) {
		t.Run(pair.name, func(t *testing.T) {
			token, err := SerializeCompact(NewHeader(), []byte("tamper with me"), pair.signer)
			require.NoError(t, err)

			dot := strings.LastIndexByte(token, '.')
			sig, err := base64.Decode(token[dot+1:])
			require.NoError(t, err)

			for i := 0; i < len(sig)*8; i++ {
				flipped := append([]byte(nil), sig...)
				flipped[i/8] ^= 1 << (i % 8)

				tampered := token[:dot+1] + base64.Encode(flipped)
				_, _, err := DeserializeCompact(tampered, pair.verifier)
				require.ErrorIs(t, err, joseerror.ErrInvalidSignature, "bit %d", i)
			}

			// Truncated and undecodable signatures are reported the same way.
			_, _, err = DeserializeCompact(token[:len(token)-2], pair.verifier)
			require.ErrorIs(t, err, joseerror.ErrInvalidSignature)

			_, _, err = DeserializeCompact(token[:dot+1]+"!!!", pair.verifier)
			require.ErrorIs(t, err, joseerror.ErrInvalidSignature)

			// Line breaks are not part of the alphabet, so each token has a
			// single accepted spelling.
			for _, mutated := range []string{
				token[:dot+3] + "\n" + token[dot+3:],
				token + "\r\n",
				token + "\n",
			} {
				_, _, err = DeserializeCompact(mutated, pair.verifier)
				require.ErrorIs(t, err, joseerror.ErrInvalidSignature, "%q", mutated)
			}
		})
	}
}

func TestCompactTamperedContent(t *testing.T) {
	pair := testKeyPairs(t)[0]

	token, err := SerializeCompact(NewHeader(), []byte("original"), pair.signer)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[1] = base64.Encode([]byte("modified"))

	_, _, err = DeserializeCompact(strings.Join(parts, "."), pair.verifier)
	require.ErrorIs(t, err, joseerror.ErrInvalidSignature)
}

func TestCompactSeparators(t *testing.T) {
	pair := testKeyPairs(t)[0]

	token, err := SerializeCompact(NewHeader(), []byte("payload"), pair.signer)
	require.NoError(t, err)

	parts := strings.Split(token, ".")

	tests := map[string]string{
		"no separators":     strings.Join(parts, ""),
		"one separator":     parts[0] + "." + parts[1] + parts[2],
		"three separators":  token + ".",
		"four separators":   parts[0] + "." + parts[1] + "." + parts[2] + ".x.y",
		"leading separator": "." + token,
		"empty":             "",
		"just dots":         "...",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := DeserializeCompact(input, pair.verifier)
			require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
			require.NotErrorIs(t, err, joseerror.ErrInvalidSignature)

			_, err = ParseHeader(input)
			require.Error(t, err)
		})
	}

	t.Run("two dots with empty parts", func(t *testing.T) {
		_, _, err := DeserializeCompact("..", pair.verifier)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})
}

func TestCompactAlgorithm(t *testing.T) {
	rs256, err := RS256.SignerFromKey(rsaKey(t))
	require.NoError(t, err)
	ps256, err := PS256.VerifierFromKey(&rsaKey(t).PublicKey)
	require.NoError(t, err)
	rs256Verifier, err := RS256.VerifierFromKey(&rsaKey(t).PublicKey)
	require.NoError(t, err)

	t.Run("verifier algorithm must match", func(t *testing.T) {
		token, err := SerializeCompact(nil, []byte("payload"), rs256)
		require.NoError(t, err)

		_, _, err = DeserializeCompact(token, ps256)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("header algorithm must match signer", func(t *testing.T) {
		h := NewHeader()
		require.NoError(t, h.SetAlgorithm("HS256"))

		_, err := SerializeCompact(h, []byte("payload"), rs256)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("missing alg", func(t *testing.T) {
		encoded := base64.Encode([]byte(`{"typ":"JWT"}`)) + "." + base64.Encode([]byte("payload"))
		sig, err := rs256.Sign([]byte(encoded))
		require.NoError(t, err)

		_, _, err = DeserializeCompact(encoded+"."+base64.Encode(sig), rs256Verifier)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("alg none", func(t *testing.T) {
		encoded := base64.Encode([]byte(`{"alg":"none"}`)) + "." + base64.Encode([]byte("payload")) + "."

		_, _, err := DeserializeCompact(encoded, rs256Verifier)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("non-string alg", func(t *testing.T) {
		encoded := base64.Encode([]byte(`{"alg":256}`)) + "." + base64.Encode([]byte("payload")) + ".AA"

		_, _, err := DeserializeCompact(encoded, rs256Verifier)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("header is not mutated", func(t *testing.T) {
		h := NewHeader()
		require.NoError(t, h.SetType("JWT"))

		_, err := SerializeCompact(h, []byte("payload"), rs256.WithKeyID("key-1"))
		require.NoError(t, err)

		require.False(t, h.Has(header.Algorithm))
		require.False(t, h.Has(header.KeyID))
		require.Equal(t, 1, h.Len())
	})
}

func TestCompactKeyID(t *testing.T) {
	signer, err := RS256.SignerFromKey(rsaKey(t))
	require.NoError(t, err)
	verifier, err := RS256.VerifierFromKey(&rsaKey(t).PublicKey)
	require.NoError(t, err)

	withKID := func(kid string) string {
		token, err := SerializeCompact(NewHeader(), []byte("payload"), signer.WithKeyID(kid))
		require.NoError(t, err)
		return token
	}

	t.Run("both absent", func(t *testing.T) {
		token, err := SerializeCompact(NewHeader(), []byte("payload"), signer)
		require.NoError(t, err)
		_, _, err = DeserializeCompact(token, verifier)
		require.NoError(t, err)
	})

	t.Run("equal", func(t *testing.T) {
		h, _, err := DeserializeCompact(withKID("key-1"), verifier.WithKeyID("key-1"))
		require.NoError(t, err)
		kid, err := h.KeyID()
		require.NoError(t, err)
		require.Equal(t, "key-1", kid)
	})

	t.Run("different", func(t *testing.T) {
		_, _, err := DeserializeCompact(withKID("key-1"), verifier.WithKeyID("key-2"))
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("header only", func(t *testing.T) {
		_, _, err := DeserializeCompact(withKID("key-1"), verifier)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("verifier only", func(t *testing.T) {
		token, err := SerializeCompact(NewHeader(), []byte("payload"), signer)
		require.NoError(t, err)
		_, _, err = DeserializeCompact(token, verifier.WithKeyID("key-1"))
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("header kid must match signer", func(t *testing.T) {
		h := NewHeader()
		require.NoError(t, h.SetKeyID("other"))
		_, err := SerializeCompact(h, []byte("payload"), signer.WithKeyID("key-1"))
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("WithKeyID copies", func(t *testing.T) {
		_ = signer.WithKeyID("key-1")
		require.Empty(t, signer.KeyID())
		_ = verifier.WithKeyID("key-1")
		require.Empty(t, verifier.KeyID())
	})
}

func TestCompactUnencodedPayload(t *testing.T) {
	signer, err := HS256.SignerFromBytes([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	unencoded := func(t *testing.T) *Header {
		h := NewHeader()
		require.NoError(t, h.SetCritical([]string{header.Base64URLEncodePayload}))
		require.NoError(t, h.SetBase64URLEncodePayload(false))
		return h
	}

	t.Run("round trip", func(t *testing.T) {
		payload := []byte("$02")

		token, err := SerializeCompact(unencoded(t), payload, signer)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		require.Equal(t, "$02", parts[1])

		_, got, err := DeserializeCompact(token, signer)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	})

	t.Run("payload with a dot", func(t *testing.T) {
		_, err := SerializeCompact(unencoded(t), []byte("$.02"), signer)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("payload that is not UTF-8", func(t *testing.T) {
		_, err := SerializeCompact(unencoded(t), []byte{0xff, 0xfe}, signer)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("b64 false without crit", func(t *testing.T) {
		h := NewHeader()
		require.NoError(t, h.SetBase64URLEncodePayload(false))

		_, err := SerializeCompact(h, []byte("payload"), signer)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)

		encoded := base64.Encode([]byte(`{"alg":"HS256","b64":false}`)) + ".payload"
		sig, err := signer.Sign([]byte(encoded))
		require.NoError(t, err)

		_, _, err = DeserializeCompact(encoded+"."+base64.Encode(sig), signer)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("b64 true is the default", func(t *testing.T) {
		h := NewHeader()
		require.NoError(t, h.SetBase64URLEncodePayload(true))

		token, err := SerializeCompact(h, []byte("$.02"), signer)
		require.NoError(t, err)

		_, got, err := DeserializeCompact(token, signer)
		require.NoError(t, err)
		require.Equal(t, []byte("$.02"), got)
	})
}

func TestCompactCritical(t *testing.T) {
	signer, err := HS256.SignerFromBytes([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	sign := func(t *testing.T, rawHeader string) string {
		encoded := base64.Encode([]byte(rawHeader)) + "." + base64.Encode([]byte("payload"))
		sig, err := signer.Sign([]byte(encoded))
		require.NoError(t, err)
		return encoded + "." + base64.Encode(sig)
	}

	tests := []struct {
		name   string
		header string
		opts   []DeserializeOption
		ok     bool
	}{
		{
			name:   "understood extension",
			header: `{"alg":"HS256","crit":["exp"],"exp":1363284000}`,
			opts:   []DeserializeOption{WithCriticalHeaders("exp")},
			ok:     true,
		},
		{
			name:   "not understood",
			header: `{"alg":"HS256","crit":["exp"],"exp":1363284000}`,
		},
		{
			name:   "listed but missing",
			header: `{"alg":"HS256","crit":["exp"]}`,
			opts:   []DeserializeOption{WithCriticalHeaders("exp")},
		},
		{
			name:   "registered name",
			header: `{"alg":"HS256","crit":["alg"]}`,
			opts:   []DeserializeOption{WithCriticalHeaders("alg")},
		},
		{
			name:   "empty list",
			header: `{"alg":"HS256","crit":[]}`,
		},
		{
			name:   "not an array",
			header: `{"alg":"HS256","crit":"b64"}`,
		},
		{
			name:   "b64 is always understood",
			header: `{"alg":"HS256","crit":["b64"],"b64":true}`,
			ok:     true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := DeserializeCompact(sign(t, test.header), signer, test.opts...)
			if test.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
			}
		})
	}
}

func TestCompactInvalidHeader(t *testing.T) {
	signer, err := HS256.SignerFromBytes([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"not json":       `not json`,
		"not an object":  `["alg"]`,
		"duplicate":      `{"alg":"HS256","alg":"HS256"}`,
		"bad x5t":        `{"alg":"HS256","x5t":"***"}`,
		"kid not string": `{"alg":"HS256","kid":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			encoded := base64.Encode([]byte(raw)) + "." + base64.Encode([]byte("payload"))
			sig, err := signer.Sign([]byte(encoded))
			require.NoError(t, err)

			_, _, err = DeserializeCompact(encoded+"."+base64.Encode(sig), signer)
			require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
		})
	}

	t.Run("header not base64url", func(t *testing.T) {
		_, _, err := DeserializeCompact("eyJ+.cGF5bG9hZA.AA", signer)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})

	t.Run("payload not base64url", func(t *testing.T) {
		encoded := base64.Encode([]byte(`{"alg":"HS256"}`)) + ".pay+load"
		sig, err := signer.Sign([]byte(encoded))
		require.NoError(t, err)

		_, _, err = DeserializeCompact(encoded+"."+base64.Encode(sig), signer)
		require.ErrorIs(t, err, joseerror.ErrInvalidJWTFormat)
	})
}

func TestParseHeader(t *testing.T) {
	signer, err := ES256.SignerFromKey(func() *ecdsa.PrivateKey {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		return key
	}())
	require.NoError(t, err)

	h := NewHeader()
	require.NoError(t, h.SetType("JWT"))

	token, err := SerializeCompact(h, []byte("payload"), signer.WithKeyID("key-1"))
	require.NoError(t, err)

	parsed, err := ParseHeader(token)
	require.NoError(t, err)
	require.Equal(t, []string{header.Type, header.Algorithm, header.KeyID}, parsed.Names())

	kid, err := parsed.KeyID()
	require.NoError(t, err)
	require.Equal(t, "key-1", kid)
}

func TestNilArguments(t *testing.T) {
	_, err := SerializeCompact(NewHeader(), nil, nil)
	require.ErrorIs(t, err, joseerror.ErrGeneric)

	_, _, err = DeserializeCompact("a.b.c", nil)
	require.ErrorIs(t, err, joseerror.ErrGeneric)
}
