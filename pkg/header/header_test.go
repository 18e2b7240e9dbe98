package header_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
)

func TestJSONDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, params *header.Parameters)
	}{
		{
			name:  "typ and alg",
			input: `{"typ":"JWT","alg":"HS256"}`,
			check: func(t *testing.T, params *header.Parameters) {
				typ, err := params.Type()
				require.NoError(t, err)
				require.Equal(t, header.TypeJWT, typ)

				alg, err := params.Algorithm()
				require.NoError(t, err)
				require.Equal(t, jwa.HS256, alg)
			},
		},
		{
			name:  "typ and alg and kid",
			input: `{"typ":"JWT","alg":"HS256","kid":"key-id"}`,
			check: func(t *testing.T, params *header.Parameters) {
				kid, err := params.Get(header.KeyID)
				require.NoError(t, err)
				require.Equal(t, "key-id", kid)

				kid, err = params.KeyID()
				require.NoError(t, err)
				require.Equal(t, "key-id", kid)
			},
		},
		{
			name:  "typ and alg and kid and crit",
			input: `{"typ":"JWT","alg":"HS256","kid":"key-id","crit":["exp","nbf"]}`,
			check: func(t *testing.T, params *header.Parameters) {
				crit, err := params.Get(header.Critical)
				require.NoError(t, err)
				require.Equal(t, []any{"exp", "nbf"}, crit)

				names, err := params.Critical()
				require.NoError(t, err)
				require.Equal(t, []string{"exp", "nbf"}, names)
			},
		},
		{
			name:  "missing typ",
			input: `{"alg":"HS256"}`,
			check: func(t *testing.T, params *header.Parameters) {
				typ, err := params.Type()
				require.Error(t, err)
				require.ErrorIs(t, err, header.ErrParameterNotFound)
				require.Equal(t, "", typ)
			},
		},
		{
			name:  "missing alg",
			input: `{"typ":"JWT"}`,
			check: func(t *testing.T, params *header.Parameters) {
				alg, err := params.Algorithm()
				require.Error(t, err)
				require.ErrorIs(t, err, header.ErrParameterNotFound)
				require.Equal(t, "", alg)
			},
		},
		{
			name:  "unknown parameters are kept untyped",
			input: `{"alg":"HS256","custom":123,"other":{"a":[1,2]}}`,
			check: func(t *testing.T, params *header.Parameters) {
				v, err := params.Get("custom")
				require.NoError(t, err)
				require.Equal(t, json.Number("123"), v)
				require.Equal(t, []string{"alg", "custom", "other"}, params.Names())
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			params := header.New(header.JWS)
			err := json.NewDecoder(strings.NewReader(test.input)).Decode(params)
			require.NoError(t, err)

			test.check(t, params)
		})
	}
}

func TestFromJSONOrder(t *testing.T) {
	input := `{"zeta":"z","alg":"RS256","typ":"JWT","b64":true,"kid":"k1"}`

	params, err := header.FromJSON(header.JWS, []byte(input))
	require.NoError(t, err)
	require.Equal(t, []string{"zeta", "alg", "typ", "b64", "kid"}, params.Names())

	out, err := json.Marshal(params)
	require.NoError(t, err)
	require.Equal(t, input, string(out))
}

func TestFromJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  error
		claim string
	}{
		{name: "syntax", input: `{"alg":`, kind: joseerror.ErrInvalidJSON},
		{name: "not an object", input: `["alg"]`, kind: joseerror.ErrInvalidJSON},
		{name: "empty input", input: ``, kind: joseerror.ErrInvalidJSON},
		{name: "duplicate member", input: `{"alg":"HS256","alg":"none"}`, kind: joseerror.ErrInvalidJSON},
		{name: "trailing data", input: `{"alg":"HS256"}{}`, kind: joseerror.ErrInvalidJSON},
		{name: "alg not a string", input: `{"alg":123}`, kind: joseerror.ErrInvalidJWSFormat, claim: "alg"},
		{name: "typ not a string", input: `{"typ":123,"alg":"HS256"}`, kind: joseerror.ErrInvalidJWSFormat, claim: "typ"},
		{name: "crit not an array", input: `{"crit":"b64"}`, kind: joseerror.ErrInvalidJWSFormat, claim: "crit"},
		{name: "crit empty", input: `{"crit":[]}`, kind: joseerror.ErrInvalidJWSFormat, claim: "crit"},
		{name: "crit entry not a string", input: `{"crit":["b64",1]}`, kind: joseerror.ErrInvalidJWSFormat, claim: "crit"},
		{name: "x5t not base64url", input: `{"x5t":"not+base64/="}`, kind: joseerror.ErrInvalidJWSFormat, claim: "x5t"},
		{name: "x5t#S256 not a string", input: `{"x5t#S256":true}`, kind: joseerror.ErrInvalidJWSFormat, claim: "x5t#S256"},
		{name: "nonce not base64url", input: `{"nonce":"a=="}`, kind: joseerror.ErrInvalidJWSFormat, claim: "nonce"},
		{name: "x5c entry not base64url", input: `{"x5c":["AQAB","?"]}`, kind: joseerror.ErrInvalidJWSFormat, claim: "x5c"},
		{name: "x5t with line break", input: `{"x5t":"AAAA\nAAAA"}`, kind: joseerror.ErrInvalidJWSFormat, claim: "x5t"},
		{name: "x5c entry with line break", input: `{"x5c":["AQAB\r\n"]}`, kind: joseerror.ErrInvalidJWSFormat, claim: "x5c"},
		{name: "jwk not an object", input: `{"jwk":"key"}`, kind: joseerror.ErrInvalidJWSFormat, claim: "jwk"},
		{name: "jwk invalid", input: `{"jwk":{"kty":"RSA"}}`, kind: joseerror.ErrInvalidJWSFormat, claim: "jwk"},
		{name: "b64 not a bool", input: `{"b64":"false"}`, kind: joseerror.ErrInvalidJWSFormat, claim: "b64"},
		{name: "b64 false without crit", input: `{"b64":false}`, kind: joseerror.ErrInvalidJWSFormat, claim: "b64"},
		{name: "b64 false with other crit", input: `{"b64":false,"crit":["exp"]}`, kind: joseerror.ErrInvalidJWSFormat, claim: "b64"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := header.FromJSON(header.JWS, []byte(test.input))
			require.Error(t, err)
			require.ErrorIs(t, err, test.kind)
			require.Equal(t, test.kind, joseerror.KindOf(err))
			if test.claim != "" {
				require.Contains(t, err.Error(), `"`+test.claim+`"`)
			}
		})
	}
}

func TestJWERules(t *testing.T) {
	params, err := header.FromJSON(header.JWE, []byte(`{"alg":"PBES2-HS256+A128KW","enc":"A128GCM","p2s":"AAAAAAAAAAA","p2c":4096}`))
	require.NoError(t, err)

	p2c, err := params.PBES2Count()
	require.NoError(t, err)
	require.Equal(t, uint64(4096), p2c)

	p2s, err := params.PBES2SaltInput()
	require.NoError(t, err)
	require.Len(t, p2s, 8)

	for name, input := range map[string]string{
		"negative p2c":   `{"p2c":-1}`,
		"fractional p2c": `{"p2c":1.5}`,
		"huge p2c":       `{"p2c":18446744073709551616}`,
		"string p2c":     `{"p2c":"1000"}`,
		"p2s not b64":    `{"p2s":"***"}`,
		"enc not string": `{"enc":1}`,
		"epk invalid":    `{"epk":{"kty":"EC"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := header.FromJSON(header.JWE, []byte(input))
			require.ErrorIs(t, err, joseerror.ErrInvalidJWEFormat)
		})
	}

	t.Run("b64 is untyped in JWE headers", func(t *testing.T) {
		_, err := header.FromJSON(header.JWE, []byte(`{"b64":"yes"}`))
		require.NoError(t, err)
	})
}

func TestFromMap(t *testing.T) {
	params, err := header.FromMap(header.JWS, map[string]any{
		"typ": "JWT",
		"alg": "ES256",
		"kid": "abc",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"alg", "kid", "typ"}, params.Names())

	_, err = header.FromMap(header.JWS, map[string]any{"x5t": "%%"})
	require.ErrorIs(t, err, joseerror.ErrInvalidJWSFormat)
	require.Contains(t, err.Error(), `"x5t"`)

	_, err = header.FromMap(header.JWS, map[string]any{"x5t": "AAAA\nAAAA"})
	require.ErrorIs(t, err, joseerror.ErrInvalidJWSFormat)

	_, err = header.FromMap(header.JWS, map[string]any{"b64": false})
	require.ErrorIs(t, err, joseerror.ErrInvalidJWSFormat)

	params, err = header.FromMap(header.JWS, map[string]any{"b64": false, "crit": []string{"b64"}})
	require.NoError(t, err)
	require.False(t, params.PayloadEncoded())
}

func TestSetClaim(t *testing.T) {
	params := header.New(nil)
	require.Same(t, header.JWS, params.Rules())

	require.NoError(t, params.SetAlgorithm(jwa.RS256))
	require.NoError(t, params.SetType(header.TypeJWT))
	require.NoError(t, params.SetClaim("custom", []int{1, 2}))
	require.Equal(t, 3, params.Len())

	err := params.SetClaim(header.Critical, "b64")
	require.ErrorIs(t, err, joseerror.ErrInvalidJWSFormat)
	require.Contains(t, err.Error(), `"crit"`)
	require.False(t, params.Has(header.Critical))

	err = params.SetClaim(header.X509CertificateSHA1Thumbprint, "not base64!")
	require.ErrorIs(t, err, joseerror.ErrInvalidJWSFormat)
	require.Contains(t, err.Error(), `"x5t"`)

	// Replacing keeps the position, removing drops it.
	require.NoError(t, params.SetAlgorithm(jwa.PS256))
	require.Equal(t, []string{"alg", "typ", "custom"}, params.Names())
	require.NoError(t, params.SetClaim(header.Type, nil))
	require.Equal(t, []string{"alg", "custom"}, params.Names())
	require.NoError(t, params.SetClaim("missing", nil))

	alg, err := params.Algorithm()
	require.NoError(t, err)
	require.Equal(t, jwa.PS256, alg)
}

func TestZeroValue(t *testing.T) {
	var params header.Parameters
	require.NoError(t, params.SetKeyID("k"))
	require.Equal(t, []string{"kid"}, params.Names())

	var decoded header.Parameters
	require.NoError(t, json.Unmarshal([]byte(`{"alg":"HS256"}`), &decoded))
	require.True(t, decoded.Has(header.Algorithm))
	require.Error(t, json.Unmarshal([]byte(`{"alg":1}`), &decoded))
}

func TestTypedAccessors(t *testing.T) {
	params := header.New(header.JWS)

	require.NoError(t, params.SetCritical([]string{"b64"}))
	require.NoError(t, params.SetBase64URLEncodePayload(false))
	require.NoError(t, params.Validate())
	require.False(t, params.PayloadEncoded())

	require.NoError(t, params.SetX509CertificateChain([][]byte{{0x30, 0x82}, {0x30, 0x83}}))
	chain, err := params.X509CertificateChain()
	require.NoError(t, err)
	require.Equal(t, [][]byte{{0x30, 0x82}, {0x30, 0x83}}, chain)

	require.NoError(t, params.SetX509CertificateSHA256Thumbprint([]byte{0xff, 0xee}))
	x5t, err := params.X509CertificateSHA256Thumbprint()
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xee}, x5t)

	require.NoError(t, params.SetNonce([]byte("nonce")))
	nonce, err := params.Nonce()
	require.NoError(t, err)
	require.Equal(t, []byte("nonce"), nonce)

	require.NoError(t, params.SetJWK(map[string]any{"kty": "oct", "k": "c2VjcmV0"}))
	key, err := params.JWK()
	require.NoError(t, err)
	require.Equal(t, "oct", key["kty"])

	require.NoError(t, params.SetClaim(header.ContentType, "JWT"))
	cty, err := params.ContentType()
	require.NoError(t, err)
	require.Equal(t, "JWT", cty)

	_, err = params.X509CertificateSHA1Thumbprint()
	require.ErrorIs(t, err, header.ErrParameterNotFound)

	require.NoError(t, params.SetClaim(header.Critical, nil))
	require.Error(t, params.Validate())
	require.True(t, header.New(header.JWS).PayloadEncoded())
}

func TestClone(t *testing.T) {
	params, err := header.FromJSON(header.JWS, []byte(`{"alg":"HS256","crit":["exp"],"x":{"y":["z"]}}`))
	require.NoError(t, err)

	clone := params.Clone()
	require.NoError(t, clone.SetKeyID("other"))
	v, _ := clone.Get("x")
	v.(map[string]any)["y"].([]any)[0] = "changed"

	require.False(t, params.Has(header.KeyID))
	orig, _ := params.Get("x")
	require.Equal(t, "z", orig.(map[string]any)["y"].([]any)[0])
}

func TestCustomRules(t *testing.T) {
	rules := header.JWS.With("exp", header.Uint64)
	require.Equal(t, "JWS", rules.Name())
	require.Equal(t, joseerror.ErrInvalidJWSFormat, rules.Kind())

	_, err := header.FromJSON(rules, []byte(`{"exp":"soon"}`))
	require.ErrorIs(t, err, joseerror.ErrInvalidJWSFormat)

	_, err = header.FromJSON(header.JWS, []byte(`{"exp":"soon"}`))
	require.NoError(t, err)
}
