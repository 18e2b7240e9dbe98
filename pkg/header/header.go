package header

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"golang.org/x/exp/slices"

	"github.com/picatz/josekit/pkg/base64"
	"github.com/picatz/josekit/pkg/joseerror"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
)

// There are three classes of Header Parameter names: Registered Header
// Parameter names, Public Header Parameter names, and Private Header
// Parameter names.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4
type (
	ParamaterName = string

	Registered = ParamaterName
	Public     = ParamaterName
	Private    = ParamaterName
)

// Registered Header Paramater Names
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1
const (
	Type                            Registered = "typ"
	Algorithm                       Registered = "alg"
	JWKSetURL                       Registered = "jku"
	JSONWebKey                      Registered = "jwk"
	X509URL                         Registered = "x5u"
	X509CertificateChain            Registered = "x5c"
	X509CertificateSHA1Thumbprint   Registered = "x5t"
	X509CertificateSHA256Thumbprint Registered = "x5t#S256"
	ContentType                     Registered = "cty"
	Critical                        Registered = "crit"
	KeyID                           Registered = "kid"

	// https://datatracker.ietf.org/doc/html/rfc7797#section-3
	Base64URLEncodePayload Registered = "b64"

	// https://datatracker.ietf.org/doc/html/rfc8555#section-6.4.1
	URL   Registered = "url"
	Nonce Registered = "nonce"

	// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1.2
	Encryption Registered = "enc"

	// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1.3
	Compression Registered = "zip"

	// https://datatracker.ietf.org/doc/html/rfc7518#section-4.6.1
	EphemeralPublicKey  Registered = "epk"
	AgreementPartyUInfo Registered = "apu"
	AgreementPartyVInfo Registered = "apv"

	// https://datatracker.ietf.org/doc/html/rfc7518#section-4.7.1
	InitializationVector Registered = "iv"
	AuthenticationTag    Registered = "tag"

	// https://datatracker.ietf.org/doc/html/rfc7518#section-4.8.1
	PBES2SaltInput Registered = "p2s"
	PBES2Count     Registered = "p2c"
)

const TypeJWT = "JWT"

var (
	ErrParameterNotFound    = errors.New("header: parameter not found")
	ErrInvalidParameterType = errors.New("header: invalid parameter type")
)

// Parameters is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// The JOSE (JSON Object Signing and Encryption) Parameters is comprised
// of a set of Header Parameters. Parameters keep their insertion order,
// and every parameter is checked against the header's [Rules] when it is
// added.
//
// A Parameters value must not be mutated concurrently.
type Parameters struct {
	rules  *Rules
	names  []ParamaterName
	values map[ParamaterName]any
}

// New returns an empty header bound to the given rules. A nil rules value
// selects [JWS].
func New(rules *Rules) *Parameters {
	if rules == nil {
		rules = JWS
	}
	return &Parameters{
		rules:  rules,
		values: map[ParamaterName]any{},
	}
}

// FromJSON parses a header from a JSON object, keeping member order.
// Malformed JSON, a non-object value, duplicate member names and trailing
// data are errors of kind [joseerror.ErrInvalidJSON]; parameter rule
// violations are of the rules' kind.
func FromJSON(rules *Rules, data []byte) (*Parameters, error) {
	h := New(rules)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidJSON, "failed to decode header: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, joseerror.New(joseerror.ErrInvalidJSON, "header is not a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, joseerror.New(joseerror.ErrInvalidJSON, "failed to decode header member name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, joseerror.New(joseerror.ErrInvalidJSON, "invalid header member name %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, joseerror.New(joseerror.ErrInvalidJSON, "failed to decode header member %q: %w", name, err)
		}

		if _, dup := h.values[name]; dup {
			return nil, joseerror.New(joseerror.ErrInvalidJSON, "duplicate header member %q", name)
		}

		if err := h.rules.Check(name, value); err != nil {
			return nil, err
		}

		h.names = append(h.names, name)
		h.values[name] = value
	}

	if _, err := dec.Token(); err != nil {
		return nil, joseerror.New(joseerror.ErrInvalidJSON, "failed to decode header: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, joseerror.New(joseerror.ErrInvalidJSON, "unexpected data after header object")
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}

	return h, nil
}

// FromMap returns a header holding the given parameters, ordered by name.
func FromMap(rules *Rules, m map[ParamaterName]any) (*Parameters, error) {
	h := New(rules)

	names := make([]ParamaterName, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.SetClaim(name, m[name]); err != nil {
			return nil, err
		}
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}

	return h, nil
}

// UnmarshalJSON implements json.Unmarshaler. The header keeps its rules, or
// uses [JWS] when it has none.
func (h *Parameters) UnmarshalJSON(data []byte) error {
	parsed, err := FromJSON(h.rules, data)
	if err != nil {
		return err
	}
	*h = *parsed
	return nil
}

// MarshalJSON emits the parameters as a JSON object in insertion order.
func (h *Parameters) MarshalJSON() ([]byte, error) {
	buff := bytes.NewBuffer(nil)
	buff.WriteByte('{')
	for i, name := range h.names {
		if i > 0 {
			buff.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(h.values[name])
		if err != nil {
			return nil, fmt.Errorf("failed to encode header parameter %q: %w", name, err)
		}
		buff.Write(key)
		buff.WriteByte(':')
		buff.Write(value)
	}
	buff.WriteByte('}')
	return buff.Bytes(), nil
}

// Base64URLString returns the base64url encoding of the JSON header.
func (h *Parameters) Base64URLString() (string, error) {
	b, err := h.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode JOSE header base64 URL string: %w", err)
	}
	return base64.Encode(b), nil
}

// init makes the zero value usable as an empty JWS header.
func (h *Parameters) init() {
	if h.rules == nil {
		h.rules = JWS
	}
	if h.values == nil {
		h.values = map[ParamaterName]any{}
	}
}

// Rules returns the rules the header is bound to.
func (h *Parameters) Rules() *Rules {
	h.init()
	return h.rules
}

// Len returns the number of parameters.
func (h *Parameters) Len() int {
	return len(h.names)
}

// Names returns the parameter names in insertion order.
func (h *Parameters) Names() []ParamaterName {
	return slices.Clone(h.names)
}

// Has reports whether the named parameter is present.
func (h *Parameters) Has(param ParamaterName) bool {
	_, ok := h.values[param]
	return ok
}

// Get returns the raw value of the named parameter.
func (h *Parameters) Get(param ParamaterName) (any, error) {
	value, ok := h.values[param]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrParameterNotFound, param)
	}
	return value, nil
}

// SetClaim sets the named parameter after checking it against the header
// rules, or removes it when value is nil. A parameter that is already set
// keeps its position.
func (h *Parameters) SetClaim(param ParamaterName, value any) error {
	h.init()

	if value == nil {
		if _, ok := h.values[param]; ok {
			delete(h.values, param)
			h.names = slices.DeleteFunc(h.names, func(n ParamaterName) bool { return n == param })
		}
		return nil
	}

	if err := h.rules.Check(param, value); err != nil {
		return err
	}

	if _, ok := h.values[param]; !ok {
		h.names = append(h.names, param)
	}
	h.values[param] = value
	return nil
}

// Validate checks the rules that span parameters: "b64" set to false is
// only legal when "crit" lists "b64".
//
// https://datatracker.ietf.org/doc/html/rfc7797#section-6
func (h *Parameters) Validate() error {
	h.init()

	if b64, ok := h.values[Base64URLEncodePayload].(bool); ok && !b64 {
		crit, _ := h.Critical()
		if !slices.Contains(crit, Base64URLEncodePayload) {
			return joseerror.New(h.rules.kind, "header parameter %q set to false requires %q to list it", Base64URLEncodePayload, Critical)
		}
	}
	return nil
}

// Clone returns a deep enough copy of h that mutating either header does
// not affect the other.
func (h *Parameters) Clone() *Parameters {
	h.init()

	out := &Parameters{
		rules:  h.rules,
		names:  slices.Clone(h.names),
		values: make(map[ParamaterName]any, len(h.values)),
	}
	for k, v := range h.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = cloneValue(v[i])
		}
		return out
	case []string:
		return slices.Clone(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func (h *Parameters) getString(param ParamaterName) (string, error) {
	value, ok := h.values[param]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParameterNotFound, param)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T", ErrInvalidParameterType, param, value)
	}
	return s, nil
}

func (h *Parameters) getBytes(param ParamaterName) ([]byte, error) {
	s, err := h.getString(param)
	if err != nil {
		return nil, err
	}
	b, err := base64.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidParameterType, param, err)
	}
	return b, nil
}

// Algorithm returns the "alg" parameter.
func (h *Parameters) Algorithm() (jwa.Algorithm, error) {
	return h.getString(Algorithm)
}

// SetAlgorithm sets the "alg" parameter.
func (h *Parameters) SetAlgorithm(alg jwa.Algorithm) error {
	return h.SetClaim(Algorithm, alg)
}

// Type returns the "typ" parameter.
func (h *Parameters) Type() (string, error) {
	return h.getString(Type)
}

func (h *Parameters) SetType(typ string) error {
	return h.SetClaim(Type, typ)
}

// KeyID returns the "kid" parameter.
func (h *Parameters) KeyID() (string, error) {
	return h.getString(KeyID)
}

func (h *Parameters) SetKeyID(kid string) error {
	return h.SetClaim(KeyID, kid)
}

// ContentType returns the "cty" parameter.
func (h *Parameters) ContentType() (string, error) {
	return h.getString(ContentType)
}

func (h *Parameters) SetContentType(cty string) error {
	return h.SetClaim(ContentType, cty)
}

// JWKSetURL returns the "jku" parameter.
func (h *Parameters) JWKSetURL() (string, error) {
	return h.getString(JWKSetURL)
}

func (h *Parameters) SetJWKSetURL(jku string) error {
	return h.SetClaim(JWKSetURL, jku)
}

// X509URL returns the "x5u" parameter.
func (h *Parameters) X509URL() (string, error) {
	return h.getString(X509URL)
}

func (h *Parameters) SetX509URL(x5u string) error {
	return h.SetClaim(X509URL, x5u)
}

// URL returns the "url" parameter.
func (h *Parameters) URL() (string, error) {
	return h.getString(URL)
}

func (h *Parameters) SetURL(url string) error {
	return h.SetClaim(URL, url)
}

// Critical returns the "crit" parameter.
func (h *Parameters) Critical() ([]string, error) {
	value, ok := h.values[Critical]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrParameterNotFound, Critical)
	}
	crit, ok := jwk.StringArray(value)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T", ErrInvalidParameterType, Critical, value)
	}
	return crit, nil
}

func (h *Parameters) SetCritical(crit []string) error {
	return h.SetClaim(Critical, slices.Clone(crit))
}

// Base64URLEncodePayload returns the "b64" parameter.
func (h *Parameters) Base64URLEncodePayload() (bool, error) {
	value, ok := h.values[Base64URLEncodePayload]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrParameterNotFound, Base64URLEncodePayload)
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q is %T", ErrInvalidParameterType, Base64URLEncodePayload, value)
	}
	return b, nil
}

// SetBase64URLEncodePayload sets the "b64" parameter. Setting it to false
// also requires listing it in "crit", see [Parameters.Validate].
func (h *Parameters) SetBase64URLEncodePayload(b64 bool) error {
	return h.SetClaim(Base64URLEncodePayload, b64)
}

// PayloadEncoded reports whether the payload is base64url encoded, which is
// the default when "b64" is absent.
func (h *Parameters) PayloadEncoded() bool {
	b64, err := h.Base64URLEncodePayload()
	if err != nil {
		return true
	}
	return b64
}

// X509CertificateChain returns the decoded "x5c" entries.
func (h *Parameters) X509CertificateChain() ([][]byte, error) {
	value, ok := h.values[X509CertificateChain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrParameterNotFound, X509CertificateChain)
	}
	entries, ok := jwk.StringArray(value)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T", ErrInvalidParameterType, X509CertificateChain, value)
	}
	chain := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		cert, err := base64.Decode(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidParameterType, X509CertificateChain, err)
		}
		chain = append(chain, cert)
	}
	return chain, nil
}

func (h *Parameters) SetX509CertificateChain(chain [][]byte) error {
	entries := make([]string, 0, len(chain))
	for _, cert := range chain {
		entries = append(entries, base64.Encode(cert))
	}
	return h.SetClaim(X509CertificateChain, entries)
}

// X509CertificateSHA1Thumbprint returns the decoded "x5t" parameter.
func (h *Parameters) X509CertificateSHA1Thumbprint() ([]byte, error) {
	return h.getBytes(X509CertificateSHA1Thumbprint)
}

func (h *Parameters) SetX509CertificateSHA1Thumbprint(x5t []byte) error {
	return h.SetClaim(X509CertificateSHA1Thumbprint, base64.Encode(x5t))
}

// X509CertificateSHA256Thumbprint returns the decoded "x5t#S256" parameter.
func (h *Parameters) X509CertificateSHA256Thumbprint() ([]byte, error) {
	return h.getBytes(X509CertificateSHA256Thumbprint)
}

func (h *Parameters) SetX509CertificateSHA256Thumbprint(x5t []byte) error {
	return h.SetClaim(X509CertificateSHA256Thumbprint, base64.Encode(x5t))
}

// Nonce returns the decoded "nonce" parameter.
func (h *Parameters) Nonce() ([]byte, error) {
	return h.getBytes(Nonce)
}

func (h *Parameters) SetNonce(nonce []byte) error {
	return h.SetClaim(Nonce, base64.Encode(nonce))
}

// JWK returns the embedded "jwk" parameter.
func (h *Parameters) JWK() (jwk.Value, error) {
	value, ok := h.values[JSONWebKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrParameterNotFound, JSONWebKey)
	}
	v, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T", ErrInvalidParameterType, JSONWebKey, value)
	}
	return v, nil
}

func (h *Parameters) SetJWK(v jwk.Value) error {
	return h.SetClaim(JSONWebKey, v)
}

// Encryption returns the JWE "enc" parameter.
func (h *Parameters) Encryption() (string, error) {
	return h.getString(Encryption)
}

func (h *Parameters) SetEncryption(enc string) error {
	return h.SetClaim(Encryption, enc)
}

// PBES2SaltInput returns the decoded JWE "p2s" parameter.
func (h *Parameters) PBES2SaltInput() ([]byte, error) {
	return h.getBytes(PBES2SaltInput)
}

func (h *Parameters) SetPBES2SaltInput(p2s []byte) error {
	return h.SetClaim(PBES2SaltInput, base64.Encode(p2s))
}

// PBES2Count returns the JWE "p2c" parameter.
func (h *Parameters) PBES2Count() (uint64, error) {
	value, ok := h.values[PBES2Count]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParameterNotFound, PBES2Count)
	}
	n, err := toUint64(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidParameterType, PBES2Count, err)
	}
	return n, nil
}

func (h *Parameters) SetPBES2Count(p2c uint64) error {
	return h.SetClaim(PBES2Count, p2c)
}
