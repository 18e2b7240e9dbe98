package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/jwa"
	"github.com/picatz/josekit/pkg/jwk"
	"github.com/picatz/josekit/pkg/jws"
)

// Key file formats accepted by --key-format, --from and --to.
const (
	formatPEM   = "pem"
	formatPKCS1 = "pkcs1"
	formatDER   = "der"
	formatJWK   = "jwk"
	formatJWKS  = "jwks"
	formatRaw   = "raw"
)

// readInput reads the named file, or the command's standard input when
// path is empty or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return b, nil
}

// writeOutput writes b to the named file, or to the command's standard
// output when path is empty or "-". Files are created with mode 0600 since
// they may hold private keys.
func writeOutput(cmd *cobra.Command, path string, b []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(b)
		return err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}

func parseJWK(b []byte) (jwk.Value, error) {
	var v jwk.Value
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("failed to decode JWK: %w", err)
	}
	if err := jwk.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

func marshalJWK(v jwk.Value) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// loadSigner builds a signer for alg from key material in the given
// format. HMAC secrets are read with the "raw" (or "der") format.
func loadSigner(alg jwa.Algorithm, format string, key []byte, kid string) (jws.Signer, error) {
	var (
		s   jws.Signer
		err error
	)
	switch format {
	case formatPEM:
		s, err = jws.SignerFromPEM(alg, key)
	case formatDER, formatRaw:
		s, err = jws.SignerFromDER(alg, key)
	case formatJWK:
		var v jwk.Value
		if v, err = parseJWK(key); err == nil {
			s, err = jws.SignerFromJWK(alg, v)
		}
	default:
		return nil, fmt.Errorf("unsupported key format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if kid != "" {
		return jws.SignerWithKeyID(s, kid)
	}
	return s, nil
}

// selectFromSet picks the key of a JWK set named by kid, or by the "kid" of
// the token's unverified header when kid is empty.
func selectFromSet(data []byte, token, kid string) (jwk.Value, error) {
	set, err := jwk.ParseSet(data)
	if err != nil {
		return nil, err
	}
	if kid == "" {
		h, err := jws.ParseHeader(token)
		if err != nil {
			return nil, err
		}
		if h.Has(header.KeyID) {
			if kid, err = h.KeyID(); err != nil {
				return nil, err
			}
		}
	}
	return set.Get(kid)
}

// loadVerifier is the verifying counterpart of loadSigner.
func loadVerifier(alg jwa.Algorithm, format string, key []byte, kid string) (jws.Verifier, error) {
	var (
		v   jws.Verifier
		err error
	)
	switch format {
	case formatPEM:
		v, err = jws.VerifierFromPEM(alg, key)
	case formatDER, formatRaw:
		v, err = jws.VerifierFromDER(alg, key)
	case formatJWK:
		var value jwk.Value
		if value, err = parseJWK(key); err == nil {
			v, err = jws.VerifierFromJWK(alg, value)
		}
	default:
		return nil, fmt.Errorf("unsupported key format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if kid != "" {
		return jws.VerifierWithKeyID(v, kid)
	}
	return v, nil
}
