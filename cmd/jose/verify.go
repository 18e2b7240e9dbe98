package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/picatz/josekit/internal/logs"
	"github.com/picatz/josekit/pkg/jwk"
	"github.com/picatz/josekit/pkg/jws"
	"github.com/picatz/josekit/pkg/jwt"
)

type verifyOptions struct {
	alg       string
	key       string
	keyFormat string
	kid       string
	in        string
	critical  []string
	asJWT     bool
	issuers   []string
	audiences []string
}

func newVerifyCmd() *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify [token]",
		Short: "Verify a compact JWS or a JWT and print its payload",
		Long: `Verify a compact JWS and print its payload.

The token is given as an argument, or read from --in. With --jwt the claims
set is checked and printed as indented JSON. A token carrying a "kid" is
only accepted with a matching --kid, and the other way around.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.alg, "alg", "", "JWS algorithm the token must use.")
	cmd.Flags().StringVar(&opts.key, "key", "", "Public key or shared secret file.")
	cmd.Flags().StringVar(&opts.keyFormat, "key-format", formatPEM, "Key format: pem, der, jwk, jwks or raw. A jwks key is picked by --kid or the token's kid.")
	cmd.Flags().StringVar(&opts.kid, "kid", "", "Key ID the header must carry.")
	cmd.Flags().StringVar(&opts.in, "in", "-", "Token file, or - for standard input.")
	cmd.Flags().StringSliceVar(&opts.critical, "crit", nil, "Critical header parameters to accept.")
	cmd.Flags().BoolVar(&opts.asJWT, "jwt", false, "Treat the token as a JWT.")
	cmd.Flags().StringSliceVar(&opts.issuers, "issuer", nil, "Allowed JWT issuers.")
	cmd.Flags().StringSliceVar(&opts.audiences, "audience", nil, "Allowed JWT audiences.")

	_ = cmd.MarkFlagRequired("alg")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func runVerify(cmd *cobra.Command, opts *verifyOptions, args []string) error {
	log := logs.FromContext(cmd.Context())

	key, err := readInput(cmd, opts.key)
	if err != nil {
		return err
	}

	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		b, err := readInput(cmd, opts.in)
		if err != nil {
			return err
		}
		token = string(b)
	}
	token = strings.TrimSpace(token)

	verifier, err := verifierFor(cmd, opts, key, token)
	if err != nil {
		return err
	}

	if !opts.asJWT {
		h, payload, err := jws.DeserializeCompact(token, verifier, jws.WithCriticalHeaders(opts.critical...))
		if err != nil {
			return err
		}
		log.V(logs.Debug).Info("verified token", "header", h.Names())
		_, err = cmd.OutOrStdout().Write(payload)
		return err
	}

	parseOpts := []jwt.ParseOption{jwt.WithCriticalHeaders(opts.critical...)}
	if len(opts.issuers) > 0 {
		parseOpts = append(parseOpts, jwt.WithAllowedIssuers(opts.issuers...))
	}
	if len(opts.audiences) > 0 {
		parseOpts = append(parseOpts, jwt.WithAllowedAudiences(opts.audiences...))
	}

	t, err := jwt.Parse(token, verifier, parseOpts...)
	if err != nil {
		return err
	}

	log.V(logs.Debug).Info("verified JWT", "header", t.Header.Names(), "claims", t.Claims.Names())

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t.Claims); err != nil {
		return fmt.Errorf("failed to encode claims: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func verifierFor(cmd *cobra.Command, opts *verifyOptions, key []byte, token string) (jws.Verifier, error) {
	if opts.keyFormat != formatJWKS {
		return loadVerifier(opts.alg, opts.keyFormat, key, opts.kid)
	}

	v, err := selectFromSet(key, token, opts.kid)
	if err != nil {
		return nil, err
	}
	logs.FromContext(cmd.Context()).V(logs.Debug).Info("selected key from set", "kid", jwk.KeyIDOf(v))

	return jws.VerifierFromJWK(opts.alg, v)
}
