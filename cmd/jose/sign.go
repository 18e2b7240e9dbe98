package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picatz/josekit/internal/logs"
	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/jws"
	"github.com/picatz/josekit/pkg/jwt"
)

type signOptions struct {
	alg       string
	key       string
	keyFormat string
	kid       string
	in        string
	payload   string
	asJWT     bool
	unencoded bool
}

func newSignCmd() *cobra.Command {
	opts := &signOptions{}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a payload as a compact JWS or a JWT",
		Long: `Sign a payload and print the compact serialization.

The payload is read from --payload, or from --in. With --jwt the payload must
be a JSON object holding the claims set. With --unencoded the payload is not
base64url encoded (RFC 7797), and must not contain a "." character.`,
		Example: `  jose sign --alg RS256 --key private.pem --payload 'hello'
  jose sign --alg HS256 --key secret.bin --key-format raw --jwt --payload '{"sub":"alice"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.alg, "alg", "", "JWS algorithm, for example RS256, ES256, EdDSA or HS256.")
	cmd.Flags().StringVar(&opts.key, "key", "", "Private key or shared secret file.")
	cmd.Flags().StringVar(&opts.keyFormat, "key-format", formatPEM, "Key format: pem, der, jwk or raw.")
	cmd.Flags().StringVar(&opts.kid, "kid", "", "Key ID written to the header.")
	cmd.Flags().StringVar(&opts.in, "in", "-", "Payload file, or - for standard input.")
	cmd.Flags().StringVar(&opts.payload, "payload", "", "Payload given inline, instead of --in.")
	cmd.Flags().BoolVar(&opts.asJWT, "jwt", false, "Treat the payload as a JWT claims set.")
	cmd.Flags().BoolVar(&opts.unencoded, "unencoded", false, "Use the unencoded payload option.")

	_ = cmd.MarkFlagRequired("alg")
	_ = cmd.MarkFlagRequired("key")
	cmd.MarkFlagsMutuallyExclusive("jwt", "unencoded")

	return cmd
}

func runSign(cmd *cobra.Command, opts *signOptions) error {
	log := logs.FromContext(cmd.Context())

	key, err := readInput(cmd, opts.key)
	if err != nil {
		return err
	}

	signer, err := loadSigner(opts.alg, opts.keyFormat, key, opts.kid)
	if err != nil {
		return err
	}

	payload := []byte(opts.payload)
	if !cmd.Flags().Changed("payload") {
		if payload, err = readInput(cmd, opts.in); err != nil {
			return err
		}
	}

	var token string
	if opts.asJWT {
		claims, err := decodeClaims(payload)
		if err != nil {
			return err
		}
		t, err := jwt.New(nil, claims, signer)
		if err != nil {
			return err
		}
		token = t.String()
	} else {
		h := jws.NewHeader()
		if opts.unencoded {
			if err := h.SetBase64URLEncodePayload(false); err != nil {
				return err
			}
			if err := h.SetCritical([]string{header.Base64URLEncodePayload}); err != nil {
				return err
			}
		}
		if token, err = jws.SerializeCompact(h, payload, signer); err != nil {
			return err
		}
	}

	log.V(logs.Debug).Info("signed payload", "alg", opts.alg, "kid", signer.KeyID(), "jwt", opts.asJWT, "size", len(payload))

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

func decodeClaims(payload []byte) (jwt.ClaimsSet, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimSpace(payload)))
	dec.UseNumber()

	var claims jwt.ClaimsSet
	if err := dec.Decode(&claims); err != nil {
		return nil, fmt.Errorf("claims set must be a JSON object: %w", err)
	}
	return claims, nil
}
