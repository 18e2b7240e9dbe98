package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picatz/josekit/internal/logs"
	"github.com/picatz/josekit/pkg/keyutil"
)

type convertOptions struct {
	in         string
	out        string
	from       string
	to         string
	publicOnly bool
	kid        string
	alg        string
}

func newConvertCmd() *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an RSA key between DER, PEM and JWK",
		Long: `Convert an RSA private or public key between formats.

Input formats are pem (PKCS#8, PKCS#1 or SPKI), der and jwk. Output formats
are pem (PKCS#8 or SPKI), pkcs1, der and jwk. A private key is written as a
private key unless --public is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.in, "in", "-", "Input key file, or - for standard input.")
	cmd.Flags().StringVar(&opts.out, "out", "-", "Output key file, or - for standard output.")
	cmd.Flags().StringVar(&opts.from, "from", formatPEM, "Input format: pem, der or jwk.")
	cmd.Flags().StringVar(&opts.to, "to", formatJWK, "Output format: pem, pkcs1, der or jwk.")
	cmd.Flags().BoolVar(&opts.publicOnly, "public", false, "Write only the public key.")
	cmd.Flags().StringVar(&opts.kid, "kid", "", "Key ID added to JWK output.")
	cmd.Flags().StringVar(&opts.alg, "alg", "", "Algorithm added to JWK output.")

	return cmd
}

func runConvert(cmd *cobra.Command, opts *convertOptions) error {
	log := logs.FromContext(cmd.Context())

	input, err := readInput(cmd, opts.in)
	if err != nil {
		return err
	}

	var pair *keyutil.RSAKeyPair
	switch opts.from {
	case formatPEM:
		pair, err = keyutil.RSAKeyPairFromPEM(input)
	case formatDER:
		pair, err = keyutil.RSAKeyPairFromDER(input)
	case formatJWK:
		v, jwkErr := parseJWK(input)
		if jwkErr != nil {
			return jwkErr
		}
		pair, err = keyutil.RSAKeyPairFromJWK(v)
	default:
		return fmt.Errorf("unsupported input format %q", opts.from)
	}
	if err != nil {
		return err
	}

	if opts.kid != "" {
		pair.SetKeyID(opts.kid)
	}
	if opts.alg != "" {
		pair.SetAlgorithm(opts.alg)
	}

	withPrivate := pair.PrivateKey() != nil && !opts.publicOnly

	private, public, err := encodeRSAKeyPair(pair, opts.to, withPrivate)
	if err != nil {
		return err
	}

	log.V(logs.Debug).Info("converted key", "key", pair.String(), "from", opts.from, "to", opts.to)

	if withPrivate {
		return writeOutput(cmd, opts.out, private)
	}
	return writeOutput(cmd, opts.out, public)
}
