package main

import (
	"crypto/elliptic"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picatz/josekit/internal/logs"
	"github.com/picatz/josekit/pkg/jwk"
	"github.com/picatz/josekit/pkg/keyutil"
)

type keygenOptions struct {
	keyType    string
	bits       int
	format     string
	kid        string
	privateOut string
	publicOut  string
}

func newKeygenCmd() *cobra.Command {
	opts := &keygenOptions{}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key pair",
		Long: `Generate a key pair and write both halves.

Key types are rsa, ec-p256, ec-p384, ec-p521, ed25519 and ed448. Formats are
pem (PKCS#8 and SPKI), pkcs1 (RSA only), der and jwk. Without output files
both halves are written to standard output, which is not supported for der.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.keyType, "type", "rsa", "Key type: rsa, ec-p256, ec-p384, ec-p521, ed25519 or ed448.")
	cmd.Flags().IntVar(&opts.bits, "bits", 2048, "RSA modulus size in bits.")
	cmd.Flags().StringVar(&opts.format, "format", formatPEM, "Output format: pem, pkcs1, der or jwk.")
	cmd.Flags().StringVar(&opts.kid, "kid", "", "Key ID added to JWK output.")
	cmd.Flags().StringVar(&opts.privateOut, "private-out", "", "File for the private key.")
	cmd.Flags().StringVar(&opts.publicOut, "public-out", "", "File for the public key.")

	return cmd
}

func runKeygen(cmd *cobra.Command, opts *keygenOptions) error {
	log := logs.FromContext(cmd.Context())

	if opts.format == formatDER && (opts.privateOut == "" || opts.publicOut == "") {
		return fmt.Errorf("der output requires --private-out and --public-out")
	}

	var private, public []byte

	if opts.keyType == "rsa" {
		pair, err := keyutil.GenerateRSAKeyPair(opts.bits)
		if err != nil {
			return err
		}
		pair.SetKeyID(opts.kid)
		if private, public, err = encodeRSAKeyPair(pair, opts.format, true); err != nil {
			return err
		}
	} else {
		priv, pub, err := generateKey(opts.keyType)
		if err != nil {
			return err
		}
		if private, public, err = encodeKeyPair(priv, pub, opts.format, opts.kid); err != nil {
			return err
		}
	}

	log.V(logs.Debug).Info("generated key pair", "type", opts.keyType, "format", opts.format)

	if err := writeOutput(cmd, opts.privateOut, private); err != nil {
		return err
	}
	return writeOutput(cmd, opts.publicOut, public)
}

func generateKey(keyType string) (private, public any, err error) {
	switch keyType {
	case "ec-p256", "ec-p384", "ec-p521":
		curve := map[string]elliptic.Curve{
			"ec-p256": elliptic.P256(),
			"ec-p384": elliptic.P384(),
			"ec-p521": elliptic.P521(),
		}[keyType]
		pub, priv, err := keyutil.NewECDSAKeyPair(curve)
		return priv, pub, err
	case "ed25519":
		pub, priv, err := keyutil.NewEdDSAKeyPair()
		return priv, pub, err
	case "ed448":
		pub, priv, err := keyutil.NewEd448KeyPair()
		return priv, pub, err
	default:
		return nil, nil, fmt.Errorf("unsupported key type %q", keyType)
	}
}

// encodeRSAKeyPair encodes the halves of pair present in it. The private
// half is skipped when withPrivate is false.
func encodeRSAKeyPair(pair *keyutil.RSAKeyPair, format string, withPrivate bool) (private, public []byte, err error) {
	switch format {
	case formatPEM:
		if withPrivate {
			if private, err = pair.ToPEMPrivateKey(); err != nil {
				return nil, nil, err
			}
		}
		public, err = pair.ToPEMPublicKey()
	case formatPKCS1:
		if withPrivate {
			if private, err = pair.ToTraditionalPEMPrivateKey(); err != nil {
				return nil, nil, err
			}
		}
		public = pair.ToTraditionalPEMPublicKey()
	case formatDER:
		if withPrivate {
			if private, err = pair.ToDERPrivateKey(); err != nil {
				return nil, nil, err
			}
		}
		public, err = pair.ToDERPublicKey()
	case formatJWK:
		if withPrivate {
			v, err := pair.ToJWKPrivateKey()
			if err != nil {
				return nil, nil, err
			}
			if private, err = marshalJWK(v); err != nil {
				return nil, nil, err
			}
		}
		v, err := pair.ToJWKPublicKey()
		if err != nil {
			return nil, nil, err
		}
		public, err = marshalJWK(v)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unsupported key format %q", format)
	}
	if err != nil {
		return nil, nil, err
	}
	return private, public, nil
}

func encodeKeyPair(priv, pub any, format, kid string) (private, public []byte, err error) {
	switch format {
	case formatPEM, formatDER:
		if private, err = keyutil.MarshalPrivateKey(priv); err != nil {
			return nil, nil, err
		}
		if public, err = keyutil.MarshalPublicKey(pub); err != nil {
			return nil, nil, err
		}
		if format == formatPEM {
			private = keyutil.EncodePEM(keyutil.LabelPrivateKey, private)
			public = keyutil.EncodePEM(keyutil.LabelPublicKey, public)
		}
		return private, public, nil
	case formatJWK:
		privateJWK, err := jwk.ValueFromPrivateKey(priv)
		if err != nil {
			return nil, nil, err
		}
		publicJWK, err := jwk.ValueFromPublicKey(pub)
		if err != nil {
			return nil, nil, err
		}
		if kid != "" {
			privateJWK[jwk.KeyID] = kid
			publicJWK[jwk.KeyID] = kid
		}
		if private, err = marshalJWK(privateJWK); err != nil {
			return nil, nil, err
		}
		if public, err = marshalJWK(publicJWK); err != nil {
			return nil, nil, err
		}
		return private, public, nil
	default:
		return nil, nil, fmt.Errorf("unsupported key format %q for this key type", format)
	}
}
