package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picatz/josekit/internal/logs"
	"github.com/picatz/josekit/pkg/base64"
	"github.com/picatz/josekit/pkg/header"
	"github.com/picatz/josekit/pkg/jwe"
)

// contentKeyLengths maps "enc" values to their content encryption key
// length in bytes.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-5.1
var contentKeyLengths = map[string]int{
	"A128CBC-HS256": 32,
	"A192CBC-HS384": 48,
	"A256CBC-HS512": 64,
	"A128GCM":       16,
	"A192GCM":       24,
	"A256GCM":       32,
}

// Defaults for "pbes2 wrap". The iteration count matches the largest one
// other common JOSE libraries accept by default.
const (
	defaultIterationCount = 10_000
	defaultSaltLength     = 16
)

// wrappedKey is the JSON document written by "pbes2 wrap" and read by
// "pbes2 unwrap".
type wrappedKey struct {
	Protected    json.RawMessage `json:"protected"`
	EncryptedKey string          `json:"encrypted_key"`
	CEK          string          `json:"cek,omitempty"`
}

func newPBES2Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pbes2",
		Short: "Wrap and unwrap content encryption keys with a password",
	}

	cmd.AddCommand(newPBES2WrapCmd(), newPBES2UnwrapCmd())

	return cmd
}

type pbes2WrapOptions struct {
	alg        string
	enc        string
	password   string
	kid        string
	iterations int
	saltLength int
	out        string
}

func newPBES2WrapCmd() *cobra.Command {
	opts := &pbes2WrapOptions{}

	cmd := &cobra.Command{
		Use:   "wrap",
		Short: "Generate a content encryption key and wrap it",
		Long: `Generate a fresh content encryption key for --enc and wrap it with a key
derived from --password. The JOSE header, the encrypted key and the plain
key are printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPBES2Wrap(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.alg, "alg", "PBES2-HS256+A128KW", "PBES2 algorithm.")
	cmd.Flags().StringVar(&opts.enc, "enc", "A128GCM", "Content encryption algorithm the key is for.")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password, or set JOSE_PASSWORD.")
	cmd.Flags().StringVar(&opts.kid, "kid", "", "Key ID written to the header.")
	cmd.Flags().IntVar(&opts.iterations, "iterations", defaultIterationCount, "PBKDF2 iteration count (p2c).")
	cmd.Flags().IntVar(&opts.saltLength, "salt-length", defaultSaltLength, "Salt input (p2s) length in bytes.")
	cmd.Flags().StringVar(&opts.out, "out", "-", "Output file, or - for standard output.")

	return cmd
}

func pbes2Algorithm(name string) (jwe.PBES2Algorithm, error) {
	alg, err := jwe.AlgorithmByName(name)
	if err != nil {
		return 0, err
	}
	pbes2, ok := alg.(jwe.PBES2Algorithm)
	if !ok {
		return 0, fmt.Errorf("%s is not a PBES2 algorithm", name)
	}
	return pbes2, nil
}

func contentKeyLength(enc string) (int, error) {
	n, ok := contentKeyLengths[enc]
	if !ok {
		return 0, fmt.Errorf("unsupported content encryption algorithm %q", enc)
	}
	return n, nil
}

func runPBES2Wrap(cmd *cobra.Command, opts *pbes2WrapOptions) error {
	log := logs.FromContext(cmd.Context())

	alg, err := pbes2Algorithm(opts.alg)
	if err != nil {
		return err
	}

	keyLen, err := contentKeyLength(opts.enc)
	if err != nil {
		return err
	}

	encrypter, err := alg.EncrypterFromBytes(
		[]byte(opts.password),
		jwe.WithIterationCount(opts.iterations),
		jwe.WithSaltLength(opts.saltLength),
	)
	if err != nil {
		return err
	}
	if opts.kid != "" {
		encrypter = encrypter.WithKeyID(opts.kid)
	}

	h := jwe.NewHeader()
	if err := h.SetEncryption(opts.enc); err != nil {
		return err
	}

	result, err := encrypter.Encrypt(h, keyLen)
	if err != nil {
		return err
	}

	protected, err := h.MarshalJSON()
	if err != nil {
		return err
	}

	log.V(logs.Debug).Info("wrapped content encryption key", "alg", opts.alg, "enc", opts.enc, "claims", result.Claims)

	b, err := json.MarshalIndent(wrappedKey{
		Protected:    protected,
		EncryptedKey: base64.Encode(result.EncryptedKey),
		CEK:          base64.Encode(result.Key),
	}, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd, opts.out, append(b, '\n'))
}

type pbes2UnwrapOptions struct {
	password      string
	kid           string
	maxIterations int
	in            string
}

func newPBES2UnwrapCmd() *cobra.Command {
	opts := &pbes2UnwrapOptions{}

	cmd := &cobra.Command{
		Use:   "unwrap",
		Short: "Unwrap a content encryption key",
		Long: `Read the JSON document written by "pbes2 wrap" and print the base64url
encoded content encryption key. The "cek" member, if present, is ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPBES2Unwrap(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.password, "password", "", "Password, or set JOSE_PASSWORD.")
	cmd.Flags().StringVar(&opts.kid, "kid", "", "Key ID the header must carry, if it has one.")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", jwe.DefaultMaxIterationCount, "Largest accepted p2c.")
	cmd.Flags().StringVar(&opts.in, "in", "-", "Input file, or - for standard input.")

	return cmd
}

func runPBES2Unwrap(cmd *cobra.Command, opts *pbes2UnwrapOptions) error {
	log := logs.FromContext(cmd.Context())

	input, err := readInput(cmd, opts.in)
	if err != nil {
		return err
	}

	var doc wrappedKey
	if err := json.Unmarshal(input, &doc); err != nil {
		return fmt.Errorf("failed to decode wrapped key: %w", err)
	}

	h, err := header.FromJSON(header.JWE, doc.Protected)
	if err != nil {
		return err
	}

	name, err := h.Algorithm()
	if err != nil {
		return err
	}
	alg, err := pbes2Algorithm(name)
	if err != nil {
		return err
	}

	enc, err := h.Encryption()
	if err != nil {
		return err
	}
	keyLen, err := contentKeyLength(enc)
	if err != nil {
		return err
	}

	encryptedKey, err := base64.Decode(doc.EncryptedKey)
	if err != nil {
		return fmt.Errorf("failed to decode encrypted key: %w", err)
	}

	decrypter, err := alg.DecrypterFromBytes([]byte(opts.password), jwe.WithMaxIterationCount(opts.maxIterations))
	if err != nil {
		return err
	}
	if opts.kid != "" {
		decrypter = decrypter.WithKeyID(opts.kid)
	}

	cek, err := decrypter.Decrypt(h, encryptedKey, keyLen)
	if err != nil {
		return err
	}

	log.V(logs.Debug).Info("unwrapped content encryption key", "alg", name, "enc", enc)

	_, err = fmt.Fprintln(cmd.OutOrStdout(), base64.Encode(cek))
	return err
}
