package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/picatz/josekit/internal/logs"
)

// envPrefix is prepended to upper-cased flag names to find environment
// variable fallbacks, so --password may come from JOSE_PASSWORD.
const envPrefix = "JOSE_"

// newRootCmd returns the jose command with every subcommand attached.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jose",
		Short: "JSON Object Signing and Encryption toolkit",
		Long: `jose generates and converts keys, signs and verifies compact JWS
tokens and JWTs, and wraps content encryption keys with PBES2.

Every flag can also be set with an environment variable named after it,
prefixed with JOSE_, for example JOSE_PASSWORD for --password.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setFlagsFromEnv(envPrefix, cmd.Flags())
			cmd.SetContext(logs.Initialize(cmd.Context(), cmd.Name()))
			return nil
		},
	}

	logs.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newKeygenCmd(),
		newConvertCmd(),
		newSignCmd(),
		newVerifyCmd(),
		newPBES2Cmd(),
	)

	return rootCmd
}

// Execute runs the jose command with args and returns the process exit
// code.
func Execute(ctx context.Context, args []string) int {
	defer logs.Flush()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func setFlagsFromEnv(prefix string, fs *pflag.FlagSet) {
	set := map[string]bool{}
	fs.Visit(func(f *pflag.Flag) {
		set[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		// ignore flags set from the commandline
		if set[f.Name] {
			return
		}
		// remove trailing _ to reduce common errors with the prefix, i.e. people setting it to MY_PROG_
		cleanPrefix := strings.TrimSuffix(prefix, "_")
		name := fmt.Sprintf("%s_%s", cleanPrefix, strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_"))
		if e, ok := os.LookupEnv(name); ok {
			_ = fs.Set(f.Name, e)
		}
	})
}
