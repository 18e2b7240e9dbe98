// Command jose generates and converts keys, signs and verifies compact JWS
// tokens and JWTs, and wraps content encryption keys with PBES2.
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(Execute(context.Background(), os.Args[1:]))
}
