// Package main provides g2b, a flexible GFF3 to BED converter with
// filtering and dynamic attribute columns.
package main

import (
	"os"
	"strings"

	"github.com/annotatelab/g2b/internal/cli"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env))
}
