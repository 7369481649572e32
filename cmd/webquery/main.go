// Command webquery decodes, explains and runs web query strings.
package main

import (
	"os"

	"github.com/AntonStoeckl/webquery-go/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
