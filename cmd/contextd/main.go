// Command contextd indexes a codebase and serves local context retrieval
// for agent tooling.
package main

import (
	"os"

	"github.com/mvp-joe/contextd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
