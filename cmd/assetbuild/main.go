// assetbuild converts design sources into a game asset build tree.
package main

import (
	"os"

	"github.com/hupe1980/assetbuild/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
