package main

import (
	"fmt"
	"os"

	"github.com/cloakhq/cloakfetch/internal/cmd"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := cmd.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
