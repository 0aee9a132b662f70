package main

import (
	"os"

	"github.com/papyrus-labs/scholarag/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
