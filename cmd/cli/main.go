package main

import (
	"os"

	"github.com/placar-dev/placar/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
