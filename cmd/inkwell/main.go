package main

import (
	"os"

	"github.com/inkwell-ai/inkwell/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
