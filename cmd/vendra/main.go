package main

import (
	"os"

	"github.com/vendra-ai/vendra/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
