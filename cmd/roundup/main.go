package main

import (
	"os"

	"github.com/avezina/roundup/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
