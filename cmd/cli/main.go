package main

import (
	"os"

	"github.com/shopdesk-dev/shopdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
