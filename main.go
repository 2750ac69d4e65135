package main

import (
	"os"

	"github.com/optipim/kvbank-sim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
