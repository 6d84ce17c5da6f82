package main

import (
	"os"

	"github.com/stixly/stixly/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
