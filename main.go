package main

import (
	"os"

	"github.com/repovec/repovec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
