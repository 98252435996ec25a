package main

import (
	"os"

	"github.com/karimsalem/askbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
