package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/taxtools/viesbatch/internal/cli"
)

func main() {
	// Proxy credentials commonly live in a .env next to the input files;
	// absence is fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
