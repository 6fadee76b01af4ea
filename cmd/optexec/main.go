package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/rustyeddy/optexec/cmd/optexec/cmd"
)

func main() {
	// Local overrides (journal paths, starting cash) live in .env.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
