// Command filing-intel is the entry point for the filing-intel CLI.
package main

import (
	"github.com/joho/godotenv"

	"github.com/custodia-labs/filing-intel/internal/adapters/driving/cli"
)

func main() {
	// Optional .env for provider API keys; absence is fine.
	_ = godotenv.Load()

	cli.Execute()
}
