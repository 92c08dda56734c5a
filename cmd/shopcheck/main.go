package main

import (
	"os"

	"github.com/devicelab-dev/shopcheck/pkg/cli"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	cli.Execute()
}
