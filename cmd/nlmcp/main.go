package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; absence is not an error
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
