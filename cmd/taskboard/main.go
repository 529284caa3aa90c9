// cmd/taskboard/main.go
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var Version = "dev"

func main() {
	// A missing .env is normal; the environment may already be set.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
