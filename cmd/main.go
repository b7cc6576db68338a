// Package main is the production entry point for the Zotu music player.
//
// Build:
//
//	go build -o build/zotu ./cmd
//
// Run:
//
//	./build/zotu import ~/Music
//	./build/zotu play
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
