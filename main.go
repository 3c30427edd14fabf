package main

import (
	"context"
	"fmt"
	"os"

	"github.com/s-hit/mshd-backend/cmd"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=...".
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	rootCmd := cmd.RootCommand(&cmd.Context{
		Version:   version,
		BuildDate: buildDate,
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
