package main

import (
	"fmt"
	"os"

	"atas/api/internal/cli"
	"atas/api/internal/logging"
)

func main() {
	logger := logging.New(logging.Options{Level: os.Getenv("ATAS_LOG_LEVEL")})
	defer func() { _ = logger.Sync() }()

	deps := &cli.Dependencies{Logger: logger}
	if err := cli.NewRootCmd(deps).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
