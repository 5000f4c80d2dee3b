package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"navcheck/internal/cli"
	"navcheck/internal/cli/commands"
	"navcheck/internal/config"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:     "navcheck",
		Short:   "Parallel navigation smoke checks",
		Long:    `Open pages in isolated browser scopes, in parallel, and check that each lands on the expected URL and shows the expected content.`,
		Version: version,
	}

	// Create initial config with defaults
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg)

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
