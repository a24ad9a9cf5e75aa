package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/wbs/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wbs",
		Short: "WBS task hierarchy and time ledger API",
		Long:  `wbs serves a three-level work breakdown structure per project together with a per-user time ledger that keeps each task's actual hours current.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewProjectCommand())
	rootCmd.AddCommand(commands.NewTokenCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
