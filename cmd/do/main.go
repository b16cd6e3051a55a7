package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nzoschke/studyvault/cmd/do/cmd"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "do",
		Short: "Operations tools for studyvault",
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.SessionsCmd())
	rootCmd.AddCommand(cmd.OrphansCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
