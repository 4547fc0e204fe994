// Command anagramctl is the operator CLI for the anagram solver: solve inputs
// locally, compile word lists into snapshots, inspect dictionaries, publish
// word lists to Redis and call a running server over RPC.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "anagramctl",
	Short:         "Operate the anagram solver",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		logger.Setup(level, "text")
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("dict", "d", "data/words.txt", "dictionary source (path or file://, snapshot://, sqlite://, redis://, postgres:// URL)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
