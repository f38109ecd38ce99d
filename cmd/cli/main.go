package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/billeffect/cmd/cli/extract"
	"github.com/myrjola/billeffect/cmd/cli/simulate"
	"github.com/myrjola/billeffect/internal/errors"
	"github.com/myrjola/billeffect/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:           "billeffect-cli",
		Short:         "Simulate the effects of a bill from the command line",
		Long:          `Command line utilities for Billeffect. Analyzes a bill and prints the simulated events per state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	logger := func() *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		return logging.NewLogger(rootCmd.ErrOrStderr(), level, false)
	}

	rootCmd.AddGroup(simulate.Group)
	rootCmd.AddCommand(simulate.Command(logger, lookupEnv))
	rootCmd.AddGroup(extract.Group)
	rootCmd.AddCommand(extract.Command(logger, lookupEnv))
	return rootCmd
}

func main() {
	// The .env file is optional, the environment wins over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd(os.LookupEnv).ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
