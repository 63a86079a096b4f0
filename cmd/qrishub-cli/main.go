package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

type globalFlags struct {
	sessionFile string
	logFile     string
	verbose     bool
}

func main() {
	// load configuration from .env when present
	_ = godotenv.Load(".env")

	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "qrishub",
		Short:         "Buy and track qrishub subscriptions from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.sessionFile, "session", defaultSessionFile(), "File holding the session tokens")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(loginCmd(flags))
	rootCmd.AddCommand(logoutCmd(flags))
	rootCmd.AddCommand(plansCmd(flags))
	rootCmd.AddCommand(payCmd(flags))
	rootCmd.AddCommand(checkCmd(flags))
	rootCmd.AddCommand(uploadCmd(flags))
	rootCmd.AddCommand(cancelCmd(flags))
	rootCmd.AddCommand(historyCmd(flags))
	rootCmd.AddCommand(profileCmd(flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
