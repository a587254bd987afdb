package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "labflow",
	Short: "Lab protocol tracking server",
	Long: `labflow turns free-text lab protocols into tracked experiments.

Upload a protocol, have it parsed into ordered steps, track per-step
completion and progress, and get time-based reminders while the
experiment runs.`,
}

func Execute() {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
