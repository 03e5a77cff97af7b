package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/campus/internal/logging"
)

var (
	apiURL   string
	userID   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "campus-cli",
	Short: "Campus command-line client",
	Long: `campus-cli is a terminal client for the campus server.

Available commands:
  exam list       List the exams of a course
  exam show       Show whether an exam can be taken
  exam take       Take a timed exam in the terminal

Use "campus-cli [command] --help" for more information about a specific command.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Logs go to stderr so they never interleave with the exam screen.
		slog.SetDefault(logging.NewWithWriter(os.Stderr, os.Getenv("LOG_FORMAT"), logLevel))
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("CAMPUS_API_URL", "http://localhost:8080"), "base URL of the campus server")
	rootCmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("CAMPUS_USER_ID"), "student user ID")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level (debug, info, warn, error)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
