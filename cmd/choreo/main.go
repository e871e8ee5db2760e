package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	ConfigFile string
	Server     string
	LogLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "choreo",
	Short: "Plan dance formations from the terminal",
	Long: `choreo talks to a choreo API server. Log in once; the token is kept in the
config file (~/.choreo.yaml by default) and reused by every other command.`,
	Example: `choreo register alice --password secret
  choreo dances create "Opening" 4
  choreo edit <dance-id>`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		setLogLevel(rootFlags.LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.ConfigFile, "config", "c", "", "Path to config file (default: ~/.choreo.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.Server, "server", "", "API base URL (overrides config file and CHOREO_SERVER)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func setLogLevel(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("unknown log level %s, defaulting to warn", level)
		parsed = log.WarnLevel
	}
	log.SetLevel(parsed)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
