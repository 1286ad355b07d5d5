package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "pronouns",
	Short: "Per-persona pronoun profiles and pronoun→macro rewriting",
	Long: `pronouns keeps a pronoun profile per persona and rewrites literal pronouns
in text into {{pronoun.*}} macro references that expand to the active
persona's current pronouns.

Run "pronouns serve" to start the local API and MCP server; the other
commands talk to it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(personaCmd)
	rootCmd.AddCommand(replaceCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(macrosCmd)
	rootCmd.AddCommand(shorthandsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// newLogger builds the production zap logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
