// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the synthesis-engine CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/synthesis-engine/internal/logging"
	"github.com/pdiddy/synthesis-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Store

// logger is built from the logging flags before any subcommand runs.
var logger = slog.Default()

// rootCmd is the base command for the synthesis-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "synthesis-engine",
	Short: "Answer research questions from arXiv and Semantic Scholar",
	Long: `synthesis-engine answers a research question by routing it to paper sources,
fetching and deduplicating papers, and asking language models for a literature
synthesis, cross-paper contradictions, and testable hypotheses.

Every model call is priced and recorded in a per-query cost ledger. A query
whose spend exceeds cost.max_cost_per_query is aborted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		l, err := logging.New(logging.Config{
			Level:   level,
			Format:  format,
			Writer:  os.Stderr,
			Service: "synthesis-engine",
		})
		if err != nil {
			return err
		}
		logger = l

		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./synthesis-engine.yaml or ~/.config/synthesis-engine/synthesis-engine.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("synthesis-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "synthesis-engine"))
		}
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
