// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the wizbak CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/wizbak/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir is where account credentials live, one file per key.
const secretsDir = ".secrets/"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the wizbak CLI.
var rootCmd = &cobra.Command{
	Use:   "wizbak",
	Short: "Incremental backup for cloud note accounts",
	Long: `wizbak backs up a cloud note account to a local directory tree of
Markdown files. Each run downloads only documents that are new or changed
since the last run, converts their block-tree content to Markdown, and
mirrors the account's folder hierarchy on disk.

Credentials come from .secrets/ (one file per key: wiz-user-id,
wiz-password, wiz-server) or from the login subcommand.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogging(verbose)

		s, err := secrets.Load(secretsDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./wizbak.yaml or ~/.config/wizbak/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("wizbak")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "wizbak"))
		}
	}

	viper.SetEnvPrefix("WIZBAK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
