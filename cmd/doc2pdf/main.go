// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the doc2pdf CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is the diagnostic logger, configured before any subcommand runs.
var logger = slog.New(slog.DiscardHandler)

// rootCmd is the base command for the doc2pdf CLI.
var rootCmd = &cobra.Command{
	Use:   "doc2pdf",
	Short: "Batch-convert Hangul and Word documents to PDF",
	Long: `doc2pdf converts every Hangul (.hwp, .hwpx) and Word (.doc, .docx) document
in a directory to PDF by driving the installed vendor applications through
their automation interfaces.

Use scan to see what a directory holds, convert to run a batch, and history
to review earlier runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(viper.GetString("log_level"))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./doc2pdf.yaml or ~/.config/doc2pdf/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "diagnostic log level: debug, info, warn, error")
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("doc2pdf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		if dir := configDir(); dir != "" {
			viper.AddConfigPath(dir)
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("DOC2PDF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// configDir returns ~/.config/doc2pdf, or "" when the home directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "doc2pdf")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
	}))
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
