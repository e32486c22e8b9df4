package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/meigma/darc/internal/config"
)

// app holds state shared by all subcommands.
type app struct {
	cfg     *config.Config
	cfgFile string

	logLevel   string
	logFormat  string
	noProgress bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "darc",
		Short: "Content archive builder and reader",
		Long: `darc packs a project's compiled resources into a content archive,
either one legacy file or an index/data pair, and reads them back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is darc.yaml in pwd or home)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json)")
	cmd.PersistentFlags().BoolVar(&a.noProgress, "no-progress", false, "disable progress bar")

	cmd.AddCommand(newBuildCmd(a), newReadCmd(a), newLayoutCmd(a))
	return cmd
}

// setup loads configuration, applies persistent flag overrides and
// installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("no-progress") {
		cfg.NoProgress = a.noProgress
	}
	a.cfg = cfg

	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
			Level:   level,
			NoColor: !isTerminal(os.Stderr),
		})
	}
	a.logger = slog.New(handler)
	a.logger.Debug("configuration",
		"root", cfg.Root,
		"output", cfg.Output,
		"compress", cfg.Compress,
		"split", cfg.Split,
		"ordering", cfg.Ordering,
		"hash_algorithm", cfg.HashAlgorithm,
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat)
	return nil
}
