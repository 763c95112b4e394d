package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/operations"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/config"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   *slog.Logger

	// tracker collects the operation records of this process, shared by
	// every command so `slideforge operations` can report on them
	tracker = operations.NewTracker()
)

var rootCmd = &cobra.Command{
	Use:   "slideforge",
	Short: "Prepare lecture videos for transcription and slide generation",
	Long: `slideforge prepares uploaded lecture videos for transcription and
slide generation:

  - Split the audio track into overlapping chunks sized for transcription
  - Upload every chunk to remote storage with per-chunk accounting
  - Capture still frames at chosen timestamps into a project's frame library
  - Request transcripts for projects with prepared chunks

Example:
  slideforge prepare-chunks --project 8f14e45f --chunk-seconds 60 --overlap-seconds 20`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "config/config.yaml"
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Config file is optional for some commands (like help)
		// Commands that need config will check and error appropriately
		cfg = nil
	}
}

func initLogger() {
	name := logLevel
	if name == "" && cfg != nil {
		name = cfg.Log.Level
	}

	level := slog.LevelInfo
	switch strings.ToLower(name) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	logger = slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		}),
	)
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

// GetTracker returns the process-wide operation tracker
func GetTracker() *operations.Tracker {
	return tracker
}

// GetLogger returns the process logger
func GetLogger() *slog.Logger {
	if logger == nil {
		initLogger()
	}
	return logger
}
