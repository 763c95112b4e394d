package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through setting up your configuration file:
the storage backend holding your videos, local working directories,
chunking defaults and the transcription endpoint.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	return RunSetupWithPrompter(DefaultPrompter, "config/config.yaml")
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Println("Setup cancelled.")
			return nil
		}
	}

	fmt.Println("Welcome to slideforge setup!")
	fmt.Println()

	cfg := config.Default()

	if err := promptStorage(prompter, cfg); err != nil {
		return err
	}
	if err := promptPaths(prompter, cfg); err != nil {
		return err
	}
	if err := promptChunking(prompter, cfg); err != nil {
		return err
	}
	if err := promptFrames(prompter, cfg); err != nil {
		return err
	}
	if err := promptTranscription(prompter, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration is not valid: %w", err)
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", configPath)
	return nil
}

func promptStorage(prompter Prompter, cfg *config.Config) error {
	backend, err := prompter.Input("Storage backend (supabase or drive)?", config.BackendSupabase)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if backend == "" {
		backend = config.BackendSupabase
	}
	cfg.Storage.Backend = backend

	bucket, err := prompter.Input("Storage bucket holding project media?", "media")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if bucket == "" {
		bucket = "media"
	}
	cfg.Storage.Bucket = bucket

	switch backend {
	case config.BackendSupabase:
		url, err := prompter.Input("Supabase project URL?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if url == "" {
			return fmt.Errorf("supabase URL is required")
		}
		cfg.Storage.Supabase.URL = url

		key, err := prompter.Input("Supabase service role key?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if key == "" {
			return fmt.Errorf("service role key is required")
		}
		cfg.Storage.Supabase.ServiceKey = key

	case config.BackendDrive:
		credentials, err := prompter.Input("Path to Google credentials file?", "credentials.json")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if credentials == "" {
			credentials = "credentials.json"
		}
		cfg.Storage.Drive.CredentialsFile = credentials

		token, err := prompter.Input("Path for the OAuth token cache?", "drive_token.json")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if token == "" {
			token = "drive_token.json"
		}
		cfg.Storage.Drive.TokenFile = token

		folder, err := prompter.Input("Google Drive folder ID holding project media?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if folder == "" {
			return fmt.Errorf("folder ID is required")
		}
		cfg.Storage.Drive.FolderID = folder

	default:
		return fmt.Errorf("unknown storage backend %q: use %q or %q", backend, config.BackendSupabase, config.BackendDrive)
	}

	return nil
}

func promptPaths(prompter Prompter, cfg *config.Config) error {
	dataDir, err := prompter.Input("Where should the project database live?", "data")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if dataDir == "" {
		dataDir = "data"
	}
	cfg.Paths.DataDir = dataDir

	workDir, err := prompter.Input("Where should downloaded videos be staged? (empty for the system temp dir)", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Paths.WorkDir = workDir

	return nil
}

func promptChunking(prompter Prompter, cfg *config.Config) error {
	chunkSeconds, err := promptFloat(prompter, "Chunk length in seconds?", "60")
	if err != nil {
		return err
	}
	cfg.Chunking.ChunkSeconds = chunkSeconds

	overlapSeconds, err := promptFloat(prompter, "Overlap between chunks in seconds?", "20")
	if err != nil {
		return err
	}
	cfg.Chunking.OverlapSeconds = overlapSeconds

	bitrate, err := prompter.Input("Audio bitrate for mp3 extraction?", "192k")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if bitrate == "" {
		bitrate = "192k"
	}
	cfg.Chunking.AudioBitrate = bitrate

	return nil
}

func promptFrames(prompter Prompter, cfg *config.Config) error {
	engine, err := prompter.Input("Frame capture engine (ffmpeg or opencv)?", config.EngineFFmpeg)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if engine == "" {
		engine = config.EngineFFmpeg
	}
	cfg.Frames.Engine = engine

	quality, err := prompter.Input("JPEG quality for captured frames (1-100)?", "95")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if quality == "" {
		quality = "95"
	}
	parsed, err := strconv.Atoi(quality)
	if err != nil {
		return fmt.Errorf("JPEG quality must be a number: %w", err)
	}
	cfg.Frames.JPEGQuality = parsed

	return nil
}

func promptTranscription(prompter Prompter, cfg *config.Config) error {
	endpoint, err := prompter.Input("Transcription endpoint URL? (empty to skip)", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Transcription.Endpoint = endpoint
	return nil
}

func promptFloat(prompter Prompter, message, defaultValue string) (float64, error) {
	value, err := prompter.Input(message, defaultValue)
	if err != nil {
		return 0, fmt.Errorf("prompt cancelled")
	}
	if value == "" {
		value = defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%q must be a number: %w", value, err)
	}
	return parsed, nil
}
