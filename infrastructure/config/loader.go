package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Storage backends accepted in StorageConfig.Backend
const (
	BackendSupabase = "supabase"
	BackendDrive    = "drive"
)

// Frame sampler engines accepted in FramesConfig.Engine
const (
	EngineFFmpeg = "ffmpeg"
	EngineOpenCV = "opencv"
)

// Config represents the complete application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Paths         PathsConfig         `yaml:"paths"`
	Chunking      ChunkingConfig      `yaml:"chunking"`
	Frames        FramesConfig        `yaml:"frames"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Log           LogConfig           `yaml:"log"`
}

// StorageConfig selects and configures the remote storage backend
type StorageConfig struct {
	Backend               string         `yaml:"backend"`
	Bucket                string         `yaml:"bucket"`
	RequestTimeoutSeconds int            `yaml:"request_timeout_seconds"`
	Supabase              SupabaseConfig `yaml:"supabase"`
	Drive                 DriveConfig    `yaml:"drive"`
}

// SupabaseConfig contains Supabase storage API settings
type SupabaseConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
}

// DriveConfig contains Google Drive settings
type DriveConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderID        string `yaml:"folder_id"`
}

// PathsConfig contains local directory paths
type PathsConfig struct {
	DataDir string `yaml:"data_dir"` // project database location
	WorkDir string `yaml:"work_dir"` // staging area for downloaded videos
}

// ChunkingConfig contains audio chunking settings. Zero values defer to
// the chunking service's defaults.
type ChunkingConfig struct {
	ChunkSeconds   float64 `yaml:"chunk_seconds"`
	OverlapSeconds float64 `yaml:"overlap_seconds"`
	AudioBitrate   string  `yaml:"audio_bitrate"`
}

// FramesConfig contains frame capture settings
type FramesConfig struct {
	Engine      string `yaml:"engine"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// TranscriptionConfig contains the external transcription endpoint
type TranscriptionConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the configuration from the specified YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Default returns a configuration populated with usable defaults
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills unset fields. Chunking and JPEG quality zeros are
// left alone; the services own those defaults.
func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSupabase
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "media"
	}
	if c.Storage.RequestTimeoutSeconds <= 0 {
		c.Storage.RequestTimeoutSeconds = 60
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = "data"
	}
	if c.Frames.Engine == "" {
		c.Frames.Engine = EngineFFmpeg
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration for values no command could use
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSupabase:
		if c.Storage.Supabase.URL == "" {
			return fmt.Errorf("storage.supabase.url is required for the supabase backend")
		}
		if c.Storage.Supabase.ServiceKey == "" {
			return fmt.Errorf("storage.supabase.service_key is required for the supabase backend")
		}
	case BackendDrive:
		if c.Storage.Drive.CredentialsFile == "" {
			return fmt.Errorf("storage.drive.credentials_file is required for the drive backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (expected %q or %q)",
			c.Storage.Backend, BackendSupabase, BackendDrive)
	}

	if c.Frames.Engine != EngineFFmpeg && c.Frames.Engine != EngineOpenCV {
		return fmt.Errorf("unknown frames engine %q (expected %q or %q)",
			c.Frames.Engine, EngineFFmpeg, EngineOpenCV)
	}
	if c.Frames.JPEGQuality < 0 || c.Frames.JPEGQuality > 100 {
		return fmt.Errorf("frames.jpeg_quality must be between 0 and 100, got %d", c.Frames.JPEGQuality)
	}

	if c.Chunking.ChunkSeconds < 0 || c.Chunking.OverlapSeconds < 0 {
		return fmt.Errorf("chunking durations must not be negative")
	}

	return nil
}
