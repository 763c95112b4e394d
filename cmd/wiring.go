package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/frame"
	"github.com/tpvfmilk/insight-slide-forge-sub003/domain/storage"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/config"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/drive"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/ffmpeg"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/opencv"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/sqlite"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/supabase"
)

// newGateway builds the storage gateway selected by the configuration
func newGateway(ctx context.Context, cfg *config.Config) (storage.Gateway, error) {
	switch cfg.Storage.Backend {
	case config.BackendSupabase:
		return supabase.NewClient(
			cfg.Storage.Supabase.URL,
			cfg.Storage.Supabase.ServiceKey,
			cfg.Storage.Bucket,
			supabase.WithHTTPClient(newHTTPClient(cfg)),
		)
	case config.BackendDrive:
		return drive.NewGateway(
			ctx,
			cfg.Storage.Drive.CredentialsFile,
			cfg.Storage.Drive.TokenFile,
			cfg.Storage.Drive.FolderID,
		)
	default:
		return nil, fmt.Errorf("unknown storage backend %q: use %q or %q",
			cfg.Storage.Backend, config.BackendSupabase, config.BackendDrive)
	}
}

// newSampler builds the frame sampler selected by the configuration
func newSampler(cfg *config.Config) (frame.Sampler, error) {
	switch cfg.Frames.Engine {
	case config.EngineFFmpeg, "":
		return ffmpeg.NewSampler(), nil
	case config.EngineOpenCV:
		return opencv.NewSampler(), nil
	default:
		return nil, fmt.Errorf("unknown frames engine %q: use %q or %q",
			cfg.Frames.Engine, config.EngineFFmpeg, config.EngineOpenCV)
	}
}

// newHTTPClient builds the bounded-timeout client used for storage and
// transcription requests
func newHTTPClient(cfg *config.Config) *http.Client {
	timeout := time.Duration(cfg.Storage.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// openStore opens the project database under the configured data directory
func openStore(cfg *config.Config) (*sqlite.Store, error) {
	return sqlite.Open(filepath.Join(cfg.Paths.DataDir, "projects.db"))
}

// verifyTool runs a tool's VerifyInstalled preflight when it has one
func verifyTool(ctx context.Context, tool any) error {
	verifiable, ok := tool.(interface{ VerifyInstalled(context.Context) error })
	if !ok {
		return nil
	}
	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return verifiable.VerifyInstalled(verifyCtx)
}
