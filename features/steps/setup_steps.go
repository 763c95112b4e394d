//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tpvfmilk/insight-slide-forge-sub003/cmd"
	"github.com/tpvfmilk/insight-slide-forge-sub003/infrastructure/config"

	"github.com/cucumber/godog"
)

// setupContext holds test state for setup scenarios
type setupContext struct {
	tempDir         string
	configPath      string
	originalContent string
	err             error
}

// SharedSetupContext is reset before each scenario via Before hook
var SharedSetupContext *setupContext

func getSetupContext() *setupContext {
	return SharedSetupContext
}

// MockPrompter implements cmd.Prompter for testing
type MockPrompter struct {
	inputResponses   []string
	confirmResponses []bool
	inputIndex       int
	confirmIndex     int
}

func NewMockPrompter(inputs []string, confirms []bool) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		if defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("no more input responses available for message: %s", message)
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	return response, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		SharedSetupContext = &setupContext{
			tempDir:    tempDir,
			configPath: filepath.Join(tempDir, "config", "config.yaml"),
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if SharedSetupContext.tempDir != "" {
			os.RemoveAll(SharedSetupContext.tempDir)
		}
		SharedSetupContext = nil
		return c, nil
	})

	ctx.Step(`^no config file exists yet$`, noConfigFileExistsYet)
	ctx.Step(`^a config file already exists$`, aConfigFileAlreadyExists)
	ctx.Step(`^I run setup with inputs:$`, iRunSetupWithInputs)
	ctx.Step(`^I run setup declining the overwrite$`, iRunSetupDecliningTheOverwrite)
	ctx.Step(`^a config file should exist$`, aConfigFileShouldExist)
	ctx.Step(`^the saved config should use the "([^"]*)" backend with bucket "([^"]*)"$`, theSavedConfigShouldUseBackendWithBucket)
	ctx.Step(`^the saved chunk length should be (\d+) with overlap (\d+)$`, theSavedChunkLengthShouldBe)
	ctx.Step(`^the existing config should be unchanged$`, theExistingConfigShouldBeUnchanged)
}

func noConfigFileExistsYet() error {
	s := getSetupContext()
	return os.MkdirAll(filepath.Dir(s.configPath), 0755)
}

func aConfigFileAlreadyExists() error {
	s := getSetupContext()
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0755); err != nil {
		return err
	}

	s.originalContent = `storage:
  backend: supabase
  bucket: original-bucket
  supabase:
    url: https://original.supabase.co
    service_key: original-key
`
	return os.WriteFile(s.configPath, []byte(s.originalContent), 0644)
}

func iRunSetupWithInputs(table *godog.Table) error {
	s := getSetupContext()

	inputs := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		inputs = append(inputs, row.Cells[0].Value)
	}

	prompter := NewMockPrompter(inputs, nil)
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath)
	if s.err != nil {
		return fmt.Errorf("setup failed: %v", s.err)
	}
	return nil
}

func iRunSetupDecliningTheOverwrite() error {
	s := getSetupContext()
	prompter := NewMockPrompter(nil, []bool{false})
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath)
	return nil
}

func aConfigFileShouldExist() error {
	s := getSetupContext()
	if _, err := os.Stat(s.configPath); err != nil {
		return fmt.Errorf("config file does not exist: %v", err)
	}
	return nil
}

func theSavedConfigShouldUseBackendWithBucket(backend, bucket string) error {
	s := getSetupContext()
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	if cfg.Storage.Backend != backend {
		return fmt.Errorf("backend is %q, expected %q", cfg.Storage.Backend, backend)
	}
	if cfg.Storage.Bucket != bucket {
		return fmt.Errorf("bucket is %q, expected %q", cfg.Storage.Bucket, bucket)
	}
	return nil
}

func theSavedChunkLengthShouldBe(length, overlap int) error {
	s := getSetupContext()
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	if cfg.Chunking.ChunkSeconds != float64(length) {
		return fmt.Errorf("chunk length is %v, expected %d", cfg.Chunking.ChunkSeconds, length)
	}
	if cfg.Chunking.OverlapSeconds != float64(overlap) {
		return fmt.Errorf("overlap is %v, expected %d", cfg.Chunking.OverlapSeconds, overlap)
	}
	return nil
}

func theExistingConfigShouldBeUnchanged() error {
	s := getSetupContext()
	if s.err != nil {
		return fmt.Errorf("setup returned an error: %v", s.err)
	}
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return err
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config file was modified")
	}
	return nil
}
