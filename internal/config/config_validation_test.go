package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateConfigurationFormat_ValidConfig(t *testing.T) {
	configFile := createTempConfig(t, profilesYAML)

	rootConfig, err := ValidateConfigurationFormat(configFile)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if rootConfig == nil {
		t.Fatal("Expected non-nil root config")
	}

	if rootConfig.ActiveConfig != "party" {
		t.Errorf("Expected active_config 'party', got '%s'", rootConfig.ActiveConfig)
	}

	if len(rootConfig.Configs) != 2 {
		t.Errorf("Expected 2 profiles, got %d", len(rootConfig.Configs))
	}

	party := rootConfig.Configs["party"]
	if party == nil || party.Quiz.RevealDelayMs == nil || *party.Quiz.RevealDelayMs != 2500 {
		t.Errorf("Expected party reveal delay 2500, got %+v", party)
	}
}

func TestValidateConfigurationFormat_UndefinedActiveConfig(t *testing.T) {
	configFile := createTempConfig(t, `
active_config: ghost
configs:
  default:
    catalog: songlist.json
`)

	_, err := ValidateConfigurationFormat(configFile)
	if err == nil {
		t.Fatal("Expected error for undefined active_config")
	}
	if !strings.Contains(err.Error(), "undefined profile 'ghost'") {
		t.Errorf("Expected error about undefined profile, got: %v", err)
	}
}

func TestValidateConfigurationFormat_InvalidProfile(t *testing.T) {
	tests := []struct {
		name     string
		profile  string
		expected string
	}{
		{
			name:     "unknown backend",
			profile:  "audio:\n      backend: jack",
			expected: "'backend' must be one of",
		},
		{
			name:     "sample rate too low",
			profile:  "audio:\n      sample_rate: 100",
			expected: "'sample_rate' must be between 8000 and 192000",
		},
		{
			name:     "volume above one",
			profile:  "audio:\n      initial_volume: 1.5",
			expected: "'initial_volume' must be between 0 and 1",
		},
		{
			name:     "resample quality",
			profile:  "audio:\n      resample_quality: 9",
			expected: "'resample_quality' must be between 1 and 6",
		},
		{
			name:     "negative buffer",
			profile:  "audio:\n      buffer_ms: -5",
			expected: "'buffer_ms' must be > 0",
		},
		{
			name:     "negative timeout",
			profile:  "fetch:\n      timeout_ms: -1",
			expected: "'timeout_ms' must be >= 0",
		},
		{
			name:     "port out of range",
			profile:  "server:\n      port: 70000",
			expected: "'port' must be between 1 and 65535",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			configFile := createTempConfig(t, "configs:\n  broken:\n    "+test.profile+"\n")

			_, err := ValidateConfigurationFormat(configFile)
			if err == nil {
				t.Fatalf("Expected error containing %q", test.expected)
			}
			if !strings.Contains(err.Error(), "invalid config 'broken'") {
				t.Errorf("Expected error to name the profile, got: %v", err)
			}
			if !strings.Contains(err.Error(), test.expected) {
				t.Errorf("Expected error containing %q, got: %v", test.expected, err)
			}
		})
	}
}

func TestValidateConfigurationFormat_UnreadableFile(t *testing.T) {
	configFile := createTempConfig(t, "configs: [unterminated")

	if _, err := ValidateConfigurationFormat(configFile); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestValidate_RequiresCatalog(t *testing.T) {
	cfg := Default()
	cfg.Catalog = ""

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "'catalog' is required") {
		t.Errorf("Expected catalog error, got: %v", err)
	}
}

// Helper function to create temporary config file for testing
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "songquiz-test.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}
