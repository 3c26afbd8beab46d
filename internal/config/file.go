package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the config file
const ConfigFileName = "config.yaml"

// configDirName is the per-application directory under each config root
const configDirName = "ai-shell"

// FileConfig represents the configuration file structure
type FileConfig struct {
	// Provider settings
	Provider    string   `yaml:"provider,omitempty"` // "openai" or "gemini"
	Model       string   `yaml:"model,omitempty"`
	Endpoint    string   `yaml:"endpoint,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`

	// Render help output as markdown
	Render bool `yaml:"render,omitempty"`

	History *HistoryConfig `yaml:"history,omitempty"`

	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"` // "text" or "json"
	LogFile   string `yaml:"log_file,omitempty"`
}

// HistoryConfig controls line history persistence
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	File    string `yaml:"file,omitempty"`
}

// GetConfigPaths returns the paths to check for config files (in order of priority)
func GetConfigPaths() []string {
	var paths []string

	// 1. Current directory
	paths = append(paths, filepath.Join(".", ".ai-shell", ConfigFileName))

	// 2. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, configDirName, ConfigFileName))
	}

	// 3. Home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", configDirName, ConfigFileName))
	}

	return paths
}

// LoadConfigFile loads the first config file found, or an empty config
func LoadConfigFile() (*FileConfig, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return loadConfigFromPath(path)
		}
	}
	return &FileConfig{}, nil
}

func loadConfigFromPath(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// ApplyFileConfig applies file configuration to the main Config.
// It is the lowest layer, so every set value simply overwrites the default.
func (c *Config) ApplyFileConfig(fc *FileConfig) {
	if fc == nil {
		return
	}

	if fc.Provider != "" {
		c.Provider.Kind = fc.Provider
	}
	if fc.Model != "" {
		c.Provider.Model = fc.Model
	}
	if fc.Endpoint != "" {
		c.Provider.Endpoint = fc.Endpoint
	}
	if fc.MaxTokens != 0 {
		c.Provider.MaxTokens = fc.MaxTokens
	}
	if fc.Temperature != nil {
		c.Provider.Temperature = *fc.Temperature
	}
	if fc.Render {
		c.Render = true
	}
	if fc.History != nil {
		if fc.History.Enabled != nil {
			c.HistoryEnabled = *fc.History.Enabled
		}
		if fc.History.File != "" {
			c.HistoryFile = expandHome(fc.History.File)
		}
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	if fc.LogFile != "" {
		c.LogFile = expandHome(fc.LogFile)
	}
}

// expandHome resolves a leading "~/" against the home directory
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

const defaultConfigFile = `# ai-shell configuration
# Location: ~/.config/ai-shell/config.yaml

# Natural-language provider: "openai" or "gemini".
# When unset it is inferred from the credential (keys starting with AIza use gemini).
# provider: openai

# Model and endpoint (defaults depend on the provider)
# model: gpt-3.5-turbo
# endpoint: https://api.openai.com/v1/chat/completions

# Generation settings
# max_tokens: 500
# temperature: 0.1

# Render the help listing as markdown
# render: true

# Line history
# history:
#   enabled: true
#   file: ~/.aishell_history

# Log level: debug, info, warn, error, none
# log_level: warn

# Log format (text or json) and an optional log file instead of stderr
# log_format: text
# log_file: ~/.aishell.log
`

// CreateDefaultConfigFile creates a default config file at the user config directory
func CreateDefaultConfigFile() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, configDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfigFile), 0600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}
