package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// Environment variable names
const (
	// Credential lookup, first non-empty wins
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvLLMAPIKey    = "LLM_API_KEY"
	EnvAPIKey       = "API_KEY"

	// Provider overrides
	EnvProvider    = "AISHELL_PROVIDER"
	EnvModel       = "AISHELL_MODEL"
	EnvAPIURL      = "AISHELL_API_URL"
	EnvMaxTokens   = "AISHELL_MAX_TOKENS"
	EnvTemperature = "AISHELL_TEMPERATURE"

	// Ambient settings
	EnvLogLevel  = "AISHELL_LOG_LEVEL"
	EnvLogFormat = "AISHELL_LOG_FORMAT"
	EnvLogFile   = "AISHELL_LOG_FILE"
)

// credentialEnvVars is the lookup order for the provider credential
var credentialEnvVars = []string{EnvOpenAIAPIKey, EnvLLMAPIKey, EnvAPIKey}

// Provider kinds
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// geminiKeyPrefix identifies Google API keys when no provider kind is set
const geminiKeyPrefix = "AIza"

// File names under the user's home directory
const (
	CredentialFileName = ".aishell_config"
	HistoryFileName    = ".aishell_history"
	DotEnvFileName     = ".env"
)

// Errors
var (
	ErrInvalidProvider    = errors.New("invalid provider. Use 'openai' or 'gemini'")
	ErrInvalidMaxTokens   = errors.New("max_tokens must be a positive integer")
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 2")
)

// ProviderConfig describes the natural-language provider
type ProviderConfig struct {
	Kind        string
	Endpoint    string
	Credential  string
	Model       string
	MaxTokens   int
	Temperature float64
}

// HasCredential reports whether a provider can be consulted at all
func (p ProviderConfig) HasCredential() bool {
	return p.Credential != ""
}

// InferKind guesses the provider from the credential shape
func InferKind(credential string) string {
	if strings.HasPrefix(credential, geminiKeyPrefix) {
		return ProviderGemini
	}
	return ProviderOpenAI
}

// DefaultModel returns the model used for kind when none is configured
func DefaultModel(kind string) string {
	if kind == ProviderGemini {
		return constants.DefaultGeminiModel
	}
	return constants.DefaultOpenAIModel
}

// DefaultEndpoint returns the endpoint used for kind when none is configured.
// Gemini addresses the model in the URL path.
func DefaultEndpoint(kind, model string) string {
	if kind == ProviderGemini {
		if model == "" {
			model = constants.DefaultGeminiModel
		}
		return fmt.Sprintf("%s/%s:generateContent", constants.DefaultGeminiURL, model)
	}
	return constants.DefaultOpenAIURL
}

// Config holds the application configuration
type Config struct {
	Provider ProviderConfig

	// CredentialSource names where the credential was found, for status output
	CredentialSource string

	// Render enables markdown rendering of help output
	Render bool

	// History persistence
	HistoryEnabled bool
	HistoryFile    string

	LogLevel  string
	LogFormat string
	LogFile   string

	dotenv map[string]string
}

// NewConfig creates a new Config with defaults
func NewConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			MaxTokens:   constants.DefaultMaxTokens,
			Temperature: constants.DefaultTemperature,
		},
		HistoryEnabled: true,
	}
}

// Validate resolves the configuration. Layers are applied from lowest to
// highest priority: YAML settings file, credential file, .env, environment.
func (c *Config) Validate() error {
	if fileConfig, err := LoadConfigFile(); err == nil {
		c.ApplyFileConfig(fileConfig)
	} else {
		logging.Warn("ignoring settings file", logging.Fields{"error": err.Error()})
	}

	if path, err := CredentialFilePath(); err == nil {
		if cred, err := ReadCredentialFile(path); err == nil {
			c.ApplyCredentialFile(cred, path)
		}
	}

	c.dotenv = loadDotEnv()
	if err := c.applyEnv(); err != nil {
		return err
	}

	c.applyDefaults()
	return c.Provider.validate()
}

// lookup returns an environment value, falling back to .env entries
func (c *Config) lookup(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.dotenv[key])
}

func (c *Config) applyEnv() error {
	for _, key := range credentialEnvVars {
		if v := c.lookup(key); v != "" {
			c.Provider.Credential = v
			c.CredentialSource = key
			break
		}
	}

	if v := c.lookup(EnvProvider); v != "" {
		c.Provider.Kind = strings.ToLower(v)
	}
	if v := c.lookup(EnvModel); v != "" {
		c.Provider.Model = v
	}
	if v := c.lookup(EnvAPIURL); v != "" {
		c.Provider.Endpoint = v
	}
	if v := c.lookup(EnvMaxTokens); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvMaxTokens, v, ErrInvalidMaxTokens)
		}
		c.Provider.MaxTokens = n
	}
	if v := c.lookup(EnvTemperature); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvTemperature, v, ErrInvalidTemperature)
		}
		c.Provider.Temperature = f
	}
	if v := c.lookup(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := c.lookup(EnvLogFormat); v != "" {
		c.LogFormat = v
	}
	if v := c.lookup(EnvLogFile); v != "" {
		c.LogFile = expandHome(v)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Provider.Kind = strings.ToLower(strings.TrimSpace(c.Provider.Kind))
	if c.Provider.Kind == "" && c.Provider.HasCredential() {
		c.Provider.Kind = InferKind(c.Provider.Credential)
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = constants.DefaultProviderKind
	}
	if c.Provider.Model == "" {
		c.Provider.Model = DefaultModel(c.Provider.Kind)
	}
	if c.Provider.Endpoint == "" {
		c.Provider.Endpoint = DefaultEndpoint(c.Provider.Kind, c.Provider.Model)
	}
	c.Provider.Endpoint = strings.TrimSuffix(c.Provider.Endpoint, "/")

	if c.HistoryFile == "" {
		if path, err := HistoryFilePath(); err == nil {
			c.HistoryFile = path
		}
	}
}

func (p ProviderConfig) validate() error {
	if p.Kind != ProviderOpenAI && p.Kind != ProviderGemini {
		return fmt.Errorf("%q: %w", p.Kind, ErrInvalidProvider)
	}
	if p.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}
	if math.IsNaN(p.Temperature) || p.Temperature < 0 || p.Temperature > 2 {
		return ErrInvalidTemperature
	}
	return nil
}

// loadDotEnv reads .env from the working directory, then the home directory.
// Entries already found in the working directory file take precedence.
func loadDotEnv() map[string]string {
	values := make(map[string]string)
	paths := []string{DotEnvFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DotEnvFileName))
	}
	for _, path := range paths {
		env, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		for k, v := range env {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	return values
}

// HistoryFilePath returns the default history file location
func HistoryFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, HistoryFileName), nil
}
