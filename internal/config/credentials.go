package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Credential file keys
const (
	credKeyAPIKey   = "API_KEY"
	credKeyModel    = "MODEL"
	credKeyAPIURL   = "API_URL"
	credKeyProvider = "PROVIDER"
)

// CredentialFile is the KEY=value file written by the setup flow
type CredentialFile struct {
	APIKey   string
	Model    string
	APIURL   string
	Provider string
}

// CredentialFilePath returns ~/.aishell_config
func CredentialFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, CredentialFileName), nil
}

// ReadCredentialFile parses the credential file at path
func ReadCredentialFile(path string) (*CredentialFile, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file %s: %w", path, err)
	}
	return &CredentialFile{
		APIKey:   values[credKeyAPIKey],
		Model:    values[credKeyModel],
		APIURL:   values[credKeyAPIURL],
		Provider: values[credKeyProvider],
	}, nil
}

// WriteCredentialFile writes cf to path with owner-only permissions
func WriteCredentialFile(path string, cf *CredentialFile) error {
	values := map[string]string{credKeyAPIKey: cf.APIKey}
	if cf.Model != "" {
		values[credKeyModel] = cf.Model
	}
	if cf.APIURL != "" {
		values[credKeyAPIURL] = cf.APIURL
	}
	if cf.Provider != "" {
		values[credKeyProvider] = cf.Provider
	}

	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("failed to write credential file %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to restrict credential file %s: %w", path, err)
	}
	return nil
}

// ApplyCredentialFile layers the credential file over the settings file
func (c *Config) ApplyCredentialFile(cf *CredentialFile, source string) {
	if cf == nil {
		return
	}
	if cf.APIKey != "" {
		c.Provider.Credential = cf.APIKey
		c.CredentialSource = source
	}
	if cf.Model != "" {
		c.Provider.Model = cf.Model
	}
	if cf.APIURL != "" {
		c.Provider.Endpoint = cf.APIURL
	}
	if cf.Provider != "" {
		c.Provider.Kind = cf.Provider
	}
}
