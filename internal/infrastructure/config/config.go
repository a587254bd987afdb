package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Database holds Turso database configuration.
type Database struct {
	URL       string `envconfig:"TURSO_DATABASE_URL"`
	AuthToken string `envconfig:"TURSO_AUTH_TOKEN"`
}

// Extraction holds completion-service configuration.
type Extraction struct {
	APIKey  string `envconfig:"OPENAI_API_KEY"`
	BaseURL string `envconfig:"OPENAI_BASE_URL"`
	Model   string `envconfig:"LABFLOW_EXTRACTION_MODEL"`
}

// Server holds configuration for the labflow server.
type Server struct {
	Database   Database
	Extraction Extraction
	Port       int    `envconfig:"LABFLOW_PORT" default:"8080"`
	DataDir    string `envconfig:"LABFLOW_DATA_DIR"`
}

// LoadServer loads server configuration from environment variables.
// Presence of the database and extraction credentials is validated by the
// command that needs them, so offline commands keep working without a
// remote store configured.
func LoadServer() (*Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDatabase loads only the database configuration, for commands that
// don't need the extraction service.
func LoadDatabase() (*Database, error) {
	var cfg Database
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the database URL is configured.
func (d Database) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("TURSO_DATABASE_URL environment variable is required")
	}
	return nil
}

// Validate checks that the extraction API key is configured.
func (e Extraction) Validate() error {
	if e.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	return nil
}
