package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds settings shared by every binary. Values come from the
// environment, optionally seeded from a .env file.
type Config struct {
	// Google Cloud
	GCPProjectID    string `env:"GCP_PROJECT_ID"`
	BigQueryDataset string `env:"BIGQUERY_DATASET" envDefault:"splitledger"`
	GCSBucket       string `env:"GCS_BUCKET"`

	// Gemini model used for PDF and image ledgers
	GeminiModel string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	// Notion
	NotionToken      string `env:"NOTION_TOKEN"`
	NotionDatabaseID string `env:"NOTION_DATABASE_ID"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server and job queue
	HTTPPort    string   `env:"PORT" envDefault:"8080"`
	APIKey      string   `env:"API_KEY"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	WorkerCount int      `env:"WORKER_COUNT" envDefault:"5"`
	QueueSize   int      `env:"QUEUE_SIZE" envDefault:"100"`
	MaxRetries  int      `env:"JOB_MAX_RETRIES" envDefault:"3"`

	// Ledger sheet column names
	PayerColumn        string `env:"LEDGER_PAYER_COLUMN" envDefault:"Paid by"`
	AmountColumn       string `env:"LEDGER_AMOUNT_COLUMN" envDefault:"Amount"`
	ParticipantsColumn string `env:"LEDGER_PARTICIPANTS_COLUMN" envDefault:"Participants"`
}

// Load reads .env if present (missing file is not an error) and parses the
// environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	if c.WorkerCount < 1 {
		return fmt.Errorf("config: WORKER_COUNT must be at least 1, got %d", c.WorkerCount)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("config: QUEUE_SIZE must be at least 1, got %d", c.QueueSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: JOB_MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	if c.PayerColumn == "" || c.AmountColumn == "" || c.ParticipantsColumn == "" {
		return fmt.Errorf("config: ledger column names must not be empty")
	}
	return nil
}

// PersistenceEnabled reports whether BigQuery storage is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.GCPProjectID != ""
}

// NotionEnabled reports whether Notion publishing is configured.
func (c *Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDatabaseID != ""
}
