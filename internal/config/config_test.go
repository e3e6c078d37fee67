package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "")
	t.Setenv("NOTION_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "splitledger", cfg.BigQueryDataset)
	assert.Equal(t, 5, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "Paid by", cfg.PayerColumn)
	assert.Equal(t, "Amount", cfg.AmountColumn)
	assert.Equal(t, "Participants", cfg.ParticipantsColumn)
	assert.False(t, cfg.PersistenceEnabled())
	assert.False(t, cfg.NotionEnabled())
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GCP_PROJECT_ID", "my-project")
	t.Setenv("BIGQUERY_DATASET", "trips")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("NOTION_TOKEN", "secret")
	t.Setenv("NOTION_DATABASE_ID", "db")
	t.Setenv("LEDGER_PAYER_COLUMN", "Payer")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "trips", cfg.BigQueryDataset)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, "Payer", cfg.PayerColumn)
	assert.True(t, cfg.PersistenceEnabled())
	assert.True(t, cfg.NotionEnabled())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric worker count", "WORKER_COUNT", "many"},
		{"zero workers", "WORKER_COUNT", "0"},
		{"zero queue", "QUEUE_SIZE", "0"},
		{"negative retries", "JOB_MAX_RETRIES", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
