package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_ledger_runs.sql", true, 1, "create_ledger_runs"},
		{"0012_add_index.sql", true, 12, "add_index"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0002_second.sql", "SELECT 2 FROM `{{PROJECT_ID}}.{{DATASET_ID}}.t`")
	writeFile(t, dir, "0001_first.sql", "SELECT 1")
	writeFile(t, dir, "README.md", "ignored")

	migrations, err := loadMigrations(dir, "proj", "ds", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "SELECT 2 FROM `proj.ds.t`", migrations[1].SQL)

	// Checksums ignore the target project.
	again, err := loadMigrations(dir, "other", "other", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, migrations[1].Checksum, again[1].Checksum)
	assert.NotEqual(t, migrations[0].Checksum, migrations[1].Checksum)
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0001_a.sql", "SELECT 1")
	writeFile(t, dir, "0001_b.sql", "SELECT 2")

	_, err := loadMigrations(dir, "p", "d", zerolog.Nop())
	assert.ErrorContains(t, err, "duplicate migration version 0001")
}

func TestPendingAndChecksums(t *testing.T) {
	all := []Migration{
		{Version: 1, Filename: "0001_a.sql", Checksum: "aaa"},
		{Version: 2, Filename: "0002_b.sql", Checksum: "bbb"},
		{Version: 3, Filename: "0003_c.sql", Checksum: "ccc"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "aaa"},
		{Version: 2, Checksum: "changed"},
	}

	pending := pendingMigrations(all, applied)
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Version)

	assert.Equal(t, 1, checkChecksums(all, applied, zerolog.Nop()))
}

func TestRepositoryMigrations(t *testing.T) {
	dir, err := resolveMigrationsDir("migrations/bigquery")
	require.NoError(t, err)

	migrations, err := loadMigrations(dir, "proj", "ds", zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotContains(t, m.SQL, "{{")
		assert.Contains(t, m.SQL, "`proj.ds.")
	}
}
