package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-importer/config"
	"listing-importer/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Postgres.User = "importer"
	cfg.Postgres.DB = "rentals"
	cfg.Import.Salt = "salt"
	cfg.Import.BcryptCost = 4
	cfg.Log.Level = "error"
	cfg.Log.Format = "console"
	cfg.Metrics.PushgatewayURL = ""
	return cfg
}

func writeMockFile(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offers.tsv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, services.NewGenerator(3).Write(f, n))
	require.NoError(t, f.Close())
	return path
}

func TestImportArgs(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr bool
	}{
		{[]string{"offers.tsv"}, false},
		{[]string{"offers.tsv", "user", "pw", "localhost", "db", "salt"}, false},
		{[]string{}, true},
		{[]string{"offers.tsv", "user", "pw"}, true},
	}
	for _, tt := range tests {
		err := importArgs(importCmd, tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("importArgs(%v): got err %v, wantErr %v", tt.args, err, tt.wantErr)
		}
	}
}

func TestApplyImportArgs(t *testing.T) {
	cfg := &config.Config{}
	applyImportArgs(cfg, []string{"offers.tsv", "scraper", "secret", "db.local", "rental_db", "pepper"})

	assert.Equal(t, "scraper", cfg.Postgres.User)
	assert.Equal(t, "secret", cfg.Postgres.Password)
	assert.Equal(t, "db.local", cfg.Postgres.Host)
	assert.Equal(t, "rental_db", cfg.Postgres.DB)
	assert.Equal(t, "pepper", cfg.Import.Salt)

	untouched := &config.Config{}
	applyImportArgs(untouched, []string{"offers.tsv"})
	assert.Empty(t, untouched.Postgres.User)
}

func TestExecuteImportDryRun(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := writeMockFile(t, 3)

	err := executeImport(context.Background(), &stdout, &stderr, testConfig(t), path, true)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "3 rows imported.")
	assert.Empty(t, stderr.String())
}

func TestExecuteImportMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "missing.tsv")

	err := executeImport(context.Background(), &stdout, &stderr, testConfig(t), path, true)
	require.NoError(t, err, "an unreadable input is reported, not returned")
	assert.Contains(t, stderr.String(), "Can't import data from file: "+path)
}

func TestExecuteImportUnreachableStore(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cfg := testConfig(t)
	cfg.Postgres.Host = "127.0.0.1"
	cfg.Postgres.Port = "1"
	cfg.Postgres.ConnectRetries = 1

	err := executeImport(context.Background(), &stdout, &stderr, cfg, writeMockFile(t, 1), false)

	var connErr *services.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, stdout.String(), "0 rows imported.")
}

func TestExecuteImportWritesRejects(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dir := t.TempDir()
	input := filepath.Join(dir, "offers.tsv")
	require.NoError(t, os.WriteFile(input, []byte("not\ta\tvalid\tline\n"), 0o600))

	cfg := testConfig(t)
	cfg.Import.RejectsPath = filepath.Join(dir, "rejects.tsv")

	require.NoError(t, executeImport(context.Background(), &stdout, &stderr, cfg, input, true))
	assert.Contains(t, stdout.String(), "0 rows imported.")

	rejects, err := os.ReadFile(cfg.Import.RejectsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(rejects)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "1\t"), lines[1])
	assert.Contains(t, lines[1], "expected 16 columns, got 4 columns")
}

func TestGenerateThenImportCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mock", "offers.tsv")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("IMPORT_BCRYPT_COST", "4")

	rootCmd.SetArgs([]string{"generate", "5", path, "--seed", "9"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "5 rows written to "+path)

	out.Reset()
	rootCmd.SetArgs([]string{"import", path, "importer", "secret", "localhost", "rentals", "pepper", "--dry-run"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "5 rows imported.")
}

func TestGenerateRejectsBadCount(t *testing.T) {
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	rootCmd.SetArgs([]string{"generate", "zero", filepath.Join(t.TempDir(), "x.tsv")})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count must be a positive integer")
}
