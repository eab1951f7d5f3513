package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctastats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, SourceHTTP, cfg.Source.Kind)
	assert.Equal(t, "strict", cfg.Pipeline.DatePolicy)
	assert.Zero(t, cfg.Pipeline.RowsPerPage)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
source:
  kind: file
  file: /data/cta.xlsx
pipeline:
  groupBy: year
  country: Norway
  rowsPerPage: 5
  datePolicy: lenient
output:
  charts: false
server:
  allowedOrigins: ["https://example.org"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, cfg.Source.Kind)
	assert.Equal(t, "/data/cta.xlsx", cfg.Source.File)
	assert.Equal(t, "year", cfg.Pipeline.GroupBy)
	assert.Equal(t, "Norway", cfg.Pipeline.Country)
	assert.Equal(t, 5, cfg.Pipeline.RowsPerPage)
	assert.Equal(t, "lenient", cfg.Pipeline.DatePolicy)
	assert.False(t, cfg.Output.Charts)
	assert.Equal(t, []string{"https://example.org"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, Default().Source.URL, cfg.Source.URL)
	assert.Equal(t, "site/data", cfg.Output.Dir)
}

func TestLoadUsesConfigEnvPath(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  country: Japan\n")
	t.Setenv(configPathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Japan", cfg.Pipeline.Country)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  path: from-file.db\n")
	t.Setenv(sourceURLEnv, "http://localhost:9999/cta.xlsx")
	t.Setenv(databaseEnv, "from-env.db")
	t.Setenv(logLevelEnv, "debug")
	t.Setenv(addrEnv, ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/cta.xlsx", cfg.Source.URL)
	assert.Equal(t, "from-env.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, "pipeline: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parse")

	path = writeConfig(t, "pipeline:\n  rowsPerPag: 3\n")
	_, err = Load(path)
	assert.Error(t, err, "unknown keys are rejected")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Source.Kind = "ftp"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Source.Kind = SourceFile
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Source.Kind = SourceDB
	cfg.Store.Path = ""
	assert.Error(t, cfg.Validate())
	cfg.Store.Path = "ctastats.db"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Pipeline.RowsPerPage = -1
	assert.Error(t, cfg.Validate())
}

func TestBadTimeoutEnv(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(timeoutEnv, "soon")
	_, err := Load("")
	assert.Error(t, err)
}
