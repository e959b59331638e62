package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDocumentedDefaults(t *testing.T) {
	path := writeTempConfig(t, `{}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, cfg.CapitalUSD)
	assert.True(t, cfg.PaperMode)
}

func TestLoadParsesExplicitValues(t *testing.T) {
	path := writeTempConfig(t, `{
		"capital_usd": 5000,
		"paper_mode": false,
		"strategies": {
			"cross_exchange": {"enabled": true, "priority": 1, "min_spread_bps": 15}
		}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000.0, cfg.CapitalUSD)
	assert.False(t, cfg.PaperMode)
	assert.True(t, cfg.Strategies.CrossExchange.Enabled)
	assert.Equal(t, 15.0, cfg.Strategies.CrossExchange.MinSpreadBps)
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := writeTempConfig(t, `{"capital_usd": 2000, "unknown_field": "ignored"}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, cfg.CapitalUSD)
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	assert.Error(t, err)
}

func TestLoadFailsOnMalformedJSON(t *testing.T) {
	path := writeTempConfig(t, `{not json`)
	_, err := Load(path)
	assert.Error(t, err)
}
