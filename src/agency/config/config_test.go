package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	for _, k := range []string{"MYSQL_DSN", "PORT", "CATAPI_URL", "BREED_TIMEOUT", "BREED_CACHE_TTL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.thecatapi.com", cfg.CatAPIURL)
	assert.Equal(t, 5*time.Second, cfg.BreedTimeoutDuration())
	assert.Equal(t, time.Hour, cfg.BreedCacheDuration())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agency.toml")
	body := `
mysql_dsn = "sqlite://file.db"
port = "9000"
breed_timeout = 2
allow_origins = ["https://hq.example"]
log_format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv(EnvConfigFile, path)
	t.Setenv("PORT", "9100")
	t.Setenv("ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "sqlite://file.db", cfg.MySQLDSN)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 2, cfg.BreedTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
}

func TestLoad_BadInteger(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("BREED_TIMEOUT", "soon")

	_, err := Load()

	assert.ErrorContains(t, err, "BREED_TIMEOUT")
}

func TestLoad_RejectsUnknownLogFormat(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()

	assert.ErrorContains(t, err, "log_format")
}
