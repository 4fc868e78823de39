package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/office-planner/internal/placement"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OFFICE_ENV_FILE",
		"OFFICE_HTTP_PORT",
		"OFFICE_SQLITE_DSN",
		"OFFICE_JWT_SECRET",
		"OFFICE_ACCESS_TOKEN_TTL",
		"OFFICE_REFRESH_TOKEN_TTL",
		"OFFICE_IMAGE_STORE",
		"OFFICE_S3_BUCKET",
		"OFFICE_POLICY_FILE",
		"OFFICE_ADJACENCY_MODE",
		"OFFICE_REDIS_ADDR",
		"OFFICE_MAX_UPLOAD_BYTES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OFFICE_JWT_SECRET", "super-secret")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.HTTPPort)
		assert.Equal(t, "office.db", cfg.SQLiteDSN)
		assert.Equal(t, "super-secret", cfg.JWTSecret)
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
		assert.Equal(t, "local", cfg.ImageStore)
		assert.Equal(t, string(placement.AdjacencySuffix), cfg.Policy.Adjacency)
		assert.Equal(t, "Keepers", cfg.Policy.KeeperGroup)
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)

		_, err := Load()
		require.Error(t, err)
		assert.Equal(t, "required environment variables are not set: OFFICE_JWT_SECRET", err.Error())
	})

	t.Run("reports invalid values together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OFFICE_JWT_SECRET", "secret")
		t.Setenv("OFFICE_HTTP_PORT", "zero")
		t.Setenv("OFFICE_ACCESS_TOKEN_TTL", "-1m")
		t.Setenv("OFFICE_ADJACENCY_MODE", "diagonal")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OFFICE_HTTP_PORT")
		assert.Contains(t, err.Error(), "OFFICE_ACCESS_TOKEN_TTL")
		assert.Contains(t, err.Error(), "OFFICE_ADJACENCY_MODE")
	})

	t.Run("s3 store requires a bucket", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OFFICE_JWT_SECRET", "secret")
		t.Setenv("OFFICE_IMAGE_STORE", "s3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OFFICE_S3_BUCKET")
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OFFICE_JWT_SECRET", "secret-value")
		t.Setenv("OFFICE_HTTP_PORT", "9090")
		t.Setenv("OFFICE_SQLITE_DSN", "/tmp/office.db")
		t.Setenv("OFFICE_REFRESH_TOKEN_TTL", "24h")
		t.Setenv("OFFICE_MAX_UPLOAD_BYTES", "2048")
		t.Setenv("OFFICE_ADJACENCY_MODE", "numeric")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.HTTPPort)
		assert.Equal(t, "/tmp/office.db", cfg.SQLiteDSN)
		assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL)
		assert.Equal(t, int64(2048), cfg.MaxUploadBytes)
		assert.Equal(t, "numeric", cfg.Policy.Adjacency)
	})

	t.Run("reads an explicit env file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "office.env")
		require.NoError(t, os.WriteFile(path, []byte("OFFICE_RATE_LIMIT_PER_MINUTE=5\n"), 0o600))
		t.Setenv("OFFICE_ENV_FILE", path)
		t.Setenv("OFFICE_JWT_SECRET", "secret")
		t.Setenv("OFFICE_RATE_LIMIT_PER_MINUTE", "")
		os.Unsetenv("OFFICE_RATE_LIMIT_PER_MINUTE")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.RateLimitPerMinute)
	})
}

func TestLoadPolicyFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("overrides tables", func(t *testing.T) {
		path := filepath.Join(dir, "policy.yaml")
		content := "adjacency: numeric\npositions:\n  designer: developer\ngroups:\n  QA: TESTER\nkeeper_group: Смотритель\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		policy, err := LoadPolicyFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Смотритель", policy.KeeperGroup)

		adjacency, positions, groups, err := policy.Rules()
		require.NoError(t, err)
		assert.Equal(t, placement.AdjacencyNumeric, adjacency.Mode)
		assert.Equal(t, placement.CategoryDeveloper, positions.Classify("designer"))
		assert.Equal(t, placement.CategoryTester, groups.Classify([]string{"QA"}))
		assert.Equal(t, placement.CategoryDeveloper, groups.Classify([]string{"Developers"}))
	})

	t.Run("rejects unknown positions", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("positions:\n  astronaut: OTHER\n"), 0o600))

		_, err := LoadPolicyFile(path)
		assert.Error(t, err)
	})

	t.Run("rejects unknown categories", func(t *testing.T) {
		path := filepath.Join(dir, "bad-category.yaml")
		require.NoError(t, os.WriteFile(path, []byte("groups:\n  QA: REVIEWER\n"), 0o600))

		_, err := LoadPolicyFile(path)
		assert.Error(t, err)
	})
}
