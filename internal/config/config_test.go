package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default(Development)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 1*time.Hour, cfg.Cache.ProjectTTL)
	assert.Equal(t, 30*time.Minute, cfg.Cache.UserProjectsTTL)
	assert.Equal(t, 23*time.Hour, cfg.Cache.ClusterObjectsTTL)
	assert.Equal(t, 24*time.Hour, cfg.Storage.SignedURLLifetime)
}

func TestTestingEnvironmentUsesSeparateRedisDB(t *testing.T) {
	cfg := Default(Testing)
	assert.Equal(t, 1, cfg.Redis.DB)
}

func TestValidateRequiresSupabaseCredentials(t *testing.T) {
	cfg := Default(Development)

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supabase.url")
}

func TestValidateRejectsStoreTTLBeyondURLLifetime(t *testing.T) {
	cfg := Default(Development)
	cfg.Supabase.URL = "https://example.supabase.co"
	cfg.Supabase.ServiceRoleKey = "key"
	cfg.Cache.ClusterObjectsTTL = 48 * time.Hour

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster_objects_ttl")
}

func TestLoadWithYAMLAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	base := `
supabase:
  url: https://example.supabase.co
  service_role_key: file-key
redis:
  host: redis.internal
  port: 6380
cache:
  cluster_objects_ttl: 22h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o644))
	t.Setenv("REDIS_HOST", "redis.override")
	t.Setenv("CLUSTER_OBJECTS_CACHE_TTL", "3600")

	cfg, err := NewLoader(dir, Development).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "file-key", cfg.Supabase.ServiceRoleKey)
	// Environment variables win over files.
	assert.Equal(t, "redis.override:6380", cfg.Redis.Addr())
	assert.Equal(t, 1*time.Hour, cfg.Cache.ClusterObjectsTTL)
}

func TestLoadMissingFilesFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PUBLIC_SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("PUBLIC_SUPABASE_SERVICE_ROLE_KEY", "env-key")

	cfg, err := NewLoader(dir, Production).Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "env-key", cfg.Supabase.ServiceRoleKey)
}
