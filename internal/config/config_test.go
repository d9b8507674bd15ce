package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoConfigFile(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.SSE.Timeout)
	assert.Equal(t, 5, cfg.SSE.MaxConnectionsPerUser)
	assert.Equal(t, ":8080", cfg.HTTP.AdminAddr)
	assert.Equal(t, ":9090", cfg.GRPC.Addr)
	assert.Equal(t, "lru", cfg.Cache.LocalBackend)
	assert.Equal(t, "default", cfg.Cluster.Name)
	assert.NotEmpty(t, cfg.Pod.ID)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sse:\n  maxConnectionsPerUser: 20\nhttp:\n  adminAddr: \":9999\"\n"), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 20, cfg.SSE.MaxConnectionsPerUser)
	assert.Equal(t, ":9999", cfg.HTTP.AdminAddr)
	// Unrelated defaults remain untouched.
	assert.Equal(t, ":9090", cfg.GRPC.Addr)
}

func TestLoad_EnvVarOverridesDefaults(t *testing.T) {
	t.Setenv("BROADCAST_CLUSTER_NAME", "eu-west")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "eu-west", cfg.Cluster.Name)
}

func TestLoad_MissingConfigFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoad_PreservesExplicitPodID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pod:\n  id: \"pod-42\"\n"), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "pod-42", cfg.Pod.ID)
}
