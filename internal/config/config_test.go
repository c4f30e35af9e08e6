package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 10*time.Second, cfg.Git.LocalTimeout)
	assert.Equal(t, 30*time.Second, cfg.Git.RemoteTimeout)
	assert.Equal(t, 300*time.Second, cfg.Git.CloneTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Mining.Timeout)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 5*time.Minute, cfg.Cache.BranchTTL)
	assert.Equal(t, 1, cfg.Coordination.CaMinSharedEdits)
	assert.Contains(t, cfg.Workspace.AllowExtensions, ".go")
	assert.Contains(t, cfg.Workspace.ExcludeDirs, "node_modules")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TNM_REPOSITORIES_DIR", "/data/repos")
	t.Setenv("TNM_JAR_PATH", "/opt/tnm.jar")
	t.Setenv("TNM_DOCKER_MODE", "true")
	t.Setenv("TNM_CONTAINER_NAME", "tnm-worker")
	t.Setenv("TNM_TIMEOUT", "20m")
	t.Setenv("SECUFLOW_POSTGRES_DSN", "postgres://localhost/secuflow")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "/data/repos", cfg.Git.ReposDir)
	assert.Equal(t, "/opt/tnm.jar", cfg.Mining.JarPath)
	assert.True(t, cfg.Mining.DockerMode)
	assert.Equal(t, "tnm-worker", cfg.Mining.ContainerName)
	assert.Equal(t, 20*time.Minute, cfg.Mining.Timeout)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "postgres://localhost/secuflow", cfg.Storage.PostgresDSN)
}

func TestEnvOverridesIgnoreInvalidValues(t *testing.T) {
	t.Setenv("TNM_DOCKER_MODE", "sometimes")
	t.Setenv("TNM_TIMEOUT", "soon")

	cfg := Default()
	applyEnvOverrides(cfg)

	assert.False(t, cfg.Mining.DockerMode)
	assert.Equal(t, 10*time.Minute, cfg.Mining.Timeout)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	t.Setenv("SECUFLOW_POSTGRES_DSN", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
}
