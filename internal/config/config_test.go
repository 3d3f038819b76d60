package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHCL = `
api {
  base_url = "https://icm.example.com"
  username = "integration.user"
  password = env("ICM_PASSWORD")
}

organization {
  org_id = 204
}

plan {
  year = 2026
}

deploy {
  force        = true
  read_timeout = "45s"
}
`

func TestParseHCL(t *testing.T) {
	t.Setenv("ICM_PASSWORD", "hunter2")

	cfg, err := ParseHCL([]byte(sampleHCL), "config.hcl")
	require.NoError(t, err)

	assert.Equal(t, "https://icm.example.com", cfg.API.BaseURL)
	assert.Equal(t, "integration.user", cfg.API.Username)
	assert.Equal(t, "hunter2", cfg.API.Password, "env() resolves from the environment")
	assert.Equal(t, int64(204), cfg.Organization.OrgID)
	assert.Equal(t, 2026, cfg.Plan.Year)
	assert.True(t, cfg.Deploy.Force)

	read, write, err := cfg.Timeouts()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, read)
	assert.Zero(t, write)
}

func TestParseHCLUnsetEnv(t *testing.T) {
	t.Setenv("ICM_PASSWORD", "")

	cfg, err := ParseHCL([]byte(sampleHCL), "config.hcl")
	require.NoError(t, err)
	assert.Empty(t, cfg.API.Password)
	assert.ErrorContains(t, cfg.ValidateForDeploy(), "api.password")
}

func TestParseHCLInvalid(t *testing.T) {
	_, err := ParseHCL([]byte(`api { base_url = `), "broken.hcl")
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
api:
  base_url: https://icm.example.com
  username: integration.user
  password: hunter2
organization:
  org_id: 204
plan:
  year: 2026
deploy:
  force: false
  write_timeout: 2m
`))
	require.NoError(t, err)

	assert.Equal(t, "https://icm.example.com", cfg.API.BaseURL)
	assert.Equal(t, int64(204), cfg.Organization.OrgID)
	assert.Equal(t, 2026, cfg.Plan.Year)

	_, write, err := cfg.Timeouts()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, write)
	assert.NoError(t, cfg.ValidateForDeploy())
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	hclPath := filepath.Join(dir, "config.hcl")
	require.NoError(t, os.WriteFile(hclPath, []byte(`
organization {
  org_id = 7
}
`), 0o644))

	cfg, err := Load(hclPath)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Organization.OrgID)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("organization:\n  org_id: 9\n"), 0o644))

	cfg, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, int64(9), cfg.Organization.OrgID)

	_, err = Load(filepath.Join(dir, "config.toml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg, err := ParseYAML([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, time.Now().Year(), cfg.Plan.Year)
	assert.NotNil(t, cfg.API)
	assert.NotNil(t, cfg.Deploy)
}

func TestValidateForDeploy(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
api:
  base_url: https://icm.example.com
  username: u
  password: p
organization:
  org_id: 204
deploy:
  read_timeout: "not a duration"
`))
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.ValidateForDeploy(), "read_timeout")
}
