package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "thoughts", cfg.Board.DefaultCategory)
	assert.Equal(t, int64(5*MiB), cfg.Upload.MaxBytes)
	assert.Equal(t, FailOpen, cfg.Classifier.FailPolicy)
	assert.InDelta(t, 0.60, cfg.Classifier.HighRiskThreshold, 1e-9)
	assert.InDelta(t, 0.80, cfg.Classifier.BorderlineThreshold, 1e-9)
	assert.Equal(t, int64(4096*4096), cfg.Classifier.MaxPixels)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "confessional.yaml")
	yaml := `
server:
  addr: ":9000"
board:
  categories: [knowledge, thoughts, whistleblower]
  default_category: knowledge
classifier:
  fail_policy: closed
  timeout: 2s
  max_pixels: 1000000
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("PORT", "")
	t.Setenv("CONFESSIONAL_SERVER__ADDR", ":9100")
	t.Setenv("CONFESSIONAL_ADMIN__USERNAME", "root")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, "root", cfg.Admin.Username)
	assert.Equal(t, []string{"knowledge", "thoughts", "whistleblower"}, cfg.Board.Categories)
	assert.Equal(t, "knowledge", cfg.Board.DefaultCategory)
	assert.Equal(t, FailClosed, cfg.Classifier.FailPolicy)
	assert.Equal(t, 2*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, int64(1000000), cfg.Classifier.MaxPixels)
}

func TestLoadPortFallback(t *testing.T) {
	t.Setenv("PORT", "4321")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":4321", cfg.Server.Addr)
}

func TestValidateRejectsUnknownDefaultCategory(t *testing.T) {
	cfg := Default()
	cfg.Board.DefaultCategory = "gossip"
	assert.ErrorContains(t, cfg.Validate(), "default category")
}

func TestValidateRejectsBadFailPolicy(t *testing.T) {
	cfg := Default()
	cfg.Classifier.FailPolicy = "maybe"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresClassifierURL(t *testing.T) {
	cfg := Default()
	cfg.Classifier.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Classifier.URL = "http://127.0.0.1:8501"
	assert.NoError(t, cfg.Validate())
}
