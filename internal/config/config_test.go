package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	cfg := Load()

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.NotEmpty(t, cfg.PhotoPath)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/gearlog.db")
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("CLAUDE_API_KEY", "sk-test123")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/gearlog.db", cfg.DBPath)
	assert.Equal(t, "s3cret", cfg.AuthSecret)
	assert.Equal(t, "sk-test123", cfg.ClaudeAPIKey)
}
