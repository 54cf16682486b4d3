package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:      ServerConfig{Mode: "debug"},
		Database:    DatabaseConfig{Driver: "sqlite3", Path: "test.db"},
		Auth:        AuthConfig{TokenSecret: "secret", TokenTTL: time.Hour, IPHashSalt: "salt", MaxSessionsPerIP: 20, SessionWindow: time.Hour},
		Questions:   QuestionsConfig{DefaultCount: 7, MaxCount: 20, DailyCount: 10},
		Submissions: SubmissionsConfig{MaxTextLength: 500, ListLimit: 20},
		Screening:   ScreeningConfig{Provider: "mock"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 25*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 6*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 20, cfg.Auth.MaxSessionsPerIP)
	assert.Equal(t, time.Hour, cfg.Auth.SessionWindow)
	assert.Equal(t, 7, cfg.Questions.DefaultCount)
	assert.Equal(t, 20, cfg.Questions.MaxCount)
	assert.Equal(t, 10, cfg.Questions.DailyCount)
	assert.Equal(t, 500, cfg.Submissions.MaxTextLength)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TRIVIA_AUTH_TOKEN_TTL", "90m")
	t.Setenv("JWT_SECRET", "from-conventional-name")
	t.Setenv("TRIVIA_QUESTIONS_DAILY_COUNT", "5")
	t.Setenv("TRIVIA_DATABASE_DRIVER", "sqlite3")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "from-conventional-name", cfg.Auth.TokenSecret)
	assert.Equal(t, 5, cfg.Questions.DailyCount)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "auth:\n  max_sessions_per_ip: 3\n  session_window: 10m\nquestions:\n  max_count: 50\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Auth.MaxSessionsPerIP)
	assert.Equal(t, 10*time.Minute, cfg.Auth.SessionWindow)
	assert.Equal(t, 50, cfg.Questions.MaxCount)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing secret", func(c *Config) { c.Auth.TokenSecret = "" }, "auth.token_secret is required"},
		{"short secret in release", func(c *Config) { c.Server.Mode = "release" }, "at least 32 characters"},
		{"missing salt", func(c *Config) { c.Auth.IPHashSalt = "" }, "auth.ip_hash_salt is required"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, "auth.token_ttl"},
		{"default above max", func(c *Config) { c.Questions.DefaultCount = 30 }, "questions.default_count"},
		{"anthropic without key", func(c *Config) { c.Screening.Provider = "anthropic" }, "screening.api_key"},
		{"unknown provider", func(c *Config) { c.Screening.Provider = "openai" }, "screening.provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDataSource(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", Name: "trivia", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=trivia sslmode=disable", pg.DataSource())

	lite := DatabaseConfig{Driver: "sqlite3", Path: "/tmp/x.db"}
	assert.Equal(t, "file:/tmp/x.db?_busy_timeout=5000&_foreign_keys=on", lite.DataSource())

	explicit := DatabaseConfig{Driver: "postgres", DSN: "postgres://x"}
	assert.Equal(t, "postgres://x", explicit.DataSource())
}
