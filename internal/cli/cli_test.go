package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truthbyte/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TRIVIA_DATABASE_DRIVER", "sqlite3")
	t.Setenv("TRIVIA_DATABASE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("TRIVIA_AUTH_TOKEN_SECRET", "cli-test-secret")
	t.Setenv("TRIVIA_AUTH_IP_HASH_SALT", "cli-test-salt")
	t.Setenv("TRIVIA_SCREENING_PROVIDER", "off")
	t.Setenv("TRIVIA_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateSeedReconcile(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations up complete")

	seed := filepath.Join(dir, "seed.jsonl")
	require.NoError(t, os.WriteFile(seed, []byte(
		`{"question":"The Nile is in Africa.","answer":true,"category":"Geography"}
{"question":"Spiders are insects.","answer":false,"tags":["animals"],"difficulty":"2"}
`), 0o644))

	out, err = run(t, "", "seed", "--file", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2")

	out, err = run(t, "", "seed", "--file", seed)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0, skipped 2")

	out, err = run(t, "", "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "questions materialized 0")
}

func TestDecide(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "", "migrate")
	require.NoError(t, err)

	cfg, log, err := loadConfig(&RootOptions{})
	require.NoError(t, err)
	app, err := NewApp(context.Background(), cfg, log)
	require.NoError(t, err)
	answer := true
	id, err := app.Workflow.ProposeQuestion(context.Background(), "5d6a1a8e-2f0b-4c7e-9d55-3b2f8f1e0c11", models.Proposal{
		Text:          "Gold is a metal.",
		CorrectAnswer: &answer,
		Categories:    []string{"science"},
	})
	require.NoError(t, err)
	app.Close()

	out, err := run(t, "", "decide", id, "--action", "approve", "--reviewer", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "approved"`)

	_, err = run(t, "", "decide", id, "--action", "reject", "--reviewer", "alice")
	assert.Error(t, err)

	_, err = run(t, "", "decide", id, "--reviewer", "alice")
	assert.Error(t, err, "--action is required")
}

func TestHashAdminKey(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "s3cret\n", "hash-admin-key")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = run(t, "\n", "hash-admin-key")
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"q.yaml":  "yaml",
		"q.YML":   "yaml",
		"q.jsonl": "jsonl",
		"q":       "jsonl",
	}
	for path, want := range tests {
		assert.Equal(t, want, formatFromPath(path), path)
	}
}
