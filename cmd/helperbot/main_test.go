package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"helperbot/internal/domain"
	"helperbot/internal/history/jsonl"
)

// setup writes a config using local backends only and points cfgPath at it.
func setup(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	manualPath := filepath.Join(dir, "project_data_app.txt")
	require.NoError(t, os.WriteFile(manualPath, []byte("#sync\nOpen settings and enable sync.\n#login\nReset the password.\n"), 0o644))

	yaml := fmt.Sprintf(`manual:
  files: [%q]
history:
  type: jsonl
  dir: %q
logging:
  level: error
  file: %q
`, manualPath, filepath.Join(dir, "hist"), filepath.Join(dir, "test.log"))
	cfgFile := filepath.Join(dir, "helperbot.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(yaml), 0o644))

	cfgPath = cfgFile
	t.Cleanup(func() { cfgPath, listHistory = "", false })
	return dir
}

func newCmd(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(out)
	return cmd
}

func TestIngestCommand(t *testing.T) {
	setup(t)
	var out bytes.Buffer
	require.NoError(t, runIngest(newCmd(&out), nil))

	assert.Contains(t, out.String(), "Indexed 2 sections")
	assert.Contains(t, out.String(), "#sync")
	assert.Contains(t, out.String(), "#login")
}

func TestIngestCommandMissingFile(t *testing.T) {
	dir := setup(t)
	var out bytes.Buffer
	err := runIngest(newCmd(&out), []string{filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	dir := setup(t)
	store, err := jsonl.New(filepath.Join(dir, "hist"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), "20240101_120000",
		domain.NewTurn(domain.RoleUser, "hello"),
		domain.NewTurn(domain.RoleAssistant, "Hi! How can I help?"),
	))

	var out bytes.Buffer
	require.NoError(t, runHistory(newCmd(&out), []string{"20240101_120000"}))
	assert.Equal(t, "user: hello\nassistant: Hi! How can I help?\n", out.String())

	out.Reset()
	require.NoError(t, runHistory(newCmd(&out), nil))
	assert.Equal(t, "20240101_120000\n", out.String())

	assert.Error(t, runHistory(newCmd(&out), []string{"20990101_000000"}))
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("doc_store:\n  type: pinecone\n"), 0o644))
	_, err := loadConfig(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
