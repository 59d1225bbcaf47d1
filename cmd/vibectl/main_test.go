package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/vote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig 在临时目录写入配置，所有数据文件都位于同一目录
func writeConfig(t *testing.T, dir, backend string) string {
	t.Helper()
	content := fmt.Sprintf(`game:
  timezone: UTC
storage:
  backend: %s
  file:
    path: %q
  sqlite:
    path: %q
`, backend, filepath.Join(dir, "game_data.json"), filepath.Join(dir, "vibeoff.db"))

	path := filepath.Join(dir, backend+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"vibectl"}, args...))
	return out.String(), err
}

func TestVoteFlow(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, t.TempDir(), "file")

	out, err := runCLI(t, "--config", cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Votes today: 0/10")

	out, err = runCLI(t, "--config", cfg, "vote", "--winner", "1", "--loser", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Votes today: 1/10")

	out, err = runCLI(t, "--config", cfg, "matchup")
	require.NoError(t, err)
	assert.Contains(t, out, "Votes today: 1/10 (9 remaining)")

	out, err = runCLI(t, "--config", cfg, "leaderboard", "--limit", "3")
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "Good Vibe #1")
	assert.Contains(t, string(lines[0]), "100.00%")
}

func TestVoteRejections(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t, t.TempDir(), "file")

	_, err := runCLI(t, "--config", cfg, "vote", "--winner", "1", "--loser", "1")
	assert.ErrorIs(t, err, character.ErrSelfMatch)

	_, err = runCLI(t, "--config", cfg, "vote", "--winner", "1", "--loser", "99")
	assert.ErrorIs(t, err, character.ErrUnknownCharacter)

	_, err = runCLI(t, "--config", cfg, "history")
	assert.ErrorIs(t, err, vote.ErrHistoryDisabled)
}

func TestMigrateFileToSQLite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	fileCfg := writeConfig(t, dir, "file")
	sqliteCfg := writeConfig(t, dir, "sqlite")

	_, err := runCLI(t, "--config", fileCfg, "vote", "--winner", "5", "--loser", "6")
	require.NoError(t, err)

	out, err := runCLI(t, "--config", fileCfg, "migrate", "--from", "file", "--to", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "Copied 20 characters")

	// 切换到sqlite后能读到迁移过去的战绩与配额
	out, err = runCLI(t, "--config", sqliteCfg, "leaderboard", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Good Vibe #5")

	out, err = runCLI(t, "--config", sqliteCfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Votes today: 1/10")

	_, err = runCLI(t, "--config", fileCfg, "migrate", "--from", "file", "--to", "file")
	assert.ErrorIs(t, err, ErrSameBackend)
}
