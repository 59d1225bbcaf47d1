package startup_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brydisanto/vibeoff/internal/platform/config"
	"github.com/brydisanto/vibeoff/internal/platform/startup"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testConfig 返回一个指向临时目录的最小配置
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test", Address: ":0"},
		Game: config.GameConfig{
			DailyLimit:       quota.DefaultDailyLimit,
			TotalCharacters:  6,
			LeaderboardLimit: 20,
			Timezone:         "UTC",
			Seed: config.SeedConfig{
				NameFormat:  "Vibe %d",
				URLFormat:   "https://example.com/%d",
				ImageFormat: "https://example.com/%d.png",
			},
		},
		Storage: config.StorageConfig{
			Backend: config.BackendFile,
			File:    config.FileConfig{Path: filepath.Join(dir, "game_data.json")},
			Sqlite:  config.SqliteConfig{Path: filepath.Join(dir, "vibeoff.db")},
		},
		RateLimit: config.RateLimitConfig{Window: time.Minute, Max: 5},
		Backup:    config.BackupConfig{Interval: time.Minute, Path: filepath.Join(dir, "backup.json")},
		Log:       config.LogConfig{Level: "debug", Format: "console"},
	}
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func shutdownApp(t *testing.T, app *startup.App) {
	t.Helper()
	for _, c := range app.Closers {
		assert.NoError(t, c.Close(), c.Name)
	}
}

func TestInitializeFileBackend(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	ctx := context.Background()

	app, err := startup.InitializeApplication(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer shutdownApp(t, app)

	assert.Nil(t, app.RateLimiter)
	assert.Nil(t, app.Backup)
	assert.False(t, app.Service.HistoryEnabled())
	assert.False(t, app.Service.TicketsRequired())

	// 启动时完成播种
	board, err := app.Service.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 6)
	assert.Equal(t, "Vibe 1", board[0].Character.Name)
	assert.FileExists(t, cfg.Storage.File.Path)
}

func TestInitializeSQLiteWithHistoryAndBackup(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Storage.Backend = config.BackendSQLite
	cfg.History.Enabled = true
	cfg.Backup.Enabled = true
	cfg.Game.RequireTicket = true
	cfg.Game.TicketSecret = "secret"
	ctx := context.Background()

	app, err := startup.InitializeApplication(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, app.Service.HistoryEnabled())
	assert.True(t, app.Service.TicketsRequired())
	require.NotNil(t, app.Backup)
	assert.Equal(t, "backup", app.Closers[0].Name)

	_, err = app.Service.Submit(ctx, 1, 2)
	require.NoError(t, err)
	recent, err := app.Service.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 1, recent[0].WinnerID)

	// 停机时的最后一次备份会写出备份文件
	shutdownApp(t, app)
	assert.FileExists(t, cfg.Backup.Path)
}

func TestInitializeRedisFeatures(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Storage.Redis.Address = mr.Addr()
	cfg.RateLimit.Enabled = true
	cfg.History.Enabled = true
	ctx := context.Background()

	app, err := startup.InitializeApplication(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer shutdownApp(t, app)

	require.NotNil(t, app.RateLimiter)
	assert.True(t, app.Service.HistoryEnabled())
	assert.Len(t, app.Closers, 2)

	_, err = app.Service.Submit(ctx, 3, 4)
	require.NoError(t, err)
	recent, err := app.Service.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	app.Health.PerformCheck(ctx)
	report := app.Health.Report()
	assert.Contains(t, report.Probes, "redis")
	assert.Contains(t, report.Probes, "dataset")
}

func TestOpenStorageRejectsUnknownBackend(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	_, err := startup.OpenStorage(context.Background(), "mongo", cfg, zaptest.NewLogger(t))
	assert.Error(t, err)

	_, err = startup.OpenStorage(context.Background(), config.BackendPostgres, cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
