package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/platform/metadata"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/brydisanto/vibeoff/internal/storage/sqlstore"
	"github.com/brydisanto/vibeoff/internal/vote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestSaveThenLoad(t *testing.T) {
	t.Parallel()
	store, err := sqlstore.New(setupDB(t))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, dataset.ErrNotFound)

	ds := dataset.New(character.DefaultSeedOptions(), quota.Date{Year: 2025, Month: 2, Day: 14})
	require.NoError(t, store.Save(ctx, ds))

	// 第二次保存走 upsert 路径
	require.NoError(t, ds.Characters.ApplyOutcome(11, 12))
	require.NoError(t, ds.Characters.ApplyOutcome(12, 11))
	ds.User.VotesToday = 2
	require.NoError(t, store.Save(ctx, ds))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())
	assert.Equal(t, ds.Characters.List(), loaded.Characters.List())
	assert.Equal(t, ds.User, loaded.User)
}

func TestSaveRemovesStaleCharacters(t *testing.T) {
	t.Parallel()
	store, err := sqlstore.New(setupDB(t))
	require.NoError(t, err)
	ctx := context.Background()
	today := quota.Date{Year: 2025, Month: 2, Day: 14}

	require.NoError(t, store.Save(ctx, dataset.New(character.SeedOptions{Total: 6}, today)))
	require.NoError(t, store.Save(ctx, dataset.New(character.SeedOptions{Total: 3}, today)))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Characters, 3)
	assert.Equal(t, 3, loaded.Characters[2].ID)
}

func TestLoadMissingUserStateIsMalformed(t *testing.T) {
	t.Parallel()
	db := setupDB(t)
	store, err := sqlstore.New(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, dataset.New(character.SeedOptions{Total: 2}, quota.Date{Year: 2025, Month: 1, Day: 1})))
	require.NoError(t, db.Unscoped().Where("key = ?", metadata.VotesTodayKey).Delete(&metadata.Metadata{}).Error)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, dataset.ErrMalformed)

	require.NoError(t, metadata.SetValue(db, metadata.VotesTodayKey, "0"))
	require.NoError(t, metadata.SetValue(db, metadata.LastPlayedDateKey, "not-a-date"))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, dataset.ErrMalformed)
}

func TestHistoryRecentOrder(t *testing.T) {
	t.Parallel()
	history, err := sqlstore.NewHistory(setupDB(t))
	require.NoError(t, err)
	ctx := context.Background()
	base := time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, history.Append(ctx, vote.VoteRecord{
			WinnerID:   i + 1,
			LoserID:    10,
			WinnerName: "w",
			LoserName:  "l",
			VotedAt:    base.Add(time.Duration(i) * time.Second),
		}))
	}

	recent, err := history.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 5, recent[0].WinnerID)
	assert.Equal(t, 4, recent[1].WinnerID)
	assert.True(t, recent[0].VotedAt.Equal(base.Add(4*time.Second)))
}

func TestReplayGuardClaimsOnce(t *testing.T) {
	t.Parallel()
	guard, err := sqlstore.NewReplayGuard(setupDB(t), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := guard.Claim(ctx, "0190a5b2-0000-7000-8000-000000000001")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = guard.Claim(ctx, "0190a5b2-0000-7000-8000-000000000001")
	require.NoError(t, err)
	assert.False(t, first)

	// 超过保留时长的记录会被清理，之后同一个ID可以再次写入
	pruned, err := guard.Prune(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	first, err = guard.Claim(ctx, "0190a5b2-0000-7000-8000-000000000001")
	require.NoError(t, err)
	assert.True(t, first)
}
