package backup_test

import (
	"context"
	"errors"
	"testing"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/platform/backup"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource 每次返回 ds 的副本
type stubSource struct {
	ds  *dataset.Dataset
	err error
}

func (s *stubSource) Snapshot(_ context.Context) (*dataset.Dataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ds.Clone(), nil
}

func newDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	seed := character.DefaultSeedOptions()
	seed.Total = 3
	today, err := quota.ParseDate("2025-06-01")
	require.NoError(t, err)
	return dataset.New(seed, today)
}

func TestCreateSnapshotSkipsUnchangedData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	source := &stubSource{ds: newDataset(t)}
	target := dataset.NewMemory(nil)
	scheduler := backup.NewScheduler(source, target, 0, nil)

	written, err := scheduler.CreateSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, 1, target.Saves())

	written, err = scheduler.CreateSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, 1, target.Saves())

	// 一次投票之后需要重新备份
	require.NoError(t, source.ds.Characters.ApplyOutcome(1, 2))
	source.ds.User.VotesToday++

	written, err = scheduler.CreateSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, written)

	saved := target.Snapshot()
	winner, ok := saved.Characters.Find(1)
	require.True(t, ok)
	assert.Equal(t, 1, winner.Wins)
	assert.Equal(t, 1, saved.User.VotesToday)
}

func TestCreateSnapshotErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("source", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		scheduler := backup.NewScheduler(&stubSource{err: boom}, dataset.NewMemory(nil), 0, nil)
		_, err := scheduler.CreateSnapshot(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("target", func(t *testing.T) {
		t.Parallel()
		target := dataset.NewMemory(nil)
		target.SaveErr = errors.New("disk full")
		scheduler := backup.NewScheduler(&stubSource{ds: newDataset(t)}, target, 0, nil)
		_, err := scheduler.CreateSnapshot(ctx)
		assert.ErrorIs(t, err, dataset.ErrPersistence)

		// 失败后不记录进度，下一次仍会尝试写入
		target.SaveErr = nil
		written, err := scheduler.CreateSnapshot(ctx)
		require.NoError(t, err)
		assert.True(t, written)
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		scheduler := backup.NewScheduler(&stubSource{ds: newDataset(t)}, dataset.NewMemory(nil), 0, nil)
		_, err := scheduler.CreateSnapshot(canceled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
