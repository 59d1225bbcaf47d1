package dataset_test

import (
	"context"
	"errors"
	"testing"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/dataset"
	"github.com/brydisanto/vibeoff/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = quota.Date{Year: 2025, Month: 6, Day: 1}

func seedOptions(total int) character.SeedOptions {
	opts := character.DefaultSeedOptions()
	opts.Total = total
	return opts
}

func TestNewSeedsZeroedDataset(t *testing.T) {
	t.Parallel()
	ds := dataset.New(seedOptions(20), today)

	require.NoError(t, ds.Validate())
	assert.Len(t, ds.Characters, 20)
	assert.Equal(t, today, ds.User.LastPlayedDate)
	assert.Zero(t, ds.User.VotesToday)
	for _, c := range ds.Characters {
		assert.Zero(t, c.Matches)
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(ds *dataset.Dataset)
	}{
		{name: "missing characters", mutate: func(ds *dataset.Dataset) { ds.Characters = nil }},
		{name: "missing date", mutate: func(ds *dataset.Dataset) { ds.User.LastPlayedDate = quota.Date{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ds := dataset.New(seedOptions(3), today)
			tt.mutate(ds)
			assert.ErrorIs(t, ds.Validate(), dataset.ErrMalformed)
		})
	}
}

func TestCheckIntegrityRejectsInconsistent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(ds *dataset.Dataset)
	}{
		{name: "negative votes", mutate: func(ds *dataset.Dataset) { ds.User.VotesToday = -1 }},
		{name: "duplicate id", mutate: func(ds *dataset.Dataset) { ds.Characters[1].ID = ds.Characters[0].ID }},
		{name: "non-positive id", mutate: func(ds *dataset.Dataset) { ds.Characters[0].ID = 0 }},
		{name: "negative counter", mutate: func(ds *dataset.Dataset) {
			ds.Characters[0].Wins = -1
			ds.Characters[0].Matches = -1
		}},
		{name: "inconsistent matches", mutate: func(ds *dataset.Dataset) { ds.Characters[0].Matches = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ds := dataset.New(seedOptions(3), today)
			tt.mutate(ds)
			// 计数器问题不属于结构损坏
			assert.NoError(t, ds.Validate())
			err := ds.CheckIntegrity()
			assert.ErrorIs(t, err, dataset.ErrInconsistent)
			assert.NotErrorIs(t, err, dataset.ErrMalformed)
		})
	}
}

func TestLoadOrSeedLoadsExisting(t *testing.T) {
	t.Parallel()
	existing := dataset.New(seedOptions(4), today.AddDays(-3))
	require.NoError(t, existing.Characters.ApplyOutcome(1, 2))
	repo := dataset.NewMemory(existing)

	result, err := dataset.LoadOrSeed(context.Background(), repo, seedOptions(20), today)
	require.NoError(t, err)
	assert.Equal(t, dataset.Loaded, result.Outcome)
	assert.Len(t, result.Dataset.Characters, 4)
	assert.Equal(t, existing.User, result.Dataset.User)
	assert.Zero(t, repo.Saves())
}

func TestLoadOrSeedKeepsInconsistentCounters(t *testing.T) {
	t.Parallel()
	existing := dataset.New(seedOptions(3), today)
	existing.Characters[0].Wins = 50
	existing.Characters[0].Matches = 50
	existing.Characters[1].Losses = 50
	existing.Characters[1].Matches = 49
	repo := dataset.NewMemory(existing)

	result, err := dataset.LoadOrSeed(context.Background(), repo, seedOptions(20), today)
	require.NoError(t, err)
	assert.Equal(t, dataset.Loaded, result.Outcome)
	assert.Nil(t, result.Cause)
	require.Len(t, result.Dataset.Characters, 3)
	assert.Equal(t, 50, result.Dataset.Characters[0].Wins)
	assert.Equal(t, 49, result.Dataset.Characters[1].Matches)
	assert.Zero(t, repo.Saves())
}

func TestLoadOrSeedReseeds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		repo    func() *dataset.Memory
		wantErr error
	}{
		{name: "not found", repo: func() *dataset.Memory { return dataset.NewMemory(nil) }, wantErr: dataset.ErrNotFound},
		{name: "malformed payload", repo: func() *dataset.Memory {
			m := dataset.NewMemory(nil)
			m.LoadErr = dataset.ErrMalformed
			return m
		}, wantErr: dataset.ErrMalformed},
		{name: "missing date", repo: func() *dataset.Memory {
			broken := dataset.New(seedOptions(2), today)
			broken.User.LastPlayedDate = quota.Date{}
			return dataset.NewMemory(broken)
		}, wantErr: dataset.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := tt.repo()

			result, err := dataset.LoadOrSeed(context.Background(), repo, seedOptions(20), today)
			require.NoError(t, err)
			assert.Equal(t, dataset.Reseeded, result.Outcome)
			assert.ErrorIs(t, result.Cause, tt.wantErr)
			assert.Len(t, result.Dataset.Characters, 20)
			assert.Equal(t, quota.UserState{LastPlayedDate: today}, result.Dataset.User)
			assert.Equal(t, 1, repo.Saves())
		})
	}
}

func TestLoadOrSeedPropagatesBackendErrors(t *testing.T) {
	t.Parallel()
	backendErr := errors.New("disk on fire")

	loadFails := dataset.NewMemory(nil)
	loadFails.LoadErr = backendErr
	_, err := dataset.LoadOrSeed(context.Background(), loadFails, seedOptions(2), today)
	require.ErrorIs(t, err, dataset.ErrPersistence)
	require.ErrorIs(t, err, backendErr)
	assert.Zero(t, loadFails.Saves())

	saveFails := dataset.NewMemory(nil)
	saveFails.SaveErr = backendErr
	_, err = dataset.LoadOrSeed(context.Background(), saveFails, seedOptions(2), today)
	require.ErrorIs(t, err, dataset.ErrPersistence)
	require.ErrorIs(t, err, backendErr)
}

func TestCopy(t *testing.T) {
	t.Parallel()
	source := dataset.New(seedOptions(5), today)
	require.NoError(t, source.Characters.ApplyOutcome(3, 4))
	source.User.VotesToday = 1

	from := dataset.NewMemory(source)
	to := dataset.NewMemory(nil)

	copied, err := dataset.Copy(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, source.Characters.List(), copied.Characters.List())
	assert.Equal(t, source.User, to.Snapshot().User)
	assert.Equal(t, source.Characters.List(), to.Snapshot().Characters.List())

	_, err = dataset.Copy(context.Background(), dataset.NewMemory(nil), to)
	assert.ErrorIs(t, err, dataset.ErrNotFound)
}

func TestCopyRejectsInconsistentSource(t *testing.T) {
	t.Parallel()
	source := dataset.New(seedOptions(3), today)
	source.Characters[1].Matches = 4
	to := dataset.NewMemory(nil)

	_, err := dataset.Copy(context.Background(), dataset.NewMemory(source), to)
	assert.ErrorIs(t, err, dataset.ErrInconsistent)
	assert.Zero(t, to.Saves())
}
