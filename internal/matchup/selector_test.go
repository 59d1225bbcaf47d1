package matchup_test

import (
	"math/rand/v2"
	"testing"

	"github.com/brydisanto/vibeoff/internal/character"
	"github.com/brydisanto/vibeoff/internal/matchup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectInsufficientCandidates(t *testing.T) {
	t.Parallel()
	selector := matchup.NewSelector(nil)

	_, _, err := selector.Select(nil)
	require.ErrorIs(t, err, matchup.ErrInsufficientCandidates)

	_, _, err = selector.Select(character.Seed(character.SeedOptions{Total: 1}))
	require.ErrorIs(t, err, matchup.ErrInsufficientCandidates)
}

func TestSelectTwoCharactersIsBalanced(t *testing.T) {
	t.Parallel()
	selector := matchup.NewSelector(rand.NewPCG(1, 2))
	roster := character.Seed(character.SeedOptions{Total: 2})

	const trials = 10000
	firstIsOne := 0
	for range trials {
		a, b, err := selector.Select(roster)
		require.NoError(t, err)
		require.NotEqual(t, a.ID, b.ID)
		require.ElementsMatch(t, []int{1, 2}, []int{a.ID, b.ID})
		if a.ID == 1 {
			firstIsOne++
		}
	}

	// 期望 5000，标准差约 50，容忍 6 个标准差
	assert.InDelta(t, trials/2, firstIsOne, 300)
}

func TestSelectIsUniformAcrossRoster(t *testing.T) {
	t.Parallel()
	selector := matchup.NewSelector(rand.NewPCG(42, 7))
	roster := character.Seed(character.SeedOptions{Total: 5})

	const trials = 20000
	appearances := make(map[int]int)
	for range trials {
		a, b, err := selector.Select(roster)
		require.NoError(t, err)
		require.NotEqual(t, a.ID, b.ID)
		appearances[a.ID]++
		appearances[b.ID]++
	}

	// 每个角色期望出现 2*trials/5 = 8000 次
	for id := 1; id <= 5; id++ {
		assert.InDelta(t, 8000, appearances[id], 400, "character %d", id)
	}
}
