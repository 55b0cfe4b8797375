package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bytebond/bytebond/internal/model"
)

func usersWithIDs(ids ...uint64) []model.User {
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.User{ID: id, Status: model.UserStatusAvailable})
	}
	return out
}

func TestKeyFor(t *testing.T) {
	assert.Equal(t, pairKey{1, 2}, keyFor(1, 2))
	assert.Equal(t, pairKey{1, 2}, keyFor(2, 1))
	assert.Equal(t, keyFor(9, 4), keyFor(4, 9))
}

func TestPairedSet(t *testing.T) {
	set := pairedSet([]model.Connection{
		{User1ID: 1, User2ID: 2, Status: model.ConnectionStatusCompleted},
		{User1ID: 3, User2ID: 4, Status: model.ConnectionStatusCancelled},
	})
	require.Len(t, set, 2)
	_, ok := set[pairKey{1, 2}]
	assert.True(t, ok)
	_, ok = set[pairKey{3, 4}]
	assert.True(t, ok, "cancelled rounds count as having met too")
}

func TestBuildPairs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("fewer than two users", func(t *testing.T) {
		assert.Nil(t, buildPairs(nil, nil, rng))
		assert.Nil(t, buildPairs(usersWithIDs(1), nil, rng))
	})

	t.Run("even count pairs everyone", func(t *testing.T) {
		pairs := buildPairs(usersWithIDs(1, 2, 3, 4), map[pairKey]struct{}{}, rng)
		require.Len(t, pairs, 2)
		seen := map[uint64]int{}
		for _, p := range pairs {
			assert.Less(t, p[0], p[1], "smaller ID must come first")
			seen[p[0]]++
			seen[p[1]]++
		}
		for id, n := range seen {
			assert.Equal(t, 1, n, "user %d claimed %d times", id, n)
		}
	})

	t.Run("odd count leaves one unpaired", func(t *testing.T) {
		pairs := buildPairs(usersWithIDs(1, 2, 3, 4, 5), map[pairKey]struct{}{}, rng)
		require.Len(t, pairs, 2)
		claimed := map[uint64]struct{}{}
		for _, p := range pairs {
			_, dup0 := claimed[p[0]]
			_, dup1 := claimed[p[1]]
			assert.False(t, dup0 || dup1, "no user may appear in two pairs")
			claimed[p[0]] = struct{}{}
			claimed[p[1]] = struct{}{}
		}
	})

	t.Run("existing pairs are never repeated", func(t *testing.T) {
		existing := map[pairKey]struct{}{
			{1, 2}: {},
			{1, 3}: {},
			{2, 3}: {},
		}
		// The only fresh candidates all involve user 4.
		for i := 0; i < 20; i++ {
			pairs := buildPairs(usersWithIDs(1, 2, 3, 4), existing, rng)
			require.Len(t, pairs, 1)
			assert.Contains(t, []uint64{pairs[0][0], pairs[0][1]}, uint64(4))
			_, repeated := existing[pairs[0]]
			assert.False(t, repeated)
		}
	})

	t.Run("fully met pool yields nothing", func(t *testing.T) {
		existing := map[pairKey]struct{}{{1, 2}: {}}
		assert.Empty(t, buildPairs(usersWithIDs(1, 2), existing, rng))
	})
}
