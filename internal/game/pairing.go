package game

import (
	"math/rand"

	"github.com/bytebond/bytebond/internal/model"
)

// pairKey is an order-independent identifier for a pair of users: the
// smaller ID always comes first. Connections are stored the same way, so a
// key derived from a stored row and a key derived from a candidate pair
// always agree regardless of who presents the QR code.
type pairKey [2]uint64

func keyFor(a, b uint64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// pairedSet collects the pair keys of existing connections so candidate
// generation can skip combinations that have already met. Every status
// counts: two users who completed or cancelled a round together are not
// paired again either.
func pairedSet(conns []model.Connection) map[pairKey]struct{} {
	set := make(map[pairKey]struct{}, len(conns))
	for _, c := range conns {
		set[keyFor(c.User1ID, c.User2ID)] = struct{}{}
	}
	return set
}

// buildPairs computes the new pairings for one matchmaking pass. It
// generates every unordered pair of available users that has not met
// before, shuffles the candidates, then greedily keeps pairs whose users
// are both still unclaimed. Each returned key has the smaller ID first,
// matching the canonical storage order.
//
// Greedy selection over a shuffled list is first-fit, not maximum
// matching: a user can stay unpaired even though some other selection
// would have paired everyone. That trade-off is deliberate; the pass runs
// every minute and leftovers simply wait for the next one.
func buildPairs(available []model.User, existing map[pairKey]struct{}, rng *rand.Rand) []pairKey {
	if len(available) < 2 {
		return nil
	}

	candidates := make([]pairKey, 0, len(available)*(len(available)-1)/2)
	for i := 0; i < len(available); i++ {
		for j := i + 1; j < len(available); j++ {
			key := keyFor(available[i].ID, available[j].ID)
			if _, seen := existing[key]; seen {
				continue
			}
			candidates = append(candidates, key)
		}
	}

	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	claimed := make(map[uint64]struct{}, len(available))
	var selected []pairKey
	for _, key := range candidates {
		if _, ok := claimed[key[0]]; ok {
			continue
		}
		if _, ok := claimed[key[1]]; ok {
			continue
		}
		claimed[key[0]] = struct{}{}
		claimed[key[1]] = struct{}{}
		selected = append(selected, key)
	}
	return selected
}
