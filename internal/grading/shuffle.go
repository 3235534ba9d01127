package grading

import (
	"math/rand"

	"github.com/nebc/quizhub-backend/internal/model"
)

// shuffleRetries bounds the random reshuffle loop before falling back to a
// deterministic fix-up.
const shuffleRetries = 10

// ShuffleOrder returns the initial display permutation for an ordering
// question. The result is guaranteed to differ from the answer key whenever
// n >= 2, so a user can never be "correct by default": after the bounded
// random retries a single swap of the first two positions forces a mismatch.
func ShuffleOrder(n int, answerKey []int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if n < 2 {
		return perm
	}

	for i := 0; i < shuffleRetries; i++ {
		rand.Shuffle(n, func(i, j int) {
			perm[i], perm[j] = perm[j], perm[i]
		})
		if !equalSequences(perm, answerKey) {
			return perm
		}
	}

	perm[0], perm[1] = perm[1], perm[0]
	return perm
}

// InitialMatching returns the default pairing state for a matching question:
// every slot unmatched.
func InitialMatching(pairs int) []int {
	state := make([]int, pairs)
	for i := range state {
		state[i] = model.MatchingUnset
	}
	return state
}
