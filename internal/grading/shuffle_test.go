package grading

import (
	"testing"

	"github.com/nebc/quizhub-backend/internal/model"
)

// The initial permutation must never equal the answer key, even when the key
// is the identity order, otherwise an untouched question would grade correct.
func TestShuffleOrder_NeverMatchesAnswerKey(t *testing.T) {
	keys := [][]int{
		{0, 1, 2},
		{2, 0, 1},
		{3, 1, 0, 2},
		{1, 0},
	}

	for _, key := range keys {
		for i := 0; i < 200; i++ {
			perm := ShuffleOrder(len(key), key)
			if len(perm) != len(key) {
				t.Fatalf("length %d, want %d", len(perm), len(key))
			}
			if equalSequences(perm, key) {
				t.Fatalf("shuffle produced the answer key %v", key)
			}
			seen := make([]bool, len(perm))
			for _, v := range perm {
				if v < 0 || v >= len(perm) || seen[v] {
					t.Fatalf("not a permutation: %v", perm)
				}
				seen[v] = true
			}
		}
	}
}

func TestShuffleOrder_DegenerateSizes(t *testing.T) {
	if got := ShuffleOrder(0, nil); len(got) != 0 {
		t.Errorf("n=0: got %v", got)
	}
	if got := ShuffleOrder(1, []int{0}); len(got) != 1 || got[0] != 0 {
		t.Errorf("n=1: got %v", got)
	}
}

func TestInitialMatching(t *testing.T) {
	state := InitialMatching(4)
	if len(state) != 4 {
		t.Fatalf("len = %d, want 4", len(state))
	}
	for i, v := range state {
		if v != model.MatchingUnset {
			t.Errorf("slot %d = %d, want unset", i, v)
		}
	}
}
