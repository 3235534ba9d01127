// Package grading holds the pure answer-correctness and scoring logic. It has
// no storage or transport dependencies: callers hand it questions, raw answer
// values and interaction flags and get back verdicts and totals.
package grading

import (
	"bytes"
	"encoding/json"
)

// decodeIndex parses a raw answer as a single option index.
func decodeIndex(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

// decodeBool parses a raw answer as a boolean. Legacy records stored
// true/false questions as 0/1 indices, so those are accepted too (0 → true,
// matching the original option order).
func decodeBool(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil && (n == 0 || n == 1) {
		return n == 0, true
	}
	return false, false
}

// decodeIndexSlice parses a raw answer as a list of option indices.
func decodeIndexSlice(raw json.RawMessage) ([]int, bool) {
	var s []int
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return s, true
}

// isNull reports whether the raw value is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// equalSets compares two index lists as sets, order-independent.
func equalSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[int]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}

// equalSequences compares two index lists positionally.
func equalSequences(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
