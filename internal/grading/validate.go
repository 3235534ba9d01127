package grading

import (
	"errors"
	"fmt"

	"github.com/nebc/quizhub-backend/internal/model"
)

// Answer-shape validation errors.
var (
	ErrAnswerShape  = errors.New("answer shape does not match question type")
	ErrOptionBounds = errors.New("answer references an option out of range")
)

// ValidateAnswerKey checks that a question's canonical answer has the shape
// its type requires and stays within the variant's option bounds:
//
//	single    → one index into options
//	multiple  → non-empty set of distinct indices into options
//	truefalse → boolean
//	ordering  → permutation of 0..len(order_options)-1
//	matching  → one right-index per left item
func ValidateAnswerKey(q *model.Question) error {
	switch q.Type {
	case model.QuestionTypeSingle:
		idx, ok := decodeIndex(q.Answer)
		if !ok {
			return ErrAnswerShape
		}
		if idx < 0 || idx >= len(q.Options) {
			return ErrOptionBounds
		}

	case model.QuestionTypeTrueFalse:
		if _, ok := decodeBool(q.Answer); !ok {
			return ErrAnswerShape
		}

	case model.QuestionTypeMultiple:
		set, ok := decodeIndexSlice(q.Answer)
		if !ok || len(set) == 0 {
			return ErrAnswerShape
		}
		seen := make(map[int]bool, len(set))
		for _, idx := range set {
			if idx < 0 || idx >= len(q.Options) {
				return ErrOptionBounds
			}
			if seen[idx] {
				return fmt.Errorf("%w: duplicate index %d", ErrAnswerShape, idx)
			}
			seen[idx] = true
		}

	case model.QuestionTypeOrdering:
		key, ok := decodeIndexSlice(q.Answer)
		if !ok || len(key) != len(q.OrderOptions) {
			return ErrAnswerShape
		}
		seen := make([]bool, len(key))
		for _, idx := range key {
			if idx < 0 || idx >= len(key) || seen[idx] {
				return fmt.Errorf("%w: not a permutation", ErrAnswerShape)
			}
			seen[idx] = true
		}

	case model.QuestionTypeMatching:
		key, ok := decodeIndexSlice(q.Answer)
		if !ok || len(key) != len(q.Left) {
			return ErrAnswerShape
		}
		for _, idx := range key {
			if idx < 0 || idx >= len(q.Right) {
				return ErrOptionBounds
			}
		}

	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}

	return nil
}
